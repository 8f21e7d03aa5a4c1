package listing

import (
	"testing"
	"time"

	"github.com/hollisk/lectern/internal/db"
	"github.com/hollisk/lectern/internal/models"
	"github.com/hollisk/lectern/internal/readledger"
	"github.com/hollisk/lectern/internal/search"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := gdb.AutoMigrate(db.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

type fixture struct {
	gdb     *gorm.DB
	course  models.Course
	staff   models.Participant
	student models.Participant
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{gdb: openTestDB(t)}
	f.course = models.Course{Code: "CS101", Name: "Intro"}
	if err := f.gdb.Create(&f.course).Error; err != nil {
		t.Fatal(err)
	}
	f.staff = models.Participant{CourseID: f.course.ID, Name: "Priya Raman", Role: models.RoleStaff}
	f.student = models.Participant{CourseID: f.course.ID, Name: "Sam Ochoa", Role: models.RoleStudent}
	if err := f.gdb.Create(&f.staff).Error; err != nil {
		t.Fatal(err)
	}
	if err := f.gdb.Create(&f.student).Error; err != nil {
		t.Fatal(err)
	}
	return f
}

// addConversation creates a conversation with one message authored by the
// given participant.
func (f *fixture) addConversation(t *testing.T, number uint, title, typ string, author *models.Participant, mutate func(*models.Conversation)) models.Conversation {
	t.Helper()
	conv := models.Conversation{
		CourseID:    f.course.ID,
		Number:      number,
		Title:       title,
		TitleSearch: search.Normalize(title),
		Type:        typ,
		AuthorID:    &author.ID,
	}
	if mutate != nil {
		mutate(&conv)
	}
	if err := f.gdb.Create(&conv).Error; err != nil {
		t.Fatal(err)
	}
	msg := models.Message{
		ConversationID: conv.ID, Ref: 1, AuthorID: &author.ID,
		Body: "first post", BodySearch: search.Normalize("first post"),
	}
	if err := f.gdb.Create(&msg).Error; err != nil {
		t.Fatal(err)
	}
	return conv
}

func listAll(t *testing.T, f *fixture, viewer *models.Participant, filters Filters) []Summary {
	t.Helper()
	page, err := List(f.gdb, f.course.ID, viewer, filters, 1, 100)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return page.Items
}

func TestList_NeverReturnsInvisibleConversations(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.addConversation(t, 1, "Open question", models.TypeQuestion, &f.staff, nil)
	hidden := f.addConversation(t, 2, "Staff planning", models.TypeNote, &f.staff, func(c *models.Conversation) {
		c.StaffOnlyAt = &now
	})

	items := listAll(t, f, &f.student, Filters{})
	for _, s := range items {
		if s.ID == hidden.ID {
			t.Fatal("staff-only conversation leaked to student listing")
		}
	}
	if len(items) != 1 {
		t.Errorf("student listing = %d items, want 1", len(items))
	}

	if staffItems := listAll(t, f, &f.staff, Filters{}); len(staffItems) != 2 {
		t.Errorf("staff listing = %d items, want 2", len(staffItems))
	}
}

func TestList_StaffOnlyVisibleAfterStudentPosts(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	hidden := f.addConversation(t, 1, "Staff planning", models.TypeNote, &f.staff, func(c *models.Conversation) {
		c.StaffOnlyAt = &now
	})

	if items := listAll(t, f, &f.student, Filters{}); len(items) != 0 {
		t.Fatalf("listing before authorship = %d items, want 0", len(items))
	}

	reply := models.Message{ConversationID: hidden.ID, Ref: 2, AuthorID: &f.student.ID, Body: "reply"}
	if err := f.gdb.Create(&reply).Error; err != nil {
		t.Fatal(err)
	}

	items := listAll(t, f, &f.student, Filters{})
	if len(items) != 1 || items[0].ID != hidden.ID {
		t.Errorf("listing after authorship = %v, want the staff-only conversation", items)
	}
}

func TestList_FiltersNeverAddResults(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.addConversation(t, 1, "Q1", models.TypeQuestion, &f.staff, nil)
	f.addConversation(t, 2, "Q2 resolved", models.TypeQuestion, &f.staff, func(c *models.Conversation) {
		c.ResolvedAt = &now
	})
	f.addConversation(t, 3, "N1", models.TypeNote, &f.staff, func(c *models.Conversation) {
		c.PinnedAt = &now
	})
	f.addConversation(t, 4, "C1", models.TypeChat, &f.staff, nil)

	unfiltered := listAll(t, f, &f.student, Filters{})
	baseline := make(map[uint]bool, len(unfiltered))
	for _, s := range unfiltered {
		baseline[s.ID] = true
	}

	combos := []Filters{
		{Types: []string{models.TypeQuestion}},
		{Resolved: boolPtr(true)},
		{Resolved: boolPtr(false)},
		{Pinned: boolPtr(true)},
		{Unread: boolPtr(true)},
		{Unread: boolPtr(false)},
		{StaffOnly: boolPtr(false)},
		{TagRefs: []string{"logistics"}},
		{Types: []string{models.TypeChat}, Pinned: boolPtr(false)},
	}
	for _, filters := range combos {
		for _, s := range listAll(t, f, &f.student, filters) {
			if !baseline[s.ID] {
				t.Errorf("filters %+v surfaced conversation %d missing from unfiltered listing", filters, s.ID)
			}
		}
	}
}

func TestList_PinnedPrecedeUnpinned(t *testing.T) {
	f := newFixture(t)
	f.addConversation(t, 1, "Old pinned", models.TypeNote, &f.staff, func(c *models.Conversation) {
		pin := time.Now().Add(-48 * time.Hour)
		c.PinnedAt = &pin
		c.CreatedAt = pin
		c.UpdatedAt = pin
	})
	f.addConversation(t, 2, "Fresh unpinned", models.TypeNote, &f.staff, nil)

	items := listAll(t, f, &f.student, Filters{})
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if !items[0].Pinned {
		t.Error("pinned conversation did not sort first despite being older")
	}

	// Pinned-first holds under search too.
	items = listAll(t, f, &f.student, Filters{Search: "pinned"})
	if len(items) != 2 {
		t.Fatalf("search items = %d, want 2", len(items))
	}
	if !items[0].Pinned {
		t.Error("pinned conversation did not sort first in search results")
	}
}

func TestList_SearchAcrossTitleAndContent(t *testing.T) {
	f := newFixture(t)
	titled := f.addConversation(t, 1, "Midterm review", models.TypeNote, &f.staff, nil)
	other := f.addConversation(t, 2, "Week 6", models.TypeNote, &f.staff, nil)
	body := "Does the midterm cover recursion?"
	msg := models.Message{
		ConversationID: other.ID, Ref: 2, AuthorID: &f.student.ID,
		Body: body, BodySearch: search.Normalize(body),
	}
	if err := f.gdb.Create(&msg).Error; err != nil {
		t.Fatal(err)
	}

	items := listAll(t, f, &f.student, Filters{Search: "midterm"})
	if len(items) != 2 {
		t.Fatalf("search items = %d, want 2", len(items))
	}
	kinds := map[uint]string{}
	for _, s := range items {
		if s.Hit == nil {
			t.Fatalf("conversation %d missing search hit", s.ID)
		}
		kinds[s.ID] = s.Hit.Kind
	}
	if kinds[titled.ID] != search.HitTitle {
		t.Errorf("titled conversation hit = %q, want title", kinds[titled.ID])
	}
	if kinds[other.ID] != search.HitContent {
		t.Errorf("content conversation hit = %q, want content", kinds[other.ID])
	}
}

func TestList_WhitespaceSearchIsNoSearch(t *testing.T) {
	f := newFixture(t)
	f.addConversation(t, 1, "Anything", models.TypeNote, &f.staff, nil)

	items := listAll(t, f, &f.student, Filters{Search: "   "})
	if len(items) != 1 {
		t.Errorf("items = %d, want full unsearched listing", len(items))
	}
	if items[0].Hit != nil {
		t.Error("no-search listing carries a search hit")
	}
}

func TestList_UnreadFilter(t *testing.T) {
	f := newFixture(t)
	readConv := f.addConversation(t, 1, "Read one", models.TypeNote, &f.staff, nil)
	unreadConv := f.addConversation(t, 2, "Unread one", models.TypeNote, &f.staff, nil)

	var msg models.Message
	if err := f.gdb.Where("conversation_id = ?", readConv.ID).First(&msg).Error; err != nil {
		t.Fatal(err)
	}
	if err := readledger.MarkRead(f.gdb, msg.ID, f.student.ID); err != nil {
		t.Fatal(err)
	}

	items := listAll(t, f, &f.student, Filters{Unread: boolPtr(true)})
	if len(items) != 1 || items[0].ID != unreadConv.ID {
		t.Errorf("unread-only = %v, want only the unread conversation", items)
	}

	items = listAll(t, f, &f.student, Filters{Unread: boolPtr(false)})
	if len(items) != 1 || items[0].ID != readConv.ID {
		t.Errorf("read-only = %v, want only the fully read conversation", items)
	}
}

func TestList_ResolvedCollapsesWithoutQuestionType(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.addConversation(t, 1, "Resolved Q", models.TypeQuestion, &f.staff, func(c *models.Conversation) {
		c.ResolvedAt = &now
	})
	f.addConversation(t, 2, "A note", models.TypeNote, &f.staff, nil)

	// Contradictory: resolved filter with a type subset excluding questions.
	// The resolved dimension collapses to "no filter".
	items := listAll(t, f, &f.student, Filters{Types: []string{models.TypeNote}, Resolved: boolPtr(true)})
	if len(items) != 1 || items[0].Type != models.TypeNote {
		t.Errorf("items = %v, want the note with resolved dimension dropped", items)
	}
}

func TestList_TagFilterIsOrWithinAndAcross(t *testing.T) {
	f := newFixture(t)
	logistics := models.Tag{CourseID: f.course.ID, Name: "logistics"}
	grading := models.Tag{CourseID: f.course.ID, Name: "grading"}
	if err := f.gdb.Create(&logistics).Error; err != nil {
		t.Fatal(err)
	}
	if err := f.gdb.Create(&grading).Error; err != nil {
		t.Fatal(err)
	}

	tagged := f.addConversation(t, 1, "Tagged", models.TypeNote, &f.staff, nil)
	f.addConversation(t, 2, "Untagged", models.TypeQuestion, &f.staff, nil)
	if err := f.gdb.Create(&models.Tagging{ConversationID: tagged.ID, TagID: logistics.ID}).Error; err != nil {
		t.Fatal(err)
	}

	// OR within the tag dimension: one matching tag suffices.
	items := listAll(t, f, &f.student, Filters{TagRefs: []string{"logistics", "grading"}})
	if len(items) != 1 || items[0].ID != tagged.ID {
		t.Errorf("tag filter = %v, want only the tagged conversation", items)
	}

	// AND with the other dimensions: a non-matching type empties the page.
	items = listAll(t, f, &f.student, Filters{TagRefs: []string{"logistics"}, Types: []string{models.TypeQuestion}})
	if len(items) != 0 {
		t.Errorf("tag+type filter = %v, want no items", items)
	}
}

func TestList_PaginationSentinel(t *testing.T) {
	f := newFixture(t)
	for i := 1; i <= 5; i++ {
		f.addConversation(t, uint(i), "Conversation", models.TypeNote, &f.staff, nil)
	}

	page, err := List(f.gdb, f.course.ID, &f.student, Filters{}, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 2 || !page.MoreExist {
		t.Errorf("page 1 = %d items, more=%v", len(page.Items), page.MoreExist)
	}

	page, err = List(f.gdb, f.course.ID, &f.student, Filters{}, 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || page.MoreExist {
		t.Errorf("last page = %d items, more=%v", len(page.Items), page.MoreExist)
	}
}

func TestList_SummaryHydration(t *testing.T) {
	f := newFixture(t)
	grading := models.Tag{CourseID: f.course.ID, Name: "grading", StaffOnly: true}
	logistics := models.Tag{CourseID: f.course.ID, Name: "logistics"}
	if err := f.gdb.Create(&grading).Error; err != nil {
		t.Fatal(err)
	}
	if err := f.gdb.Create(&logistics).Error; err != nil {
		t.Fatal(err)
	}

	conv := f.addConversation(t, 1, "Question", models.TypeQuestion, &f.student, nil)
	for _, tagID := range []uint{grading.ID, logistics.ID} {
		if err := f.gdb.Create(&models.Tagging{ConversationID: conv.ID, TagID: tagID}).Error; err != nil {
			t.Fatal(err)
		}
	}
	var msg models.Message
	if err := f.gdb.Where("conversation_id = ?", conv.ID).First(&msg).Error; err != nil {
		t.Fatal(err)
	}
	end := models.Endorsement{MessageID: msg.ID, ParticipantID: f.staff.ID}
	if err := f.gdb.Create(&end).Error; err != nil {
		t.Fatal(err)
	}

	items := listAll(t, f, &f.student, Filters{})
	if len(items) != 1 {
		t.Fatalf("items = %d", len(items))
	}
	s := items[0]
	if len(s.Tags) != 1 || s.Tags[0].Name != "logistics" {
		t.Errorf("student-visible tags = %v, staff-only tag should be omitted", s.Tags)
	}
	if s.MessageCount != 1 || s.UnreadCount != 1 {
		t.Errorf("counts = %d messages, %d unread", s.MessageCount, s.UnreadCount)
	}
	if len(s.Endorsements) != 1 {
		t.Errorf("endorsements = %v", s.Endorsements)
	}
	if s.Author.Name != "Sam Ochoa" {
		t.Errorf("author = %+v", s.Author)
	}

	staffItems := listAll(t, f, &f.staff, Filters{})
	if len(staffItems[0].Tags) != 2 {
		t.Errorf("staff-visible tags = %v", staffItems[0].Tags)
	}
}

func TestList_DepartedAuthorSentinel(t *testing.T) {
	f := newFixture(t)
	f.addConversation(t, 1, "Orphaned", models.TypeNote, &f.student, nil)

	// Enrollment removed; the conversation row survives.
	if err := f.gdb.Delete(&models.Participant{}, f.student.ID).Error; err != nil {
		t.Fatal(err)
	}

	items := listAll(t, f, &f.staff, Filters{})
	if len(items) != 1 {
		t.Fatalf("items = %d", len(items))
	}
	if items[0].Author.Name != models.DepartedName {
		t.Errorf("author = %+v, want departed sentinel", items[0].Author)
	}
}
