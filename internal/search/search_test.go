package search

import (
	"strings"
	"testing"

	"github.com/hollisk/lectern/internal/db"
	"github.com/hollisk/lectern/internal/models"
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

func TestNormalize(t *testing.T) {
	got := Normalize("  Midterm   Review\tNotes ")
	if got != "midterm review notes" {
		t.Errorf("Normalize = %q", got)
	}
	if Normalize("   ") != "" {
		t.Errorf("whitespace-only input should normalize to empty")
	}
}

func TestQuery_EmptyTextIsNoSearch(t *testing.T) {
	gdb := openTestDB(t)
	viewer := models.Participant{ID: 1, Role: models.RoleStudent}

	hits, err := Query(gdb, 1, &viewer, "   ")
	if err != nil {
		t.Fatal(err)
	}
	if hits != nil {
		t.Errorf("hits = %v, want nil for whitespace-only search", hits)
	}
}

func TestQuery_TitleAndContentIndexes(t *testing.T) {
	gdb := openTestDB(t)
	course := models.Course{Code: "CS101", Name: "Intro"}
	gdb.Create(&course)
	staff := models.Participant{CourseID: course.ID, Name: "Priya Raman", Role: models.RoleStaff}
	gdb.Create(&staff)

	titled := models.Conversation{
		CourseID: course.ID, Number: 1,
		Title: "Midterm review", TitleSearch: Normalize("Midterm review"),
	}
	gdb.Create(&titled)
	other := models.Conversation{
		CourseID: course.ID, Number: 2,
		Title: "Week 6 logistics", TitleSearch: Normalize("Week 6 logistics"),
	}
	gdb.Create(&other)
	body := "Will the midterm cover recursion?"
	msg := models.Message{
		ConversationID: other.ID, Ref: 1, AuthorID: &staff.ID,
		Body: body, BodySearch: Normalize(body),
	}
	gdb.Create(&msg)

	hits, err := Query(gdb, course.ID, &staff, "midterm")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}

	th, ok := hits[titled.ID]
	if !ok || th.Kind != HitTitle {
		t.Errorf("titled conversation hit = %+v, want title kind", th)
	}
	if th.Highlight != "Midterm review" {
		t.Errorf("title highlight = %q", th.Highlight)
	}

	ch, ok := hits[other.ID]
	if !ok || ch.Kind != HitContent {
		t.Errorf("content conversation hit = %+v, want content kind", ch)
	}
	if !strings.Contains(ch.Highlight, "midterm") {
		t.Errorf("content snippet %q does not contain the match", ch.Highlight)
	}
}

func TestQuery_AuthorIndexExcludesAnonymousForStudents(t *testing.T) {
	gdb := openTestDB(t)
	course := models.Course{Code: "CS101", Name: "Intro"}
	gdb.Create(&course)
	author := models.Participant{CourseID: course.ID, Name: "Dana Wu", Role: models.RoleStudent}
	viewer := models.Participant{CourseID: course.ID, Name: "Sam Ochoa", Role: models.RoleStudent}
	staff := models.Participant{CourseID: course.ID, Name: "Priya Raman", Role: models.RoleStaff}
	gdb.Create(&author)
	gdb.Create(&viewer)
	gdb.Create(&staff)

	conv := models.Conversation{CourseID: course.ID, Number: 1, Title: "Q", TitleSearch: "q"}
	gdb.Create(&conv)
	msg := models.Message{
		ConversationID: conv.ID, Ref: 1, AuthorID: &author.ID, Anonymous: true,
		Body: "hello", BodySearch: "hello",
	}
	gdb.Create(&msg)

	// Another student must not find the conversation by the hidden name.
	hits, err := Query(gdb, course.ID, &viewer, "dana")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("student search by anonymous author returned %v", hits)
	}

	// Staff and the author themself can.
	for _, p := range []*models.Participant{&staff, &author} {
		hits, err = Query(gdb, course.ID, p, "dana")
		if err != nil {
			t.Fatal(err)
		}
		h, ok := hits[conv.ID]
		if !ok || h.Kind != HitAuthor {
			t.Errorf("%s search = %+v, want author hit", p.Name, hits)
		}
	}
}

func TestQuery_MergePrefersTitleDisplayBestRank(t *testing.T) {
	gdb := openTestDB(t)
	course := models.Course{Code: "CS101", Name: "Intro"}
	gdb.Create(&course)
	staff := models.Participant{CourseID: course.ID, Name: "Priya Raman", Role: models.RoleStaff}
	gdb.Create(&staff)

	// Title matches at position 9; body matches at position 1, the better rank.
	conv := models.Conversation{
		CourseID: course.ID, Number: 1,
		Title: "About a midterm", TitleSearch: Normalize("About a midterm"),
	}
	gdb.Create(&conv)
	msg := models.Message{
		ConversationID: conv.ID, Ref: 1, AuthorID: &staff.ID,
		Body: "midterm details inside", BodySearch: Normalize("midterm details inside"),
	}
	gdb.Create(&msg)

	hits, err := Query(gdb, course.ID, &staff, "midterm")
	if err != nil {
		t.Fatal(err)
	}
	h := hits[conv.ID]
	if h.Kind != HitTitle {
		t.Errorf("display kind = %q, want title", h.Kind)
	}
	if h.Rank != 1 {
		t.Errorf("rank = %d, want 1 (best across indexes)", h.Rank)
	}
}

func TestSnippet(t *testing.T) {
	body := "This is a very long introduction that keeps going before the midterm detail appears and then continues for quite a while afterwards too."
	got := Snippet(body, "midterm")
	if !strings.Contains(got, "midterm") {
		t.Errorf("snippet %q lost the match", got)
	}
	if !strings.HasPrefix(got, "…") || !strings.HasSuffix(got, "…") {
		t.Errorf("snippet %q missing ellipses", got)
	}
	if len(got) >= len(body) {
		t.Errorf("snippet not shortened: %d >= %d", len(got), len(body))
	}

	// Match at the start: no leading ellipsis.
	if got := Snippet("midterm soon", "midterm"); got != "midterm soon" {
		t.Errorf("short snippet = %q", got)
	}
}
