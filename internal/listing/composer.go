package listing

import (
	"fmt"
	"sort"
	"time"

	"github.com/hollisk/lectern/internal/models"
	"github.com/hollisk/lectern/internal/readledger"
	"github.com/hollisk/lectern/internal/search"
	"github.com/hollisk/lectern/internal/visibility"
	"gorm.io/gorm"
)

// Summary is one conversation as rendered in the listing.
type Summary struct {
	ID           uint                  `json:"id"`
	Number       uint                  `json:"number"`
	Title        string                `json:"title"`
	Type         string                `json:"type"`
	Author       visibility.AuthorView `json:"author"`
	Pinned       bool                  `json:"pinned"`
	Resolved     bool                  `json:"resolved"`
	StaffOnly    bool                  `json:"staff_only"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	Tags         []models.Tag          `json:"tags"`
	MessageCount int64                 `json:"message_count"`
	UnreadCount  int64                 `json:"unread_count"`
	Endorsements []models.Endorsement  `json:"endorsements,omitempty"`
	Hit          *search.Hit           `json:"hit,omitempty"`
}

// Page is one window of the conversation listing.
type Page struct {
	Items     []Summary `json:"items"`
	MoreExist bool      `json:"more_exist"`
}

// List composes and runs the conversation listing query: search merge,
// conjunctive filters, mandatory visibility scope, pinned-first ordering,
// and +1-row pagination.
func List(gdb *gorm.DB, courseID uint, viewer *models.Participant, f Filters, pageNum, pageSize int) (*Page, error) {
	if pageNum < 1 {
		pageNum = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	hits, err := search.Query(gdb, courseID, viewer, f.Search)
	if err != nil {
		return nil, fmt.Errorf("listing: %w", err)
	}
	searching := hits != nil

	tx := gdb.Model(&models.Conversation{}).
		Where("conversations.course_id = ?", courseID).
		Scopes(visibility.ConversationScope(viewer))
	tx = applyFilters(tx, f, viewer)

	if searching {
		if len(hits) == 0 {
			return &Page{Items: []Summary{}}, nil
		}
		ids := make([]uint, 0, len(hits))
		for id := range hits {
			ids = append(ids, id)
		}
		tx = tx.Where("conversations.id IN ?", ids)
	}

	var convs []models.Conversation
	var more bool
	if searching {
		// The candidate set is bounded by the search matches; order by
		// combined rank in memory, then window.
		if err := tx.Preload("Author").Preload("Taggings.Tag").Find(&convs).Error; err != nil {
			return nil, fmt.Errorf("listing: fetch search candidates: %w", err)
		}
		sort.SliceStable(convs, func(i, j int) bool {
			pi, pj := convs[i].PinnedAt != nil, convs[j].PinnedAt != nil
			if pi != pj {
				return pi
			}
			ri, rj := hits[convs[i].ID].Rank, hits[convs[j].ID].Rank
			if ri != rj {
				return ri < rj
			}
			return convs[i].LastActivity().After(convs[j].LastActivity())
		})
		offset := (pageNum - 1) * pageSize
		if offset >= len(convs) {
			convs = nil
		} else {
			convs = convs[offset:]
		}
		if len(convs) > pageSize {
			convs = convs[:pageSize]
			more = true
		}
	} else {
		err := tx.Order("CASE WHEN conversations.pinned_at IS NULL THEN 1 ELSE 0 END ASC").
			Order("COALESCE(conversations.updated_at, conversations.created_at) DESC").
			Offset((pageNum - 1) * pageSize).
			Limit(pageSize + 1).
			Preload("Author").Preload("Taggings.Tag").
			Find(&convs).Error
		if err != nil {
			return nil, fmt.Errorf("listing: fetch page: %w", err)
		}
		if len(convs) > pageSize {
			convs = convs[:pageSize]
			more = true
		}
	}

	items := make([]Summary, 0, len(convs))
	for i := range convs {
		s, err := buildSummary(gdb, &convs[i], viewer, hits)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return &Page{Items: items, MoreExist: more}, nil
}

// applyFilters adds one WHERE fragment per active dimension, conjunctively.
func applyFilters(tx *gorm.DB, f Filters, viewer *models.Participant) *gorm.DB {
	if len(f.Types) > 0 {
		tx = tx.Where("conversations.type IN ?", f.Types)
	}
	if f.Unread != nil {
		unreadExists := "EXISTS (SELECT 1 FROM messages WHERE messages.conversation_id = conversations.id AND NOT EXISTS (SELECT 1 FROM readings WHERE readings.message_id = messages.id AND readings.participant_id = ?))"
		if *f.Unread {
			tx = tx.Where(unreadExists, viewer.ID)
		} else {
			tx = tx.Where("NOT "+unreadExists, viewer.ID)
		}
	}
	// Resolved is only meaningful for questions; a type subset excluding
	// them makes the combination contradictory and the dimension collapses.
	if f.Resolved != nil && questionSelected(f.Types) {
		if *f.Resolved {
			tx = tx.Where("conversations.type = ? AND conversations.resolved_at IS NOT NULL", models.TypeQuestion)
		} else {
			tx = tx.Where("conversations.type = ? AND conversations.resolved_at IS NULL", models.TypeQuestion)
		}
	}
	if f.Pinned != nil {
		if *f.Pinned {
			tx = tx.Where("conversations.pinned_at IS NOT NULL")
		} else {
			tx = tx.Where("conversations.pinned_at IS NULL")
		}
	}
	if f.StaffOnly != nil {
		if *f.StaffOnly {
			tx = tx.Where("conversations.staff_only_at IS NOT NULL")
		} else {
			tx = tx.Where("conversations.staff_only_at IS NULL")
		}
	}
	if len(f.TagRefs) > 0 {
		tx = tx.Where("EXISTS (SELECT 1 FROM taggings JOIN tags ON tags.id = taggings.tag_id WHERE taggings.conversation_id = conversations.id AND tags.name IN ?)", f.TagRefs)
	}
	return tx
}

func questionSelected(types []string) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == models.TypeQuestion {
			return true
		}
	}
	return false
}

// buildSummary hydrates one conversation row for rendering.
func buildSummary(gdb *gorm.DB, c *models.Conversation, viewer *models.Participant, hits map[uint]search.Hit) (Summary, error) {
	var messageCount int64
	if err := gdb.Model(&models.Message{}).Where("conversation_id = ?", c.ID).Count(&messageCount).Error; err != nil {
		return Summary{}, fmt.Errorf("listing: count messages for conversation %d: %w", c.ID, err)
	}
	unread, err := readledger.UnreadCount(gdb, c.ID, viewer.ID)
	if err != nil {
		return Summary{}, fmt.Errorf("listing: %w", err)
	}

	s := Summary{
		ID:           c.ID,
		Number:       c.Number,
		Title:        c.Title,
		Type:         c.Type,
		Author:       visibility.RenderAuthor(models.ResolveAuthor(c.AuthorID, c.Author), c.Anonymous, viewer),
		Pinned:       c.PinnedAt != nil,
		Resolved:     c.ResolvedAt != nil,
		StaffOnly:    c.StaffOnlyAt != nil,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		Tags:         visibility.VisibleTags(c.Taggings, viewer),
		MessageCount: messageCount,
		UnreadCount:  unread,
	}

	if c.Type == models.TypeQuestion {
		var ends []models.Endorsement
		err := gdb.Model(&models.Endorsement{}).
			Joins("JOIN messages ON messages.id = endorsements.message_id").
			Where("messages.conversation_id = ?", c.ID).
			Find(&ends).Error
		if err != nil {
			return Summary{}, fmt.Errorf("listing: endorsements for conversation %d: %w", c.ID, err)
		}
		s.Endorsements = ends
	}

	if hit, ok := hits[c.ID]; ok {
		s.Hit = &hit
	}
	return s, nil
}
