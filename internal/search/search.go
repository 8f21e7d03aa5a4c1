// Package search implements the three lexical indexes behind conversation
// discovery: conversation titles, author display names, and message bodies.
// Matching is a substring scan over normalized projections; the relevance
// rank is the 1-based match position, lower being more relevant.
package search

import (
	"fmt"
	"strings"

	"github.com/hollisk/lectern/internal/models"
	"gorm.io/gorm"
)

// Hit kinds, in display priority order.
const (
	HitTitle   = "title"
	HitAuthor  = "author"
	HitContent = "content"
)

// Hit is the merged search result for one conversation: the best rank
// across whichever indexes matched, and a single display highlight chosen
// by title > author > content priority.
type Hit struct {
	ConversationID uint   `json:"conversation_id"`
	Kind           string `json:"kind"`
	Rank           int    `json:"rank"`
	Highlight      string `json:"highlight"`
}

// Normalize produces the stored search projection of a string: lower-cased
// with runs of whitespace collapsed to single spaces.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Query runs the three index searches for text within a course and merges
// them per conversation. Returns nil when the trimmed text is empty.
// Anonymous authorship is excluded from the author index unless the viewer
// is staff or the author themself.
func Query(db *gorm.DB, courseID uint, viewer *models.Participant, text string) (map[uint]Hit, error) {
	q := Normalize(text)
	if q == "" {
		return nil, nil
	}

	titles, err := titleHits(db, courseID, q)
	if err != nil {
		return nil, err
	}
	authors, err := authorHits(db, courseID, viewer, q)
	if err != nil {
		return nil, err
	}
	contents, err := contentHits(db, courseID, q)
	if err != nil {
		return nil, err
	}

	merged := make(map[uint]Hit)
	merge := func(kind string, hits map[uint]candidate) {
		for id, c := range hits {
			hit, ok := merged[id]
			if !ok {
				merged[id] = Hit{ConversationID: id, Kind: kind, Rank: c.rank, Highlight: c.highlight}
				continue
			}
			// Kind and highlight keep display priority; rank keeps the best.
			if c.rank < hit.Rank {
				hit.Rank = c.rank
			}
			merged[id] = hit
		}
	}
	merge(HitTitle, titles)
	merge(HitAuthor, authors)
	merge(HitContent, contents)
	return merged, nil
}

type candidate struct {
	rank      int
	highlight string
}

func titleHits(db *gorm.DB, courseID uint, q string) (map[uint]candidate, error) {
	type row struct {
		ID      uint
		Title   string
		HitRank int
	}
	var rows []row
	err := db.Model(&models.Conversation{}).
		Select("id, title, INSTR(title_search, ?) AS hit_rank", q).
		Where("course_id = ? AND INSTR(title_search, ?) > 0", courseID, q).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("search: title index: %w", err)
	}
	hits := make(map[uint]candidate, len(rows))
	for _, r := range rows {
		hits[r.ID] = candidate{rank: r.HitRank, highlight: r.Title}
	}
	return hits, nil
}

func authorHits(db *gorm.DB, courseID uint, viewer *models.Participant, q string) (map[uint]candidate, error) {
	type row struct {
		ConversationID uint
		Name           string
		HitRank        int
	}
	var rows []row
	err := db.Model(&models.Message{}).
		Select("messages.conversation_id AS conversation_id, participants.name AS name, INSTR(LOWER(participants.name), ?) AS hit_rank", q).
		Joins("JOIN participants ON participants.id = messages.author_id").
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("conversations.course_id = ? AND INSTR(LOWER(participants.name), ?) > 0", courseID, q).
		Where("messages.anonymous = ? OR ? OR messages.author_id = ?", false, viewer.IsStaff(), viewer.ID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("search: author index: %w", err)
	}
	hits := make(map[uint]candidate, len(rows))
	for _, r := range rows {
		if c, ok := hits[r.ConversationID]; ok && c.rank <= r.HitRank {
			continue
		}
		hits[r.ConversationID] = candidate{rank: r.HitRank, highlight: r.Name}
	}
	return hits, nil
}

func contentHits(db *gorm.DB, courseID uint, q string) (map[uint]candidate, error) {
	type row struct {
		ConversationID uint
		Body           string
		HitRank        int
	}
	var rows []row
	err := db.Model(&models.Message{}).
		Select("messages.conversation_id AS conversation_id, messages.body AS body, INSTR(messages.body_search, ?) AS hit_rank", q).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("conversations.course_id = ? AND INSTR(messages.body_search, ?) > 0", courseID, q).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("search: content index: %w", err)
	}
	hits := make(map[uint]candidate, len(rows))
	for _, r := range rows {
		if c, ok := hits[r.ConversationID]; ok && c.rank <= r.HitRank {
			continue
		}
		hits[r.ConversationID] = candidate{rank: r.HitRank, highlight: Snippet(r.Body, q)}
	}
	return hits, nil
}
