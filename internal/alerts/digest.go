package alerts

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hollisk/lectern/internal/models"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom,
// month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration parses a 5-field cron expression and returns the
// duration until the next fire time. Returns 0 on parse error.
func nextCronDuration(expr string) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	next := sched.Next(time.Now())
	d := time.Until(next)
	if d < 0 {
		return 0
	}
	return d
}

// digestLimit caps how many question titles a course digest lists.
const digestLimit = 10

// CourseDigest summarizes the unresolved questions of one course.
type CourseDigest struct {
	Course     models.Course
	Unresolved int64
	Oldest     []models.Conversation // oldest first, at most digestLimit
}

// BuildCourseDigest queries one course's unresolved questions. Returns nil
// when the course has none.
func BuildCourseDigest(db *gorm.DB, course models.Course) (*CourseDigest, error) {
	base := db.Model(&models.Conversation{}).
		Where("course_id = ? AND type = ? AND resolved_at IS NULL", course.ID, models.TypeQuestion)

	var count int64
	if err := base.Count(&count).Error; err != nil {
		return nil, fmt.Errorf("alerts: digest for %s: %w", course.Code, err)
	}
	if count == 0 {
		return nil, nil
	}

	var oldest []models.Conversation
	err := db.Where("course_id = ? AND type = ? AND resolved_at IS NULL", course.ID, models.TypeQuestion).
		Order("created_at ASC").
		Limit(digestLimit).
		Find(&oldest).Error
	if err != nil {
		return nil, fmt.Errorf("alerts: digest for %s: %w", course.Code, err)
	}

	return &CourseDigest{Course: course, Unresolved: count, Oldest: oldest}, nil
}

// FormatDigest renders a course digest as a notification.
func FormatDigest(d *CourseDigest) Notification {
	var b strings.Builder
	for _, conv := range d.Oldest {
		age := time.Since(conv.CreatedAt).Round(time.Hour)
		fmt.Fprintf(&b, "#%d %s (open %s)\n", conv.Number, conv.Title, age)
	}
	if d.Unresolved > int64(len(d.Oldest)) {
		fmt.Fprintf(&b, "…and %d more\n", d.Unresolved-int64(len(d.Oldest)))
	}
	return Notification{
		Title:    fmt.Sprintf("%s: %d unresolved questions", d.Course.Code, d.Unresolved),
		Body:     strings.TrimRight(b.String(), "\n"),
		Severity: SeverityWarning,
		Fields: []Field{
			{Name: "Course", Value: d.Course.Name},
		},
	}
}

// RunDigest sends an unresolved-questions digest per course on the given
// cron schedule until ctx is cancelled. It blocks. Courses with no
// unresolved questions are skipped.
func (w *Watcher) RunDigest(ctx context.Context, cronExpr string) error {
	if _, err := cronParser.Parse(cronExpr); err != nil {
		return fmt.Errorf("alerts: digest cron %q: %w", cronExpr, err)
	}
	for {
		timer := time.NewTimer(nextCronDuration(cronExpr))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if err := w.SendDigests(ctx); err != nil {
			log.Printf("alerts: digest: %v", err)
		}
	}
}

// SendDigests builds and broadcasts one digest per course with unresolved
// questions.
func (w *Watcher) SendDigests(ctx context.Context) error {
	var courses []models.Course
	if err := w.db.Find(&courses).Error; err != nil {
		return fmt.Errorf("alerts: digest: load courses: %w", err)
	}
	for _, course := range courses {
		d, err := BuildCourseDigest(w.db, course)
		if err != nil {
			return err
		}
		if d == nil {
			continue
		}
		w.broadcast(ctx, FormatDigest(d))
	}
	return nil
}
