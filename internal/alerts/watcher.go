package alerts

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hollisk/lectern/internal/live"
	"github.com/hollisk/lectern/internal/models"
	"gorm.io/gorm"
)

// DefaultQuietPeriod is how long a conversation stays muted after an alert
// so a burst of messages produces one notification, not a flood.
const DefaultQuietPeriod = 5 * time.Minute

// Watcher subscribes to the live hub and forwards conversation activity to
// the configured notifiers. One hub subscription is held per course; courses
// created after the watcher starts are picked up on the next restart.
type Watcher struct {
	db        *gorm.DB
	hub       *live.Hub
	notifiers []Notifier
	quiet     time.Duration

	mu       sync.Mutex
	lastSent map[uint]time.Time // conversation ID -> last alert time
}

// WatcherOpts holds parameters for creating a Watcher.
type WatcherOpts struct {
	DB          *gorm.DB
	Hub         *live.Hub
	Notifiers   []Notifier
	QuietPeriod time.Duration // defaults to DefaultQuietPeriod
}

// NewWatcher creates a Watcher.
func NewWatcher(opts WatcherOpts) (*Watcher, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("alerts: watcher: db is required")
	}
	if opts.Hub == nil {
		return nil, fmt.Errorf("alerts: watcher: hub is required")
	}
	quiet := opts.QuietPeriod
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Watcher{
		db:        opts.DB,
		hub:       opts.Hub,
		notifiers: opts.Notifiers,
		quiet:     quiet,
		lastSent:  make(map[uint]time.Time),
	}, nil
}

// Run subscribes to every course and forwards events until ctx is
// cancelled. It blocks.
func (w *Watcher) Run(ctx context.Context) error {
	var courses []models.Course
	if err := w.db.Find(&courses).Error; err != nil {
		return fmt.Errorf("alerts: watcher: load courses: %w", err)
	}

	events := make(chan live.Event)
	var wg sync.WaitGroup
	for _, course := range courses {
		conn := w.hub.Subscribe(live.Scope{CourseID: course.ID})
		wg.Add(1)
		go func(conn *live.Connection) {
			defer wg.Done()
			defer w.hub.Unsubscribe(conn)
			for {
				select {
				case <-ctx.Done():
					return
				case evt, open := <-conn.Events:
					if !open {
						return
					}
					select {
					case events <- evt:
					case <-ctx.Done():
						return
					}
				}
			}
		}(conn)
	}

	go func() {
		wg.Wait()
		close(events)
	}()

	for evt := range events {
		if evt.ConversationID == 0 {
			continue
		}
		if !w.shouldAlert(evt.ConversationID) {
			continue
		}
		if err := w.alert(ctx, evt); err != nil {
			log.Printf("alerts: watcher: %v", err)
		}
	}
	return ctx.Err()
}

// shouldAlert records the alert time and reports whether the conversation
// is outside its quiet period.
func (w *Watcher) shouldAlert(conversationID uint) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	if last, ok := w.lastSent[conversationID]; ok && now.Sub(last) < w.quiet {
		return false
	}
	w.lastSent[conversationID] = now
	return true
}

func (w *Watcher) alert(ctx context.Context, evt live.Event) error {
	var conv models.Conversation
	err := w.db.Where("id = ?", evt.ConversationID).First(&conv).Error
	if err == gorm.ErrRecordNotFound {
		// Deleted between commit and alert; nothing to report.
		return nil
	}
	if err != nil {
		return fmt.Errorf("load conversation %d: %w", evt.ConversationID, err)
	}
	var course models.Course
	if err := w.db.Where("id = ?", conv.CourseID).First(&course).Error; err != nil {
		return fmt.Errorf("load course %d: %w", conv.CourseID, err)
	}

	n := Notification{
		Title:    fmt.Sprintf("Activity in %s #%d", course.Code, conv.Number),
		Body:     conv.Title,
		Severity: SeverityInfo,
		Fields: []Field{
			{Name: "Type", Value: conv.Type},
		},
	}
	if conv.Type == models.TypeQuestion && conv.ResolvedAt == nil {
		n.Severity = SeverityWarning
		n.Fields = append(n.Fields, Field{Name: "Status", Value: "unresolved"})
	}
	w.broadcast(ctx, n)
	return nil
}

// broadcast sends to every notifier, logging per-notifier failures rather
// than aborting the rest.
func (w *Watcher) broadcast(ctx context.Context, n Notification) {
	for _, notifier := range w.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			log.Printf("alerts: send %q: %v", n.Title, err)
		}
	}
}
