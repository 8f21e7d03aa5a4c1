// Package alerts bridges discussion events to staff chat channels (Slack,
// Discord). It is outbound only: new-activity notifications fan out from
// the live hub, and a daily digest summarizes unresolved questions.
package alerts

import "context"

// Notifier is the interface platform-specific implementations satisfy.
// Implementations own their connection lifecycle; Send may be called from
// multiple goroutines.
type Notifier interface {
	// Send delivers one notification to the platform.
	Send(ctx context.Context, n Notification) error

	// Close shuts down the notifier connection.
	Close() error
}

// Severity levels for notifications. Platforms map these to colors.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// Notification is one alert formatted for display in chat.
type Notification struct {
	Title    string  // headline, e.g. "New question in CS101"
	Body     string  // detail text
	Severity string  // SeverityInfo or SeverityWarning
	Fields   []Field // key-value metadata pairs
}

// Field is a key-value pair displayed alongside a notification.
type Field struct {
	Name  string
	Value string
}

// SeverityColor maps a severity onto a sidebar color hint.
func SeverityColor(severity string) string {
	if severity == SeverityWarning {
		return "#e8912d"
	}
	return "#36a64f"
}
