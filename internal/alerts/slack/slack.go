// Package slack implements the alerts Notifier for Slack.
package slack

import (
	"context"
	"fmt"

	"github.com/hollisk/lectern/internal/alerts"
	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Notifier implements alerts.Notifier for Slack.
type Notifier struct {
	client    slackClient
	channelID string
}

// Opts holds parameters for creating a Slack Notifier.
type Opts struct {
	Token   string // xoxb-... Slack bot token
	Channel string // channel ID to post to
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// New creates a Slack Notifier.
func New(opts Opts) (*Notifier, error) {
	if opts.Client == nil && opts.Token == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.Channel == "" {
		return nil, fmt.Errorf("slack: channel is required")
	}
	n := &Notifier{channelID: opts.Channel, client: opts.Client}
	if n.client == nil {
		n.client = slackapi.New(opts.Token)
	}
	return n, nil
}

// Send posts the notification as an attachment to the configured channel.
func (n *Notifier) Send(ctx context.Context, note alerts.Notification) error {
	_, _, err := n.client.PostMessageContext(ctx, n.channelID,
		slackapi.MsgOptionAttachments(toAttachment(note)))
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}

// Close is a no-op; the Slack web API client holds no connection.
func (n *Notifier) Close() error {
	return nil
}

// toAttachment converts a Notification to a Slack Attachment.
func toAttachment(note alerts.Notification) slackapi.Attachment {
	att := slackapi.Attachment{
		Title:    note.Title,
		Text:     note.Body,
		Color:    alerts.SeverityColor(note.Severity),
		Fallback: note.Title,
	}
	for _, f := range note.Fields {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: true,
		})
	}
	return att
}
