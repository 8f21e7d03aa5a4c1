package discord

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/hollisk/lectern/internal/alerts"
)

// mockSession records embed sends.
type mockSession struct {
	opened   bool
	closed   bool
	channels []string
	embeds   []*discordgo.MessageEmbed
	fail     error
}

func (m *mockSession) Open() error {
	m.opened = true
	return nil
}

func (m *mockSession) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	m.channels = append(m.channels, channelID)
	m.embeds = append(m.embeds, embed)
	return &discordgo.Message{}, nil
}

func (m *mockSession) Close() error {
	m.closed = true
	return nil
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Opts{Channel: "123"}); err == nil {
		t.Error("missing token accepted")
	}
	if _, err := New(Opts{Token: "abc"}); err == nil {
		t.Error("missing channel accepted")
	}
	sess := &mockSession{}
	if _, err := New(Opts{Session: sess, Channel: "123"}); err != nil {
		t.Fatalf("injected session rejected: %v", err)
	}
	if !sess.opened {
		t.Error("New did not open the session")
	}
}

func TestSendAndClose(t *testing.T) {
	sess := &mockSession{}
	n, err := New(Opts{Session: sess, Channel: "123"})
	if err != nil {
		t.Fatal(err)
	}
	err = n.Send(context.Background(), alerts.Notification{
		Title:    "Activity in CS101 #2",
		Body:     "Quiz regrade",
		Severity: alerts.SeverityInfo,
		Fields:   []alerts.Field{{Name: "Type", Value: "question"}},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(sess.channels) != 1 || sess.channels[0] != "123" {
		t.Errorf("sent to %v, want [123]", sess.channels)
	}
	embed := sess.embeds[0]
	if embed.Title != "Activity in CS101 #2" {
		t.Errorf("embed title = %q", embed.Title)
	}
	if len(embed.Fields) != 1 || embed.Fields[0].Name != "Type" {
		t.Errorf("embed fields = %+v", embed.Fields)
	}

	if err := n.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !sess.closed {
		t.Error("Close did not close the session")
	}
}

func TestSend_WrapsAPIError(t *testing.T) {
	sess := &mockSession{fail: errors.New("missing access")}
	n, err := New(Opts{Session: sess, Channel: "123"})
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Send(context.Background(), alerts.Notification{Title: "x"}); err == nil {
		t.Error("Send() error = nil, want wrapped API error")
	}
}

func TestParseHexColor(t *testing.T) {
	if got := parseHexColor("#36a64f"); got != 0x36a64f {
		t.Errorf("parseHexColor(#36a64f) = %#x, want 0x36a64f", got)
	}
	if got := parseHexColor("nothex"); got != 0 {
		t.Errorf("parseHexColor(nothex) = %d, want 0", got)
	}
}
