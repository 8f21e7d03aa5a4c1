// Package discord implements the alerts Notifier for Discord.
package discord

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/hollisk/lectern/internal/alerts"
)

// discordSession abstracts the discordgo methods we use, enabling test
// mocks.
type discordSession interface {
	Open() error
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Close() error
}

// Notifier implements alerts.Notifier for Discord.
type Notifier struct {
	sess      discordSession
	channelID string
}

// Opts holds parameters for creating a Discord Notifier.
type Opts struct {
	Token   string // bot token
	Channel string // channel ID to post to
	// For testing: inject a mock session instead of a real gateway
	// connection.
	Session discordSession
}

// New creates a Discord Notifier and opens its gateway session.
func New(opts Opts) (*Notifier, error) {
	if opts.Session == nil && opts.Token == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if opts.Channel == "" {
		return nil, fmt.Errorf("discord: channel is required")
	}
	n := &Notifier{channelID: opts.Channel, sess: opts.Session}
	if n.sess == nil {
		sess, err := discordgo.New("Bot " + opts.Token)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		n.sess = sess
	}
	if err := n.sess.Open(); err != nil {
		return nil, fmt.Errorf("discord: open session: %w", err)
	}
	return n, nil
}

// Send posts the notification as an embed to the configured channel.
func (n *Notifier) Send(ctx context.Context, note alerts.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := n.sess.ChannelMessageSendEmbed(n.channelID, toEmbed(note)); err != nil {
		return fmt.Errorf("discord: send embed: %w", err)
	}
	return nil
}

// Close shuts down the gateway session.
func (n *Notifier) Close() error {
	return n.sess.Close()
}

// toEmbed converts a Notification to a Discord Embed.
func toEmbed(note alerts.Notification) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       note.Title,
		Description: note.Body,
		Color:       parseHexColor(alerts.SeverityColor(note.Severity)),
	}
	for _, f := range note.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: true,
		})
	}
	return embed
}

// parseHexColor converts a hex color string (e.g. "#36a64f") to an int.
func parseHexColor(hex string) int {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	v, err := strconv.ParseInt(hex, 16, 32)
	if err != nil {
		return 0
	}
	return int(v)
}
