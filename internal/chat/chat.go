// Package chat routes chat-platform events to a bot and posts the replies.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"qabot/internal/domain"
)

// EventKind distinguishes the inbound events the handler reacts to.
type EventKind string

const (
	KindMention       EventKind = "mention"
	KindDirectMessage EventKind = "direct_message"
)

// Event is a platform-neutral inbound message.
type Event struct {
	Kind        EventKind
	User        string
	Channel     string
	ChannelType string
	Text        string
	BotID       string
	SubType     string
}

// Poster sends text to a channel.
type Poster interface {
	PostMessage(ctx context.Context, channel, text string) error
}

// Handler answers mentions and direct messages with a bot.
type Handler struct {
	bot    domain.Bot
	poster Poster
	logger *slog.Logger
}

func NewHandler(bot domain.Bot, poster Poster, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{bot: bot, poster: poster, logger: logger}
}

// Accepts reports whether ev should be answered: every mention, and direct
// messages from people (not bots, not edits or joins) in an "im" channel.
func Accepts(ev Event) bool {
	switch ev.Kind {
	case KindMention:
		return true
	case KindDirectMessage:
		return ev.ChannelType == "im" && ev.BotID == "" && ev.SubType == "" && ev.User != ""
	default:
		return false
	}
}

// Handle answers ev and posts the reply to its channel. Ignored events
// return nil.
func (h *Handler) Handle(ctx context.Context, ev Event) error {
	if !Accepts(ev) {
		h.logger.Debug("ignoring event", "kind", ev.Kind, "channel_type", ev.ChannelType, "subtype", ev.SubType)
		return nil
	}
	question := ev.Text
	if ev.Kind == KindMention {
		question = StripMention(question)
	}
	h.logger.Info("question received", "kind", ev.Kind, "user", ev.User, "channel", ev.Channel)
	answer := h.bot.GetResponse(ctx, question)
	if err := h.poster.PostMessage(ctx, ev.Channel, FormatReply(ev.User, answer)); err != nil {
		h.logger.Error("posting reply failed", "channel", ev.Channel, "error", err)
		return fmt.Errorf("post reply: %w", err)
	}
	return nil
}

var leadingMentionRe = regexp.MustCompile(`^\s*(?:<@[A-Z0-9]+(?:\|[^>]*)?>\s*)+`)

// StripMention removes the leading user-mention tokens from text and trims
// what remains.
func StripMention(text string) string {
	return strings.TrimSpace(leadingMentionRe.ReplaceAllString(text, ""))
}

// FormatReply addresses response to user.
func FormatReply(user, response string) string {
	return fmt.Sprintf("<@%s> %s", user, response)
}
