// Package slack connects a chat.Handler to Slack over Socket Mode.
package slack

import (
	"context"
	"errors"
	"log/slog"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"qabot/internal/chat"
	"qabot/internal/domain"
)

// Config holds the Slack credentials. BotToken is the xoxb- token used for
// Web API calls; AppToken is the xapp- token that opens the socket.
type Config struct {
	BotToken string
	AppToken string
	Debug    bool
	// APIURL overrides the Web API endpoint.
	APIURL string
}

// Adapter receives Socket Mode events and answers them with a bot.
type Adapter struct {
	api     *slack.Client
	socket  *socketmode.Client
	handler *chat.Handler
	logger  *slog.Logger
}

func New(cfg Config, bot domain.Bot, logger *slog.Logger) (*Adapter, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("slack bot token is required")
	}
	if cfg.AppToken == "" {
		return nil, errors.New("slack app token is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts := []slack.Option{slack.OptionAppLevelToken(cfg.AppToken)}
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
	}
	api := slack.New(cfg.BotToken, opts...)
	socket := socketmode.New(api,
		socketmode.OptionDebug(cfg.Debug),
		socketmode.OptionLog(slog.NewLogLogger(logger.Handler(), slog.LevelDebug)),
	)
	a := &Adapter{api: api, socket: socket, logger: logger}
	a.handler = chat.NewHandler(bot, a, logger)
	return a, nil
}

// PostMessage implements chat.Poster.
func (a *Adapter) PostMessage(ctx context.Context, channel, text string) error {
	_, _, err := a.api.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
	return err
}

// Run serves events until ctx is cancelled or the connection fails.
func (a *Adapter) Run(ctx context.Context) error {
	go a.consume(ctx)
	a.logger.Info("connecting to slack")
	return a.socket.RunContext(ctx)
}

func (a *Adapter) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-a.socket.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeConnecting:
				a.logger.Debug("slack connecting")
			case socketmode.EventTypeConnected:
				a.logger.Info("slack connected")
			case socketmode.EventTypeConnectionError:
				a.logger.Warn("slack connection error")
			case socketmode.EventTypeEventsAPI:
				if evt.Request != nil {
					a.socket.Ack(*evt.Request)
				}
				apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					a.logger.Warn("unexpected events api payload")
					continue
				}
				ev, ok := toEvent(apiEvent)
				if !ok {
					continue
				}
				go a.dispatch(ctx, ev)
			}
		}
	}
}

func (a *Adapter) dispatch(ctx context.Context, ev chat.Event) {
	if err := a.handler.Handle(ctx, ev); err != nil {
		a.logger.Error("handling slack event failed", "kind", ev.Kind, "channel", ev.Channel, "error", err)
	}
}

// toEvent converts the callback events the adapter reacts to.
func toEvent(apiEvent slackevents.EventsAPIEvent) (chat.Event, bool) {
	if apiEvent.Type != slackevents.CallbackEvent {
		return chat.Event{}, false
	}
	switch inner := apiEvent.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		return chat.Event{
			Kind:    chat.KindMention,
			User:    inner.User,
			Channel: inner.Channel,
			Text:    inner.Text,
			BotID:   inner.BotID,
		}, true
	case *slackevents.MessageEvent:
		return chat.Event{
			Kind:        chat.KindDirectMessage,
			User:        inner.User,
			Channel:     inner.Channel,
			ChannelType: inner.ChannelType,
			Text:        inner.Text,
			BotID:       inner.BotID,
			SubType:     inner.SubType,
		}, true
	default:
		return chat.Event{}, false
	}
}
