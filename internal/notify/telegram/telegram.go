// Package telegram sends engine notifications to Telegram chats.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"facewatch/internal/core"
	"facewatch/internal/notify"
)

const SinkName = "telegram"

// Sender is the subset of the bot API used by the sink
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Config selects the bot and the chats to notify
type Config struct {
	Token    string
	ChatIDs  []int64
	Timezone string // IANA name used to format times, empty for local time
	Hostname string // shown in every message to tell workstations apart
}

// Sink delivers events as Markdown messages
type Sink struct {
	sender   Sender
	chatIDs  []int64
	location *time.Location
	hostname string
	logger   *slog.Logger
}

// New creates a sink backed by the Telegram Bot API
func New(cfg Config, logger *slog.Logger) (*Sink, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	return NewWithSender(api, cfg, logger)
}

// NewWithSender creates a sink around an existing sender
func NewWithSender(sender Sender, cfg Config, logger *slog.Logger) (*Sink, error) {
	if len(cfg.ChatIDs) == 0 {
		return nil, errors.New("telegram: at least one chat id is required")
	}

	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %s: %w", cfg.Timezone, err)
		}
		loc = l
	}

	return &Sink{
		sender:   sender,
		chatIDs:  cfg.ChatIDs,
		location: loc,
		hostname: cfg.Hostname,
		logger:   logger.With("sink", SinkName),
	}, nil
}

// Name returns the sink name
func (s *Sink) Name() string {
	return SinkName
}

// Notify sends the formatted event to every configured chat
func (s *Sink) Notify(ctx context.Context, event core.Event) error {
	text := FormatEvent(event, s.hostname, s.location)

	var errs []error
	for _, chatID := range s.chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := s.sender.Send(msg); err != nil {
			s.logger.Error("failed to send message", "chat_id", chatID, "error", err)
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// FormatEvent renders an event as a Telegram Markdown message
func FormatEvent(event core.Event, hostname string, loc *time.Location) string {
	var sb strings.Builder

	sb.WriteString(eventEmoji(event.Kind))
	sb.WriteString(" *")
	sb.WriteString(eventTitle(event))
	sb.WriteString("*\n")

	if hostname != "" {
		sb.WriteString(fmt.Sprintf("Host: `%s`\n", hostname))
	}
	if !event.CreatedAt.IsZero() {
		t := event.CreatedAt
		if loc != nil {
			t = t.In(loc)
		}
		sb.WriteString(fmt.Sprintf("Time: %s\n", t.Format("15:04:05")))
	}
	sb.WriteString(fmt.Sprintf("Presence score: %d\n", event.Score))
	if event.Detail != "" {
		sb.WriteString(fmt.Sprintf("Details: %s\n", escape(event.Detail)))
	}

	return sb.String()
}

func eventTitle(event core.Event) string {
	switch event.Kind {
	case core.EventLock:
		return "Workstation locked (no one present)"
	case core.EventLockFailed:
		return "Failed to lock workstation"
	case core.EventFlagCleared:
		return "Presence recovered"
	case core.EventSessionLocked:
		if event.SelfLock {
			return "Session locked by facewatch"
		}
		return "Session locked"
	case core.EventSessionUnlocked:
		return "Session unlocked, monitoring resumed"
	case core.EventSampleAborted:
		return "Camera check aborted"
	case core.EventHeartbeat:
		return "Heartbeat"
	default:
		return string(event.Kind)
	}
}

func eventEmoji(kind core.EventKind) string {
	switch kind {
	case core.EventLock, core.EventSessionLocked:
		return "🔒"
	case core.EventSessionUnlocked:
		return "🔓"
	case core.EventLockFailed:
		return "⚠️"
	case core.EventFlagCleared:
		return "👤"
	case core.EventHeartbeat:
		return "💓"
	default:
		return "ℹ️"
	}
}

// escape neutralizes legacy Markdown control characters
func escape(s string) string {
	r := strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")
	return r.Replace(s)
}

// Ensure Sink implements the interface
var _ notify.Sink = (*Sink)(nil)
