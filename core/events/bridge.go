package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/crisszkutnik/telegram-bot/core/apperr"
	"github.com/crisszkutnik/telegram-bot/core/database"
	"github.com/crisszkutnik/telegram-bot/core/expense"
	"github.com/crisszkutnik/telegram-bot/core/logger"
	"github.com/crisszkutnik/telegram-bot/core/telegram/format"
	"github.com/crisszkutnik/telegram-bot/core/telegram/sender"
)

// ChatResolver finds the Telegram chat of an internal user.
type ChatResolver interface {
	ResolveTelegramIDByUser(ctx context.Context, userID string) (int64, error)
}

// NotificationWriter persists sent notifications.
type NotificationWriter interface {
	InsertNotification(ctx context.Context, n database.Notification) error
}

// Sender delivers chat messages and reports the Telegram message id.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string, opts sender.SendOptions) (int, error)
}

// Bridge turns detected-expense events into chat notifications and records
// each one so a later reply can be correlated with it. Redelivered events are
// notified again.
type Bridge struct {
	chats ChatResolver
	notes NotificationWriter
	out   Sender
	now   func() time.Time
}

// NewBridge wires the bridge collaborators.
func NewBridge(chats ChatResolver, notes NotificationWriter, out Sender) *Bridge {
	return &Bridge{chats: chats, notes: notes, out: out, now: time.Now}
}

// OnEvent handles one event. Unknown topics and unknown users are logged and dropped.
func (b *Bridge) OnEvent(ctx context.Context, topic string, payload []byte) error {
	if topic != TopicNewNotification {
		logger.LogEvent(ctx, logger.EVT, slog.LevelInfo, "event.unhandled", slog.String("topic", topic))
		return nil
	}

	ev, err := DecodeNewExpense(payload)
	if err != nil {
		return err
	}

	chatID, err := b.chats.ResolveTelegramIDByUser(ctx, ev.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		logger.LogEvent(ctx, logger.EVT, slog.LevelWarn, "notification.user_unknown",
			slog.String("topic", topic),
			slog.String("target_user", ev.UserID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve chat for user %s: %w", ev.UserID, err)
	}
	ctx = logger.WithUpdateMeta(ctx, 0, 0, chatID)

	info := ev.NotificationInfo
	detectedAt := info.DetectedAt()
	if detectedAt.IsZero() {
		logger.LogEvent(ctx, logger.EVT, slog.LevelWarn, "notification.timestamp_missing",
			slog.String("timestamp", info.Timestamp),
			slog.String("str_timestamptz", info.StrTimestamptz),
		)
		detectedAt = b.now()
	}

	text := format.Notification(format.DetectedExpense{
		App:           info.App,
		Vendor:        info.Vendor,
		PaymentMethod: info.PaymentMethod,
		Amount:        info.Amount,
		Date:          expense.FormatDate(detectedAt),
	})
	messageID, err := b.out.Send(ctx, chatID, text, sender.SendOptions{Formatted: true})
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	record := database.Notification{
		UserID:            ev.UserID,
		TelegramMessageID: int64(messageID),
		App:               info.App,
		Vendor:            info.Vendor,
		PaymentMethod:     info.PaymentMethod,
		Amount:            info.Amount,
		Timestamp:         detectedAt,
	}
	if err := b.notes.InsertNotification(ctx, record); err != nil {
		return fmt.Errorf("record notification %d: %w", messageID, err)
	}

	logger.LogEvent(ctx, logger.EVT, slog.LevelInfo, "notification.sent",
		slog.String("app", info.App),
		slog.Int("message_id", messageID),
	)
	return nil
}
