package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"

	"github.com/crisszkutnik/telegram-bot/core/logger"
	tghelpers "github.com/crisszkutnik/telegram-bot/core/telegram/helpers"
)

// LoggerMiddleware assigns a correlation id to the update, stores the
// enriched context for downstream handlers and logs one receipt line.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		chatID, userID := int64(0), int64(0)
		if chat := c.Chat(); chat != nil {
			chatID = chat.ID
		}
		if user := c.Sender(); user != nil {
			userID = user.ID
		}

		rid := uuid.NewString()
		c.Set(tghelpers.RIDKey, rid)
		c.Set("update_start", time.Now())

		ctx := logger.WithRID(logger.WithUpdateMeta(context.Background(), upd.ID, userID, chatID), rid)
		ctx = logger.WithLogger(ctx, logger.TG)
		tghelpers.StoreContext(c, ctx)

		attrs := []slog.Attr{slog.String("status", "ok")}
		if chat := c.Chat(); chat != nil {
			attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
		}
		if user := c.Sender(); user != nil && user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
		}
		switch {
		case upd.Message != nil && upd.Message.Text != "":
			attrs = append(attrs,
				slog.String("kind", "text"),
				slog.String("payload", logger.SanitizeLimit(upd.Message.Text, 256)),
			)
		case upd.Message != nil:
			attrs = append(attrs, slog.String("kind", "message"))
		default:
			attrs = append(attrs, slog.String("kind", "other"))
		}
		logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", attrs...)

		return next(c)
	}
}
