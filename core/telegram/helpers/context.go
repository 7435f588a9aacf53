// Package helpers bridges telebot contexts and context.Context.
package helpers

import (
	"context"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"

	"github.com/crisszkutnik/telegram-bot/core/logger"
)

const (
	contextKey = "logger_ctx"
	// RIDKey is where LoggerMiddleware stores the update correlation id.
	RIDKey = "rid"
)

// StoreContext attaches reusable context to tele.Context for downstream helpers.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom returns the context stored by middleware, if any.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	if ctx, ok := c.Get(contextKey).(context.Context); ok {
		return ctx, true
	}
	return nil, false
}

// BuildContext constructs a context.Context from tele.Context enriched with
// the correlation id and update/user/chat metadata.
func BuildContext(c tele.Context) context.Context {
	if cached, ok := ContextFrom(c); ok {
		return cached
	}
	if c == nil {
		return context.Background()
	}

	var chatID, userID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}

	rid, _ := c.Get(RIDKey).(string)
	if rid == "" {
		rid = uuid.NewString()
		c.Set(RIDKey, rid)
	}

	ctx := logger.WithUpdateMeta(context.Background(), c.Update().ID, userID, chatID)
	ctx = logger.WithRID(ctx, rid)
	ctx = logger.WithLogger(ctx, logger.TG)
	StoreContext(c, ctx)
	return ctx
}
