package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/crisszkutnik/telegram-bot/core/expense"
	"github.com/crisszkutnik/telegram-bot/core/logger"
	"github.com/crisszkutnik/telegram-bot/core/telegram/format"
	"github.com/crisszkutnik/telegram-bot/core/telegram/router"
	"github.com/crisszkutnik/telegram-bot/core/telegram/state"
)

// AutomatedExpense confirms a detected expense when the user replies to its
// notification with the category and optional field overrides:
//
//	Supermercado
//	Almacen
//
//	Monto: 1200
//	Fecha: ayer
type AutomatedExpense struct {
	deps Deps
}

// NewAutomatedExpense returns the notification reply handler.
func NewAutomatedExpense(deps Deps) *AutomatedExpense { return &AutomatedExpense{deps: deps} }

// Name identifies the handler in logs.
func (*AutomatedExpense) Name() string { return "automated_expense" }

// ShouldHandle accepts replies to notification texts. Replies to messages
// written by some other bot are left alone.
func (*AutomatedExpense) ShouldHandle(msg router.Message, _ state.Reader) bool {
	ref := msg.ReplyTo
	if ref == nil || !ref.IsText || ref.FromOtherBot {
		return false
	}
	return strings.HasPrefix(ref.Text, format.NotificationPreamble)
}

// Handle applies the reply on top of the stored notification and submits it.
func (a *AutomatedExpense) Handle(ctx context.Context, msg router.Message, _ state.Store) (router.Response, error) {
	userID, err := a.deps.resolveUser(ctx, msg.SenderID)
	if err != nil {
		return router.Response{}, err
	}

	anchor := int64(msg.ReplyTo.MessageID)
	n, err := a.deps.Notifications.GetNotification(ctx, userID, anchor)
	if err != nil {
		return router.Response{}, fmt.Errorf("notification for reply %d: %w", anchor, err)
	}

	draft, err := expense.ParseOverride(msg.Text, expense.Seed{
		Vendor:        n.Vendor,
		PaymentMethod: n.PaymentMethod,
		Amount:        n.Amount,
		Timestamp:     n.Timestamp,
	}, a.deps.now())
	if err != nil {
		return router.Response{}, err
	}

	draft = draft.Trimmed()
	if err := a.deps.Expenses.AddExpense(ctx, userID, draft); err != nil {
		return router.Response{}, err
	}

	return router.Response{
		Text:      format.ExpenseSummary(format.HeaderSaved, draft),
		Formatted: true,
		ReplyTo:   msg.MessageID,
		AfterSend: func(ctx context.Context) error {
			if err := a.deps.Notifications.DeleteNotification(ctx, n.UserID, n.TelegramMessageID); err != nil {
				return err
			}
			logger.LogEvent(ctx, nil, slog.LevelDebug, "notification.resolved",
				slog.Int64("message_id", n.TelegramMessageID),
			)
			return nil
		},
	}, nil
}
