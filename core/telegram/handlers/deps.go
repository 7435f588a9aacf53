// Package handlers implements the chat intents, in dispatch priority order:
// Cancel, GuidedExpense, Gasto, AutomatedExpense and Default.
package handlers

import (
	"context"
	"time"

	"github.com/crisszkutnik/telegram-bot/core/database"
	"github.com/crisszkutnik/telegram-bot/core/expense"
	"github.com/crisszkutnik/telegram-bot/core/telegram/router"
)

// UserResolver maps a Telegram user to the internal user id.
type UserResolver interface {
	ResolveUserByTelegramID(ctx context.Context, telegramUserID int64) (string, error)
}

// NotificationStore reads and clears notification anchors.
type NotificationStore interface {
	GetNotification(ctx context.Context, userID string, messageID int64) (database.Notification, error)
	DeleteNotification(ctx context.Context, userID string, messageID int64) error
}

// ExpenseSubmitter records an expense upstream.
type ExpenseSubmitter interface {
	AddExpense(ctx context.Context, userID string, d expense.Draft) error
}

// Deps bundles collaborators shared by the expense handlers.
type Deps struct {
	Users         UserResolver
	Notifications NotificationStore
	Expenses      ExpenseSubmitter
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Priority returns the handlers in dispatch order.
func Priority(deps Deps) []router.Handler {
	return []router.Handler{
		NewCancel(),
		NewGuidedExpense(deps),
		NewGasto(deps),
		NewAutomatedExpense(deps),
		NewDefault(),
	}
}
