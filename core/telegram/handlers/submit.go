package handlers

import (
	"context"
	"fmt"

	"github.com/crisszkutnik/telegram-bot/core/expense"
)

// resolveUser maps the sender to the internal user. A missing mapping is a system error.
func (d Deps) resolveUser(ctx context.Context, telegramUserID int64) (string, error) {
	userID, err := d.Users.ResolveUserByTelegramID(ctx, telegramUserID)
	if err != nil {
		return "", fmt.Errorf("resolve sender %d: %w", telegramUserID, err)
	}
	return userID, nil
}

// submit records draft for the sender and returns the draft as sent upstream.
func (d Deps) submit(ctx context.Context, telegramUserID int64, draft expense.Draft) (expense.Draft, error) {
	userID, err := d.resolveUser(ctx, telegramUserID)
	if err != nil {
		return expense.Draft{}, err
	}
	draft = draft.Trimmed()
	if err := d.Expenses.AddExpense(ctx, userID, draft); err != nil {
		return expense.Draft{}, err
	}
	return draft, nil
}
