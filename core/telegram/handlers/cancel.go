package handlers

import (
	"context"
	"strings"

	"github.com/crisszkutnik/telegram-bot/core/telegram/router"
	"github.com/crisszkutnik/telegram-bot/core/telegram/state"
)

const (
	CancelKeyword = "cancelar"
	CancelText    = "Cancelado exitosamente"
)

// Cancel abandons whatever flow the chat is in.
type Cancel struct{}

// NewCancel returns the cancel handler.
func NewCancel() *Cancel { return &Cancel{} }

// Name identifies the handler in logs.
func (*Cancel) Name() string { return "cancel" }

// ShouldHandle matches the cancel keyword in any letter case.
func (*Cancel) ShouldHandle(msg router.Message, _ state.Reader) bool {
	return strings.EqualFold(strings.TrimSpace(msg.Text), CancelKeyword)
}

// Handle clears the chat state and confirms.
func (*Cancel) Handle(_ context.Context, msg router.Message, st state.Store) (router.Response, error) {
	st.Delete(msg.ChatID)
	return router.Reply(CancelText), nil
}
