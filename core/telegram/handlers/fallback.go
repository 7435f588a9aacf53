package handlers

import (
	"context"

	"github.com/crisszkutnik/telegram-bot/core/telegram/router"
	"github.com/crisszkutnik/telegram-bot/core/telegram/state"
)

const GreetingText = "Hola!"

// Default greets anything no other handler claimed.
type Default struct{}

// NewDefault returns the catch-all greeting handler.
func NewDefault() *Default { return &Default{} }

// Name identifies the handler in logs.
func (*Default) Name() string { return "default" }

// CatchAll marks Default as the last resort.
func (*Default) CatchAll() bool { return true }

// ShouldHandle accepts every message.
func (*Default) ShouldHandle(router.Message, state.Reader) bool { return true }

// Handle replies with the greeting.
func (*Default) Handle(context.Context, router.Message, state.Store) (router.Response, error) {
	return router.Reply(GreetingText), nil
}
