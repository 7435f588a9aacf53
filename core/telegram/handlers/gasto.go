package handlers

import (
	"context"

	"github.com/crisszkutnik/telegram-bot/core/expense"
	"github.com/crisszkutnik/telegram-bot/core/telegram/format"
	"github.com/crisszkutnik/telegram-bot/core/telegram/router"
	"github.com/crisszkutnik/telegram-bot/core/telegram/state"
)

// Gasto records an expense written as one dense block:
//
//	Paddle
//	Efectivo
//	[USD]
//	6250
//	Deporte
//	[Paddle]
//	Hoy
type Gasto struct {
	deps Deps
}

// NewGasto returns the one-message expense handler.
func NewGasto(deps Deps) *Gasto { return &Gasto{deps: deps} }

// Name identifies the handler in logs.
func (*Gasto) Name() string { return "gasto" }

// ShouldHandle matches a non-reply message shaped like an expense block.
func (*Gasto) ShouldHandle(msg router.Message, _ state.Reader) bool {
	return !msg.IsReply() && expense.IsExpenseBlock(msg.Text)
}

// Handle parses the block, submits it and echoes the recorded expense.
func (g *Gasto) Handle(ctx context.Context, msg router.Message, _ state.Store) (router.Response, error) {
	draft, err := expense.ParseLines(msg.Text, g.deps.now())
	if err != nil {
		return router.Response{}, err
	}
	sent, err := g.deps.submit(ctx, msg.SenderID, draft)
	if err != nil {
		return router.Response{}, err
	}
	return router.Response{
		Text:      format.ExpenseSummary(format.HeaderRegistered, sent),
		Formatted: true,
		ReplyTo:   msg.MessageID,
	}, nil
}
