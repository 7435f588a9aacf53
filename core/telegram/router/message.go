// Package router classifies inbound chat messages and dispatches each one to
// exactly one handler, in a fixed priority order.
package router

import (
	"context"

	"github.com/crisszkutnik/telegram-bot/core/telegram/state"
)

// ReplyRef describes the message an inbound message replies to.
type ReplyRef struct {
	MessageID int
	Text      string
	// IsText reports whether the replied message was a plain text message.
	IsText bool
	// FromSelf is set when this bot authored the replied message.
	FromSelf bool
	// FromOtherBot is set when a different bot authored the replied message.
	FromOtherBot bool
}

// Message is a plain-text inbound message, stripped of transport details.
type Message struct {
	ChatID        int64
	MessageID     int
	SenderID      int64
	Text          string
	CorrelationID string
	ReplyTo       *ReplyRef
}

// IsReply reports whether the message replies to another one.
func (m Message) IsReply() bool { return m.ReplyTo != nil }

// Response is what a handler asks the dispatcher to send back.
type Response struct {
	Text string
	// Formatted sends Text as MarkdownV2.
	Formatted bool
	// ReplyTo threads the reply under that message id when non-zero.
	ReplyTo int
	// AfterSend runs once the reply was delivered. Its error is logged only.
	AfterSend func(ctx context.Context) error
}

// Reply is a plain-text Response.
func Reply(text string) Response {
	return Response{Text: text}
}

// Handler is one intent. ShouldHandle must be cheap and side-effect free.
type Handler interface {
	Name() string
	ShouldHandle(msg Message, st state.Reader) bool
	Handle(ctx context.Context, msg Message, st state.Store) (Response, error)
}

// CatchAll is implemented by handlers that accept every message.
// The last registered handler must be one.
type CatchAll interface {
	CatchAll() bool
}
