package sender

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/crisszkutnik/telegram-bot/core/telegram/format"
)

// Bot is the part of *tele.Bot used to deliver messages.
type Bot interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// SendOptions mirrors the formatting knobs handlers can request.
type SendOptions struct {
	// Formatted sends the text as MarkdownV2 after escaping '-' and '.'.
	Formatted bool
	// ReplyTo threads the message under an earlier one when non-zero.
	ReplyTo int
}

// Outbound sends text to chats through the dispatcher.
type Outbound struct {
	bot  Bot
	disp *Dispatcher
}

// NewOutbound builds an Outbound. A nil dispatcher sends on the caller's goroutine without retries.
func NewOutbound(bot Bot, disp *Dispatcher) *Outbound {
	return &Outbound{bot: bot, disp: disp}
}

// Send delivers text to chatID and returns the id Telegram assigned to the message.
func (o *Outbound) Send(ctx context.Context, chatID int64, text string, opts SendOptions) (int, error) {
	sendOpts := &tele.SendOptions{}
	action := "send.text"
	if opts.Formatted {
		text = format.EscapeStructural(text)
		sendOpts.ParseMode = tele.ModeMarkdownV2
		action = "send.markdown"
	}
	if opts.ReplyTo != 0 {
		sendOpts.ReplyTo = &tele.Message{ID: opts.ReplyTo}
	}

	var sent *tele.Message
	run := func() error {
		msg, err := o.bot.Send(tele.ChatID(chatID), text, sendOpts)
		if err != nil {
			return err
		}
		sent = msg
		return nil
	}

	var err error
	if o.disp != nil {
		err = o.disp.Do(ctx, action, "sendMessage", run)
	} else {
		err = run()
	}
	if err != nil {
		return 0, fmt.Errorf("send to chat %d: %w", chatID, err)
	}
	if sent == nil {
		return 0, nil
	}
	return sent.ID, nil
}
