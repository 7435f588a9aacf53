package router

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/crisszkutnik/telegram-bot/core/logger"
	tg "github.com/crisszkutnik/telegram-bot/core/telegram"
	tghelpers "github.com/crisszkutnik/telegram-bot/core/telegram/helpers"
)

// FromTele converts a telebot message into a Message. Only messages that
// carry text are accepted. selfID is the bot's own user id.
func FromTele(m *tele.Message, selfID int64, correlationID string) (Message, bool) {
	if m == nil || m.Text == "" || m.Chat == nil {
		return Message{}, false
	}
	msg := Message{
		ChatID:        m.Chat.ID,
		MessageID:     m.ID,
		Text:          m.Text,
		CorrelationID: correlationID,
	}
	if m.Sender != nil {
		msg.SenderID = m.Sender.ID
	}
	if r := m.ReplyTo; r != nil {
		ref := &ReplyRef{
			MessageID: r.ID,
			Text:      r.Text,
			IsText:    r.Text != "",
		}
		if r.Sender != nil {
			ref.FromSelf = r.Sender.ID == selfID
			ref.FromOtherBot = r.Sender.IsBot && r.Sender.ID != selfID
		}
		msg.ReplyTo = ref
	}
	return msg, true
}

// TextRoute feeds plain-text messages into the mailbox. Every other update
// type is ignored at this boundary.
func TextRoute(mb *Mailbox, selfID func() int64) tg.Route {
	handler := func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		rid := logger.RIDFrom(ctx)

		var self int64
		if selfID != nil {
			self = selfID()
		}
		msg, ok := FromTele(c.Message(), self, rid)
		if !ok {
			return nil
		}
		if err := mb.Enqueue(ctx, msg); err != nil {
			logger.Warn(ctx, "tg.router", "enqueue.fail",
				slog.String("status", "skip"),
				slog.String("err", err.Error()),
			)
		}
		return nil
	}
	return tg.Route{Endpoint: tele.OnText, Handler: handler}
}
