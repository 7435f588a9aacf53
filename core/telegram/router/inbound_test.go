package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

const selfID = 1000

func TestFromTeleIgnoresNonText(t *testing.T) {
	_, ok := FromTele(nil, selfID, "rid")
	assert.False(t, ok)

	_, ok = FromTele(&tele.Message{ID: 1, Chat: &tele.Chat{ID: 5}, Photo: &tele.Photo{}}, selfID, "rid")
	assert.False(t, ok)
}

func TestFromTeleReplyToBotNotification(t *testing.T) {
	m := &tele.Message{
		ID:     12,
		Text:   "Super",
		Chat:   &tele.Chat{ID: 5},
		Sender: &tele.User{ID: 77},
		ReplyTo: &tele.Message{
			ID:     11,
			Text:   "Detectamos el siguiente gasto en la aplicacion Galicia",
			Sender: &tele.User{ID: selfID, IsBot: true},
		},
	}
	msg, ok := FromTele(m, selfID, "6f1c")
	require.True(t, ok)

	assert.Equal(t, int64(5), msg.ChatID)
	assert.Equal(t, int64(77), msg.SenderID)
	assert.Equal(t, "6f1c", msg.CorrelationID)
	require.True(t, msg.IsReply())
	assert.Equal(t, 11, msg.ReplyTo.MessageID)
	assert.True(t, msg.ReplyTo.IsText)
	assert.True(t, msg.ReplyTo.FromSelf)
	assert.False(t, msg.ReplyTo.FromOtherBot)
}

func TestFromTeleReplyToOtherBot(t *testing.T) {
	m := &tele.Message{
		ID:      2,
		Text:    "Super",
		Chat:    &tele.Chat{ID: 5},
		ReplyTo: &tele.Message{ID: 1, Sender: &tele.User{ID: 555, IsBot: true}},
	}
	msg, ok := FromTele(m, selfID, "")
	require.True(t, ok)
	assert.False(t, msg.ReplyTo.IsText)
	assert.True(t, msg.ReplyTo.FromOtherBot)
}
