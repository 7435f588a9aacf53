package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type sentCall struct {
	to   tele.Recipient
	text string
	opts *tele.SendOptions
}

type fakeBot struct {
	mu       sync.Mutex
	calls    []sentCall
	failures []error
	nextID   int
}

func (b *fakeBot) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	call := sentCall{to: to, text: what.(string)}
	if len(opts) > 0 {
		call.opts, _ = opts[0].(*tele.SendOptions)
	}
	b.calls = append(b.calls, call)
	if len(b.failures) > 0 {
		err := b.failures[0]
		b.failures = b.failures[1:]
		return nil, err
	}
	b.nextID++
	return &tele.Message{ID: b.nextID}, nil
}

func newTestDispatcher(t *testing.T) *Dispatcher {
	d := NewDispatcher(Options{Workers: 2, MaxRetries: 2, RetryBackoff: time.Millisecond, MaxDuration: time.Second})
	t.Cleanup(d.Close)
	return d
}

func TestOutboundFormattedReply(t *testing.T) {
	bot := &fakeBot{nextID: 99}
	out := NewOutbound(bot, newTestDispatcher(t))

	id, err := out.Send(context.Background(), 42, "- *__Monto:__* 6250.5", SendOptions{Formatted: true, ReplyTo: 7})
	require.NoError(t, err)
	assert.Equal(t, 100, id)

	require.Len(t, bot.calls, 1)
	call := bot.calls[0]
	assert.Equal(t, "42", call.to.Recipient())
	assert.Equal(t, `\- *__Monto:__* 6250\.5`, call.text)
	assert.Equal(t, tele.ModeMarkdownV2, call.opts.ParseMode)
	require.NotNil(t, call.opts.ReplyTo)
	assert.Equal(t, 7, call.opts.ReplyTo.ID)
}

func TestOutboundPlainTextIsNotEscaped(t *testing.T) {
	bot := &fakeBot{}
	out := NewOutbound(bot, nil)

	_, err := out.Send(context.Background(), 1, "Ocurrio un error. Por favor vuelve a intentar", SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Ocurrio un error. Por favor vuelve a intentar", bot.calls[0].text)
	assert.Empty(t, bot.calls[0].opts.ParseMode)
	assert.Nil(t, bot.calls[0].opts.ReplyTo)
}

func TestOutboundRetriesTransientErrors(t *testing.T) {
	bot := &fakeBot{failures: []error{&net.OpError{Op: "dial", Err: errors.New("connection refused")}}}
	disp := newTestDispatcher(t)
	out := NewOutbound(bot, disp)

	id, err := out.Send(context.Background(), 1, "Hola!", SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	assert.Len(t, bot.calls, 2)
	assert.Zero(t, disp.ErrorCount())
}

func TestOutboundDoesNotRetryPermanentErrors(t *testing.T) {
	bot := &fakeBot{failures: []error{&tele.Error{Code: 400, Description: "Bad Request: can't parse entities"}}}
	disp := newTestDispatcher(t)
	out := NewOutbound(bot, disp)

	_, err := out.Send(context.Background(), 1, "Hola!", SendOptions{})
	require.Error(t, err)
	assert.Len(t, bot.calls, 1)
	assert.EqualValues(t, 1, disp.ErrorCount())
}

func TestDispatcherClosed(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1})
	d.Close()
	err := d.Do(context.Background(), "send.text", "sendMessage", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestSanitizeErrorMessage(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AA-bb_CC/sendMessage": dial tcp: timeout`)
	assert.NotContains(t, sanitizeErrorMessage(err), "123456:AA-bb_CC")
}
