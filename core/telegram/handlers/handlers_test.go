package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crisszkutnik/telegram-bot/core/apperr"
	"github.com/crisszkutnik/telegram-bot/core/database"
	"github.com/crisszkutnik/telegram-bot/core/expense"
	"github.com/crisszkutnik/telegram-bot/core/expenses"
	"github.com/crisszkutnik/telegram-bot/core/telegram/format"
	"github.com/crisszkutnik/telegram-bot/core/telegram/router"
	"github.com/crisszkutnik/telegram-bot/core/telegram/state"
)

const (
	chatID   = int64(555)
	senderID = int64(999)
	userID   = "0195b116-dbc7-754d-a323-c5426596cf86"
)

var fixedNow = time.Date(2025, time.March, 20, 10, 0, 0, 0, expense.Location)

type fakeUsers struct{ users map[int64]string }

func (f *fakeUsers) ResolveUserByTelegramID(_ context.Context, id int64) (string, error) {
	u, ok := f.users[id]
	if !ok {
		return "", apperr.ErrNotFound
	}
	return u, nil
}

type noteKey struct {
	user string
	msg  int64
}

type fakeNotifications struct {
	rows    map[noteKey]database.Notification
	deleted []noteKey
}

func (f *fakeNotifications) GetNotification(_ context.Context, user string, msg int64) (database.Notification, error) {
	n, ok := f.rows[noteKey{user, msg}]
	if !ok {
		return database.Notification{}, apperr.ErrNotFound
	}
	return n, nil
}

func (f *fakeNotifications) DeleteNotification(_ context.Context, user string, msg int64) error {
	f.deleted = append(f.deleted, noteKey{user, msg})
	delete(f.rows, noteKey{user, msg})
	return nil
}

type submission struct {
	user  string
	draft expense.Draft
}

type fakeExpenses struct {
	got []submission
	err error
}

func (f *fakeExpenses) AddExpense(_ context.Context, user string, d expense.Draft) error {
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, submission{user: user, draft: d})
	return nil
}

type fixture struct {
	deps  Deps
	notes *fakeNotifications
	exp   *fakeExpenses
	store state.Store
}

func newFixture() *fixture {
	notes := &fakeNotifications{rows: map[noteKey]database.Notification{
		{userID, 41}: {
			UserID:            userID,
			TelegramMessageID: 41,
			App:               "Banco Galicia",
			Vendor:            "SOME VENDOR",
			PaymentMethod:     "VISA Galicia",
			Amount:            decimal.RequireFromString("400.45"),
			Timestamp:         time.Date(2025, 3, 18, 14, 30, 0, 0, expense.Location),
		},
	}}
	exp := &fakeExpenses{}
	return &fixture{
		deps: Deps{
			Users:         &fakeUsers{users: map[int64]string{senderID: userID}},
			Notifications: notes,
			Expenses:      exp,
			Now:           func() time.Time { return fixedNow },
		},
		notes: notes,
		exp:   exp,
		store: state.NewMemoryStore(),
	}
}

func text(t string) router.Message {
	return router.Message{ChatID: chatID, MessageID: 7, SenderID: senderID, Text: t}
}

func replyTo(t string, ref router.ReplyRef) router.Message {
	m := text(t)
	m.ReplyTo = &ref
	return m
}

func notificationRef() router.ReplyRef {
	return router.ReplyRef{
		MessageID: 41,
		Text:      format.NotificationPreamble + " Banco Galicia\n\nNombre: SOME VENDOR",
		IsText:    true,
		FromSelf:  true,
	}
}

func pick(hs []router.Handler, msg router.Message, st state.Reader) string {
	for _, h := range hs {
		if h.ShouldHandle(msg, st) {
			return h.Name()
		}
	}
	return ""
}

func TestPriorityOrder(t *testing.T) {
	f := newFixture()
	hs := Priority(f.deps)

	assert.Equal(t, "cancel", pick(hs, text("CANCELAR"), f.store))
	assert.Equal(t, "guided_expense", pick(hs, text("Gasto"), f.store))
	assert.Equal(t, "gasto", pick(hs, text("Paddle\nEfectivo\n6250\nDeporte\nHoy"), f.store))
	assert.Equal(t, "automated_expense", pick(hs, replyTo("Super", notificationRef()), f.store))
	assert.Equal(t, "default", pick(hs, text("hola"), f.store))
	assert.Equal(t, "default", pick(hs, replyTo("Paddle\nEfectivo\n6250\nDeporte\nHoy", router.ReplyRef{IsText: true, Text: "x"}), f.store))

	_, isCatchAll := hs[len(hs)-1].(router.CatchAll)
	assert.True(t, isCatchAll)
}

func TestCancelDeletesAnyState(t *testing.T) {
	f := newFixture()
	f.store.Set(chatID, state.Entry{Flow: state.ExpenseEntryFlow{Step: state.StepDate}})

	resp, err := NewCancel().Handle(context.Background(), text("Cancelar"), f.store)
	require.NoError(t, err)
	assert.Equal(t, CancelText, resp.Text)
	_, ok := f.store.Get(chatID)
	assert.False(t, ok)
}

func TestDefaultGreets(t *testing.T) {
	resp, err := NewDefault().Handle(context.Background(), text("hola"), state.NewMemoryStore())
	require.NoError(t, err)
	assert.Equal(t, "Hola!", resp.Text)
}

func TestGastoSubmitsAndEchoes(t *testing.T) {
	f := newFixture()
	g := NewGasto(f.deps)

	resp, err := g.Handle(context.Background(), text("Paddle\nEfectivo\nUSD\n6250\nDeporte\nHoy"), f.store)
	require.NoError(t, err)

	require.Len(t, f.exp.got, 1)
	sub := f.exp.got[0]
	assert.Equal(t, userID, sub.user)
	assert.Equal(t, "USD", sub.draft.Currency)
	assert.Equal(t, "20-03-2025", expense.FormatDate(sub.draft.Date))

	assert.True(t, resp.Formatted)
	assert.Equal(t, 7, resp.ReplyTo)
	assert.Contains(t, resp.Text, format.HeaderRegistered)
	assert.Contains(t, resp.Text, "- *__Moneda:__* USD")
}

func TestGastoInvalidDateIsUserError(t *testing.T) {
	f := newFixture()

	_, err := NewGasto(f.deps).Handle(context.Background(), text("Paddle\nEfectivo\n6250\nDeporte\n32/13/2024"), f.store)
	msg, ok := apperr.UserMessage(err)
	require.True(t, ok)
	assert.Contains(t, msg, "32/13/2024")
	assert.Empty(t, f.exp.got)
}

func TestGastoUnknownSenderIsSystemError(t *testing.T) {
	f := newFixture()
	msg := text("Paddle\nEfectivo\n6250\nDeporte\nHoy")
	msg.SenderID = 1

	_, err := NewGasto(f.deps).Handle(context.Background(), msg, f.store)
	require.Error(t, err)
	assert.False(t, apperr.IsUser(err))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGastoRejectionSurfacesFieldMessage(t *testing.T) {
	f := newFixture()
	f.exp.err = &expenses.RejectionError{Code: expenses.CodeInvalidPaymentMethod, Value: "Efectivo"}

	_, err := NewGasto(f.deps).Handle(context.Background(), text("Paddle\nEfectivo\n6250\nDeporte\nHoy"), f.store)
	msg, ok := apperr.UserMessage(err)
	require.True(t, ok)
	assert.Equal(t, "El metodo de pago 'Efectivo' no existe", msg)
}

func TestAutomatedIgnoresOtherBotsAndPlainReplies(t *testing.T) {
	a := NewAutomatedExpense(newFixture().deps)
	st := state.NewMemoryStore()

	ref := notificationRef()
	assert.True(t, a.ShouldHandle(replyTo("Super", ref), st))

	ref.FromSelf, ref.FromOtherBot = false, true
	assert.False(t, a.ShouldHandle(replyTo("Super", ref), st))

	ref = notificationRef()
	ref.IsText = false
	assert.False(t, a.ShouldHandle(replyTo("Super", ref), st))

	ref = notificationRef()
	ref.Text = "Hola!"
	assert.False(t, a.ShouldHandle(replyTo("Super", ref), st))
	assert.False(t, a.ShouldHandle(text("Super"), st))
}

func TestAutomatedOverridesAndDeletesAfterSend(t *testing.T) {
	f := newFixture()
	a := NewAutomatedExpense(f.deps)

	resp, err := a.Handle(context.Background(), replyTo("Super\n\nNombre: Kiosco", notificationRef()), f.store)
	require.NoError(t, err)

	require.Len(t, f.exp.got, 1)
	d := f.exp.got[0].draft
	assert.Equal(t, "Kiosco", d.Name)
	assert.Equal(t, "VISA Galicia", d.PaymentMethod)
	assert.Equal(t, "ARS", d.Currency)
	assert.Equal(t, "400.45", d.Amount.String())
	assert.Equal(t, "Super", d.Category)
	assert.Equal(t, "18-03-2025", expense.FormatDate(d.Date))

	assert.Contains(t, resp.Text, format.HeaderSaved)
	assert.Empty(t, f.notes.deleted)

	require.NotNil(t, resp.AfterSend)
	require.NoError(t, resp.AfterSend(context.Background()))
	assert.Equal(t, []noteKey{{userID, 41}}, f.notes.deleted)
}

func TestAutomatedMissingNotificationIsSystemError(t *testing.T) {
	f := newFixture()
	ref := notificationRef()
	ref.MessageID = 99

	_, err := NewAutomatedExpense(f.deps).Handle(context.Background(), replyTo("Super", ref), f.store)
	require.Error(t, err)
	assert.False(t, apperr.IsUser(err))
	assert.Empty(t, f.exp.got)
}

func TestAutomatedUndatedNotificationNeedsExplicitDate(t *testing.T) {
	f := newFixture()
	undated := f.notes.rows[noteKey{userID, 41}]
	undated.Timestamp = time.Time{}
	f.notes.rows[noteKey{userID, 41}] = undated
	a := NewAutomatedExpense(f.deps)

	_, err := a.Handle(context.Background(), replyTo("Super", notificationRef()), f.store)
	msg, ok := apperr.UserMessage(err)
	require.True(t, ok)
	assert.Contains(t, msg, "no tiene fecha")
	assert.Empty(t, f.exp.got)

	_, err = a.Handle(context.Background(), replyTo("Super\n\nFecha: hoy", notificationRef()), f.store)
	require.NoError(t, err)
	require.Len(t, f.exp.got, 1)
	assert.Equal(t, expense.FormatDate(fixedNow), expense.FormatDate(f.exp.got[0].draft.Date))
}

func TestGuidedFlowWalksEveryStep(t *testing.T) {
	f := newFixture()
	g := NewGuidedExpense(f.deps)
	ctx := context.Background()

	steps := []struct {
		in   string
		step state.Step
	}{
		{"gasto", state.StepName},
		{"Paddle", state.StepPaymentMethod},
		{"Efectivo", state.StepAmount},
		{"USD 6250", state.StepCategory},
		{"Deporte", state.StepSubcategory},
		{"-", state.StepDate},
	}
	for _, s := range steps {
		msg := text(s.in)
		require.True(t, g.ShouldHandle(msg, f.store), s.in)
		resp, err := g.Handle(ctx, msg, f.store)
		require.NoError(t, err, s.in)
		assert.Equal(t, stepPrompts[s.step], resp.Text)

		entry, ok := f.store.Get(chatID)
		require.True(t, ok)
		flow, ok := entry.ExpenseEntry()
		require.True(t, ok)
		assert.Equal(t, s.step, flow.Step)
		assert.Equal(t, state.StatusInFlow, entry.Status)
	}

	resp, err := g.Handle(ctx, text("ayer"), f.store)
	require.NoError(t, err)
	assert.True(t, resp.Formatted)

	_, ok := f.store.Get(chatID)
	assert.False(t, ok)

	require.Len(t, f.exp.got, 1)
	d := f.exp.got[0].draft
	assert.Equal(t, "Paddle", d.Name)
	assert.Equal(t, "USD", d.Currency)
	assert.Equal(t, "", d.Subcategory)
	assert.Equal(t, "19-03-2025", expense.FormatDate(d.Date))
}

func TestGuidedInvalidAnswerKeepsStep(t *testing.T) {
	f := newFixture()
	g := NewGuidedExpense(f.deps)
	f.store.Set(chatID, state.Entry{Flow: state.ExpenseEntryFlow{
		Step:  state.StepAmount,
		Draft: expense.Draft{Name: "Paddle", PaymentMethod: "Efectivo"},
	}})

	_, err := g.Handle(context.Background(), text("mucho"), f.store)
	require.True(t, apperr.IsUser(err))

	entry, ok := f.store.Get(chatID)
	require.True(t, ok)
	flow, _ := entry.ExpenseEntry()
	assert.Equal(t, state.StepAmount, flow.Step)
	assert.True(t, flow.Draft.Amount.IsZero())
}

func TestGuidedIgnoresIdleChats(t *testing.T) {
	g := NewGuidedExpense(newFixture().deps)
	st := state.NewMemoryStore()

	assert.False(t, g.ShouldHandle(text("hola"), st))
	assert.False(t, g.ShouldHandle(text("Paddle\nEfectivo\n6250\nDeporte\nHoy"), st))
}

func TestGuidedSubmitFailureSurfaces(t *testing.T) {
	f := newFixture()
	f.exp.err = errors.New("unavailable")
	f.store.Set(chatID, state.Entry{Flow: state.ExpenseEntryFlow{
		Step: state.StepDate,
		Draft: expense.Draft{
			Name: "Paddle", PaymentMethod: "Efectivo", Currency: "ARS",
			Amount: decimal.NewFromInt(10), Category: "Deporte",
		},
	}})

	_, err := NewGuidedExpense(f.deps).Handle(context.Background(), text("hoy"), f.store)
	require.Error(t, err)
	assert.False(t, apperr.IsUser(err))
}
