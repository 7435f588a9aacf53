package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crisszkutnik/telegram-bot/core/apperr"
)

var notificationColumns = []string{
	"user_id", "telegram_message_id", "app", "vendor", "payment_method", "amount", "timestamp",
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewStore(sqlx.NewDb(db, "postgres")), mock
}

func TestResolveUserByTelegramID(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM public.telegram_user_info WHERE telegram_user_id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-1"))

	userID, err := store.ResolveUserByTelegramID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestResolveMissingRowsAreNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM public.telegram_user_info WHERE user_id = $1")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"telegram_user_id"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM public.telegram_user_info WHERE telegram_user_id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err := store.ResolveTelegramIDByUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = store.ResolveUserByTelegramID(context.Background(), 7)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestQueryFailureIsNotNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta("FROM public.telegram_user_info")).
		WithArgs("user-1").
		WillReturnError(boom)

	_, err := store.ResolveTelegramIDByUser(context.Background(), "user-1")
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)
}

func TestGetNotification(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2025, 3, 20, 17, 30, 45, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM public.notifications")).
		WithArgs("user-1", int64(55)).
		WillReturnRows(sqlmock.NewRows(notificationColumns).
			AddRow("user-1", int64(55), "Banco Galicia", "SOME VENDOR", "VISA Galicia", "400.45", ts))

	n, err := store.GetNotification(context.Background(), "user-1", 55)
	require.NoError(t, err)
	assert.Equal(t, "SOME VENDOR", n.Vendor)
	assert.True(t, decimal.RequireFromString("400.45").Equal(n.Amount))
	assert.True(t, ts.Equal(n.Timestamp))
}

func TestGetNotificationNullTimestampIsZero(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM public.notifications")).
		WithArgs("user-1", int64(56)).
		WillReturnRows(sqlmock.NewRows(notificationColumns).
			AddRow("user-1", int64(56), "Banco Galicia", "SOME VENDOR", "VISA Galicia", "10", nil))

	n, err := store.GetNotification(context.Background(), "user-1", 56)
	require.NoError(t, err)
	assert.True(t, n.Timestamp.IsZero())
}

func TestGetNotificationMissingIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM public.notifications")).
		WithArgs("user-1", int64(99)).
		WillReturnRows(sqlmock.NewRows(notificationColumns))

	_, err := store.GetNotification(context.Background(), "user-1", 99)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestInsertNotificationBindsColumns(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2025, 3, 20, 17, 30, 45, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO public.notifications")).
		WithArgs("user-1", int64(55), "Banco Galicia", "SOME VENDOR", "VISA Galicia", "400.45", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO public.notifications")).
		WithArgs("user-1", int64(56), "Banco Galicia", "SOME VENDOR", "VISA Galicia", "10", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n := Notification{
		UserID:            "user-1",
		TelegramMessageID: 55,
		App:               "Banco Galicia",
		Vendor:            "SOME VENDOR",
		PaymentMethod:     "VISA Galicia",
		Amount:            decimal.RequireFromString("400.45"),
		Timestamp:         ts,
	}
	require.NoError(t, store.InsertNotification(context.Background(), n))

	n.TelegramMessageID = 56
	n.Amount = decimal.NewFromInt(10)
	n.Timestamp = time.Time{}
	require.NoError(t, store.InsertNotification(context.Background(), n))
}

func TestDeleteNotification(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM public.notifications WHERE user_id = $1 AND telegram_message_id = $2")).
		WithArgs("user-1", int64(55)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM public.notifications")).
		WithArgs("user-1", int64(55)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.DeleteNotification(context.Background(), "user-1", 55))
	require.NoError(t, store.DeleteNotification(context.Background(), "user-1", 55))
}
