package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/crisszkutnik/telegram-bot/core/apperr"
	"github.com/crisszkutnik/telegram-bot/core/logger"
)

const (
	queryUserByTelegramID = `SELECT user_id FROM public.telegram_user_info WHERE telegram_user_id = $1 LIMIT 1`
	queryTelegramIDByUser = `SELECT telegram_user_id FROM public.telegram_user_info WHERE user_id = $1 LIMIT 1`
	queryNotification     = `
		SELECT user_id, telegram_message_id, app, vendor, payment_method, amount, "timestamp"
		FROM public.notifications
		WHERE user_id = $1 AND telegram_message_id = $2
		LIMIT 1`
	deleteNotification = `DELETE FROM public.notifications WHERE user_id = $1 AND telegram_message_id = $2`
	insertNotification = `
		INSERT INTO public.notifications
			(user_id, telegram_message_id, app, vendor, payment_method, amount, "timestamp")
		VALUES
			(:user_id, :telegram_message_id, :app, :vendor, :payment_method, :amount, :timestamp)`
)

// Store answers the user and notification lookups of the bot.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps a connected sqlx handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// ResolveUserByTelegramID maps a Telegram user id to the internal user id.
func (s *Store) ResolveUserByTelegramID(ctx context.Context, telegramUserID int64) (string, error) {
	var userID string
	err := s.get(ctx, "resolve_user", &userID, queryUserByTelegramID, telegramUserID)
	if err != nil {
		return "", fmt.Errorf("resolve user for telegram id %d: %w", telegramUserID, err)
	}
	return userID, nil
}

// ResolveTelegramIDByUser maps an internal user id to its Telegram chat.
func (s *Store) ResolveTelegramIDByUser(ctx context.Context, userID string) (int64, error) {
	var telegramID int64
	err := s.get(ctx, "resolve_telegram_id", &telegramID, queryTelegramIDByUser, userID)
	if err != nil {
		return 0, fmt.Errorf("resolve telegram id for user %s: %w", userID, err)
	}
	return telegramID, nil
}

// GetNotification loads the notification sent as messageID to userID.
func (s *Store) GetNotification(ctx context.Context, userID string, messageID int64) (Notification, error) {
	var row notificationRow
	if err := s.get(ctx, "get_notification", &row, queryNotification, userID, messageID); err != nil {
		return Notification{}, fmt.Errorf("get notification %s/%d: %w", userID, messageID, err)
	}
	return row.notification(), nil
}

// DeleteNotification removes the notification anchor. Missing rows are not an error.
func (s *Store) DeleteNotification(ctx context.Context, userID string, messageID int64) error {
	start := time.Now()
	res, err := s.db.ExecContext(ctx, deleteNotification, userID, messageID)
	if err != nil {
		s.logFail(ctx, "delete_notification", start, err)
		return fmt.Errorf("delete notification %s/%d: %w", userID, messageID, err)
	}
	rows, _ := res.RowsAffected()
	logger.LogEvent(ctx, logger.DB, slog.LevelDebug, "db.query",
		slog.String("query", "delete_notification"),
		slog.Int64("rows", rows),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// InsertNotification persists n. A zero Timestamp is stored as NULL.
func (s *Store) InsertNotification(ctx context.Context, n Notification) error {
	start := time.Now()
	if _, err := s.db.NamedExecContext(ctx, insertNotification, rowFromNotification(n)); err != nil {
		s.logFail(ctx, "insert_notification", start, err)
		return fmt.Errorf("insert notification %s/%d: %w", n.UserID, n.TelegramMessageID, err)
	}
	logger.LogEvent(ctx, logger.DB, slog.LevelDebug, "db.query",
		slog.String("query", "insert_notification"),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (s *Store) get(ctx context.Context, name string, dest any, query string, args ...any) error {
	start := time.Now()
	err := s.db.GetContext(ctx, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		logger.LogEvent(ctx, logger.DB, slog.LevelDebug, "db.query",
			slog.String("query", name),
			slog.String("status", "not_found"),
			slog.Duration("duration", time.Since(start)),
		)
		return apperr.ErrNotFound
	}
	if err != nil {
		s.logFail(ctx, name, start, err)
		return err
	}
	logger.LogEvent(ctx, logger.DB, slog.LevelDebug, "db.query",
		slog.String("query", name),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (s *Store) logFail(ctx context.Context, name string, start time.Time, err error) {
	logger.LogEvent(ctx, logger.DB, slog.LevelError, "db.query",
		slog.String("query", name),
		slog.String("status", "fail"),
		slog.String("err", err.Error()),
		slog.Duration("duration", time.Since(start)),
	)
}
