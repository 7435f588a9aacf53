package database

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Notification anchors a bot message announcing a detected expense. A reply to
// that message is correlated back through (UserID, TelegramMessageID).
// A zero Timestamp means the producer sent none.
type Notification struct {
	UserID            string
	TelegramMessageID int64
	App               string
	Vendor            string
	PaymentMethod     string
	Amount            decimal.Decimal
	Timestamp         time.Time
}

// notificationRow is the notifications row; "timestamp" is nullable.
type notificationRow struct {
	UserID            string          `db:"user_id"`
	TelegramMessageID int64           `db:"telegram_message_id"`
	App               string          `db:"app"`
	Vendor            string          `db:"vendor"`
	PaymentMethod     string          `db:"payment_method"`
	Amount            decimal.Decimal `db:"amount"`
	Timestamp         sql.NullTime    `db:"timestamp"`
}

func rowFromNotification(n Notification) notificationRow {
	return notificationRow{
		UserID:            n.UserID,
		TelegramMessageID: n.TelegramMessageID,
		App:               n.App,
		Vendor:            n.Vendor,
		PaymentMethod:     n.PaymentMethod,
		Amount:            n.Amount,
		Timestamp:         sql.NullTime{Time: n.Timestamp, Valid: !n.Timestamp.IsZero()},
	}
}

func (r notificationRow) notification() Notification {
	n := Notification{
		UserID:            r.UserID,
		TelegramMessageID: r.TelegramMessageID,
		App:               r.App,
		Vendor:            r.Vendor,
		PaymentMethod:     r.PaymentMethod,
		Amount:            r.Amount,
	}
	if r.Timestamp.Valid {
		n.Timestamp = r.Timestamp.Time
	}
	return n
}
