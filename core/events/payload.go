package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/crisszkutnik/telegram-bot/core/expense"
)

// TopicNewNotification carries expenses detected in a user's banking apps.
const TopicNewNotification = "notification.new"

// NewExpenseEvent is the payload published on TopicNewNotification.
//
//	{
//	  "userId": "0195b116-dbc7-754d-a323-c5426596cf86",
//	  "notificationInfo": {
//	    "app": "Banco Galicia",
//	    "vendor": "SOME VENDOR",
//	    "paymentMethod": "VISA Galicia",
//	    "amount": 400.45,
//	    "timestamp": "2025-03-20 14:30:45 PDT"
//	  }
//	}
type NewExpenseEvent struct {
	UserID           string           `json:"userId" validate:"required"`
	NotificationInfo NotificationInfo `json:"notificationInfo"`
}

// NotificationInfo describes the detected expense.
type NotificationInfo struct {
	App           string          `json:"app" validate:"required"`
	Vendor        string          `json:"vendor" validate:"required"`
	PaymentMethod string          `json:"paymentMethod" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"-"`
	Timestamp     string          `json:"timestamp"`
	// StrTimestamptz is the older name of Timestamp.
	StrTimestamptz string `json:"strTimestamptz"`
}

var payloadValidator = validator.New(validator.WithRequiredStructEnabled())

// DecodeNewExpense parses and validates a TopicNewNotification payload.
func DecodeNewExpense(payload []byte) (NewExpenseEvent, error) {
	var ev NewExpenseEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return NewExpenseEvent{}, fmt.Errorf("decode %s payload: %w", TopicNewNotification, err)
	}
	ev.UserID = strings.TrimSpace(ev.UserID)
	if err := payloadValidator.Struct(ev); err != nil {
		return NewExpenseEvent{}, fmt.Errorf("invalid %s payload: %w", TopicNewNotification, err)
	}
	return ev, nil
}

// DetectedAt returns the parsed notification timestamp. The zero time is
// returned when neither field holds a readable timestamp.
func (n NotificationInfo) DetectedAt() time.Time {
	for _, raw := range []string{n.Timestamp, n.StrTimestamptz} {
		if t, ok := expense.ParseTimestamp(raw); ok {
			return t
		}
	}
	return time.Time{}
}
