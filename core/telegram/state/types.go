package state

import (
	"time"

	"github.com/crisszkutnik/telegram-bot/core/expense"
)

// Status is the conversation status of a chat that has an entry.
type Status string

const (
	// StatusInFlow marks a chat in the middle of a multi-step flow.
	StatusInFlow Status = "IN_FLOW"
)

// FlowKind tags the payload stored in an Entry.
type FlowKind string

const (
	FlowExpenseEntry FlowKind = "expense_entry"
)

// Flow is the closed set of per-flow payloads. Only types in this package implement it.
type Flow interface {
	Kind() FlowKind
	sealed()
}

// Step is a position inside the guided expense flow.
type Step string

const (
	StepName          Step = "name"
	StepPaymentMethod Step = "payment_method"
	StepAmount        Step = "amount"
	StepCategory      Step = "category"
	StepSubcategory   Step = "subcategory"
	StepDate          Step = "date"
)

// ExpenseEntryFlow collects an expense one field per message.
type ExpenseEntryFlow struct {
	Step  Step
	Draft expense.Draft
}

func (ExpenseEntryFlow) Kind() FlowKind { return FlowExpenseEntry }
func (ExpenseEntryFlow) sealed()        {}

// Entry is the state of one chat.
type Entry struct {
	Status        Status
	CreatedAt     time.Time
	LastMessageAt time.Time
	Flow          Flow
}

// ExpenseEntry returns the guided expense payload if that is the active flow.
func (e Entry) ExpenseEntry() (ExpenseEntryFlow, bool) {
	f, ok := e.Flow.(ExpenseEntryFlow)
	return f, ok
}

// Reader is the read-only view handlers receive when deciding eligibility.
type Reader interface {
	Get(chatID int64) (Entry, bool)
}

// Store is the process-wide conversation state service.
type Store interface {
	Reader
	Set(chatID int64, entry Entry)
	Delete(chatID int64)
	// Touch updates LastMessageAt for chats that have an entry.
	Touch(chatID int64)
	Len() int
}
