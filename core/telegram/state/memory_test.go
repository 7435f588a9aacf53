package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	t time.Time
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func TestMemoryStoreLifecycle(t *testing.T) {
	clock := &stepClock{t: time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC)}
	store := newMemoryStore(clock.now)

	_, ok := store.Get(42)
	assert.False(t, ok, "unknown chat must be idle")

	store.Set(42, Entry{Flow: ExpenseEntryFlow{Step: StepName}})
	created, ok := store.Get(42)
	require.True(t, ok)
	assert.Equal(t, StatusInFlow, created.Status)
	assert.Equal(t, created.CreatedAt, created.LastMessageAt)

	store.Set(42, Entry{Flow: ExpenseEntryFlow{Step: StepAmount}})
	advanced, _ := store.Get(42)
	assert.Equal(t, created.CreatedAt, advanced.CreatedAt)
	assert.True(t, advanced.LastMessageAt.After(created.LastMessageAt))
	flow, ok := advanced.ExpenseEntry()
	require.True(t, ok)
	assert.Equal(t, StepAmount, flow.Step)

	store.Touch(42)
	touched, _ := store.Get(42)
	assert.True(t, touched.LastMessageAt.After(advanced.LastMessageAt))

	store.Delete(42)
	_, ok = store.Get(42)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestTouchDoesNotCreateEntries(t *testing.T) {
	store := NewMemoryStore()
	store.Touch(7)
	_, ok := store.Get(7)
	assert.False(t, ok)
}

func TestGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	store.Set(1, Entry{Flow: ExpenseEntryFlow{Step: StepName}})

	e, _ := store.Get(1)
	e.Status = "mutated"

	again, _ := store.Get(1)
	assert.Equal(t, StatusInFlow, again.Status)
}
