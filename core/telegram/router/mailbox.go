package router

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/crisszkutnik/telegram-bot/core/logger"
)

// ErrMailboxClosed is returned by Enqueue after Close.
var ErrMailboxClosed = errors.New("router: mailbox closed")

type mailboxJob struct {
	ctx context.Context
	msg Message
}

type chatWorker struct {
	chatID  int64
	jobs    chan mailboxJob
	pending int
}

// Mailbox serializes dispatch per chat: messages from one chat are handled in
// arrival order by a single worker, while different chats run in parallel.
// A chat's worker exits as soon as its queue drains.
type Mailbox struct {
	dispatch func(context.Context, Message)
	size     int

	mu      sync.Mutex
	workers map[int64]*chatWorker
	closed  bool
	wg      sync.WaitGroup
}

// NewMailbox feeds d from per-chat queues of the given size.
func NewMailbox(d *Dispatcher, size int) *Mailbox {
	return newMailbox(d.Dispatch, size)
}

func newMailbox(dispatch func(context.Context, Message), size int) *Mailbox {
	if size <= 0 {
		size = 16
	}
	return &Mailbox{
		dispatch: dispatch,
		size:     size,
		workers:  make(map[int64]*chatWorker),
	}
}

// Enqueue queues msg behind earlier messages of the same chat. It blocks only
// while that chat's queue is full. ctx cancellation is not propagated to dispatch.
func (m *Mailbox) Enqueue(ctx context.Context, msg Message) error {
	if ctx == nil {
		ctx = context.Background()
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMailboxClosed
	}
	w, ok := m.workers[msg.ChatID]
	if !ok {
		w = &chatWorker{chatID: msg.ChatID, jobs: make(chan mailboxJob, m.size)}
		m.workers[msg.ChatID] = w
		m.wg.Add(1)
		go m.run(w)
	}
	w.pending++
	m.mu.Unlock()

	w.jobs <- mailboxJob{ctx: context.WithoutCancel(ctx), msg: msg}
	return nil
}

func (m *Mailbox) run(w *chatWorker) {
	defer m.wg.Done()
	for j := range w.jobs {
		m.dispatch(j.ctx, j.msg)

		m.mu.Lock()
		w.pending--
		if w.pending == 0 {
			delete(m.workers, w.chatID)
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()
	}
}

// Active returns the number of chats with queued or running messages.
func (m *Mailbox) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workers)
}

// Close rejects new messages and waits for queued ones to be dispatched.
func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	if n := m.Active(); n > 0 {
		logger.LogEvent(context.Background(), logger.Component("tg.router"), slog.LevelInfo, "mailbox.drain",
			slog.Int("active_chats", n),
		)
	}
	m.wg.Wait()
}
