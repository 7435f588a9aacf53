package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/crisszkutnik/telegram-bot/core/apperr"
	"github.com/crisszkutnik/telegram-bot/core/logger"
	"github.com/crisszkutnik/telegram-bot/core/telegram/sender"
	"github.com/crisszkutnik/telegram-bot/core/telegram/state"
)

// GenericErrorText is sent for every failure that is not the user's fault.
const GenericErrorText = "Ocurrio un error. Por favor vuelve a intentar"

// Sender delivers replies to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string, opts sender.SendOptions) (int, error)
}

// Dispatcher runs the first eligible handler for each message and is the
// single place where handler errors are classified.
type Dispatcher struct {
	handlers []Handler
	store    state.Store
	out      Sender
}

// NewDispatcher validates the priority list: it must be non-empty and end with a catch-all.
func NewDispatcher(store state.Store, out Sender, handlers ...Handler) (*Dispatcher, error) {
	if store == nil || out == nil {
		return nil, errors.New("router: store and sender are required")
	}
	if len(handlers) == 0 {
		return nil, errors.New("router: no handlers registered")
	}
	last, ok := handlers[len(handlers)-1].(CatchAll)
	if !ok || !last.CatchAll() {
		return nil, fmt.Errorf("router: last handler %q must be a catch-all", handlers[len(handlers)-1].Name())
	}
	return &Dispatcher{handlers: handlers, store: store, out: out}, nil
}

// Dispatch handles one message. It never returns an error and never panics.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	start := time.Now()
	if ctx == nil {
		ctx = context.Background()
	}
	if msg.CorrelationID != "" && logger.RIDFrom(ctx) == "" {
		ctx = logger.WithRID(ctx, msg.CorrelationID)
	}

	d.store.Touch(msg.ChatID)

	h := d.match(msg)
	if h == nil {
		logger.Warn(ctx, "tg.router", "handler.none",
			slog.String("status", "skip"),
			slog.String("payload", logger.SanitizeLimit(msg.Text, 256)),
		)
		return
	}
	ctx = logger.WithHandler(ctx, h.Name())
	logger.Debug(ctx, "tg.router", "handler.selected")

	resp, err := d.invoke(ctx, h, msg)
	if err == nil {
		_, err = d.out.Send(ctx, msg.ChatID, resp.Text, sender.SendOptions{
			Formatted: resp.Formatted,
			ReplyTo:   resp.ReplyTo,
		})
	}
	if err != nil {
		d.fail(ctx, msg, err)
		logHandlerSummary(ctx, h.Name(), start, err)
		return
	}

	if resp.AfterSend != nil {
		d.afterSend(ctx, msg, resp.AfterSend)
	}
	logHandlerSummary(ctx, h.Name(), start, nil)
}

func (d *Dispatcher) match(msg Message) Handler {
	for _, h := range d.handlers {
		if h.ShouldHandle(msg, d.store) {
			return h
		}
	}
	return nil
}

func (d *Dispatcher) invoke(ctx context.Context, h Handler, msg Message) (resp Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked: %v\n%s", h.Name(), r, debug.Stack())
		}
	}()
	return h.Handle(ctx, msg, d.store)
}

// fail replies with the user-facing text for validation errors and leaves
// state alone; anything else gets the generic apology and drops the chat's flow.
func (d *Dispatcher) fail(ctx context.Context, msg Message, err error) {
	if text, ok := apperr.UserMessage(err); ok {
		if _, sendErr := d.out.Send(ctx, msg.ChatID, text, sender.SendOptions{}); sendErr != nil {
			logger.Error(ctx, "tg.router", "reply.user_error.fail",
				slog.String("err", sendErr.Error()),
			)
		}
		return
	}

	d.store.Delete(msg.ChatID)
	if _, sendErr := d.out.Send(ctx, msg.ChatID, GenericErrorText, sender.SendOptions{}); sendErr != nil {
		logger.Error(ctx, "tg.router", "reply.apology.fail",
			slog.String("err", sendErr.Error()),
		)
	}
	logger.Error(ctx, "tg.router", "handler.error",
		slog.String("err", err.Error()),
		slog.String("err_code", deriveErrorCode(err)),
		slog.String("payload", logger.SanitizeLimit(msg.Text, 512)),
	)
}

func (d *Dispatcher) afterSend(ctx context.Context, msg Message, fn func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "tg.router", "after_send.panic",
				slog.String("err", fmt.Sprint(r)),
				slog.String("payload", logger.SanitizeLimit(msg.Text, 512)),
			)
		}
	}()
	if err := fn(ctx); err != nil {
		logger.Error(ctx, "tg.router", "after_send.fail",
			slog.String("err", err.Error()),
			slog.String("payload", logger.SanitizeLimit(msg.Text, 512)),
		)
	}
}
