package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/crisszkutnik/telegram-bot/core/config"
	"github.com/crisszkutnik/telegram-bot/core/database"
	"github.com/crisszkutnik/telegram-bot/core/events"
	"github.com/crisszkutnik/telegram-bot/core/expenses"
	"github.com/crisszkutnik/telegram-bot/core/logger"
	"github.com/crisszkutnik/telegram-bot/core/telegram"
	"github.com/crisszkutnik/telegram-bot/core/telegram/handlers"
	"github.com/crisszkutnik/telegram-bot/core/telegram/router"
	tgsender "github.com/crisszkutnik/telegram-bot/core/telegram/sender"
	"github.com/crisszkutnik/telegram-bot/core/telegram/state"
)

// ExpenseBot is the chat bot plus the optional notification consumer.
type ExpenseBot struct {
	runtime  *telegram.Runtime
	mailbox  *router.Mailbox
	consumer *events.Consumer
	expenses *expenses.Client
	db       *sqlx.DB
}

// NewExpenseBot wires storage, the expenses client, the handlers and the
// event bridge on top of an open database.
func NewExpenseBot(cfg *coreconfig.Config, db *sqlx.DB) (App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cmd: nil config")
	}
	store := database.NewStore(db)

	client, err := expenses.Dial(cfg.Expenses.Target, time.Duration(cfg.Expenses.TimeoutSeconds)*time.Second)
	if err != nil {
		return nil, err
	}

	app := &ExpenseBot{expenses: client, db: db}
	rt, err := telegram.NewRuntime(telegram.RunOptions{
		Config: cfg,
		DispatcherOptions: tgsender.Options{
			Workers:    cfg.Dispatch.SendWorkers,
			MaxRetries: cfg.Dispatch.SendRetries,
		},
		Middlewares: telegram.DefaultMiddlewares(cfg, nil),
		OnStop: func(_ context.Context, _ *telegram.Runtime) error {
			app.mailbox.Close()
			return nil
		},
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	app.runtime = rt

	deps := handlers.Deps{
		Users:         store,
		Notifications: store,
		Expenses:      client,
	}
	disp, err := router.NewDispatcher(state.NewMemoryStore(), rt.Outbound, handlers.Priority(deps)...)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	app.mailbox = router.NewMailbox(disp, cfg.Dispatch.MailboxSize)
	rt.Handle(router.TextRoute(app.mailbox, rt.SelfID))

	if cfg.Events.Enabled {
		bridge := events.NewBridge(store, store, rt.Outbound)
		app.consumer = events.NewConsumer(cfg.Events, bridge.OnEvent)
	} else {
		logger.APP.Info("event consumer disabled",
			slog.String("event", "events.disabled"),
		)
	}
	return app, nil
}

// Services lists the bot and, when enabled, the event consumer.
func (a *ExpenseBot) Services() []Service {
	services := []Service{{Name: "telegram", Run: a.runtime.Run}}
	if a.consumer != nil {
		services = append(services, Service{Name: "events", Run: a.consumer.Run})
	}
	return services
}

// Close releases the RPC connection and the database.
func (a *ExpenseBot) Close() error {
	var errs []error
	if a.expenses != nil {
		errs = append(errs, a.expenses.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
