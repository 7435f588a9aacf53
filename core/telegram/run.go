package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/crisszkutnik/telegram-bot/core/config"
	"github.com/crisszkutnik/telegram-bot/core/logger"
	tghelpers "github.com/crisszkutnik/telegram-bot/core/telegram/helpers"
	tgsender "github.com/crisszkutnik/telegram-bot/core/telegram/sender"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls how NewRuntime builds the bot.
type RunOptions struct {
	Config *coreconfig.Config

	DispatcherOptions tgsender.Options
	Middlewares       []Middleware

	DisableWebhookCleanup bool
	// Offline skips the getMe call; used by tests.
	Offline bool

	OnStart func(ctx context.Context, rt *Runtime) error
	OnStop  func(ctx context.Context, rt *Runtime) error
}

// Runtime owns the bot and its outbound path.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Outbound   *tgsender.Outbound

	opts RunOptions
}

// NewRuntime builds the bot, the outbound dispatcher and the middleware chain.
// Routes are added with Handle before Run.
func NewRuntime(opts RunOptions) (*Runtime, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("telegram: nil config provided")
	}
	cfg := opts.Config

	poller := BuildPoller(cfg)

	settings := tele.Settings{
		Token:   cfg.Telegram.Token,
		Poller:  poller,
		Client:  BuildHTTPClient(cfg),
		Offline: opts.Offline,

		// Updates are handed to the per-chat mailbox in arrival order; the
		// mailbox provides the concurrency.
		Synchronous: true,

		OnError: func(err error, c tele.Context) {
			logger.Error(tghelpers.BuildContext(c), "tg", "tg.handler_error",
				slog.String("err", err.Error()),
			)
		},
	}

	buildStart := time.Now()
	bot, err := tele.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	buildTook := time.Since(buildStart)

	disp := tgsender.NewDispatcher(opts.DispatcherOptions)
	rt := &Runtime{
		Bot:        bot,
		Dispatcher: disp,
		Outbound:   tgsender.NewOutbound(bot, disp),
		opts:       opts,
	}

	switch p := poller.(type) {
	case *tele.Webhook:
		logger.TG.LogAttrs(context.Background(), slog.LevelInfo, "webhook mode",
			slog.String("event", "mode"),
			slog.String("mode", "webhook"),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)
	default:
		logger.TG.Info("polling mode",
			slog.String("event", "mode"),
			slog.String("mode", "polling"),
			slog.Duration("poll_timeout", pollTimeout(cfg)),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)
	}

	for _, mw := range opts.Middlewares {
		if mw.Use == nil {
			continue
		}
		bot.Use(mw.Use)
	}
	return rt, nil
}

// Handle registers routes on the bot.
func (rt *Runtime) Handle(routes ...Route) {
	for _, route := range routes {
		if route.Endpoint == nil || route.Handler == nil {
			continue
		}
		rt.Bot.Handle(route.Endpoint, route.Handler)
	}
}

// SelfID returns the bot's own user id, or 0 before getMe succeeded.
func (rt *Runtime) SelfID() int64 {
	if rt.Bot == nil || rt.Bot.Me == nil {
		return 0
	}
	return rt.Bot.Me.ID
}

// Run starts receiving updates and blocks until ctx is done.
func (rt *Runtime) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := rt.opts.Config

	if !rt.opts.DisableWebhookCleanup && strings.EqualFold(cfg.Telegram.RunMode, coreconfig.RunModeLongpoll) {
		if err := deleteWebhook(ctx, cfg.Telegram.Token, false); err != nil {
			logger.TG.Warn("failed to delete webhook",
				slog.String("event", "delete_webhook"),
				slog.String("mode", "polling"),
				slog.String("err", sanitizeToken(err.Error(), cfg.Telegram.Token)),
			)
		} else {
			logger.TG.Info("webhook deleted",
				slog.String("event", "delete_webhook"),
				slog.String("mode", "polling"),
			)
		}
	}

	if rt.opts.OnStart != nil {
		if err := rt.opts.OnStart(ctx, rt); err != nil {
			rt.Dispatcher.Close()
			return err
		}
	}

	runDone := make(chan struct{})
	go func() {
		rt.Bot.Start()
		close(runDone)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		rt.Bot.Stop()
		<-runDone
		runErr = ctx.Err()
	case <-runDone:
	}

	var stopErr error
	if rt.opts.OnStop != nil {
		stopErr = rt.opts.OnStop(context.WithoutCancel(ctx), rt)
	}
	rt.Dispatcher.Close()
	logger.TG.Info("outbound stopped",
		slog.String("event", "shutdown"),
		slog.Uint64("failed_sends", rt.Dispatcher.ErrorCount()),
	)

	if stopErr != nil {
		return stopErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func deleteWebhook(ctx context.Context, token string, dropPending bool) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("empty token")
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/deleteWebhook", token)
	body := "drop_pending_updates=false"
	if dropPending {
		body = "drop_pending_updates=true"
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deleteWebhook status: %s", resp.Status)
	}
	return nil
}

func sanitizeToken(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "<redacted>")
}
