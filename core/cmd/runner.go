// Package cmd loads configuration, bootstraps infrastructure and runs the bot
// next to the notification consumer until the process is signalled.
package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/crisszkutnik/telegram-bot/core/bootstrap"
	coreconfig "github.com/crisszkutnik/telegram-bot/core/config"
	"github.com/crisszkutnik/telegram-bot/core/logger"
)

// Options describe how to load configuration and which services to run.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (*coreconfig.Config, error)
	Bootstrap  func(ctx context.Context, cfg *coreconfig.Config) (*sqlx.DB, error)
	// Build assembles the services; defaults to the expense bot.
	Build func(cfg *coreconfig.Config, db *sqlx.DB) (App, error)

	ShutdownLogger func() error
}

// Service is a long-running component of the process.
type Service struct {
	Name string
	Run  func(ctx context.Context) error
}

// App is the assembled process.
type App interface {
	Services() []Service
	Close() error
}

// Run loads configuration, bootstraps the app, and runs every service until
// the first one fails or the process receives SIGINT/SIGTERM.
func Run(opts Options) error {
	loadConfig := opts.LoadConfig
	if loadConfig == nil {
		loadConfig = coreconfig.Load
	}

	cfgPath := configPath(opts)
	log.Printf("loading config: %s", cfgPath)
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startedAt := time.Now()
	boot := opts.Bootstrap
	if boot == nil {
		boot = defaultBootstrap
	}
	db, err := boot(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	build := opts.Build
	if build == nil {
		build = NewExpenseBot
	}
	app, err := build(cfg, db)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return fmt.Errorf("cmd: app assembly failed: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.APP.Warn("close failed",
				slog.String("event", "shutdown"),
				slog.String("err", err.Error()),
			)
		}
	}()

	return runServices(ctx, app.Services(), startedAt)
}

func runServices(ctx context.Context, services []Service, startedAt time.Time) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range services {
		g.Go(func() error {
			if err := svc.Run(gctx); err != nil {
				return fmt.Errorf("%s: %w", svc.Name, err)
			}
			return nil
		})
	}

	names := make([]string, len(services))
	for i, svc := range services {
		names[i] = svc.Name
	}
	logger.APP.Info("app ready",
		slog.String("event", "ready"),
		slog.String("services", logger.Preview(names, 0)),
		slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
	)

	err := g.Wait()
	logger.APP.Info("shutting down...",
		slog.String("event", "shutdown"),
	)
	return err
}

func defaultBootstrap(ctx context.Context, cfg *coreconfig.Config) (*sqlx.DB, error) {
	res, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}
	return res.DB, nil
}

func configPath(opts Options) string {
	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	if p := os.Getenv(env); p != "" {
		return p
	}
	if opts.DefaultConfigPath != "" {
		return opts.DefaultConfigPath
	}
	return "config.yaml"
}
