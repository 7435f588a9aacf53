package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/crisszkutnik/telegram-bot/core/config"
)

type fakeApp struct {
	services []Service
	closed   bool
}

func (a *fakeApp) Services() []Service { return a.services }

func (a *fakeApp) Close() error {
	a.closed = true
	return nil
}

func testOptions(app *fakeApp) Options {
	return Options{
		LoadConfig: func(string) (*coreconfig.Config, error) { return &coreconfig.Config{}, nil },
		Bootstrap: func(context.Context, *coreconfig.Config) (*sqlx.DB, error) {
			return nil, nil
		},
		Build:          func(*coreconfig.Config, *sqlx.DB) (App, error) { return app, nil },
		ShutdownLogger: func() error { return nil },
	}
}

func TestConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, "config.yaml", configPath(Options{}))
	assert.Equal(t, "bot.yaml", configPath(Options{DefaultConfigPath: "bot.yaml"}))

	t.Setenv("CONFIG_PATH", "/etc/bot.yaml")
	assert.Equal(t, "/etc/bot.yaml", configPath(Options{DefaultConfigPath: "bot.yaml"}))

	t.Setenv("BOT_CONFIG", "/srv/bot.yaml")
	assert.Equal(t, "/srv/bot.yaml", configPath(Options{ConfigEnvVar: "BOT_CONFIG"}))
}

func TestRunStopsAllServicesWhenOneFails(t *testing.T) {
	boom := errors.New("broker gone")
	stopped := make(chan struct{})
	app := &fakeApp{services: []Service{
		{Name: "telegram", Run: func(ctx context.Context) error {
			<-ctx.Done()
			close(stopped)
			return nil
		}},
		{Name: "events", Run: func(context.Context) error { return boom }},
	}}

	err := Run(testOptions(app))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "events")
	assert.True(t, app.closed)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("telegram service was not cancelled")
	}
}

func TestRunReportsLoadFailure(t *testing.T) {
	opts := testOptions(&fakeApp{})
	opts.LoadConfig = func(string) (*coreconfig.Config, error) { return nil, errors.New("no file") }

	err := Run(opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRunReportsBuildFailure(t *testing.T) {
	opts := testOptions(&fakeApp{})
	opts.Build = func(*coreconfig.Config, *sqlx.DB) (App, error) { return nil, errors.New("dial failed") }

	err := Run(opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app assembly failed")
}

func TestRunServicesCleanExit(t *testing.T) {
	ran := 0
	services := []Service{
		{Name: "a", Run: func(context.Context) error { ran++; return nil }},
	}
	require.NoError(t, runServices(context.Background(), services, time.Now()))
	assert.Equal(t, 1, ran)
}
