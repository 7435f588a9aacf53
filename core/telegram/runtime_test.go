package telegram

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/crisszkutnik/telegram-bot/core/config"
)

func TestBuildPoller(t *testing.T) {
	cfg := &coreconfig.Config{
		Telegram: coreconfig.TelegramConfig{RunMode: coreconfig.RunModeWebhook},
		Webhook:  coreconfig.WebhookConfig{Listen: "0.0.0.0", Port: 8443, URL: "https://example.org/hook"},
	}
	hook, ok := BuildPoller(cfg).(*tele.Webhook)
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0:8443", hook.Listen)
	assert.Equal(t, "https://example.org/hook", hook.Endpoint.PublicURL)
	assert.Equal(t, []string{"message"}, hook.AllowedUpdates)

	cfg.Telegram.RunMode = coreconfig.RunModeLongpoll
	lp, ok := BuildPoller(cfg).(*tele.LongPoller)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, lp.Timeout)
	assert.Equal(t, []string{"message"}, lp.AllowedUpdates)
}

func TestHTTPClientOutlastsLongPoll(t *testing.T) {
	cfg := &coreconfig.Config{Telegram: coreconfig.TelegramConfig{LongPollTimeoutSeconds: 50}}
	client := BuildHTTPClient(cfg)

	assert.Greater(t, client.Timeout, 50*time.Second)
	rt, ok := client.Transport.(*retryTransport)
	require.True(t, ok)
	base, ok := rt.base.(*http.Transport)
	require.True(t, ok)
	assert.Greater(t, base.ResponseHeaderTimeout, 50*time.Second)
}

func TestDefaultMiddlewares(t *testing.T) {
	names := func(mws []Middleware) []string {
		out := make([]string, len(mws))
		for i, mw := range mws {
			out[i] = mw.Name
		}
		return out
	}

	cfg := &coreconfig.Config{}
	assert.Equal(t, []string{"recover", "logger"}, names(DefaultMiddlewares(cfg, nil)))

	cfg.RateLimit.IntervalMS = 500
	assert.Equal(t, []string{"recover", "rate_limit", "logger"}, names(DefaultMiddlewares(cfg, nil)))
}

func TestNewRuntimeOffline(t *testing.T) {
	cfg := &coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "123:abc", RunMode: coreconfig.RunModeLongpoll}}

	rt, err := NewRuntime(RunOptions{Config: cfg, Offline: true, Middlewares: DefaultMiddlewares(cfg, nil)})
	require.NoError(t, err)
	defer rt.Dispatcher.Close()

	assert.NotNil(t, rt.Outbound)
	assert.Zero(t, rt.SelfID())
	rt.Handle(Route{Endpoint: tele.OnText, Handler: func(tele.Context) error { return nil }}, Route{})
}

func TestNewRuntimeRequiresConfig(t *testing.T) {
	_, err := NewRuntime(RunOptions{})
	assert.Error(t, err)
}

type flakyTransport struct {
	calls int
	fails int
}

func (f *flakyTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.calls++
	if f.calls <= f.fails {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	}
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}"))}, nil
}

func TestRetryTransportRetriesDialErrors(t *testing.T) {
	base := &flakyTransport{fails: 2}
	rt := &retryTransport{base: base, maxRetries: 3, backoff: time.Millisecond}

	req, err := http.NewRequest(http.MethodGet, "https://api.telegram.org/botX/getMe", nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 3, base.calls)
}

func TestRetryTransportGivesUp(t *testing.T) {
	base := &flakyTransport{fails: 10}
	rt := &retryTransport{base: base, maxRetries: 1, backoff: time.Millisecond}

	req, err := http.NewRequest(http.MethodGet, "https://api.telegram.org/botX/getMe", nil)
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	assert.Error(t, err)
	assert.Equal(t, 2, base.calls)
}

func TestRetryTransportSingleShotForUnrewindableBody(t *testing.T) {
	base := &flakyTransport{fails: 10}
	rt := &retryTransport{base: base, maxRetries: 3, backoff: time.Millisecond}

	req, err := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendMessage", nil)
	require.NoError(t, err)
	req.Body = io.NopCloser(strings.NewReader("text=hi"))

	_, err = rt.RoundTrip(req)
	assert.Error(t, err)
	assert.Equal(t, 1, base.calls)
}
