package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

// contextHandler copies correlation metadata from the context into every record
// before handing it to the wrapped slog handler.
type contextHandler struct {
	next slog.Handler
}

func newHandler(w io.Writer, format logFormat, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: replaceAttr}
	var next slog.Handler
	switch format {
	case formatKV:
		next = slog.NewTextHandler(w, opts)
	default:
		next = slog.NewJSONHandler(w, opts)
	}
	return &contextHandler{next: next}
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle appends rid, update, chat, user and handler ids found in ctx.
func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if rid := RIDFrom(ctx); rid != "" {
			r.AddAttrs(slog.String("rid", rid))
		}
		if id := UpdateIDFrom(ctx); id != 0 {
			r.AddAttrs(slog.Int("update_id", id))
		}
		if id := ChatIDFrom(ctx); id != 0 {
			r.AddAttrs(slog.Int64("chat_id", id))
		}
		if id := UserIDFrom(ctx); id != 0 {
			r.AddAttrs(slog.Int64("user_id", id))
		}
		if hid := HandlerFrom(ctx); hid != "" {
			r.AddAttrs(slog.String("handler", hid))
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &contextHandler{next: h.next.WithGroup(name)}
}

// replaceAttr renames built-in keys to ts/level, drops empty messages and
// reports durations in milliseconds under a *_ms key.
func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch a.Key {
		case slog.TimeKey:
			return slog.String("ts", a.Value.Time().UTC().Format(timeFormatMillis))
		case slog.MessageKey:
			if a.Value.String() == "" {
				return slog.Attr{}
			}
		}
	}
	if a.Value.Kind() == slog.KindDuration {
		return slog.Int64(durationKey(a.Key), RoundMS(a.Value.Duration()).Milliseconds())
	}
	if a.Value.Kind() == slog.KindString && strings.TrimSpace(a.Value.String()) == "" && a.Key != slog.MessageKey {
		return slog.Attr{}
	}
	return a
}

func durationKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_duration"):
		return strings.TrimSuffix(key, "_duration") + "_duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	default:
		return key + "_ms"
	}
}

// RoundMS rounds duration to the nearest millisecond for consistent logging.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}
