// Package events consumes the notification event stream and relays detected
// expenses to users' chats.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	coreconfig "github.com/crisszkutnik/telegram-bot/core/config"
	"github.com/crisszkutnik/telegram-bot/core/logger"
)

// Handler processes one event. Returned errors are logged; the delivery is
// acknowledged either way so a malformed event never blocks the queue.
type Handler func(ctx context.Context, topic string, payload []byte) error

// Consumer reads events from a topic exchange and reconnects when the broker goes away.
type Consumer struct {
	cfg    coreconfig.EventsConfig
	handle Handler
	dial   func(url string) (*amqp.Connection, error)

	backoffBase time.Duration
	backoffCap  time.Duration
}

// NewConsumer builds a consumer for cfg delivering to h.
func NewConsumer(cfg coreconfig.EventsConfig, h Handler) *Consumer {
	return &Consumer{
		cfg:         cfg,
		handle:      h,
		dial:        amqp.Dial,
		backoffBase: time.Second,
		backoffCap:  30 * time.Second,
	}
}

// Run consumes until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	logger.LogEvent(ctx, logger.EVT, slog.LevelInfo, "consumer.start",
		slog.String("host", brokerHost(c.cfg.URL)),
		slog.String("exchange", c.cfg.Exchange),
		slog.String("queue", c.cfg.Queue),
		slog.String("routing_key", c.cfg.RoutingKey),
	)

	backoff := c.backoffBase
	for {
		established, err := c.session(ctx)
		if ctx.Err() != nil {
			logger.LogEvent(ctx, logger.EVT, slog.LevelInfo, "consumer.stop")
			return nil
		}
		if established {
			backoff = c.backoffBase
		}

		wait := jittered(backoff, c.backoffCap)
		logger.LogEvent(ctx, logger.EVT, slog.LevelError, "consumer.disconnected",
			slog.String("err", errString(err)),
			slog.Duration("retry_in", wait),
		)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		if backoff*2 < c.backoffCap {
			backoff *= 2
		}
	}
}

// session runs one connection until it fails or ctx ends. established reports
// whether the topology was declared and consumption started.
func (c *Consumer) session(ctx context.Context) (established bool, err error) {
	conn, err := c.dial(c.cfg.URL)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return false, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	msgs, err := c.declare(ch)
	if err != nil {
		return false, err
	}
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	logger.LogEvent(ctx, logger.EVT, slog.LevelInfo, "consumer.ready",
		slog.Int("prefetch", c.cfg.Prefetch),
	)

	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case amqpErr := <-closed:
			if amqpErr == nil {
				return true, errors.New("connection closed")
			}
			return true, amqpErr
		case d, ok := <-msgs:
			if !ok {
				return true, errors.New("delivery channel closed")
			}
			c.deliver(ctx, d)
		}
	}
}

func (c *Consumer) declare(ch *amqp.Channel) (<-chan amqp.Delivery, error) {
	prefetch := c.cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("qos: %w", err)
	}
	if err := ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", c.cfg.Exchange, err)
	}
	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", c.cfg.Queue, err)
	}
	if err := ch.QueueBind(c.cfg.Queue, c.cfg.RoutingKey, c.cfg.Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue %s: %w", c.cfg.Queue, err)
	}
	msgs, err := ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", c.cfg.Queue, err)
	}
	return msgs, nil
}

// deliver runs the handler for d and acknowledges it.
func (c *Consumer) deliver(ctx context.Context, d amqp.Delivery) {
	ctx = logger.WithRID(ctx, uuid.NewString())
	ctx = logger.WithLogger(ctx, logger.EVT)
	start := time.Now()

	err := c.safeHandle(ctx, d.RoutingKey, d.Body)
	if err != nil {
		logger.LogEvent(ctx, logger.EVT, slog.LevelError, "event.fail",
			slog.String("topic", d.RoutingKey),
			slog.String("err", err.Error()),
			slog.String("payload", logger.SanitizeLimit(string(d.Body), 512)),
			slog.Duration("duration", time.Since(start)),
		)
	} else {
		logger.LogEvent(ctx, logger.EVT, slog.LevelDebug, "event.done",
			slog.String("topic", d.RoutingKey),
			slog.Duration("duration", time.Since(start)),
		)
	}

	if ackErr := d.Ack(false); ackErr != nil {
		logger.LogEvent(ctx, logger.EVT, slog.LevelWarn, "event.ack_fail",
			slog.String("err", ackErr.Error()),
		)
	}
}

func (c *Consumer) safeHandle(ctx context.Context, topic string, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panic: %v", r)
		}
	}()
	return c.handle(ctx, topic, payload)
}

func jittered(base, limit time.Duration) time.Duration {
	delta := (rand.Float64()*2 - 1) * 0.25
	wait := time.Duration(float64(base) * (1 + delta))
	if wait <= 0 {
		wait = base
	}
	if wait > limit {
		wait = limit
	}
	return wait
}

func brokerHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
