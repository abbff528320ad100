package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/tour-booking/internal/observability"
)

// Consumer drains the mail.outbox queue into a MailLog.
type Consumer struct {
	URL    string
	Log    *MailLog
	Logger *slog.Logger
}

func NewConsumer(url string, log *MailLog, logger *slog.Logger) *Consumer {
	return &Consumer{URL: url, Log: log, Logger: logger}
}

// Run connects to RabbitMQ, declares the durable queue and consumes until
// ctx is cancelled.  Broker failures are retried with exponential backoff
// capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Logger.Warn("mail-consumer: failed to dial broker",
				slog.String("error", err.Error()), slog.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Logger.Warn("mail-consumer: consume loop ended; reconnecting", slog.String("error", fmt.Sprint(err)))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Logger.Warn("mail-consumer: set QoS failed", slog.String("error", err.Error()))
	}
	if _, err := ch.QueueDeclare(MailQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(MailQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(d.Body); err != nil {
				c.Logger.Error("mail-consumer: handle message failed", slog.String("error", err.Error()))
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(body []byte) error {
	var msg MailMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		observability.MailMessages.WithLabelValues("unknown", "rejected").Inc()
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := c.Log.Write(msg); err != nil {
		observability.MailMessages.WithLabelValues(msg.Kind, "failed").Inc()
		return err
	}
	observability.MailMessages.WithLabelValues(msg.Kind, "delivered").Inc()
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
