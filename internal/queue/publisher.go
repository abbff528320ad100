package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/tour-booking/internal/observability"
)

// Outbox accepts mail for later delivery.
type Outbox interface {
	Publish(ctx context.Context, msg MailMessage) error
}

// Publisher publishes MailMessages to the mail.outbox queue.  Each call
// dials the broker; mail volume is a handful of messages per user.
type Publisher struct {
	URL    string
	Logger *slog.Logger
}

func NewPublisher(url string, logger *slog.Logger) *Publisher {
	return &Publisher{URL: url, Logger: logger}
}

// Publish sends msg as a persistent JSON message.  Errors are logged and
// returned so the caller decides whether the mail was essential.
func (p *Publisher) Publish(ctx context.Context, msg MailMessage) error {
	err := p.publish(ctx, msg)
	outcome := "published"
	if err != nil {
		outcome = "publish_failed"
		p.Logger.ErrorContext(ctx, "rabbitmq: publish failed",
			slog.String("kind", msg.Kind), slog.String("error", err.Error()))
	}
	observability.MailMessages.WithLabelValues(msg.Kind, outcome).Inc()
	return err
}

func (p *Publisher) publish(ctx context.Context, msg MailMessage) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(MailQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", MailQueueName, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
