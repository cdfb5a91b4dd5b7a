package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ds124wfegd/afritix/internal/entity"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Outbox publishes email messages to a durable RabbitMQ queue. A Consumer
// drains the queue and hands each message to the real sender, so slow SMTP
// never blocks the dispatcher.
type Outbox struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

// DialOutbox connects with exponential backoff until maxElapsed passes.
func DialOutbox(ctx context.Context, url, queueName string, maxElapsed time.Duration) (*Outbox, error) {
	var conn *amqp.Connection

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed

	err := backoff.RetryNotify(func() error {
		c, err := amqp.Dial(url)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		logrus.WithError(err).WithField("retry_in", next).Warn("RabbitMQ not ready")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		amqp.Table{
			"x-queue-mode": "lazy",
		},
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	logrus.WithField("queue", queueName).Info("Connected to RabbitMQ email outbox")
	return &Outbox{conn: conn, channel: channel, queue: q}, nil
}

// SendNotificationEmail enqueues the message. Delivery happens in the consumer.
func (o *Outbox) SendNotificationEmail(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(Message{To: to, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = o.channel.PublishWithContext(
		ctx,
		"",           // exchange
		o.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Consume starts delivering queued messages to sender until ctx is done.
// Malformed messages and failed sends are dropped. Email is best effort and
// a failed send is never retried.
func (o *Outbox) Consume(ctx context.Context, sender Mailer) error {
	if err := o.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := o.channel.Consume(
		o.queue.Name, // queue
		"",           // consumer
		false,        // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return fmt.Errorf("failed to consume messages: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				handleDelivery(ctx, msg, sender)
			}
		}
	}()
	return nil
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func handleDelivery(ctx context.Context, msg amqp.Delivery, sender Mailer) {
	deliver(ctx, msg.Body, &msg, sender)
}

func deliver(ctx context.Context, body []byte, ack acknowledger, sender Mailer) {
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		logrus.WithError(err).Error("Dropping malformed email message")
		ack.Nack(false, false)
		return
	}

	if err := sender.SendNotificationEmail(ctx, m.To, m.Subject, m.Body); err != nil {
		logrus.WithError(&entity.ChannelError{Channel: "email", Err: err}).
			WithField("to", m.To).Error("Email delivery failed, message dropped")
		ack.Nack(false, false)
		return
	}
	ack.Ack(false)
}

func (o *Outbox) Close() error {
	var errs []error

	if o.channel != nil {
		if err := o.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if o.conn != nil {
		if err := o.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing RabbitMQ: %v", errs)
	}
	return nil
}

func (o *Outbox) HealthCheck() error {
	if o.conn == nil || o.conn.IsClosed() {
		return fmt.Errorf("RabbitMQ connection is closed")
	}
	return nil
}
