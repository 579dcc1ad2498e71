package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// dialTimeout bounds the TCP connect and AMQP handshake when the caller's
// context carries no deadline.
const dialTimeout = 5 * time.Second

// AMQPPublisher publishes audit events to a durable RabbitMQ queue.  Each
// publish dials its own connection, so a broker outage only costs the
// events published while it lasts.
type AMQPPublisher struct {
	URL   string
	Queue string
}

// NewAMQPPublisher returns nil when url is empty so callers can pass the
// result straight to NewRecorder.
func NewAMQPPublisher(url, queue string) Publisher {
	if url == "" {
		return nil
	}
	return &AMQPPublisher{URL: url, Queue: queue}
}

// Publish sends ev as a persistent JSON message on the default exchange with
// the queue name as routing key.
func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	// The handshake deadline follows the request so a silent broker cannot
	// hold the caller past it.
	timeout := dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return fmt.Errorf("rabbitmq dial: %w", context.DeadlineExceeded)
		}
		timeout = min(timeout, left)
	}
	conn, err := amqp.DialConfig(p.URL, amqp.Config{
		Locale: "en_US",
		Dial:   amqp.DefaultDial(timeout),
	})
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		p.Queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Action,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}
