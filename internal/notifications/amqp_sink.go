package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultAMQPQueue is the durable queue that receives swap lifecycle events.
const DefaultAMQPQueue = "swap.events"

// AMQPMessage is the JSON body published for each notification.
type AMQPMessage struct {
	UserID uint  `json:"userId"`
	Event  Event `json:"event"`
}

// amqpChannel is the part of *amqp.Channel the sink uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSink publishes notifications to a RabbitMQ queue for downstream
// consumers such as email digests.
type AMQPSink struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    amqpChannel
	queue string
}

// DialAMQPSink connects to url and declares a durable queue.
func DialAMQPSink(url, queue string) (*AMQPSink, error) {
	if queue == "" {
		queue = DefaultAMQPQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	return &AMQPSink{conn: conn, ch: ch, queue: queue}, nil
}

// Name implements Sink.
func (s *AMQPSink) Name() string { return "amqp" }

// Deliver implements Sink. Messages are persistent and routed through the
// default exchange straight to the queue.
func (s *AMQPSink) Deliver(ctx context.Context, userID uint, ev Event) error {
	body, err := json.Marshal(AMQPMessage{UserID: userID, Event: ev})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type(),
		Body:         body,
	})
}

// Close releases the channel and connection.
func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
