package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPConfig selects the broker and routing for booking events. With an
// empty Exchange messages go to the default exchange routed by Queue.
type AMQPConfig struct {
	URL      string
	Exchange string
	Queue    string
}

// AMQPPublisher publishes persistent JSON messages to RabbitMQ, dialing
// lazily and redialing after the connection drops.
type AMQPPublisher struct {
	cfg AMQPConfig

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(cfg AMQPConfig) (*AMQPPublisher, error) {
	cfg.URL = strings.TrimSpace(cfg.URL)
	if cfg.URL == "" {
		return nil, errors.New("amqp publisher: url is required")
	}
	if strings.TrimSpace(cfg.Queue) == "" {
		cfg.Queue = "booking.events"
	}
	return &AMQPPublisher{cfg: cfg}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event BookingEvent) error {
	msg, err := encodePublishing(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked()
	if err != nil {
		return err
	}

	exchange, key := p.route(event)
	if err := ch.PublishWithContext(ctx, exchange, key, false, false, msg); err != nil {
		p.resetLocked()
		return fmt.Errorf("amqp publisher: publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *AMQPPublisher) route(event BookingEvent) (exchange, key string) {
	if p.cfg.Exchange == "" {
		return "", p.cfg.Queue
	}
	return p.cfg.Exchange, event.Type
}

func (p *AMQPPublisher) channelLocked() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.resetLocked()

	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp publisher: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp publisher: open channel: %w", err)
	}

	if err := declareTopology(ch, p.cfg); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	p.conn, p.ch = conn, ch
	return ch, nil
}

func declareTopology(ch *amqp.Channel, cfg AMQPConfig) error {
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp publisher: declare queue: %w", err)
	}
	if cfg.Exchange == "" {
		return nil
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp publisher: declare exchange: %w", err)
	}
	if err := ch.QueueBind(cfg.Queue, "booking.#", cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("amqp publisher: bind queue: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}

func encodePublishing(event BookingEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("amqp publisher: marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         event.Type,
		Timestamp:    event.OccurredAt,
		Body:         body,
	}, nil
}
