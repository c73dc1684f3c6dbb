package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rabbitmq/amqp091-go"

	"tasktracker/pkg/trace"
)

// Publisher publishes JSON events to the topic exchange. A channel is not
// safe for concurrent publishing, so calls are serialised. A closed
// connection or channel is reopened on the next publish.
type Publisher struct {
	mu      sync.Mutex
	url     string
	dial    func(url string) (*amqp091.Connection, error)
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func NewPublisher(url string) (*Publisher, error) {
	p := &Publisher{url: url, dial: NewConnection}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect opens a connection and channel and declares the exchange.
// Callers hold p.mu or own p exclusively.
func (p *Publisher) connect() error {
	conn, err := p.dial(p.url)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	p.conn = conn
	p.channel = ch
	return nil
}

func (p *Publisher) connected() bool {
	return p.conn != nil && p.channel != nil && !p.conn.IsClosed() && !p.channel.IsClosed()
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
}

func (p *Publisher) closeLocked() {
	if p.channel != nil {
		_ = p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// PublishWithContext publishes payload under routingKey. The trace ID from
// ctx, if any, travels in the message headers.
func (p *Publisher) PublishWithContext(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", routingKey, err)
	}

	headers := amqp091.Table{}
	if traceID := trace.FromContext(ctx); traceID != "" {
		headers[trace.HeaderName] = traceID
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected() {
		p.closeLocked()
		if err := p.connect(); err != nil {
			return fmt.Errorf("reconnect publisher: %w", err)
		}
	}

	return p.channel.PublishWithContext(
		ctx,
		ExchangeName,
		routingKey,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
			Headers:      headers,
		},
	)
}
