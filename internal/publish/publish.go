// Package publish sends domain messages, such as a new gig submission or a
// rejected venue, to downstream consumers. Email and other notifications
// live in those consumers.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/gigfinder/gigfinder/internal/logger"
)

// Routing keys.
const (
	GigSubmitted  = "gig.submitted"
	GigApproval   = "gig.approval"
	VenueCreated  = "venue.created"
	VenueApproved = "venue.approved"
	VenueVerified = "venue.verified"
	VenueRejected = "venue.rejected"
)

const (
	ExchangeName = "gigfinder"
	ExchangeKind = "topic"
)

// Publisher delivers a JSON payload under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close() error
}

// Nop discards every message. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close() error { return nil }

// RabbitMQ publishes to a durable topic exchange.
type RabbitMQ struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewRabbitMQ dials the broker and declares the exchange.
func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	return &RabbitMQ{conn: conn, channel: ch}, nil
}

// Publish marshals payload and publishes it as a persistent message.
func (p *RabbitMQ) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.PublishWithContext(ctx,
		ExchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	logger.Debug("Published message", logger.Fields{
		"exchange":    ExchangeName,
		"routing_key": routingKey,
		"bytes":       len(body),
	})
	return nil
}

// Close closes the channel and connection.
func (p *RabbitMQ) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Recorder keeps published messages in memory. Tests use it to assert on
// what a workflow emitted.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
}

// Message is one recorded publication.
type Message struct {
	RoutingKey string
	Payload    any
}

func (r *Recorder) Publish(_ context.Context, routingKey string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, Message{RoutingKey: routingKey, Payload: payload})
	return nil
}

func (r *Recorder) Close() error { return nil }

// Keys returns the routing keys published so far, in order.
func (r *Recorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, len(r.Messages))
	for i, m := range r.Messages {
		keys[i] = m.RoutingKey
	}
	return keys
}
