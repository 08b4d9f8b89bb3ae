// Package service holds the development backend's business logic:
// reservation validation and storage, publishing push notifications, and
// the expired-reservation janitor.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/court-reservation/internal/queue"
)

// Publisher sends a push notification to every connected client.  The
// payload is encoded as JSON.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) error
	Close() error
}

// AMQPPublisher publishes to a RabbitMQ topic exchange with the event name
// as routing key.  The connection is opened on first use and reopened
// after a failure, so the backend can start before the broker does.
type AMQPPublisher struct {
	url      string
	exchange string
	log      zerolog.Logger
	dial     func(url string) (*amqp.Connection, error)

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher prepares a publisher.  Nothing is dialled until the
// first Publish.
func NewAMQPPublisher(url, exchange string, log zerolog.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		url:      url,
		exchange: exchange,
		log:      log.With().Str("component", "push").Str("driver", "amqp").Logger(),
		dial:     amqp.Dial,
	}
}

// Publish marshals payload and publishes it as a persistent message.  Any
// failure drops the channel so the next call starts afresh.
func (p *AMQPPublisher) Publish(ctx context.Context, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, p.exchange, event, false, false, pub); err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

// channel returns the open channel, dialling and declaring the exchange
// when needed.  Callers hold p.mu.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := p.dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	p.log.Info().Str("exchange", p.exchange).Msg("publisher connected")
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// Close shuts the connection down.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

// RedisPublisher publishes over Redis pub/sub on prefix + event.
type RedisPublisher struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisPublisher returns a publisher writing to rdb.
func NewRedisPublisher(rdb *redis.Client, prefix string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, prefix: prefix}
}

// Publish marshals payload and publishes it on the event's channel.
func (p *RedisPublisher) Publish(ctx context.Context, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event, err)
	}
	if err := p.rdb.Publish(ctx, queue.Channel(p.prefix, event), body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

// Close is a no-op; the Redis client is shared and closed by its owner.
func (p *RedisPublisher) Close() error { return nil }

// NopPublisher discards every notification.  It backs PUSH_DRIVER=none.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
func (NopPublisher) Close() error { return nil }
