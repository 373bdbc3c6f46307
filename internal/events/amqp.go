package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Channel is the subset of *amqp.Channel used by Publisher. Close releases
// the channel and whatever connection backs it.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Dialer opens a fresh Channel. Publisher calls it at start and again
// whenever a publish fails on the current channel.
type Dialer func() (Channel, error)

var errRedialWait = errors.New("amqp: waiting to redial")

// Publisher forwards lifecycle events to a RabbitMQ topic exchange, using the
// event type as routing key.
//
// Behavior:
//   - Notify only enqueues; a single goroutine owns the channel and publishes.
//   - When the queue is full the event is dropped and logged.
//   - A failed publish drops the channel, re-dials, and retries the event once.
//   - After a failed dial no new dial is attempted for the redial backoff.
//   - Close stops accepting work, drains the queue, and closes the channel.
type Publisher struct {
	dial     Dialer
	exchange string
	timeout  time.Duration
	backoff  time.Duration
	queue    chan Event

	// Owned by run.
	ch      Channel
	retryAt time.Time

	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// PublisherOption customizes a Publisher.
type PublisherOption func(*Publisher)

// WithQueueSize bounds the number of events waiting to be published.
func WithQueueSize(n int) PublisherOption {
	return func(p *Publisher) {
		if n > 0 {
			p.queue = make(chan Event, n)
		}
	}
}

// WithRedialBackoff sets the pause after a failed dial.
func WithRedialBackoff(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		if d >= 0 {
			p.backoff = d
		}
	}
}

// NewPublisher dials once, declares exchange as a durable topic exchange,
// and starts the publishing goroutine. The initial dial must succeed.
func NewPublisher(dial Dialer, exchange string, opts ...PublisherOption) (*Publisher, error) {
	p := &Publisher{
		dial:     dial,
		exchange: exchange,
		timeout:  5 * time.Second,
		backoff:  2 * time.Second,
		queue:    make(chan Event, 256),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, o := range opts {
		o(p)
	}
	if _, err := p.channel(); err != nil {
		return nil, err
	}
	go p.run()
	return p, nil
}

// DialPublisher publishes to exchange over connections dialed from url.
func DialPublisher(url, exchange string, opts ...PublisherOption) (*Publisher, error) {
	return NewPublisher(amqpDialer(url), exchange, opts...)
}

// connChannel closes its connection together with the channel.
type connChannel struct {
	*amqp.Channel
	conn *amqp.Connection
}

func (c connChannel) Close() error {
	_ = c.Channel.Close()
	return c.conn.Close()
}

func amqpDialer(url string) Dialer {
	return func() (Channel, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, err
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		return connChannel{Channel: ch, conn: conn}, nil
	}
}

// Notify implements Notifier. It never waits on the broker.
func (p *Publisher) Notify(_ context.Context, ev Event) {
	select {
	case <-p.done:
		return
	default:
	}
	select {
	case p.queue <- ev:
	default:
		log.Warn().
			Str("exchange", p.exchange).
			Str("event", string(ev.Type)).
			Uint64("complaint_id", ev.Complaint.ID).
			Msg("event queue full, dropping")
	}
}

// Close drains queued events and releases the channel. It is safe to call
// more than once.
func (p *Publisher) Close() error {
	p.once.Do(func() { close(p.done) })
	<-p.stopped
	return nil
}

func (p *Publisher) run() {
	defer close(p.stopped)
	for {
		select {
		case ev := <-p.queue:
			p.deliver(ev)
		case <-p.done:
			for {
				select {
				case ev := <-p.queue:
					p.deliver(ev)
				default:
					p.release()
					return
				}
			}
		}
	}
}

func (p *Publisher) deliver(ev Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("event", string(ev.Type)).Msg("encode event")
		return
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.At,
		Type:         string(ev.Type),
		Body:         body,
	}

	for attempt := 0; attempt < 2; attempt++ {
		var ch Channel
		ch, err = p.channel()
		if err != nil {
			break
		}
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err = ch.PublishWithContext(ctx, p.exchange, string(ev.Type), false, false, msg)
		cancel()
		if err == nil {
			return
		}
		p.release()
	}
	log.Error().Err(err).
		Str("exchange", p.exchange).
		Str("event", string(ev.Type)).
		Uint64("complaint_id", ev.Complaint.ID).
		Msg("publish event")
}

// channel returns the live channel, dialing a new one when needed.
func (p *Publisher) channel() (Channel, error) {
	if p.ch != nil {
		return p.ch, nil
	}
	if time.Now().Before(p.retryAt) {
		return nil, errRedialWait
	}
	ch, err := p.dial()
	if err == nil {
		if err = ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
			_ = ch.Close()
		}
	}
	if err != nil {
		p.retryAt = time.Now().Add(p.backoff)
		return nil, err
	}
	p.ch = ch
	return ch, nil
}

func (p *Publisher) release() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
}
