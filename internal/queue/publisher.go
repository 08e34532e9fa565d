package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// SearchQueueName is the durable queue carrying SearchPerformedEvent messages.
const SearchQueueName = "restaurant.search"

const (
	defaultBufferSize = 256
	dialTimeout       = 3 * time.Second
	publishTimeout    = 3 * time.Second
	redialBackoff     = 5 * time.Second
)

var (
	// ErrBufferFull is returned when an event is dropped because the
	// background sender has fallen behind.
	ErrBufferFull = errors.New("audit buffer full")
	// ErrPublisherClosed is returned after Close.
	ErrPublisherClosed = errors.New("audit publisher closed")
)

// Publisher sends search audit events to RabbitMQ from a single background
// goroutine over one long-lived connection.  PublishSearch only enqueues,
// so a slow or unreachable broker never delays the caller.  A Publisher
// with an empty URL drops every event, which is how the feature is
// switched off.
type Publisher struct {
	url    string
	events chan SearchPerformedEvent
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once

	// owned by the run goroutine
	conn       *amqp.Connection
	ch         *amqp.Channel
	closed     chan *amqp.Error
	retryAt    time.Time
	dialConfig amqp.Config
}

// NewPublisher returns a Publisher for the broker at url and starts its
// sender.  The connection is dialed on the first event.
func NewPublisher(url string) *Publisher {
	p := &Publisher{url: url}
	if url == "" {
		return p
	}
	p.events = make(chan SearchPerformedEvent, defaultBufferSize)
	p.done = make(chan struct{})
	p.dialConfig = amqp.Config{Dial: amqp.DefaultDial(dialTimeout)}
	p.wg.Add(1)
	go p.run()
	return p
}

// Enabled reports whether events are actually sent.
func (p *Publisher) Enabled() bool { return p != nil && p.url != "" }

// PublishSearch queues ev for delivery and returns immediately.  When the
// buffer is full the event is dropped and ErrBufferFull returned.
func (p *Publisher) PublishSearch(_ context.Context, ev SearchPerformedEvent) error {
	if !p.Enabled() {
		return nil
	}
	select {
	case <-p.done:
		return ErrPublisherClosed
	default:
	}
	select {
	case p.events <- ev:
		return nil
	default:
		log.Debug().Str("name", ev.Name).Msg("rabbitmq: audit buffer full; event dropped")
		return ErrBufferFull
	}
}

// Close stops the sender, flushes what is already buffered over an open
// connection and closes it.  It is safe to call more than once.
func (p *Publisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	p.once.Do(func() { close(p.done) })
	p.wg.Wait()
	return nil
}

func (p *Publisher) run() {
	defer p.wg.Done()
	defer p.disconnect()
	for {
		select {
		case <-p.done:
			p.flush()
			return
		case ev := <-p.events:
			if err := p.send(ev); err != nil {
				log.Debug().Err(err).Msg("rabbitmq: audit event dropped")
			}
		}
	}
}

// flush sends buffered events without dialing a new connection.
func (p *Publisher) flush() {
	for {
		select {
		case ev := <-p.events:
			if p.ch == nil {
				continue
			}
			_ = p.send(ev)
		default:
			return
		}
	}
}

func (p *Publisher) send(ev SearchPerformedEvent) error {
	ch, err := p.channel()
	if err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	err = ch.PublishWithContext(ctx,
		"",              // default exchange
		SearchQueueName, // routing key = queue name
		false,           // mandatory
		false,           // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq: publish failed")
		p.disconnect()
	}
	return err
}

// channel returns the open channel, redialing when the broker closed the
// connection.  After a failed dial it waits redialBackoff before trying
// again so a dead broker costs one dial per backoff window, not per event.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil {
		select {
		case amqpErr, ok := <-p.closed:
			if ok && amqpErr != nil {
				log.Warn().Err(amqpErr).Msg("rabbitmq: connection closed; redialing")
			}
			p.disconnect()
		default:
			if !p.ch.IsClosed() {
				return p.ch, nil
			}
			p.disconnect()
		}
	}
	if time.Now().Before(p.retryAt) {
		return nil, errors.New("rabbitmq: waiting to redial")
	}

	conn, err := amqp.DialConfig(p.url, p.dialConfig)
	if err != nil {
		p.retryAt = time.Now().Add(redialBackoff)
		log.Warn().Err(err).Msg("rabbitmq: dial failed")
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		p.retryAt = time.Now().Add(redialBackoff)
		log.Warn().Err(err).Msg("rabbitmq: channel open failed")
		return nil, err
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(SearchQueueName, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		p.retryAt = time.Now().Add(redialBackoff)
		log.Warn().Err(err).Msg("rabbitmq: queue declare failed")
		return nil, err
	}
	p.conn, p.ch = conn, ch
	p.closed = conn.NotifyClose(make(chan *amqp.Error, 1))
	return ch, nil
}

func (p *Publisher) disconnect() {
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch, p.closed = nil, nil, nil
}
