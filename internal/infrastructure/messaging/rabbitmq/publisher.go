// Package rabbitmq publishes mail requests for the mail worker.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

const (
	DefaultExchange = "workplace.events"
	appID           = "auth-service"

	defaultPublishTimeout = 2 * time.Second
)

var errNotConnected = errors.New("rabbitmq: not connected")

// Publisher sends mail requests to a durable topic exchange in confirm mode.
// Every message is mandatory: a routing key with no bound queue comes back as
// an error.
type Publisher struct {
	url      string
	exchange string
	log      zerolog.Logger

	// mu serialises publishes so each confirm matches its message.
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	confirms <-chan amqp.Confirmation
	returns  <-chan amqp.Return
}

func NewPublisher(url, exchange string, lg zerolog.Logger) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{
		url:      url,
		exchange: exchange,
		log:      lg.With().Str("component", "rabbitmq_publisher").Logger(),
	}
	if err := p.dial(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardown()
	return nil
}

// RoutingKey is "mail.<template>.requested", e.g. mail.otp.requested.
func RoutingKey(template string) string {
	return "mail." + template + ".requested"
}

// PublishMail blocks until the broker confirms the message, ctx ends, or two
// seconds pass when ctx carries no deadline.
func (p *Publisher) PublishMail(ctx context.Context, req domain.MailRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("rabbitmq: encode mail request: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultPublishTimeout)
		defer cancel()
	}

	key := RoutingKey(req.Template)
	msg := newPublishing(body, req.Template, time.Now())

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureChannel(); err != nil {
		return err
	}
	p.discardPending()

	if err := p.ch.PublishWithContext(ctx, p.exchange, key, true, false, msg); err != nil {
		p.teardown()
		return fmt.Errorf("rabbitmq: publish %s: %w", key, err)
	}
	if err := p.awaitConfirm(ctx, key); err != nil {
		return err
	}
	p.log.Debug().Str("routing_key", key).Str("message_id", msg.MessageId).Msg("mail request published")
	return nil
}

func newPublishing(body []byte, template string, now time.Time) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		AppId:        appID,
		Type:         RoutingKey(template),
		Timestamp:    now,
		Body:         body,
	}
}

func (p *Publisher) dial() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	setup := func() error {
		if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			return fmt.Errorf("rabbitmq: declare exchange %s: %w", p.exchange, err)
		}
		if err := ch.Confirm(false); err != nil {
			return fmt.Errorf("rabbitmq: confirm mode: %w", err)
		}
		return nil
	}
	if err := setup(); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	p.conn, p.ch = conn, ch
	p.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returns = ch.NotifyReturn(make(chan amqp.Return, 1))
	return nil
}

func (p *Publisher) ensureChannel() error {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.teardown()
	p.log.Info().Msg("reconnecting")
	if err := p.dial(); err != nil {
		return errors.Join(errNotConnected, err)
	}
	return nil
}

// discardPending drops confirms or returns left over from a publish that
// timed out.
func (p *Publisher) discardPending() {
	for {
		select {
		case <-p.confirms:
		case <-p.returns:
		default:
			return
		}
	}
}

func (p *Publisher) awaitConfirm(ctx context.Context, key string) error {
	unroutable := func(r amqp.Return) error {
		return fmt.Errorf("rabbitmq: unroutable %s: %d %s", key, r.ReplyCode, r.ReplyText)
	}

	select {
	case r := <-p.returns:
		return unroutable(r)
	case c := <-p.confirms:
		// basic.return precedes basic.ack on the wire, but they surface on
		// separate Go channels
		select {
		case r := <-p.returns:
			return unroutable(r)
		default:
		}
		if !c.Ack {
			return fmt.Errorf("rabbitmq: nack for %s (tag %d)", key, c.DeliveryTag)
		}
		return nil
	case <-ctx.Done():
		// a late confirm would be read as the next message's
		p.teardown()
		return fmt.Errorf("rabbitmq: confirm %s: %w", key, ctx.Err())
	}
}

func (p *Publisher) teardown() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
	p.confirms, p.returns = nil, nil
}
