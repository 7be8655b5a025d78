package transport

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/coverhub/coverhub/pkg/core"
	"github.com/coverhub/coverhub/pkg/errs"
	"github.com/coverhub/coverhub/pkg/global"
	"github.com/coverhub/coverhub/pkg/lumber"
	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

type amqpPublisher struct {
	endpoint string
	logger   lumber.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func newAMQPPublisher(endpoint string, logger lumber.Logger) *amqpPublisher {
	return &amqpPublisher{endpoint: endpoint, logger: logger}
}

// ensureChannel dials lazily and redials after a dropped connection; the
// exchange declaration is idempotent on the broker.
func (p *amqpPublisher) ensureChannel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}

	conn, err := amqp.Dial(p.endpoint)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(global.CoverageExchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *amqpPublisher) Publish(ctx context.Context, envelope *core.Envelope) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return &errs.TransportError{Endpoint: p.endpoint, Err: err}
	}

	ch, err := p.ensureChannel()
	if err != nil {
		return &errs.TransportError{Endpoint: p.endpoint, Err: err}
	}

	if err := ch.Publish(
		global.CoverageExchange,
		global.CoverageRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Body:         body,
		},
	); err != nil {
		// drop the channel so the next publish redials
		p.mu.Lock()
		p.closeLocked()
		p.mu.Unlock()
		return &errs.TransportError{Endpoint: p.endpoint, Err: err}
	}

	p.logger.Debugf("published coverage report for %s@%s", envelope.RepoID, envelope.Commit)
	return nil
}

func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *amqpPublisher) closeLocked() {
	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}
