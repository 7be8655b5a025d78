package ingestion

import (
	"context"

	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"

	"github.com/coverhub/coverhub/pkg/errs"
	"github.com/coverhub/coverhub/pkg/global"
	"github.com/coverhub/coverhub/pkg/lumber"
)

// Consumer runs the broker side of the ingestion pipeline: declare the
// topology, consume with manual acks and fan deliveries out to workers.
type Consumer struct {
	amqpURL  string
	workers  int
	pipeline *Pipeline
	logger   lumber.Logger

	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewConsumer configures a consumer with the given worker parallelism.
func NewConsumer(amqpURL string, workers int, pipeline *Pipeline, logger lumber.Logger) *Consumer {
	if workers <= 0 {
		workers = global.DefaultConsumerWorkers
	}
	return &Consumer{
		amqpURL:  amqpURL,
		workers:  workers,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Run consumes until the context is canceled or the broker connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.setup()
	if err != nil {
		return err
	}
	c.logger.Infof("consuming %s with %d workers", global.CoverageQueue, c.workers)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < c.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case delivery, ok := <-deliveries:
					if !ok {
						return errs.New("delivery channel closed")
					}
					c.handle(ctx, delivery)
				}
			}
		})
	}
	return g.Wait()
}

func (c *Consumer) setup() (<-chan amqp.Delivery, error) {
	conn, err := amqp.Dial(c.amqpURL)
	if err != nil {
		return nil, &errs.TransportError{Endpoint: c.amqpURL, Err: err}
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, &errs.TransportError{Endpoint: c.amqpURL, Err: err}
	}
	c.conn, c.channel = conn, channel

	if err := channel.ExchangeDeclare(global.CoverageExchange, "topic", true, false, false, false, nil); err != nil {
		return nil, &errs.TransportError{Endpoint: c.amqpURL, Err: err}
	}
	if _, err := channel.QueueDeclare(global.CoverageQueue, true, false, false, false, nil); err != nil {
		return nil, &errs.TransportError{Endpoint: c.amqpURL, Err: err}
	}
	if err := channel.QueueBind(global.CoverageQueue, global.CoverageRoutingKey, global.CoverageExchange, false, nil); err != nil {
		return nil, &errs.TransportError{Endpoint: c.amqpURL, Err: err}
	}
	if err := channel.Qos(1, 0, false); err != nil {
		return nil, &errs.TransportError{Endpoint: c.amqpURL, Err: err}
	}

	deliveries, err := channel.Consume(global.CoverageQueue, "", false, false, false, false, nil)
	if err != nil {
		return nil, &errs.TransportError{Endpoint: c.amqpURL, Err: err}
	}
	return deliveries, nil
}

func (c *Consumer) handle(ctx context.Context, delivery amqp.Delivery) {
	retry := retryCount(delivery.Headers)
	switch c.pipeline.Process(ctx, delivery.Body, retry) {
	case VerdictAck:
		if err := delivery.Ack(false); err != nil {
			c.logger.Errorf("ack failed: %v", err)
		}
	case VerdictReject:
		if err := delivery.Nack(false, false); err != nil {
			c.logger.Errorf("nack failed: %v", err)
		}
	case VerdictRetry:
		if err := c.republish(delivery, retry+1); err != nil {
			c.logger.Errorf("republish failed, requeueing original: %v", err)
			if nackErr := delivery.Nack(false, true); nackErr != nil {
				c.logger.Errorf("requeue nack failed: %v", nackErr)
			}
			return
		}
		if err := delivery.Ack(false); err != nil {
			c.logger.Errorf("ack after republish failed: %v", err)
		}
	}
}

// republish sends the body back through the exchange with an incremented
// retry header, then the original delivery gets acked.
func (c *Consumer) republish(delivery amqp.Delivery, retry int) error {
	return c.channel.Publish(global.CoverageExchange, global.CoverageRoutingKey, false, false, amqp.Publishing{
		Headers:      amqp.Table{global.RetryHeaderKey: int32(retry)},
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         delivery.Body,
	})
}

// Close tears down the channel and connection.
func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func retryCount(headers amqp.Table) int {
	raw, ok := headers[global.RetryHeaderKey]
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	default:
		return 0
	}
}
