package events

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"moneta/internal/logger"
)

const publishTimeout = 5 * time.Second

// channel is the subset of *amqp091.Channel the client uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	Close() error
}

// AMQPClient publishes and consumes TransactionDue events over a durable
// direct exchange. The routing key is the queue name.
type AMQPClient struct {
	conn     *amqp091.Connection
	ch       channel
	exchange string
	queue    string
	log      *zap.SugaredLogger
}

// NewAMQPClient dials url and declares the exchange, queue and binding.
func NewAMQPClient(url, exchange, queue string) (*AMQPClient, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, exchange, queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	c := newAMQPClient(ch, exchange, queue)
	c.conn = conn
	return c, nil
}

func newAMQPClient(ch channel, exchange, queue string) *AMQPClient {
	return &AMQPClient{
		ch:       ch,
		exchange: exchange,
		queue:    queue,
		log:      logger.Named("amqp"),
	}
}

func declareTopology(ch *amqp091.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishTransactionDue implements Publisher with persistent JSON messages.
func (c *AMQPClient) PublishTransactionDue(ctx context.Context, evt TransactionDue) error {
	body, err := evt.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.ch.PublishWithContext(ctx, c.exchange, c.queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Type:         TransactionDueType,
		MessageId:    evt.RecurringTransactionID + "@" + evt.Date.UTC().Format(time.RFC3339),
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	c.log.Debugw("Published transaction due event",
		"recurring_transaction_id", evt.RecurringTransactionID,
		"workspace_id", evt.WorkspaceID,
		"date", evt.Date,
	)
	return nil
}

// Consume delivers TransactionDue events to h until ctx is cancelled.
// Malformed messages are dropped; handler failures are requeued.
func (c *AMQPClient) Consume(ctx context.Context, h Handler) error {
	deliveries, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.log.Infow("Started consuming transaction due events", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			c.log.Infow("Stopping consumption", "reason", ctx.Err())
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.handleDelivery(ctx, d, h)
		}
	}
}

func (c *AMQPClient) handleDelivery(ctx context.Context, d amqp091.Delivery, h Handler) {
	evt, err := TransactionDueFromJSON(d.Body)
	if err != nil {
		c.log.Errorw("Failed to decode event", "error", err, "message_id", d.MessageId)
		_ = d.Nack(false, false)
		return
	}

	if err := h(ctx, evt); err != nil {
		c.log.Errorw("Failed to handle event",
			"error", err,
			"recurring_transaction_id", evt.RecurringTransactionID,
			"redelivered", d.Redelivered,
		)
		_ = d.Nack(false, true)
		return
	}

	_ = d.Ack(false)
}

// Close closes the channel and connection.
func (c *AMQPClient) Close() error {
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
