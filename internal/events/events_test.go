package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() TransactionDue {
	return TransactionDue{
		RecurringTransactionID: "rt-1",
		WorkspaceID:            "ws-1",
		Type:                   "expense",
		AccountID:              "acc-1",
		CategoryID:             "cat-1",
		Amount:                 150000,
		Currency:               "MYR",
		Notes:                  "rent",
		Date:                   time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		CreatedBy:              "user-1",
	}
}

func TestTransactionDue_JSON(t *testing.T) {
	evt := sampleEvent()
	body, err := evt.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"recurring_transaction_id":"rt-1"`)
	assert.NotContains(t, string(body), "subcategory_id")

	decoded, err := TransactionDueFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, evt, decoded)

	_, err = TransactionDueFromJSON([]byte("{"))
	assert.Error(t, err)
}

func TestBus_DispatchesInOrder(t *testing.T) {
	bus := NewBus()
	var calls []string

	bus.Subscribe(func(ctx context.Context, evt TransactionDue) error {
		calls = append(calls, "first:"+evt.RecurringTransactionID)
		return nil
	})
	bus.Subscribe(func(ctx context.Context, evt TransactionDue) error {
		calls = append(calls, "second:"+evt.RecurringTransactionID)
		return nil
	})

	require.NoError(t, bus.PublishTransactionDue(context.Background(), sampleEvent()))
	assert.Equal(t, []string{"first:rt-1", "second:rt-1"}, calls)
}

func TestBus_JoinsHandlerErrors(t *testing.T) {
	bus := NewBus()
	errA := errors.New("ledger down")
	ran := 0

	bus.Subscribe(func(ctx context.Context, evt TransactionDue) error { ran++; return errA })
	bus.Subscribe(func(ctx context.Context, evt TransactionDue) error { ran++; return nil })

	err := bus.PublishTransactionDue(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.Equal(t, 2, ran, "later handlers still run")
}

func TestBus_StopsOnCancelledContext(t *testing.T) {
	bus := NewBus()
	bus.Subscribe(func(ctx context.Context, evt TransactionDue) error {
		t.Fatal("handler must not run")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, bus.PublishTransactionDue(ctx, sampleEvent()), context.Canceled)
}

func TestBus_NoSubscribers(t *testing.T) {
	assert.NoError(t, NewBus().PublishTransactionDue(context.Background(), sampleEvent()))
}

// fakeChannel records publishes and feeds deliveries to Consume.
type fakeChannel struct {
	mu         sync.Mutex
	published  []amqp091.Publishing
	keys       []string
	deliveries chan amqp091.Delivery
	publishErr error
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, msg)
	f.keys = append(f.keys, exchange+"/"+key)
	return nil
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Close() error { return nil }

// fakeAck records acknowledgements.
type fakeAck struct {
	mu      sync.Mutex
	acked   int
	nacked  int
	requeue []bool
	done    chan struct{}
}

func (a *fakeAck) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	a.acked++
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	a.nacked++
	a.requeue = append(a.requeue, requeue)
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *fakeAck) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestAMQPClient_Publish(t *testing.T) {
	ch := &fakeChannel{}
	client := newAMQPClient(ch, "moneta", "transaction-due")

	require.NoError(t, client.PublishTransactionDue(context.Background(), sampleEvent()))
	require.Len(t, ch.published, 1)

	msg := ch.published[0]
	assert.Equal(t, "moneta/transaction-due", ch.keys[0])
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp091.Persistent, msg.DeliveryMode)
	assert.Equal(t, TransactionDueType, msg.Type)
	assert.Equal(t, "rt-1@2025-02-01T00:00:00Z", msg.MessageId)

	decoded, err := TransactionDueFromJSON(msg.Body)
	require.NoError(t, err)
	assert.Equal(t, sampleEvent(), decoded)
}

func TestAMQPClient_PublishError(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	client := newAMQPClient(ch, "moneta", "transaction-due")

	err := client.PublishTransactionDue(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "channel closed")
}

func TestAMQPClient_Consume(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp091.Delivery)}
	client := newAMQPClient(ch, "moneta", "transaction-due")
	ack := &fakeAck{done: make(chan struct{}, 3)}

	body, err := sampleEvent().ToJSON()
	require.NoError(t, err)

	var handled []string
	handler := func(ctx context.Context, evt TransactionDue) error {
		handled = append(handled, evt.RecurringTransactionID)
		if len(handled) == 2 {
			return errors.New("transient")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- client.Consume(ctx, handler) }()

	ch.deliveries <- amqp091.Delivery{Acknowledger: ack, Body: body}
	<-ack.done
	ch.deliveries <- amqp091.Delivery{Acknowledger: ack, Body: body}
	<-ack.done
	ch.deliveries <- amqp091.Delivery{Acknowledger: ack, Body: []byte("not json")}
	<-ack.done

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	ack.mu.Lock()
	defer ack.mu.Unlock()
	assert.Equal(t, 1, ack.acked)
	assert.Equal(t, 2, ack.nacked)
	assert.Equal(t, []bool{true, false}, ack.requeue, "handler failure requeues, malformed body does not")
	assert.Equal(t, []string{"rt-1", "rt-1"}, handled)
}

func TestPublisherFunc(t *testing.T) {
	var got TransactionDue
	var p Publisher = PublisherFunc(func(ctx context.Context, evt TransactionDue) error {
		got = evt
		return nil
	})
	require.NoError(t, p.PublishTransactionDue(context.Background(), sampleEvent()))
	assert.Equal(t, "rt-1", got.RecurringTransactionID)
}
