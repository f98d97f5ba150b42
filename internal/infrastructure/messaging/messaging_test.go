package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pay-router.backend/internal/domain/entities"
	domainrepos "pay-router.backend/internal/domain/repositories"
	"pay-router.backend/pkg/logger"
	"pay-router.backend/pkg/metrics"
)

var (
	_ domainrepos.Notifier = (*RabbitMQNotifier)(nil)
	_ domainrepos.Notifier = (*LogNotifier)(nil)
	_ domainrepos.Notifier = (*AsyncNotifier)(nil)
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu     sync.Mutex
	sent   []published
	err    error
	closed bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	got   []entities.Notification
	err   error
	block chan struct{}
}

func (r *recordingNotifier) Notify(_ context.Context, n entities.Notification) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func TestRabbitMQNotifier_PublishesWithKindAsRoutingKey(t *testing.T) {
	ch := &fakeChannel{}
	n := newRabbitMQNotifierWithChannel(ch, DefaultExchange)

	err := n.Notify(context.Background(), entities.Notification{
		Kind:       entities.NotificationChargebackStatusChanged,
		Subject:    "cb-1",
		Acquirer:   entities.AcquirerInter,
		Attributes: map[string]string{"from": "pending", "to": "confirmed"},
	})
	require.NoError(t, err)
	require.Len(t, ch.sent, 1)

	sent := ch.sent[0]
	assert.Equal(t, "pay-router.notifications", sent.exchange)
	assert.Equal(t, "chargeback.status_changed", sent.key)
	assert.Equal(t, "application/json", sent.msg.ContentType)
	assert.Equal(t, amqp.Persistent, sent.msg.DeliveryMode)

	var decoded entities.Notification
	require.NoError(t, json.Unmarshal(sent.msg.Body, &decoded))
	assert.Equal(t, "confirmed", decoded.Attributes["to"])
	assert.False(t, decoded.OccurredAt.IsZero())

	require.NoError(t, n.Close())
	assert.True(t, ch.closed)
}

func TestRabbitMQNotifier_PublishError(t *testing.T) {
	n := newRabbitMQNotifierWithChannel(&fakeChannel{err: errors.New("channel closed")}, DefaultExchange)
	err := n.Notify(context.Background(), entities.Notification{Kind: entities.NotificationCircuitOpen})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish notification")
}

func TestNewRabbitMQNotifier_DialError(t *testing.T) {
	orig := dialAMQP
	t.Cleanup(func() { dialAMQP = orig })
	dialAMQP = func(string) (*amqp.Connection, error) { return nil, errors.New("refused") }

	_, err := NewRabbitMQNotifier("amqp://localhost", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to RabbitMQ")
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger.SetLogger(zap.New(core))
	t.Cleanup(func() { logger.SetLogger(zap.NewNop()) })

	err := NewLogNotifier().Notify(context.Background(), entities.Notification{
		Kind:     entities.NotificationCircuitClose,
		Subject:  "inter",
		Acquirer: entities.AcquirerInter,
	})
	require.NoError(t, err)
	require.Equal(t, 1, logs.FilterMessage("Notification").Len())
	assert.Equal(t, "circuit.close", logs.All()[0].ContextMap()["kind"])
}

func TestAsyncNotifier_DeliversAndCloses(t *testing.T) {
	next := &recordingNotifier{}
	rec := metrics.New()
	a := NewAsyncNotifier(next, 4, rec)

	require.NoError(t, a.Notify(context.Background(), entities.Notification{Kind: entities.NotificationChargebackRecorded, Subject: "1"}))
	require.NoError(t, a.Notify(context.Background(), entities.Notification{Kind: entities.NotificationChargebackRecorded, Subject: "2"}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.Close(ctx))
	assert.Equal(t, 2, next.count())
	expected := `
# HELP payrouter_notifications_total Notification dispatches by kind and result.
# TYPE payrouter_notifications_total counter
payrouter_notifications_total{kind="chargeback.recorded",result="sent"} 2
`
	require.NoError(t, testutil.GatherAndCompare(rec.Registry(), strings.NewReader(expected), "payrouter_notifications_total"))

	// after close, notifications are dropped without panicking
	require.NoError(t, a.Notify(context.Background(), entities.Notification{Kind: entities.NotificationCircuitOpen}))
	require.NoError(t, a.Close(ctx))
}

func TestAsyncNotifier_DropsWhenFull(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger.SetLogger(zap.New(core))
	t.Cleanup(func() { logger.SetLogger(zap.NewNop()) })

	next := &recordingNotifier{block: make(chan struct{})}
	a := NewAsyncNotifier(next, 1, nil)

	// first is taken by the worker and blocks, second fills the queue
	require.NoError(t, a.Notify(context.Background(), entities.Notification{Kind: entities.NotificationCircuitOpen, Subject: "a"}))
	require.Eventually(t, func() bool { return len(a.queue) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, a.Notify(context.Background(), entities.Notification{Kind: entities.NotificationCircuitOpen, Subject: "b"}))
	require.NoError(t, a.Notify(context.Background(), entities.Notification{Kind: entities.NotificationCircuitOpen, Subject: "c"}))

	assert.Equal(t, 1, logs.FilterMessage("Notification dropped").Len())

	close(next.block)
	require.NoError(t, a.Close(context.Background()))
	assert.Equal(t, 2, next.count())
}

func TestAsyncNotifier_DeliveryFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger.SetLogger(zap.New(core))
	t.Cleanup(func() { logger.SetLogger(zap.NewNop()) })

	a := NewAsyncNotifier(&recordingNotifier{err: errors.New("broker down")}, 2, nil)
	require.NoError(t, a.Notify(context.Background(), entities.Notification{Kind: entities.NotificationChargebackRecorded}))
	require.NoError(t, a.Close(context.Background()))
	assert.Equal(t, 1, logs.FilterMessage("Notification delivery failed").Len())
}
