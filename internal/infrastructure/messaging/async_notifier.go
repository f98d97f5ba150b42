package messaging

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"pay-router.backend/internal/domain/entities"
	domainrepos "pay-router.backend/internal/domain/repositories"
	"pay-router.backend/pkg/logger"
	"pay-router.backend/pkg/metrics"
)

const defaultNotifyTimeout = 5 * time.Second

// AsyncNotifier decouples callers from delivery. Notify never blocks;
// when the queue is full the notification is dropped with a warning.
type AsyncNotifier struct {
	next    domainrepos.Notifier
	queue   chan entities.Notification
	metrics *metrics.Recorder
	timeout time.Duration

	wg       sync.WaitGroup
	stopOnce sync.Once
	mu       sync.RWMutex
	closed   bool
}

func NewAsyncNotifier(next domainrepos.Notifier, queueSize int, rec *metrics.Recorder) *AsyncNotifier {
	if queueSize <= 0 {
		queueSize = 256
	}
	a := &AsyncNotifier{
		next:    next,
		queue:   make(chan entities.Notification, queueSize),
		metrics: rec,
		timeout: defaultNotifyTimeout,
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *AsyncNotifier) Notify(ctx context.Context, n entities.Notification) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.drop(ctx, n, "closed")
		return nil
	}

	select {
	case a.queue <- n:
	default:
		a.drop(ctx, n, "queue_full")
	}
	return nil
}

func (a *AsyncNotifier) drop(ctx context.Context, n entities.Notification, reason string) {
	a.metrics.IncNotification(string(n.Kind), "dropped")
	logger.Warn(ctx, "Notification dropped",
		zap.String("kind", string(n.Kind)),
		zap.String("subject", n.Subject),
		zap.String("reason", reason),
	)
}

func (a *AsyncNotifier) run() {
	defer a.wg.Done()
	for n := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Notify(ctx, n); err != nil {
			a.metrics.IncNotification(string(n.Kind), "failed")
			logger.Error(ctx, "Notification delivery failed",
				zap.String("kind", string(n.Kind)),
				zap.String("subject", n.Subject),
				zap.Error(err),
			)
		} else {
			a.metrics.IncNotification(string(n.Kind), "sent")
		}
		cancel()
	}
}

// Close stops accepting notifications and waits for queued ones to be delivered.
func (a *AsyncNotifier) Close(ctx context.Context) error {
	a.stopOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.queue)
		a.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
