package usecases

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"pay-router.backend/internal/domain/entities"
	domainerrors "pay-router.backend/internal/domain/errors"
	"pay-router.backend/internal/domain/repositories"
	"pay-router.backend/pkg/logger"
	"pay-router.backend/pkg/metrics"
	"pay-router.backend/pkg/utils"
)

const (
	defaultEventLimit  = 50
	maxEventLimit      = 500
	defaultWindowHours = 24
	persistTimeout     = 5 * time.Second
)

// EventLogSettings configures persistence of the event log.
// BufferSize 0 writes every event inline.
type EventLogSettings struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	MaxWindow     time.Duration
}

// CircuitStateReader exposes live breaker state to health summaries.
type CircuitStateReader interface {
	CurrentState(acquirer entities.Acquirer) entities.CircuitState
}

// EventLogUsecase appends acquirer events and answers health queries.
// Aggregation happens synchronously on Append; persistence is handed to a
// single writer goroutine so events of one acquirer keep their order.
type EventLogUsecase struct {
	repo     repositories.ApiEventRepository
	agg      *HealthAggregator
	circuits CircuitStateReader
	settings EventLogSettings
	metrics  *metrics.Recorder
	now      func() time.Time

	mu       sync.RWMutex
	closed   bool
	queue    chan *entities.ApiEvent
	flushReq chan chan struct{}
	done     chan struct{}
	pending  atomic.Int64
}

// NewEventLogUsecase creates the event log and starts its writer when buffered.
func NewEventLogUsecase(
	repo repositories.ApiEventRepository,
	agg *HealthAggregator,
	circuits CircuitStateReader,
	settings EventLogSettings,
	rec *metrics.Recorder,
) *EventLogUsecase {
	if settings.BatchSize <= 0 {
		settings.BatchSize = 100
	}
	if settings.FlushInterval <= 0 {
		settings.FlushInterval = time.Second
	}
	if agg == nil {
		agg = NewHealthAggregator(settings.MaxWindow)
	}
	settings.MaxWindow = agg.MaxWindow()

	u := &EventLogUsecase{
		repo:     repo,
		agg:      agg,
		circuits: circuits,
		settings: settings,
		metrics:  rec,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if settings.BufferSize > 0 {
		u.queue = make(chan *entities.ApiEvent, settings.BufferSize)
		u.flushReq = make(chan chan struct{})
		u.done = make(chan struct{})
		go u.runWriter()
	}
	return u
}

// Append validates and records one event. It is never dropped: when the
// buffer is full or the log is closed the event is written inline.
func (u *EventLogUsecase) Append(ctx context.Context, event *entities.ApiEvent) error {
	if err := validateEvent(event); err != nil {
		return err
	}
	if event.ID == uuid.Nil {
		event.ID = utils.GenerateUUIDv7()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = u.now()
	} else {
		event.CreatedAt = event.CreatedAt.UTC()
	}

	u.agg.Record(event)

	if u.enqueue(event) {
		return nil
	}
	if err := u.repo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to persist api event: %w", err)
	}
	return nil
}

func (u *EventLogUsecase) enqueue(event *entities.ApiEvent) bool {
	if u.queue == nil {
		return false
	}
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.closed {
		return false
	}
	select {
	case u.queue <- event:
		u.metrics.SetEventsPending(int(u.pending.Add(1)))
		return true
	default:
		return false
	}
}

func validateEvent(e *entities.ApiEvent) error {
	if e == nil {
		return fmt.Errorf("%w: nil event", domainerrors.ErrMalformedEvent)
	}
	if !e.Acquirer.IsValid() {
		return fmt.Errorf("%w: unknown acquirer %q", domainerrors.ErrMalformedEvent, e.Acquirer)
	}
	if !e.EventType.IsValid() {
		return fmt.Errorf("%w: unknown event type %q", domainerrors.ErrMalformedEvent, e.EventType)
	}
	if e.ResponseTimeMs.Valid && e.ResponseTimeMs.Int64 < 0 {
		return fmt.Errorf("%w: negative response time", domainerrors.ErrMalformedEvent)
	}
	if e.RetryAttempt.Valid && e.RetryAttempt.Int < 1 {
		return fmt.Errorf("%w: retry attempt must be at least 1", domainerrors.ErrMalformedEvent)
	}
	return nil
}

func (u *EventLogUsecase) runWriter() {
	ticker := time.NewTicker(u.settings.FlushInterval)
	defer ticker.Stop()

	batch := make([]*entities.ApiEvent, 0, u.settings.BatchSize)
	write := func() {
		if len(batch) == 0 {
			return
		}
		u.persist(batch)
		batch = make([]*entities.ApiEvent, 0, u.settings.BatchSize)
	}

	for {
		select {
		case e, ok := <-u.queue:
			if !ok {
				write()
				close(u.done)
				return
			}
			batch = append(batch, e)
			if len(batch) >= u.settings.BatchSize {
				write()
			}
		case <-ticker.C:
			write()
		case ack := <-u.flushReq:
			for n := len(u.queue); n > 0; n-- {
				batch = append(batch, <-u.queue)
			}
			write()
			close(ack)
		}
	}
}

func (u *EventLogUsecase) persist(batch []*entities.ApiEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	defer func() {
		u.metrics.SetEventsPending(int(u.pending.Add(-int64(len(batch)))))
	}()

	err := u.repo.CreateBatch(ctx, batch)
	if err == nil {
		return
	}
	logger.Warn(ctx, "Event batch write failed, retrying one by one",
		zap.Int("events", len(batch)),
		zap.Error(err),
	)

	for _, e := range batch {
		if err := u.repo.Create(ctx, e); err != nil {
			logger.Error(ctx, "Failed to persist api event",
				zap.String("event_id", e.ID.String()),
				zap.String("acquirer", string(e.Acquirer)),
				zap.String("event_type", string(e.EventType)),
				zap.Error(err),
			)
		}
	}
}

// Flush blocks until every event buffered before the call is persisted.
func (u *EventLogUsecase) Flush(ctx context.Context) error {
	if u.queue == nil {
		return nil
	}
	u.mu.RLock()
	if u.closed {
		u.mu.RUnlock()
		return nil
	}
	ack := make(chan struct{})
	select {
	case u.flushReq <- ack:
	case <-ctx.Done():
		u.mu.RUnlock()
		return ctx.Err()
	}
	u.mu.RUnlock()

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the writer after draining the buffer. Later appends are written inline.
func (u *EventLogUsecase) Close(ctx context.Context) error {
	if u.queue == nil {
		return nil
	}
	u.mu.Lock()
	if !u.closed {
		u.closed = true
		close(u.queue)
	}
	u.mu.Unlock()

	select {
	case <-u.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecentEvents returns persisted events newest first.
func (u *EventLogUsecase) RecentEvents(ctx context.Context, filter entities.EventFilter, limit int) ([]*entities.ApiEvent, error) {
	if filter.Acquirer != "" && !filter.Acquirer.IsValid() {
		return nil, fmt.Errorf("%w: %q", domainerrors.ErrUnknownAcquirer, filter.Acquirer)
	}
	if filter.EventType != "" && !filter.EventType.IsValid() {
		return nil, fmt.Errorf("%w: unknown event type %q", domainerrors.ErrInvalidInput, filter.EventType)
	}
	if err := u.Flush(ctx); err != nil {
		return nil, err
	}
	return u.repo.ListRecent(ctx, filter, utils.ClampLimit(limit, defaultEventLimit, maxEventLimit))
}

// HealthSummary derives one acquirer's health over the last windowHours.
// windowHours 0 means 24. Counts have one-minute granularity: the window's
// old edge is rounded down to the start of its minute.
func (u *EventLogUsecase) HealthSummary(ctx context.Context, acquirer entities.Acquirer, windowHours int) (*entities.AcquirerHealth, error) {
	if !acquirer.IsValid() {
		return nil, fmt.Errorf("%w: %q", domainerrors.ErrUnknownAcquirer, acquirer)
	}
	window, err := u.resolveWindow(windowHours)
	if err != nil {
		return nil, err
	}
	if windowHours == 0 {
		windowHours = defaultWindowHours
	}

	now := u.now()
	c := u.agg.Counts(acquirer, window, now)

	health := &entities.AcquirerHealth{
		Acquirer:     acquirer,
		WindowHours:  windowHours,
		TotalCalls:   c.Success + c.Failure,
		SuccessCount: c.Success,
		FailureCount: c.Failure,
		RetryCount:   c.Retry,
		CircuitOpens: c.CircuitOpens,
		CircuitState: entities.CircuitClosed,
		GeneratedAt:  now,
	}
	if c.LatencyCount > 0 {
		health.AvgResponseTime = float64(c.LatencySum) / float64(c.LatencyCount)
	}
	if health.TotalCalls > 0 {
		health.SuccessRate = float64(c.Success) / float64(health.TotalCalls) * 100
	}
	if !c.LastFailure.IsZero() {
		health.LastFailure = null.TimeFrom(c.LastFailure)
	}
	if u.circuits != nil {
		health.CircuitState = u.circuits.CurrentState(acquirer)
	}
	health.IsCircuitOpen = health.CircuitState != entities.CircuitClosed
	return health, nil
}

// HealthOverview returns a summary per known acquirer.
func (u *EventLogUsecase) HealthOverview(ctx context.Context, windowHours int) ([]*entities.AcquirerHealth, error) {
	out := make([]*entities.AcquirerHealth, 0, len(entities.AllAcquirers()))
	for _, acq := range entities.AllAcquirers() {
		h, err := u.HealthSummary(ctx, acq, windowHours)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

func (u *EventLogUsecase) resolveWindow(windowHours int) (time.Duration, error) {
	if windowHours == 0 {
		windowHours = defaultWindowHours
	}
	maxHours := int(u.settings.MaxWindow / time.Hour)
	if windowHours < 1 || windowHours > maxHours {
		return 0, fmt.Errorf("%w: window must be 1..%d hours, got %d", domainerrors.ErrInvalidWindow, maxHours, windowHours)
	}
	return time.Duration(windowHours) * time.Hour, nil
}

// WarmUp rebuilds the aggregator from events persisted within MaxWindow.
func (u *EventLogUsecase) WarmUp(ctx context.Context) (int, error) {
	events, err := u.repo.ListSince(ctx, u.now().Add(-u.settings.MaxWindow))
	if err != nil {
		return 0, err
	}
	u.agg.Reset()
	for _, e := range events {
		u.agg.Record(e)
	}
	logger.Info(ctx, "Health aggregator warmed up", zap.Int("events", len(events)))
	return len(events), nil
}
