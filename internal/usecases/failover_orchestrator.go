package usecases

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"pay-router.backend/internal/domain/entities"
	domainerrors "pay-router.backend/internal/domain/errors"
	"pay-router.backend/internal/domain/repositories"
	"pay-router.backend/pkg/logger"
	"pay-router.backend/pkg/metrics"
)

const (
	skipNoAdapter   = "no_adapter"
	skipCircuitOpen = "circuit_open"
)

// FailoverSettings configures the chain walk.
type FailoverSettings struct {
	AdapterTimeout    time.Duration
	RecordRetryEvents bool
	// LockTTL bounds how long a crashed walk keeps its transaction id locked.
	LockTTL time.Duration
}

// ChainProvider yields the active chain of a payment method.
type ChainProvider interface {
	GetActiveChain(ctx context.Context, method entities.PaymentMethod) (*entities.ChainSnapshot, error)
}

// EventAppender receives every attempt and circuit transition.
type EventAppender interface {
	Append(ctx context.Context, event *entities.ApiEvent) error
}

// FailoverOrchestrator walks a payment method's chain until one acquirer
// approves the transaction or the chain is exhausted.
type FailoverOrchestrator struct {
	chains   ChainProvider
	breaker  *CircuitBreaker
	events   EventAppender
	adapters repositories.AcquirerAdapterRegistry
	results  repositories.TransactionResultStore
	notifier repositories.Notifier
	metrics  *metrics.Recorder
	settings FailoverSettings
	now      func() time.Time
}

// NewFailoverOrchestrator wires the orchestrator and registers it as the
// breaker's transition listener.
func NewFailoverOrchestrator(
	chains ChainProvider,
	breaker *CircuitBreaker,
	events EventAppender,
	adapters repositories.AcquirerAdapterRegistry,
	results repositories.TransactionResultStore,
	notifier repositories.Notifier,
	rec *metrics.Recorder,
	settings FailoverSettings,
) *FailoverOrchestrator {
	if settings.AdapterTimeout <= 0 {
		settings.AdapterTimeout = 10 * time.Second
	}
	if settings.LockTTL <= 0 {
		settings.LockTTL = settings.AdapterTimeout*entities.MaxChainSteps + 5*time.Second
	}
	o := &FailoverOrchestrator{
		chains:   chains,
		breaker:  breaker,
		events:   events,
		adapters: adapters,
		results:  results,
		notifier: notifier,
		metrics:  rec,
		settings: settings,
		now:      func() time.Time { return time.Now().UTC() },
	}
	breaker.SetListener(o.HandleCircuitTransition)
	return o
}

// Submit routes one transaction. A cached success is replayed without
// calling any acquirer. Exhaustion returns the failed result together with
// ErrChainExhausted.
func (o *FailoverOrchestrator) Submit(ctx context.Context, txn *entities.Transaction) (*entities.TransactionResult, error) {
	if err := validateTransaction(txn); err != nil {
		return nil, err
	}
	ctx = logger.WithTransactionID(ctx, txn.ID)

	if cached, err := o.replay(ctx, txn.ID); cached != nil || err != nil {
		return cached, err
	}

	token, acquired, err := o.results.Acquire(ctx, txn.ID, o.settings.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to lock transaction: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: %s", domainerrors.ErrTransactionInFlight, txn.ID)
	}
	// an approved result that could not be cached keeps the lock until its
	// TTL so a resubmission cannot start a second walk
	holdLock := false
	defer func() {
		if !holdLock {
			o.release(ctx, txn.ID, token)
		}
	}()

	// another walk may have finished between the lookup and the lock
	if cached, err := o.replay(ctx, txn.ID); cached != nil || err != nil {
		return cached, err
	}

	snapshot, err := o.chains.GetActiveChain(ctx, txn.PaymentMethod)
	if err != nil {
		return nil, err
	}

	result := &entities.TransactionResult{TransactionID: txn.ID}
	var lastErr *domainerrors.AcquirerError

	for i, step := range snapshot.Steps {
		acq := step.Acquirer

		adapter, ok := o.adapters.Get(acq)
		if !ok {
			logger.Warn(ctx, "No adapter registered, skipping acquirer", zap.String("acquirer", string(acq)))
			o.metrics.IncSkip(string(acq), skipNoAdapter)
			continue
		}
		ticket, eligible := o.breaker.IsEligible(acq)
		if !eligible {
			logger.Info(ctx, "Circuit open, skipping acquirer", zap.String("acquirer", string(acq)))
			o.metrics.IncSkip(string(acq), skipCircuitOpen)
			continue
		}

		result.Attempts++
		attempt := result.Attempts

		resp, latency, callErr := o.call(ctx, adapter, txn, attempt)
		fields := []zap.Field{
			zap.String("acquirer", string(acq)),
			zap.Int("attempt", attempt),
			zap.Int64("latency_ms", latency.Milliseconds()),
		}

		if callErr == nil {
			o.breaker.ReportOutcome(ticket, true)
			o.metrics.ObserveAttempt(string(acq), string(entities.ApiEventSuccess), latency)
			o.appendEvent(ctx, &entities.ApiEvent{
				Acquirer:       acq,
				EventType:      entities.ApiEventSuccess,
				TransactionID:  null.StringFrom(txn.ID),
				ResponseTimeMs: null.Int64From(latency.Milliseconds()),
				RetryAttempt:   null.IntFrom(attempt),
			})
			logger.Info(ctx, "Acquirer approved transaction", fields...)

			result.Success = true
			result.AcquirerUsed = null.StringFrom(string(acq))
			result.ExternalRef = null.StringFrom(resp.ExternalRef)
			if err := o.saveResult(ctx, result); err != nil {
				holdLock = true
				logger.Error(ctx, "Failed to cache transaction result, holding lock until it expires",
					zap.Duration("lock_ttl", o.settings.LockTTL),
					zap.Error(err),
				)
			}
			o.metrics.IncTransaction("success")
			return result, nil
		}

		if ctx.Err() != nil {
			o.breaker.Abandon(ticket)
			logger.Warn(ctx, "Transaction cancelled by caller", append(fields, zap.Error(ctx.Err()))...)
			o.metrics.IncTransaction("cancelled")
			return nil, ctx.Err()
		}

		acqErr := classifyFailure(acq, callErr)
		lastErr = acqErr
		o.breaker.ReportOutcome(ticket, false)
		o.metrics.ObserveAttempt(string(acq), string(acqErr.Kind), latency)
		o.appendEvent(ctx, &entities.ApiEvent{
			Acquirer:       acq,
			EventType:      entities.ApiEventFailure,
			TransactionID:  null.StringFrom(txn.ID),
			ResponseTimeMs: null.Int64From(latency.Milliseconds()),
			ErrorMessage:   null.StringFrom(acqErr.Error()),
			RetryAttempt:   null.IntFrom(attempt),
		})
		logger.Warn(ctx, "Acquirer attempt failed", append(fields, zap.String("error_kind", string(acqErr.Kind)), zap.Error(acqErr))...)

		if o.settings.RecordRetryEvents && i < len(snapshot.Steps)-1 {
			o.appendEvent(ctx, &entities.ApiEvent{
				Acquirer:      acq,
				EventType:     entities.ApiEventRetry,
				TransactionID: null.StringFrom(txn.ID),
				RetryAttempt:  null.IntFrom(attempt + 1),
			})
		}
	}

	result.FinalError = null.StringFrom(exhaustedMessage(result.Attempts, lastErr))
	logger.Warn(ctx, "Retry chain exhausted",
		zap.String("payment_method", string(txn.PaymentMethod)),
		zap.Int("attempts", result.Attempts),
	)
	o.metrics.IncTransaction("exhausted")
	return result, domainerrors.ErrChainExhausted
}

func (o *FailoverOrchestrator) replay(ctx context.Context, id string) (*entities.TransactionResult, error) {
	cached, err := o.results.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction result: %w", err)
	}
	if cached == nil || !cached.Success {
		return nil, nil
	}
	replayed := *cached
	replayed.Replayed = true
	logger.Info(ctx, "Replaying cached transaction result", zap.String("acquirer", cached.AcquirerUsed.String))
	o.metrics.IncTransaction("replayed")
	return &replayed, nil
}

// saveResult outlives the caller: an approval must be cached even when the
// client has already gone away.
func (o *FailoverOrchestrator) saveResult(ctx context.Context, result *entities.TransactionResult) error {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	return o.results.Save(saveCtx, result)
}

func (o *FailoverOrchestrator) release(ctx context.Context, id, token string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := o.results.Release(releaseCtx, id, token); err != nil {
		logger.Warn(ctx, "Failed to release transaction lock", zap.Error(err))
	}
}

func (o *FailoverOrchestrator) call(ctx context.Context, adapter repositories.AcquirerAdapter, txn *entities.Transaction, attempt int) (*entities.PaymentResponse, time.Duration, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.settings.AdapterTimeout)
	defer cancel()

	start := time.Now()
	resp, err := adapter.SubmitPayment(callCtx, entities.PaymentRequest{
		TransactionID: txn.ID,
		PaymentMethod: txn.PaymentMethod,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		Description:   txn.Description,
		Metadata:      txn.Metadata,
		Attempt:       attempt,
	})
	latency := time.Since(start)
	if err == nil && resp == nil {
		err = domainerrors.NewAcquirerError(string(adapter.Acquirer()), domainerrors.AcquirerNetworkError, "empty response", nil)
	}
	return resp, latency, err
}

// appendEvent never fails the walk; persistence errors are logged.
func (o *FailoverOrchestrator) appendEvent(ctx context.Context, event *entities.ApiEvent) {
	if err := o.events.Append(context.WithoutCancel(ctx), event); err != nil {
		logger.Error(ctx, "Failed to append api event",
			zap.String("acquirer", string(event.Acquirer)),
			zap.String("event_type", string(event.EventType)),
			zap.Error(err),
		)
	}
}

// HandleCircuitTransition records circuit_open and circuit_close events and
// notifies subscribers. HALF_OPEN entries are only logged.
func (o *FailoverOrchestrator) HandleCircuitTransition(t entities.CircuitTransition) {
	ctx := context.Background()
	fields := []zap.Field{
		zap.String("acquirer", string(t.Acquirer)),
		zap.String("from", string(t.From)),
		zap.String("to", string(t.To)),
		zap.Int("failure_count", t.FailureCount),
	}

	var (
		eventType entities.ApiEventType
		kind      entities.NotificationKind
	)
	switch t.To {
	case entities.CircuitOpen:
		eventType, kind = entities.ApiEventCircuitOpen, entities.NotificationCircuitOpen
		logger.Warn(ctx, "Circuit opened", fields...)
	case entities.CircuitClosed:
		eventType, kind = entities.ApiEventCircuitClose, entities.NotificationCircuitClose
		logger.Info(ctx, "Circuit closed", fields...)
	default:
		logger.Info(ctx, "Circuit half-open, admitting probe", fields...)
		return
	}

	event := &entities.ApiEvent{
		Acquirer:  t.Acquirer,
		EventType: eventType,
		CreatedAt: t.At,
	}
	if t.To == entities.CircuitOpen {
		event.ErrorMessage = null.StringFrom(fmt.Sprintf("%d failures, opened from %s", t.FailureCount, t.From))
	}
	o.appendEvent(ctx, event)

	if o.notifier == nil {
		return
	}
	err := o.notifier.Notify(ctx, entities.Notification{
		Kind:     kind,
		Subject:  string(t.Acquirer),
		Acquirer: t.Acquirer,
		Attributes: map[string]string{
			"from":         string(t.From),
			"to":           string(t.To),
			"failureCount": strconv.Itoa(t.FailureCount),
		},
		OccurredAt: t.At,
	})
	if err != nil {
		logger.Warn(ctx, "Circuit notification failed", append(fields, zap.Error(err))...)
	}
}

func validateTransaction(txn *entities.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: missing transaction", domainerrors.ErrInvalidTransaction)
	}
	if strings.TrimSpace(txn.ID) == "" {
		return fmt.Errorf("%w: id is required", domainerrors.ErrInvalidTransaction)
	}
	if !txn.PaymentMethod.IsValid() {
		return fmt.Errorf("%w: unknown payment method %q", domainerrors.ErrInvalidTransaction, txn.PaymentMethod)
	}
	if !txn.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", domainerrors.ErrInvalidTransaction)
	}
	return nil
}

func classifyFailure(acq entities.Acquirer, err error) *domainerrors.AcquirerError {
	var acqErr *domainerrors.AcquirerError
	if errors.As(err, &acqErr) {
		return acqErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domainerrors.NewAcquirerError(string(acq), domainerrors.AcquirerTimeout, "acquirer did not answer in time", err)
	}
	return domainerrors.NewAcquirerError(string(acq), domainerrors.AcquirerNetworkError, "", err)
}

func exhaustedMessage(attempts int, last *domainerrors.AcquirerError) string {
	if last == nil {
		return fmt.Sprintf("%s after %d attempts", domainerrors.ErrChainExhausted, attempts)
	}
	return fmt.Sprintf("%s after %d attempts, last error %s", domainerrors.ErrChainExhausted, attempts, last.Error())
}
