package acquirers

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"pay-router.backend/internal/domain/entities"
	domainerrors "pay-router.backend/internal/domain/errors"
	"pay-router.backend/pkg/utils"
)

// SimulatedOptions shapes a SimulatedAdapter.
type SimulatedOptions struct {
	Latency     time.Duration
	FailureRate float64
	FailureKind domainerrors.AcquirerErrorKind
	Seed        int64
}

// SimulatedAdapter stands in for a real acquirer outside production.
type SimulatedAdapter struct {
	acquirer entities.Acquirer
	opts     SimulatedOptions

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulatedAdapter(acquirer entities.Acquirer, opts SimulatedOptions) *SimulatedAdapter {
	if opts.FailureKind == "" {
		opts.FailureKind = domainerrors.AcquirerDeclined
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedAdapter{
		acquirer: acquirer,
		opts:     opts,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (a *SimulatedAdapter) Acquirer() entities.Acquirer { return a.acquirer }

func (a *SimulatedAdapter) SubmitPayment(ctx context.Context, req entities.PaymentRequest) (*entities.PaymentResponse, error) {
	if a.opts.Latency > 0 {
		timer := time.NewTimer(a.opts.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			kind := domainerrors.AcquirerNetworkError
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				kind = domainerrors.AcquirerTimeout
			}
			return nil, domainerrors.NewAcquirerError(string(a.acquirer), kind, ctx.Err().Error(), ctx.Err())
		case <-timer.C:
		}
	}

	if a.roll() < a.opts.FailureRate {
		return nil, domainerrors.NewAcquirerError(string(a.acquirer), a.opts.FailureKind, "simulated failure", nil)
	}
	return &entities.PaymentResponse{
		ExternalRef: string(a.acquirer) + "-" + utils.GenerateUUIDv7().String(),
		Status:      "approved",
	}, nil
}

func (a *SimulatedAdapter) roll() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Float64()
}
