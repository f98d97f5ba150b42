package usecases_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"pay-router.backend/internal/domain/entities"
	domainerrors "pay-router.backend/internal/domain/errors"
	"pay-router.backend/pkg/utils"
)

// Mock UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Do(ctx context.Context, f func(context.Context) error) error {
	m.Called(ctx, f)
	return f(ctx)
}

func (m *MockUnitOfWork) WithLock(ctx context.Context) context.Context {
	args := m.Called(ctx)
	return args.Get(0).(context.Context) // Return mocked context
}

// Mock RetryStepRepository
type MockRetryStepRepository struct {
	mock.Mock
}

func (m *MockRetryStepRepository) Create(ctx context.Context, step *entities.RetryStep) error {
	args := m.Called(ctx, step)
	return args.Error(0)
}

func (m *MockRetryStepRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.RetryStep, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RetryStep), args.Error(1)
}

func (m *MockRetryStepRepository) ListByMethod(ctx context.Context, method entities.PaymentMethod, activeOnly bool) ([]*entities.RetryStep, error) {
	args := m.Called(ctx, method, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RetryStep), args.Error(1)
}

func (m *MockRetryStepRepository) ListByMethodForUpdate(ctx context.Context, method entities.PaymentMethod) ([]*entities.RetryStep, error) {
	args := m.Called(ctx, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RetryStep), args.Error(1)
}

func (m *MockRetryStepRepository) UpdateOrder(ctx context.Context, id uuid.UUID, order int) error {
	args := m.Called(ctx, id, order)
	return args.Error(0)
}

func (m *MockRetryStepRepository) UpdateActive(ctx context.Context, id uuid.UUID, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockRetryStepRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Mock ChargebackRepository
type MockChargebackRepository struct {
	mock.Mock
}

func (m *MockChargebackRepository) Create(ctx context.Context, cb *entities.Chargeback) error {
	args := m.Called(ctx, cb)
	return args.Error(0)
}

func (m *MockChargebackRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Chargeback, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Chargeback), args.Error(1)
}

func (m *MockChargebackRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Chargeback, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Chargeback), args.Error(1)
}

func (m *MockChargebackRepository) List(ctx context.Context, filter entities.ChargebackFilter, pagination utils.PaginationParams) ([]*entities.Chargeback, int64, error) {
	args := m.Called(ctx, filter, pagination)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.Chargeback), args.Get(1).(int64), args.Error(2)
}

func (m *MockChargebackRepository) Update(ctx context.Context, cb *entities.Chargeback) error {
	args := m.Called(ctx, cb)
	return args.Error(0)
}

// Mock Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n entities.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// Mock AcquirerAdapter
type MockAcquirerAdapter struct {
	mock.Mock
	acquirer entities.Acquirer
}

func newMockAdapter(acq entities.Acquirer) *MockAcquirerAdapter {
	return &MockAcquirerAdapter{acquirer: acq}
}

func (m *MockAcquirerAdapter) Acquirer() entities.Acquirer { return m.acquirer }

func (m *MockAcquirerAdapter) SubmitPayment(ctx context.Context, req entities.PaymentRequest) (*entities.PaymentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentResponse), args.Error(1)
}

// Mock TransactionResultStore
type MockResultStore struct {
	mock.Mock
}

func (m *MockResultStore) Get(ctx context.Context, id string) (*entities.TransactionResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TransactionResult), args.Error(1)
}

func (m *MockResultStore) Save(ctx context.Context, result *entities.TransactionResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockResultStore) Acquire(ctx context.Context, id string, ttl time.Duration) (string, bool, error) {
	args := m.Called(ctx, id, ttl)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockResultStore) Release(ctx context.Context, id, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

// memoryEventRepo is an in-memory ApiEventRepository.
type memoryEventRepo struct {
	mu       sync.Mutex
	events   []*entities.ApiEvent
	batches  int
	batchErr error
}

func (r *memoryEventRepo) Create(_ context.Context, e *entities.ApiEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.events = append(r.events, &cp)
	return nil
}

func (r *memoryEventRepo) CreateBatch(_ context.Context, events []*entities.ApiEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.batchErr != nil {
		return r.batchErr
	}
	r.batches++
	for _, e := range events {
		cp := *e
		r.events = append(r.events, &cp)
	}
	return nil
}

func (r *memoryEventRepo) ListRecent(_ context.Context, filter entities.EventFilter, limit int) ([]*entities.ApiEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.ApiEvent, 0)
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		e := r.events[i]
		if filter.Acquirer != "" && e.Acquirer != filter.Acquirer {
			continue
		}
		if filter.EventType != "" && e.EventType != filter.EventType {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *memoryEventRepo) ListSince(_ context.Context, since time.Time) ([]*entities.ApiEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.ApiEvent, 0)
	for _, e := range r.events {
		if !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryEventRepo) all() []*entities.ApiEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entities.ApiEvent(nil), r.events...)
}

func (r *memoryEventRepo) count(acq entities.Acquirer, typ entities.ApiEventType) int {
	n := 0
	for _, e := range r.all() {
		if e.Acquirer == acq && e.EventType == typ {
			n++
		}
	}
	return n
}

// staticChains serves fixed snapshots per method.
type staticChains map[entities.PaymentMethod][]entities.Acquirer

func (c staticChains) GetActiveChain(_ context.Context, method entities.PaymentMethod) (*entities.ChainSnapshot, error) {
	acqs, ok := c[method]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	snap := &entities.ChainSnapshot{PaymentMethod: method, LoadedAt: time.Now()}
	for i, a := range acqs {
		snap.Steps = append(snap.Steps, entities.RetryStep{
			ID:            uuid.New(),
			PaymentMethod: method,
			Order:         i + 1,
			Acquirer:      a,
			IsActive:      true,
		})
	}
	return snap, nil
}
