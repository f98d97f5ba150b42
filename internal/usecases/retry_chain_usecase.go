package usecases

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"pay-router.backend/internal/config"
	"pay-router.backend/internal/domain/entities"
	domainerrors "pay-router.backend/internal/domain/errors"
	"pay-router.backend/internal/domain/repositories"
	"pay-router.backend/pkg/logger"
	"pay-router.backend/pkg/utils"
)

// RetryChainUsecase manages the ordered acquirer chain of each payment method.
// It never touches circuit breaker state.
type RetryChainUsecase struct {
	stepRepo repositories.RetryStepRepository
	uow      repositories.UnitOfWork
	now      func() time.Time
}

// NewRetryChainUsecase creates a new retry chain usecase
func NewRetryChainUsecase(stepRepo repositories.RetryStepRepository, uow repositories.UnitOfWork) *RetryChainUsecase {
	return &RetryChainUsecase{
		stepRepo: stepRepo,
		uow:      uow,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GetActiveChain returns a snapshot of the active steps sorted by order.
func (u *RetryChainUsecase) GetActiveChain(ctx context.Context, method entities.PaymentMethod) (*entities.ChainSnapshot, error) {
	if !method.IsValid() {
		return nil, fmt.Errorf("%w: %q", domainerrors.ErrUnknownMethod, method)
	}

	steps, err := u.stepRepo.ListByMethod(ctx, method, true)
	if err != nil {
		return nil, err
	}

	snapshot := &entities.ChainSnapshot{
		PaymentMethod: method,
		Steps:         make([]entities.RetryStep, 0, len(steps)),
		LoadedAt:      u.now(),
	}
	for _, s := range steps {
		snapshot.Steps = append(snapshot.Steps, *s)
	}
	sort.SliceStable(snapshot.Steps, func(i, j int) bool {
		return snapshot.Steps[i].Order < snapshot.Steps[j].Order
	})
	return snapshot, nil
}

// ListSteps returns every step of the method, active or not.
func (u *RetryChainUsecase) ListSteps(ctx context.Context, method entities.PaymentMethod) ([]*entities.RetryStep, error) {
	if !method.IsValid() {
		return nil, fmt.Errorf("%w: %q", domainerrors.ErrUnknownMethod, method)
	}
	return u.stepRepo.ListByMethod(ctx, method, false)
}

// AddStep appends an active step at order.
func (u *RetryChainUsecase) AddStep(ctx context.Context, method entities.PaymentMethod, acquirer entities.Acquirer, order int) (uuid.UUID, error) {
	if !method.IsValid() {
		return uuid.Nil, fmt.Errorf("%w: %q", domainerrors.ErrUnknownMethod, method)
	}
	if !acquirer.IsValid() {
		return uuid.Nil, fmt.Errorf("%w: %q", domainerrors.ErrUnknownAcquirer, acquirer)
	}

	var id uuid.UUID
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		lockCtx := u.uow.WithLock(txCtx)

		existing, err := u.stepRepo.ListByMethodForUpdate(lockCtx, method)
		if err != nil {
			return err
		}
		if len(existing) >= entities.MaxChainSteps {
			return domainerrors.NewConfigError(domainerrors.ErrChainFull, "%s already has %d steps", method, len(existing))
		}
		if order < 1 || order > entities.MaxChainSteps {
			return domainerrors.NewConfigError(domainerrors.ErrInvalidChain, "order %d outside 1..%d", order, entities.MaxChainSteps)
		}
		if order > len(existing)+1 {
			return domainerrors.NewConfigError(domainerrors.ErrInvalidChain, "order %d leaves a gap after %d steps", order, len(existing))
		}
		for _, s := range existing {
			if s.Order == order {
				return domainerrors.NewConfigError(domainerrors.ErrDuplicateOrder, "order %d is taken by %s", order, s.Acquirer)
			}
		}
		for _, s := range existing {
			if s.Acquirer == acquirer {
				return domainerrors.NewConfigError(domainerrors.ErrDuplicateAcquirer, "%s is already in the %s chain", acquirer, method)
			}
		}

		now := u.now()
		step := &entities.RetryStep{
			ID:            utils.GenerateUUIDv7(),
			PaymentMethod: method,
			Order:         order,
			Acquirer:      acquirer,
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := u.stepRepo.Create(lockCtx, step); err != nil {
			return err
		}
		id = step.ID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	logger.Info(ctx, "Retry step added",
		zap.String("payment_method", string(method)),
		zap.String("acquirer", string(acquirer)),
		zap.Int("order", order),
	)
	return id, nil
}

// Reorder assigns order = position+1 to the given ids in one transaction.
// The ids must be exactly the method's current step set.
func (u *RetryChainUsecase) Reorder(ctx context.Context, method entities.PaymentMethod, orderedIDs []uuid.UUID) error {
	if !method.IsValid() {
		return fmt.Errorf("%w: %q", domainerrors.ErrUnknownMethod, method)
	}

	return u.uow.Do(ctx, func(txCtx context.Context) error {
		lockCtx := u.uow.WithLock(txCtx)

		existing, err := u.stepRepo.ListByMethodForUpdate(lockCtx, method)
		if err != nil {
			return err
		}
		if len(orderedIDs) != len(existing) {
			return domainerrors.NewConfigError(domainerrors.ErrInvalidChain, "expected %d step ids, got %d", len(existing), len(orderedIDs))
		}

		known := make(map[uuid.UUID]bool, len(existing))
		for _, s := range existing {
			known[s.ID] = true
		}
		seen := make(map[uuid.UUID]bool, len(orderedIDs))
		for _, id := range orderedIDs {
			if !known[id] {
				return domainerrors.NewConfigError(domainerrors.ErrInvalidChain, "step %s does not belong to %s", id, method)
			}
			if seen[id] {
				return domainerrors.NewConfigError(domainerrors.ErrInvalidChain, "step %s listed twice", id)
			}
			seen[id] = true
		}

		for pos, id := range orderedIDs {
			if err := u.stepRepo.UpdateOrder(lockCtx, id, pos+1); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveStep deletes a step and compacts the remaining orders to 1..n.
func (u *RetryChainUsecase) RemoveStep(ctx context.Context, id uuid.UUID) error {
	return u.uow.Do(ctx, func(txCtx context.Context) error {
		lockCtx := u.uow.WithLock(txCtx)

		step, err := u.stepRepo.GetByID(lockCtx, id)
		if err != nil {
			return err
		}
		if err := u.stepRepo.Delete(lockCtx, id); err != nil {
			return err
		}

		remaining, err := u.stepRepo.ListByMethodForUpdate(lockCtx, step.PaymentMethod)
		if err != nil {
			return err
		}
		for pos, s := range remaining {
			if s.Order == pos+1 {
				continue
			}
			if err := u.stepRepo.UpdateOrder(lockCtx, s.ID, pos+1); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetActive toggles a step without changing its order.
func (u *RetryChainUsecase) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return u.stepRepo.UpdateActive(ctx, id, active)
}

// SeedFromFile loads a YAML seed and creates chains for methods that have none.
func (u *RetryChainUsecase) SeedFromFile(ctx context.Context, path string) (int, error) {
	seed, err := config.LoadChainSeed(path)
	if err != nil {
		return 0, err
	}
	return u.Seed(ctx, seed.Chains)
}

// Seed creates the given chains for methods without steps and returns how many were created.
// Methods that already have steps are left untouched.
func (u *RetryChainUsecase) Seed(ctx context.Context, chains map[string][]string) (int, error) {
	parsed, err := parseSeed(chains)
	if err != nil {
		return 0, err
	}

	methods := make([]entities.PaymentMethod, 0, len(parsed))
	for m := range parsed {
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i] < methods[j] })

	seeded := 0
	for _, method := range methods {
		acquirers := parsed[method]
		created := false
		err := u.uow.Do(ctx, func(txCtx context.Context) error {
			lockCtx := u.uow.WithLock(txCtx)
			existing, err := u.stepRepo.ListByMethodForUpdate(lockCtx, method)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				return nil
			}
			now := u.now()
			for i, acq := range acquirers {
				step := &entities.RetryStep{
					ID:            utils.GenerateUUIDv7(),
					PaymentMethod: method,
					Order:         i + 1,
					Acquirer:      acq,
					IsActive:      true,
					CreatedAt:     now,
					UpdatedAt:     now,
				}
				if err := u.stepRepo.Create(lockCtx, step); err != nil {
					return err
				}
			}
			created = true
			return nil
		})
		if err != nil {
			return seeded, fmt.Errorf("seed %s chain: %w", method, err)
		}
		if created {
			seeded++
			logger.Info(ctx, "Retry chain seeded",
				zap.String("payment_method", string(method)),
				zap.Int("steps", len(acquirers)),
			)
		}
	}
	return seeded, nil
}

func parseSeed(chains map[string][]string) (map[entities.PaymentMethod][]entities.Acquirer, error) {
	out := make(map[entities.PaymentMethod][]entities.Acquirer, len(chains))
	for rawMethod, rawAcquirers := range chains {
		method, err := entities.ParsePaymentMethod(rawMethod)
		if err != nil {
			return nil, err
		}
		if len(rawAcquirers) == 0 {
			continue
		}
		if len(rawAcquirers) > entities.MaxChainSteps {
			return nil, domainerrors.NewConfigError(domainerrors.ErrChainFull, "%s seed has %d steps", method, len(rawAcquirers))
		}
		seen := make(map[entities.Acquirer]bool, len(rawAcquirers))
		acquirers := make([]entities.Acquirer, 0, len(rawAcquirers))
		for _, raw := range rawAcquirers {
			acq, err := entities.ParseAcquirer(raw)
			if err != nil {
				return nil, err
			}
			if seen[acq] {
				return nil, domainerrors.NewConfigError(domainerrors.ErrDuplicateAcquirer, "%s listed twice for %s", acq, method)
			}
			seen[acq] = true
			acquirers = append(acquirers, acq)
		}
		out[method] = acquirers
	}
	return out, nil
}
