package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"pay-router.backend/internal/domain/entities"
	domainerrors "pay-router.backend/internal/domain/errors"
	"pay-router.backend/internal/domain/repositories"
	"pay-router.backend/pkg/logger"
	"pay-router.backend/pkg/utils"
)

// ChargebackUsecase tracks chargebacks through their review lifecycle.
type ChargebackUsecase struct {
	repo     repositories.ChargebackRepository
	uow      repositories.UnitOfWork
	notifier repositories.Notifier
	now      func() time.Time
}

// NewChargebackUsecase creates a new chargeback usecase
func NewChargebackUsecase(repo repositories.ChargebackRepository, uow repositories.UnitOfWork, notifier repositories.Notifier) *ChargebackUsecase {
	return &ChargebackUsecase{
		repo:     repo,
		uow:      uow,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Record stores a new pending chargeback.
func (u *ChargebackUsecase) Record(ctx context.Context, input *entities.RecordChargebackInput) (*entities.Chargeback, error) {
	if input == nil || strings.TrimSpace(input.TransactionRef) == "" {
		return nil, fmt.Errorf("%w: transactionRef is required", domainerrors.ErrInvalidInput)
	}
	acquirer, err := entities.ParseAcquirer(input.Acquirer)
	if err != nil {
		return nil, err
	}
	amount, err := parsePositiveAmount("amount", input.Amount)
	if err != nil {
		return nil, err
	}
	original := amount
	if strings.TrimSpace(input.OriginalAmount) != "" {
		if original, err = parsePositiveAmount("originalAmount", input.OriginalAmount); err != nil {
			return nil, err
		}
	}

	now := u.now()
	detectedAt := now
	if input.DetectedAt != nil && !input.DetectedAt.IsZero() {
		detectedAt = input.DetectedAt.UTC()
	}

	cb := &entities.Chargeback{
		ID:             utils.GenerateUUIDv7(),
		TransactionRef: strings.TrimSpace(input.TransactionRef),
		Acquirer:       acquirer,
		Amount:         amount,
		OriginalAmount: original,
		Status:         entities.ChargebackPending,
		DetectedAt:     detectedAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if reason := strings.TrimSpace(input.Reason); reason != "" {
		cb.Reason = null.StringFrom(reason)
	}

	if err := u.repo.Create(ctx, cb); err != nil {
		return nil, err
	}

	logger.Info(ctx, "Chargeback recorded",
		zap.String("chargeback_id", cb.ID.String()),
		zap.String("acquirer", string(cb.Acquirer)),
		zap.String("transaction_ref", cb.TransactionRef),
		zap.String("amount", cb.Amount.StringFixed(2)),
	)
	u.notify(ctx, cb, entities.NotificationChargebackRecorded, map[string]string{
		"status": string(cb.Status),
		"amount": cb.Amount.StringFixed(2),
	})
	return cb, nil
}

// UpdateStatus moves a chargeback along an allowed edge under a row lock.
// Notes replace the previous notes when provided.
func (u *ChargebackUsecase) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.ChargebackStatus, notes *string) (*entities.Chargeback, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown chargeback status %q", domainerrors.ErrInvalidInput, status)
	}

	var (
		updated *entities.Chargeback
		from    entities.ChargebackStatus
	)
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		lockCtx := u.uow.WithLock(txCtx)

		cb, err := u.repo.GetByIDForUpdate(lockCtx, id)
		if err != nil {
			return err
		}
		if !cb.Status.CanTransitionTo(status) {
			return domainerrors.NewChargebackTransitionError(string(cb.Status), string(status))
		}

		now := u.now()
		from = cb.Status
		cb.Status = status
		cb.UpdatedAt = now
		if status == entities.ChargebackResolved {
			cb.ResolvedAt = null.TimeFrom(now)
		} else {
			cb.ResolvedAt = null.Time{}
		}
		if notes != nil {
			cb.Notes = null.StringFrom(*notes)
		}

		if err := u.repo.Update(lockCtx, cb); err != nil {
			return err
		}
		updated = cb
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Chargeback status changed",
		zap.String("chargeback_id", updated.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(updated.Status)),
	)
	u.notify(ctx, updated, entities.NotificationChargebackStatusChanged, map[string]string{
		"from": string(from),
		"to":   string(updated.Status),
	})
	return updated, nil
}

// Get returns one chargeback.
func (u *ChargebackUsecase) Get(ctx context.Context, id uuid.UUID) (*entities.Chargeback, error) {
	return u.repo.GetByID(ctx, id)
}

// List returns a page of chargebacks, newest detection first.
func (u *ChargebackUsecase) List(ctx context.Context, filter entities.ChargebackFilter, pagination utils.PaginationParams) ([]*entities.Chargeback, int64, error) {
	if filter.Acquirer != "" && !filter.Acquirer.IsValid() {
		return nil, 0, fmt.Errorf("%w: %q", domainerrors.ErrUnknownAcquirer, filter.Acquirer)
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, fmt.Errorf("%w: unknown chargeback status %q", domainerrors.ErrInvalidInput, filter.Status)
	}
	return u.repo.List(ctx, filter, pagination)
}

// notify hands the notification to the notifier; delivery failures never
// affect the stored chargeback.
func (u *ChargebackUsecase) notify(ctx context.Context, cb *entities.Chargeback, kind entities.NotificationKind, attrs map[string]string) {
	if u.notifier == nil {
		return
	}
	attrs["transactionRef"] = cb.TransactionRef
	err := u.notifier.Notify(context.WithoutCancel(ctx), entities.Notification{
		Kind:       kind,
		Subject:    cb.ID.String(),
		Acquirer:   cb.Acquirer,
		Attributes: attrs,
		OccurredAt: cb.UpdatedAt,
	})
	if err != nil {
		logger.Warn(ctx, "Chargeback notification failed",
			zap.String("chargeback_id", cb.ID.String()),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}

func parsePositiveAmount(field, raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s is not a number", domainerrors.ErrInvalidInput, field)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s must be positive", domainerrors.ErrInvalidInput, field)
	}
	return amount, nil
}
