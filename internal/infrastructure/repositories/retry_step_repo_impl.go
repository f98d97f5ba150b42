package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"pay-router.backend/internal/domain/entities"
	domainerrors "pay-router.backend/internal/domain/errors"
	"pay-router.backend/internal/infrastructure/models"
)

// RetryStepRepository implements retry chain data operations
type RetryStepRepository struct {
	db *gorm.DB
}

// NewRetryStepRepository creates a new retry step repository
func NewRetryStepRepository(db *gorm.DB) *RetryStepRepository {
	return &RetryStepRepository{db: db}
}

func (r *RetryStepRepository) Create(ctx context.Context, step *entities.RetryStep) error {
	m := &models.RetryStep{
		ID:            step.ID,
		PaymentMethod: string(step.PaymentMethod),
		StepOrder:     step.Order,
		Acquirer:      string(step.Acquirer),
		IsActive:      step.IsActive,
		CreatedAt:     step.CreatedAt,
		UpdatedAt:     step.UpdatedAt,
	}
	return GetDB(ctx, r.db).WithContext(ctx).Create(m).Error
}

func (r *RetryStepRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.RetryStep, error) {
	var m models.RetryStep
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toRetryStepEntity(&m), nil
}

func (r *RetryStepRepository) ListByMethod(ctx context.Context, method entities.PaymentMethod, activeOnly bool) ([]*entities.RetryStep, error) {
	query := GetDB(ctx, r.db).WithContext(ctx).Where("payment_method = ?", string(method))
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	return r.find(query)
}

func (r *RetryStepRepository) ListByMethodForUpdate(ctx context.Context, method entities.PaymentMethod) ([]*entities.RetryStep, error) {
	query := lockedDB(ctx, GetDB(ctx, r.db).WithContext(ctx)).Where("payment_method = ?", string(method))
	return r.find(query)
}

func (r *RetryStepRepository) find(query *gorm.DB) ([]*entities.RetryStep, error) {
	var ms []models.RetryStep
	if err := query.Order("step_order ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	steps := make([]*entities.RetryStep, 0, len(ms))
	for i := range ms {
		steps = append(steps, toRetryStepEntity(&ms[i]))
	}
	return steps, nil
}

func (r *RetryStepRepository) UpdateOrder(ctx context.Context, id uuid.UUID, order int) error {
	return r.updateColumn(ctx, id, "step_order", order)
}

func (r *RetryStepRepository) UpdateActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.updateColumn(ctx, id, "is_active", active)
}

func (r *RetryStepRepository) updateColumn(ctx context.Context, id uuid.UUID, column string, value interface{}) error {
	result := GetDB(ctx, r.db).WithContext(ctx).
		Model(&models.RetryStep{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{column: value, "updated_at": timeNow()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *RetryStepRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := GetDB(ctx, r.db).WithContext(ctx).Where("id = ?", id).Delete(&models.RetryStep{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func toRetryStepEntity(m *models.RetryStep) *entities.RetryStep {
	return &entities.RetryStep{
		ID:            m.ID,
		PaymentMethod: entities.PaymentMethod(m.PaymentMethod),
		Order:         m.StepOrder,
		Acquirer:      entities.Acquirer(m.Acquirer),
		IsActive:      m.IsActive,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
