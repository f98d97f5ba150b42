package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"pay-router.backend/internal/domain/entities"
	domainerrors "pay-router.backend/internal/domain/errors"
	"pay-router.backend/internal/infrastructure/models"
	"pay-router.backend/pkg/utils"
)

// ChargebackRepository implements chargeback data operations
type ChargebackRepository struct {
	db *gorm.DB
}

// NewChargebackRepository creates a new chargeback repository
func NewChargebackRepository(db *gorm.DB) *ChargebackRepository {
	return &ChargebackRepository{db: db}
}

func (r *ChargebackRepository) Create(ctx context.Context, cb *entities.Chargeback) error {
	return GetDB(ctx, r.db).WithContext(ctx).Create(toChargebackModel(cb)).Error
}

func (r *ChargebackRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Chargeback, error) {
	return r.get(GetDB(ctx, r.db).WithContext(ctx), id)
}

func (r *ChargebackRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Chargeback, error) {
	return r.get(lockedDB(ctx, GetDB(ctx, r.db).WithContext(ctx)), id)
}

func (r *ChargebackRepository) get(db *gorm.DB, id uuid.UUID) (*entities.Chargeback, error) {
	var m models.Chargeback
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toChargebackEntity(&m)
}

func (r *ChargebackRepository) List(ctx context.Context, filter entities.ChargebackFilter, pagination utils.PaginationParams) ([]*entities.Chargeback, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Chargeback{})
	if filter.Acquirer != "" {
		query = query.Where("acquirer = ?", string(filter.Acquirer))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.TransactionRef != "" {
		query = query.Where("transaction_ref = ?", filter.TransactionRef)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("detected_at DESC").Order("id DESC")
	if pagination.Limit > 0 {
		query = query.Limit(pagination.Limit).Offset(pagination.CalculateOffset())
	}

	var ms []models.Chargeback
	if err := query.Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	items := make([]*entities.Chargeback, 0, len(ms))
	for i := range ms {
		cb, err := toChargebackEntity(&ms[i])
		if err != nil {
			return nil, 0, err
		}
		items = append(items, cb)
	}
	return items, total, nil
}

// Update persists status, resolution and notes.
func (r *ChargebackRepository) Update(ctx context.Context, cb *entities.Chargeback) error {
	result := GetDB(ctx, r.db).WithContext(ctx).
		Model(&models.Chargeback{}).
		Where("id = ?", cb.ID).
		Updates(map[string]interface{}{
			"status":      string(cb.Status),
			"resolved_at": cb.ResolvedAt.Ptr(),
			"notes":       cb.Notes.Ptr(),
			"updated_at":  cb.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func toChargebackModel(cb *entities.Chargeback) *models.Chargeback {
	return &models.Chargeback{
		ID:             cb.ID,
		TransactionRef: cb.TransactionRef,
		Acquirer:       string(cb.Acquirer),
		Amount:         cb.Amount.StringFixed(2),
		OriginalAmount: cb.OriginalAmount.StringFixed(2),
		Reason:         cb.Reason.Ptr(),
		Status:         string(cb.Status),
		DetectedAt:     cb.DetectedAt,
		ResolvedAt:     cb.ResolvedAt.Ptr(),
		Notes:          cb.Notes.Ptr(),
		CreatedAt:      cb.CreatedAt,
		UpdatedAt:      cb.UpdatedAt,
	}
}

func toChargebackEntity(m *models.Chargeback) (*entities.Chargeback, error) {
	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return nil, fmt.Errorf("chargeback %s: invalid amount %q: %w", m.ID, m.Amount, err)
	}
	original, err := decimal.NewFromString(m.OriginalAmount)
	if err != nil {
		return nil, fmt.Errorf("chargeback %s: invalid original amount %q: %w", m.ID, m.OriginalAmount, err)
	}
	return &entities.Chargeback{
		ID:             m.ID,
		TransactionRef: m.TransactionRef,
		Acquirer:       entities.Acquirer(m.Acquirer),
		Amount:         amount,
		OriginalAmount: original,
		Reason:         null.StringFromPtr(m.Reason),
		Status:         entities.ChargebackStatus(m.Status),
		DetectedAt:     m.DetectedAt,
		ResolvedAt:     null.TimeFromPtr(m.ResolvedAt),
		Notes:          null.StringFromPtr(m.Notes),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}, nil
}
