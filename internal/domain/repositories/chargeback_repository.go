package repositories

import (
	"context"

	"github.com/google/uuid"
	"pay-router.backend/internal/domain/entities"
	"pay-router.backend/pkg/utils"
)

// ChargebackRepository defines chargeback data operations
type ChargebackRepository interface {
	Create(ctx context.Context, chargeback *entities.Chargeback) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Chargeback, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Chargeback, error)
	List(ctx context.Context, filter entities.ChargebackFilter, pagination utils.PaginationParams) ([]*entities.Chargeback, int64, error)
	Update(ctx context.Context, chargeback *entities.Chargeback) error
}
