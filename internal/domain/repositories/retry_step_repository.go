package repositories

import (
	"context"

	"github.com/google/uuid"
	"pay-router.backend/internal/domain/entities"
)

// RetryStepRepository defines retry chain data operations
type RetryStepRepository interface {
	Create(ctx context.Context, step *entities.RetryStep) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.RetryStep, error)
	// ListByMethod returns every step of the method ordered by Order.
	ListByMethod(ctx context.Context, method entities.PaymentMethod, activeOnly bool) ([]*entities.RetryStep, error)
	// ListByMethodForUpdate behaves like ListByMethod but locks the rows when the driver supports it.
	ListByMethodForUpdate(ctx context.Context, method entities.PaymentMethod) ([]*entities.RetryStep, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, order int) error
	UpdateActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}
