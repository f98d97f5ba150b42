package repositories

import (
	"context"

	"pay-router.backend/internal/domain/entities"
)

// AcquirerAdapter submits one payment attempt to one acquirer.
// Failures are reported as *errors.AcquirerError.
type AcquirerAdapter interface {
	Acquirer() entities.Acquirer
	SubmitPayment(ctx context.Context, req entities.PaymentRequest) (*entities.PaymentResponse, error)
}

// AcquirerAdapterRegistry resolves adapters by tag.
type AcquirerAdapterRegistry interface {
	Get(acquirer entities.Acquirer) (AcquirerAdapter, bool)
}
