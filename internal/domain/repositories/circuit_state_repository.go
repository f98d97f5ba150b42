package repositories

import (
	"context"

	"pay-router.backend/internal/domain/entities"
)

// CircuitStateRepository persists breaker snapshots across restarts.
type CircuitStateRepository interface {
	Upsert(ctx context.Context, states []entities.AcquirerCircuitState) error
	List(ctx context.Context) ([]entities.AcquirerCircuitState, error)
}
