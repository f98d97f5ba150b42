package repositories

import (
	"context"
	"time"

	"pay-router.backend/internal/domain/entities"
)

// TransactionResultStore caches successful results by transaction id and
// guards concurrent walks of the same id.
type TransactionResultStore interface {
	// Get returns (nil, nil) when nothing is cached.
	Get(ctx context.Context, transactionID string) (*entities.TransactionResult, error)
	Save(ctx context.Context, result *entities.TransactionResult) error
	// Acquire returns false when another walk holds the id. The token
	// identifies this holder and must be passed to Release.
	Acquire(ctx context.Context, transactionID string, ttl time.Duration) (token string, acquired bool, err error)
	// Release drops the lock only while token still owns it.
	Release(ctx context.Context, transactionID, token string) error
}
