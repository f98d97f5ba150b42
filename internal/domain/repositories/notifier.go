package repositories

import (
	"context"

	"pay-router.backend/internal/domain/entities"
)

// Notifier delivers notifications to external listeners.
type Notifier interface {
	Notify(ctx context.Context, n entities.Notification) error
}
