package repositories

import (
	"context"
	"time"

	"pay-router.backend/internal/domain/entities"
)

// ApiEventRepository is the append-only store of acquirer events.
type ApiEventRepository interface {
	Create(ctx context.Context, event *entities.ApiEvent) error
	CreateBatch(ctx context.Context, events []*entities.ApiEvent) error
	ListRecent(ctx context.Context, filter entities.EventFilter, limit int) ([]*entities.ApiEvent, error)
	// ListSince returns events created at or after since, oldest first.
	ListSince(ctx context.Context, since time.Time) ([]*entities.ApiEvent, error)
}
