package repositories

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"pay-router.backend/internal/domain/entities"
	"pay-router.backend/internal/infrastructure/models"
)

const apiEventBatchSize = 100

// ApiEventRepository implements the append-only acquirer event log
type ApiEventRepository struct {
	db *gorm.DB
}

// NewApiEventRepository creates a new api event repository
func NewApiEventRepository(db *gorm.DB) *ApiEventRepository {
	return &ApiEventRepository{db: db}
}

func (r *ApiEventRepository) Create(ctx context.Context, event *entities.ApiEvent) error {
	return r.db.WithContext(ctx).Create(toApiEventModel(event)).Error
}

// CreateBatch writes events in insertion order.
func (r *ApiEventRepository) CreateBatch(ctx context.Context, events []*entities.ApiEvent) error {
	if len(events) == 0 {
		return nil
	}
	ms := make([]*models.ApiEvent, 0, len(events))
	for _, e := range events {
		ms = append(ms, toApiEventModel(e))
	}
	return r.db.WithContext(ctx).CreateInBatches(ms, apiEventBatchSize).Error
}

func (r *ApiEventRepository) ListRecent(ctx context.Context, filter entities.EventFilter, limit int) ([]*entities.ApiEvent, error) {
	query := r.db.WithContext(ctx).Model(&models.ApiEvent{})
	if filter.Acquirer != "" {
		query = query.Where("acquirer = ?", string(filter.Acquirer))
	}
	if filter.EventType != "" {
		query = query.Where("event_type = ?", string(filter.EventType))
	}

	var ms []models.ApiEvent
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&ms).Error; err != nil {
		return nil, err
	}
	return toApiEventEntities(ms), nil
}

func (r *ApiEventRepository) ListSince(ctx context.Context, since time.Time) ([]*entities.ApiEvent, error) {
	var ms []models.ApiEvent
	if err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Order("id ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return toApiEventEntities(ms), nil
}

func toApiEventModel(e *entities.ApiEvent) *models.ApiEvent {
	return &models.ApiEvent{
		ID:             e.ID,
		Acquirer:       string(e.Acquirer),
		EventType:      string(e.EventType),
		TransactionID:  e.TransactionID.Ptr(),
		ResponseTimeMs: e.ResponseTimeMs.Ptr(),
		ErrorMessage:   e.ErrorMessage.Ptr(),
		RetryAttempt:   e.RetryAttempt.Ptr(),
		CreatedAt:      e.CreatedAt,
	}
}

func toApiEventEntities(ms []models.ApiEvent) []*entities.ApiEvent {
	events := make([]*entities.ApiEvent, 0, len(ms))
	for i := range ms {
		m := &ms[i]
		events = append(events, &entities.ApiEvent{
			ID:             m.ID,
			Acquirer:       entities.Acquirer(m.Acquirer),
			EventType:      entities.ApiEventType(m.EventType),
			TransactionID:  null.StringFromPtr(m.TransactionID),
			ResponseTimeMs: null.Int64FromPtr(m.ResponseTimeMs),
			ErrorMessage:   null.StringFromPtr(m.ErrorMessage),
			RetryAttempt:   null.IntFromPtr(m.RetryAttempt),
			CreatedAt:      m.CreatedAt,
		})
	}
	return events
}
