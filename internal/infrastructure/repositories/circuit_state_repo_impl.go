package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"pay-router.backend/internal/domain/entities"
	"pay-router.backend/internal/infrastructure/models"
)

// CircuitStateRepository stores the last known breaker state per acquirer
type CircuitStateRepository struct {
	db *gorm.DB
}

// NewCircuitStateRepository creates a new circuit state repository
func NewCircuitStateRepository(db *gorm.DB) *CircuitStateRepository {
	return &CircuitStateRepository{db: db}
}

func (r *CircuitStateRepository) Upsert(ctx context.Context, states []entities.AcquirerCircuitState) error {
	if len(states) == 0 {
		return nil
	}
	ms := make([]models.CircuitState, 0, len(states))
	for _, s := range states {
		ms = append(ms, models.CircuitState{
			Acquirer:     string(s.Acquirer),
			State:        string(s.State),
			FailureCount: s.FailureCount,
			WindowStart:  timePtr(s.WindowStart),
			OpenedAt:     timePtr(s.OpenedAt),
			UpdatedAt:    s.UpdatedAt,
		})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "acquirer"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "failure_count", "window_start", "opened_at", "updated_at"}),
	}).Create(&ms).Error
}

func (r *CircuitStateRepository) List(ctx context.Context) ([]entities.AcquirerCircuitState, error) {
	var ms []models.CircuitState
	if err := r.db.WithContext(ctx).Order("acquirer ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	states := make([]entities.AcquirerCircuitState, 0, len(ms))
	for _, m := range ms {
		s := entities.AcquirerCircuitState{
			Acquirer:     entities.Acquirer(m.Acquirer),
			State:        entities.CircuitState(m.State),
			FailureCount: m.FailureCount,
			UpdatedAt:    m.UpdatedAt,
		}
		if m.WindowStart != nil {
			s.WindowStart = *m.WindowStart
		}
		if m.OpenedAt != nil {
			s.OpenedAt = *m.OpenedAt
		}
		states = append(states, s)
	}
	return states, nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
