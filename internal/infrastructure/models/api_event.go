package models

import (
	"time"

	"github.com/google/uuid"
)

// ApiEvent rows are never updated.
type ApiEvent struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Acquirer       string    `gorm:"type:varchar(32);not null;index:idx_api_events_acquirer_created"`
	EventType      string    `gorm:"type:varchar(32);not null;index"`
	TransactionID  *string   `gorm:"type:varchar(255);index"`
	ResponseTimeMs *int64
	ErrorMessage   *string `gorm:"type:text"`
	RetryAttempt   *int
	CreatedAt      time.Time `gorm:"not null;index:idx_api_events_acquirer_created"`
}

func (ApiEvent) TableName() string {
	return "api_events"
}
