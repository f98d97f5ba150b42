package models

import (
	"time"

	"github.com/google/uuid"
)

type RetryStep struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PaymentMethod string    `gorm:"type:varchar(32);not null;index;uniqueIndex:idx_retry_steps_method_acquirer"`
	StepOrder     int       `gorm:"not null"`
	Acquirer      string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_retry_steps_method_acquirer"`
	IsActive      bool      `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (RetryStep) TableName() string {
	return "retry_steps"
}
