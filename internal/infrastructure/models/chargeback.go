package models

import (
	"time"

	"github.com/google/uuid"
)

type Chargeback struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TransactionRef string    `gorm:"type:varchar(255);not null;index"`
	Acquirer       string    `gorm:"type:varchar(32);not null;index"`
	Amount         string    `gorm:"type:numeric(20,2);not null"`
	OriginalAmount string    `gorm:"type:numeric(20,2);not null"`
	Reason         *string   `gorm:"type:text"`
	Status         string    `gorm:"type:varchar(20);not null;index"`
	DetectedAt     time.Time `gorm:"not null"`
	ResolvedAt     *time.Time
	Notes          *string `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Chargeback) TableName() string {
	return "chargebacks"
}
