package models

import "time"

type CircuitState struct {
	Acquirer     string `gorm:"type:varchar(32);primaryKey"`
	State        string `gorm:"type:varchar(16);not null"`
	FailureCount int    `gorm:"not null;default:0"`
	WindowStart  *time.Time
	OpenedAt     *time.Time
	UpdatedAt    time.Time
}

func (CircuitState) TableName() string {
	return "circuit_states"
}
