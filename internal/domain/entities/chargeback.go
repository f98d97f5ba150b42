package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// ChargebackStatus is the review state of a chargeback.
type ChargebackStatus string

const (
	ChargebackPending   ChargebackStatus = "pending"
	ChargebackConfirmed ChargebackStatus = "confirmed"
	ChargebackDisputed  ChargebackStatus = "disputed"
	ChargebackResolved  ChargebackStatus = "resolved"
)

// ChargebackTransitions maps a status to the statuses it may move to.
var ChargebackTransitions = map[ChargebackStatus][]ChargebackStatus{
	ChargebackPending:   {ChargebackConfirmed, ChargebackDisputed},
	ChargebackConfirmed: {ChargebackResolved},
	ChargebackDisputed:  {ChargebackResolved},
	ChargebackResolved:  {},
}

func (s ChargebackStatus) IsValid() bool {
	_, ok := ChargebackTransitions[s]
	return ok
}

// CanTransitionTo reports whether s -> to is an allowed edge.
func (s ChargebackStatus) CanTransitionTo(to ChargebackStatus) bool {
	for _, allowed := range ChargebackTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Chargeback is a post-settlement reversal correlated by acquirer and transaction ref.
type Chargeback struct {
	ID             uuid.UUID        `json:"id"`
	TransactionRef string           `json:"transactionRef"`
	Acquirer       Acquirer         `json:"acquirer"`
	Amount         decimal.Decimal  `json:"amount"`
	OriginalAmount decimal.Decimal  `json:"originalAmount"`
	Reason         null.String      `json:"reason"`
	Status         ChargebackStatus `json:"status"`
	DetectedAt     time.Time        `json:"detectedAt"`
	ResolvedAt     null.Time        `json:"resolvedAt"`
	Notes          null.String      `json:"notes"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

type ChargebackFilter struct {
	Acquirer       Acquirer
	Status         ChargebackStatus
	TransactionRef string
}

type RecordChargebackInput struct {
	TransactionRef string     `json:"transactionRef" binding:"required"`
	Acquirer       string     `json:"acquirer" binding:"required"`
	Amount         string     `json:"amount" binding:"required"`
	OriginalAmount string     `json:"originalAmount"`
	Reason         string     `json:"reason"`
	DetectedAt     *time.Time `json:"detectedAt"`
}

type UpdateChargebackStatusInput struct {
	Status string  `json:"status" binding:"required"`
	Notes  *string `json:"notes"`
}
