package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// ApiEventType classifies one entry of the acquirer event log.
type ApiEventType string

const (
	ApiEventSuccess      ApiEventType = "success"
	ApiEventFailure      ApiEventType = "failure"
	ApiEventRetry        ApiEventType = "retry"
	ApiEventCircuitOpen  ApiEventType = "circuit_open"
	ApiEventCircuitClose ApiEventType = "circuit_close"
)

func (t ApiEventType) IsValid() bool {
	switch t {
	case ApiEventSuccess, ApiEventFailure, ApiEventRetry, ApiEventCircuitOpen, ApiEventCircuitClose:
		return true
	}
	return false
}

// ApiEvent is immutable once appended.
type ApiEvent struct {
	ID             uuid.UUID    `json:"id"`
	Acquirer       Acquirer     `json:"acquirer"`
	EventType      ApiEventType `json:"eventType"`
	TransactionID  null.String  `json:"transactionId"`
	ResponseTimeMs null.Int64   `json:"responseTimeMs"`
	ErrorMessage   null.String  `json:"errorMessage"`
	RetryAttempt   null.Int     `json:"retryAttempt"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// EventFilter narrows RecentEvents. Zero values mean "any".
type EventFilter struct {
	Acquirer  Acquirer
	EventType ApiEventType
}
