package entities

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// AcquirerHealth is derived from the event log and live breaker state.
type AcquirerHealth struct {
	Acquirer        Acquirer     `json:"acquirer"`
	WindowHours     int          `json:"windowHours"`
	TotalCalls      int64        `json:"totalCalls"`
	SuccessCount    int64        `json:"successCount"`
	FailureCount    int64        `json:"failureCount"`
	RetryCount      int64        `json:"retryCount"`
	CircuitOpens    int64        `json:"circuitOpens"`
	AvgResponseTime float64      `json:"avgResponseTime"`
	SuccessRate     float64      `json:"successRate"`
	LastFailure     null.Time    `json:"lastFailure"`
	IsCircuitOpen   bool         `json:"isCircuitOpen"`
	CircuitState    CircuitState `json:"circuitState"`
	GeneratedAt     time.Time    `json:"generatedAt"`
}
