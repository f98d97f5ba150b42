package entities

import "time"

// CircuitState is the routing gate of one acquirer.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"
	CircuitOpen     CircuitState = "OPEN"
	CircuitHalfOpen CircuitState = "HALF_OPEN"
)

func (s CircuitState) IsValid() bool {
	switch s {
	case CircuitClosed, CircuitOpen, CircuitHalfOpen:
		return true
	}
	return false
}

// GaugeValue is the numeric encoding exported to metrics.
func (s CircuitState) GaugeValue() float64 {
	switch s {
	case CircuitHalfOpen:
		return 1
	case CircuitOpen:
		return 2
	default:
		return 0
	}
}

// AcquirerCircuitState is a copy of one acquirer's breaker.
type AcquirerCircuitState struct {
	Acquirer      Acquirer     `json:"acquirer"`
	State         CircuitState `json:"state"`
	FailureCount  int          `json:"failureCount"`
	WindowStart   time.Time    `json:"windowStart"`
	OpenedAt      time.Time    `json:"openedAt"`
	ProbeInFlight bool         `json:"probeInFlight"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// CircuitTransition is delivered to listeners after a state change.
type CircuitTransition struct {
	Acquirer     Acquirer     `json:"acquirer"`
	From         CircuitState `json:"from"`
	To           CircuitState `json:"to"`
	FailureCount int          `json:"failureCount"`
	At           time.Time    `json:"at"`
}
