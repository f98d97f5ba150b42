package entities

import "time"

// NotificationKind doubles as the message routing key.
type NotificationKind string

const (
	NotificationChargebackRecorded      NotificationKind = "chargeback.recorded"
	NotificationChargebackStatusChanged NotificationKind = "chargeback.status_changed"
	NotificationCircuitOpen             NotificationKind = "circuit.open"
	NotificationCircuitClose            NotificationKind = "circuit.close"
)

// Notification is the payload handed to the notification collaborator.
type Notification struct {
	Kind       NotificationKind  `json:"kind"`
	Subject    string            `json:"subject"`
	Acquirer   Acquirer          `json:"acquirer,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}
