package entities

import (
	"time"

	"github.com/google/uuid"
)

// MaxChainSteps is the maximum number of acquirers in one failover chain.
const MaxChainSteps = 3

// RetryStep is one position in a payment method's failover chain.
type RetryStep struct {
	ID            uuid.UUID     `json:"id"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Order         int           `json:"order"`
	Acquirer      Acquirer      `json:"acquirer"`
	IsActive      bool          `json:"isActive"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// ChainSnapshot is a point-in-time copy of the active chain for one method.
type ChainSnapshot struct {
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Steps         []RetryStep   `json:"steps"`
	LoadedAt      time.Time     `json:"loadedAt"`
}

// Acquirers returns the acquirers of the snapshot in walk order.
func (s ChainSnapshot) Acquirers() []Acquirer {
	out := make([]Acquirer, 0, len(s.Steps))
	for _, step := range s.Steps {
		out = append(out, step.Acquirer)
	}
	return out
}

type AddRetryStepInput struct {
	Acquirer string `json:"acquirer" binding:"required"`
	Order    int    `json:"order" binding:"required"`
}

type ReorderRetryChainInput struct {
	StepIDs []string `json:"stepIds" binding:"required"`
}

type SetRetryStepActiveInput struct {
	IsActive *bool `json:"isActive" binding:"required"`
}
