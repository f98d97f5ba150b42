package entities

import (
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// Transaction is one payment attempt routed through a failover chain.
type Transaction struct {
	ID            string            `json:"id"`
	PaymentMethod PaymentMethod     `json:"paymentMethod"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	Description   string            `json:"description,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// TransactionResult is the single pass/fail outcome returned to callers.
type TransactionResult struct {
	TransactionID string      `json:"transactionId"`
	Success       bool        `json:"success"`
	AcquirerUsed  null.String `json:"acquirerUsed"`
	ExternalRef   null.String `json:"externalRef"`
	FinalError    null.String `json:"finalError"`
	Attempts      int         `json:"attempts"`
	Replayed      bool        `json:"replayed"`
}

type SubmitTransactionInput struct {
	ID            string            `json:"id" binding:"required"`
	PaymentMethod string            `json:"paymentMethod" binding:"required"`
	Amount        string            `json:"amount" binding:"required"`
	Currency      string            `json:"currency"`
	Description   string            `json:"description"`
	Metadata      map[string]string `json:"metadata"`
}

// PaymentRequest is what an acquirer adapter receives for one attempt.
type PaymentRequest struct {
	TransactionID string            `json:"transactionId"`
	PaymentMethod PaymentMethod     `json:"paymentMethod"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	Description   string            `json:"description,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Attempt       int               `json:"attempt"`
}

// PaymentResponse is an acquirer's approval.
type PaymentResponse struct {
	ExternalRef string `json:"externalRef"`
	Status      string `json:"status"`
}
