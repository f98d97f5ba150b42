package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors
var (
	ErrNotFound            = errors.New("resource not found")
	ErrAlreadyExists       = errors.New("resource already exists")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("conflict")
	ErrUnknownAcquirer     = errors.New("unknown acquirer")
	ErrUnknownMethod       = errors.New("unknown payment method")
	ErrMalformedEvent      = errors.New("malformed event")
	ErrInvalidWindow       = errors.New("invalid health window")
	ErrInvalidTransaction  = errors.New("invalid transaction")
	ErrTransactionInFlight = errors.New("transaction already in flight")
	ErrChainExhausted      = errors.New("failover chain exhausted")
	ErrInvalidTransition   = errors.New("invalid chargeback status transition")

	// chain configuration
	ErrChainFull         = errors.New("retry chain already has the maximum number of steps")
	ErrDuplicateOrder    = errors.New("retry step order already taken")
	ErrInvalidChain      = errors.New("invalid retry chain")
	ErrDuplicateAcquirer = errors.New("acquirer already present in retry chain")
)

// ConfigError is a synchronous rejection of a retry chain change. Never retried.
type ConfigError struct {
	Kind    error
	Message string
}

func (e *ConfigError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Kind }

func NewConfigError(kind error, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AcquirerErrorKind classifies adapter failures.
type AcquirerErrorKind string

const (
	AcquirerDeclined     AcquirerErrorKind = "declined"
	AcquirerTimeout      AcquirerErrorKind = "timeout"
	AcquirerNetworkError AcquirerErrorKind = "network_error"
	AcquirerAuthError    AcquirerErrorKind = "auth_error"
)

// AcquirerError is returned by adapters. The orchestrator absorbs it.
type AcquirerError struct {
	Acquirer string
	Kind     AcquirerErrorKind
	Message  string
	Err      error
}

func (e *AcquirerError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *AcquirerError) Unwrap() error { return e.Err }

func NewAcquirerError(acquirer string, kind AcquirerErrorKind, message string, err error) *AcquirerError {
	return &AcquirerError{Acquirer: acquirer, Kind: kind, Message: message, Err: err}
}

// ChargebackTransitionError leaves the chargeback unchanged.
type ChargebackTransitionError struct {
	From string
	To   string
}

func (e *ChargebackTransitionError) Error() string {
	return fmt.Sprintf("invalid chargeback transition from %s to %s", e.From, e.To)
}

func (e *ChargebackTransitionError) Unwrap() error { return ErrInvalidTransition }

func NewChargebackTransitionError(from, to string) *ChargebackTransitionError {
	return &ChargebackTransitionError{From: from, To: to}
}

// Error codes carried in API responses
const (
	CodeNotFound            = "ERR_NOT_FOUND"
	CodeBadRequest          = "ERR_BAD_REQUEST"
	CodeConflict            = "ERR_CONFLICT"
	CodeInternalError       = "ERR_INTERNAL"
	CodeChainFull           = "ERR_CHAIN_FULL"
	CodeDuplicateOrder      = "ERR_DUPLICATE_ORDER"
	CodeDuplicateAcquirer   = "ERR_DUPLICATE_ACQUIRER"
	CodeInvalidChain        = "ERR_INVALID_CHAIN"
	CodeInvalidTransition   = "ERR_INVALID_TRANSITION"
	CodeTransactionInFlight = "ERR_TRANSACTION_IN_FLIGHT"
	CodeChainExhausted      = "ERR_CHAIN_EXHAUSTED"
)

// AppError represents application error with HTTP status
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError creates a new app error
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message, ErrNotFound)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeBadRequest, message, ErrInvalidInput)
}

func Conflict(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeConflict, message, ErrConflict)
}

func UnprocessableEntity(message string) *AppError {
	return NewAppError(http.StatusUnprocessableEntity, CodeInvalidChain, message, ErrInvalidInput)
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

// FromError maps domain errors onto HTTP-facing AppErrors.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		switch {
		case errors.Is(err, ErrChainFull), errors.Is(err, ErrDuplicateOrder), errors.Is(err, ErrDuplicateAcquirer):
			return NewAppError(http.StatusConflict, configCode(cfgErr.Kind), cfgErr.Error(), err)
		default:
			return NewAppError(http.StatusUnprocessableEntity, configCode(cfgErr.Kind), cfgErr.Error(), err)
		}
	}

	var trErr *ChargebackTransitionError
	if errors.As(err, &trErr) {
		return NewAppError(http.StatusConflict, CodeInvalidTransition, trErr.Error(), err)
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return NewAppError(http.StatusNotFound, CodeNotFound, err.Error(), err)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnknownAcquirer), errors.Is(err, ErrUnknownMethod),
		errors.Is(err, ErrInvalidWindow), errors.Is(err, ErrInvalidTransaction), errors.Is(err, ErrMalformedEvent):
		return NewAppError(http.StatusBadRequest, CodeBadRequest, err.Error(), err)
	case errors.Is(err, ErrTransactionInFlight):
		return NewAppError(http.StatusConflict, CodeTransactionInFlight, err.Error(), err)
	case errors.Is(err, ErrChainExhausted):
		return NewAppError(http.StatusPaymentRequired, CodeChainExhausted, err.Error(), err)
	}
	return InternalError(err)
}

func configCode(kind error) string {
	switch kind {
	case ErrChainFull:
		return CodeChainFull
	case ErrDuplicateOrder:
		return CodeDuplicateOrder
	case ErrDuplicateAcquirer:
		return CodeDuplicateAcquirer
	default:
		return CodeInvalidChain
	}
}
