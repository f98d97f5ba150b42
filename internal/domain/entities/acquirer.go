package entities

import (
	"fmt"
	"strings"

	domainerrors "pay-router.backend/internal/domain/errors"
)

// Acquirer is the closed set of payment acquirers the router can call.
type Acquirer string

const (
	AcquirerAtivus   Acquirer = "ativus"
	AcquirerInter    Acquirer = "inter"
	AcquirerValorion Acquirer = "valorion"
)

// AllAcquirers lists every known acquirer in a stable order.
func AllAcquirers() []Acquirer {
	return []Acquirer{AcquirerAtivus, AcquirerInter, AcquirerValorion}
}

func (a Acquirer) IsValid() bool {
	switch a {
	case AcquirerAtivus, AcquirerInter, AcquirerValorion:
		return true
	}
	return false
}

func (a Acquirer) String() string { return string(a) }

// ParseAcquirer accepts any casing and surrounding whitespace.
func ParseAcquirer(raw string) (Acquirer, error) {
	a := Acquirer(strings.ToLower(strings.TrimSpace(raw)))
	if !a.IsValid() {
		return "", fmt.Errorf("%w: %q", domainerrors.ErrUnknownAcquirer, raw)
	}
	return a, nil
}

// PaymentMethod groups transactions that share one failover chain.
type PaymentMethod string

const (
	PaymentMethodPix        PaymentMethod = "pix"
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodBoleto     PaymentMethod = "boleto"
)

func AllPaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentMethodPix, PaymentMethodCreditCard, PaymentMethodBoleto}
}

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodPix, PaymentMethodCreditCard, PaymentMethodBoleto:
		return true
	}
	return false
}

func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: %q", domainerrors.ErrUnknownMethod, raw)
	}
	return m, nil
}
