package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	domainerrors "pay-router.backend/internal/domain/errors"
)

func TestParseAcquirer(t *testing.T) {
	a, err := ParseAcquirer("  Ativus ")
	require.NoError(t, err)
	require.Equal(t, AcquirerAtivus, a)

	_, err = ParseAcquirer("stripe")
	require.ErrorIs(t, err, domainerrors.ErrUnknownAcquirer)
	_, err = ParseAcquirer("")
	require.Error(t, err)

	for _, acq := range AllAcquirers() {
		require.True(t, acq.IsValid())
	}
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := ParsePaymentMethod("PIX")
	require.NoError(t, err)
	require.Equal(t, PaymentMethodPix, m)

	_, err = ParsePaymentMethod("crypto")
	require.ErrorIs(t, err, domainerrors.ErrUnknownMethod)
	require.Len(t, AllPaymentMethods(), 3)
}

func TestChargebackTransitions(t *testing.T) {
	allowed := map[[2]ChargebackStatus]bool{
		{ChargebackPending, ChargebackConfirmed}:  true,
		{ChargebackPending, ChargebackDisputed}:   true,
		{ChargebackConfirmed, ChargebackResolved}: true,
		{ChargebackDisputed, ChargebackResolved}:  true,
	}
	all := []ChargebackStatus{ChargebackPending, ChargebackConfirmed, ChargebackDisputed, ChargebackResolved}
	for _, from := range all {
		for _, to := range all {
			require.Equal(t, allowed[[2]ChargebackStatus{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	require.False(t, ChargebackStatus("reversed").IsValid())
}

func TestCircuitStateGaugeAndSnapshotAcquirers(t *testing.T) {
	require.Equal(t, float64(0), CircuitClosed.GaugeValue())
	require.Equal(t, float64(1), CircuitHalfOpen.GaugeValue())
	require.Equal(t, float64(2), CircuitOpen.GaugeValue())
	require.False(t, CircuitState("BROKEN").IsValid())

	snap := ChainSnapshot{
		PaymentMethod: PaymentMethodPix,
		Steps: []RetryStep{
			{Order: 1, Acquirer: AcquirerInter},
			{Order: 2, Acquirer: AcquirerAtivus},
		},
		LoadedAt: time.Now(),
	}
	require.Equal(t, []Acquirer{AcquirerInter, AcquirerAtivus}, snap.Acquirers())
}

func TestApiEventTypeValidity(t *testing.T) {
	for _, typ := range []ApiEventType{ApiEventSuccess, ApiEventFailure, ApiEventRetry, ApiEventCircuitOpen, ApiEventCircuitClose} {
		require.True(t, typ.IsValid())
	}
	require.False(t, ApiEventType("skip").IsValid())
}
