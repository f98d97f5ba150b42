package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pay-router.backend/internal/domain/entities"
	domainerrors "pay-router.backend/internal/domain/errors"
)

type acquirerMonitorStub struct {
	summaryFn  func(ctx context.Context, acquirer entities.Acquirer, windowHours int) (*entities.AcquirerHealth, error)
	overviewFn func(ctx context.Context, windowHours int) ([]*entities.AcquirerHealth, error)
	eventsFn   func(ctx context.Context, filter entities.EventFilter, limit int) ([]*entities.ApiEvent, error)
}

func (s acquirerMonitorStub) HealthSummary(ctx context.Context, acquirer entities.Acquirer, windowHours int) (*entities.AcquirerHealth, error) {
	return s.summaryFn(ctx, acquirer, windowHours)
}
func (s acquirerMonitorStub) HealthOverview(ctx context.Context, windowHours int) ([]*entities.AcquirerHealth, error) {
	return s.overviewFn(ctx, windowHours)
}
func (s acquirerMonitorStub) RecentEvents(ctx context.Context, filter entities.EventFilter, limit int) ([]*entities.ApiEvent, error) {
	return s.eventsFn(ctx, filter, limit)
}

type circuitReaderStub map[entities.Acquirer]entities.AcquirerCircuitState

func (s circuitReaderStub) Snapshot(acquirer entities.Acquirer) (entities.AcquirerCircuitState, bool) {
	state, ok := s[acquirer]
	return state, ok
}

func newAcquirerRouter(monitor AcquirerMonitor, circuits CircuitReader) http.Handler {
	h := NewAcquirerHandler(monitor, circuits)
	r := newTestRouter()
	r.GET("/acquirers/health", h.HealthOverview)
	r.GET("/acquirers/:acquirer/health", h.HealthSummary)
	r.GET("/acquirers/:acquirer/circuit", h.CircuitState)
	r.GET("/events", h.RecentEvents)
	return r
}

func TestAcquirerHandler_Health(t *testing.T) {
	var gotWindow int
	monitor := acquirerMonitorStub{
		summaryFn: func(_ context.Context, acquirer entities.Acquirer, windowHours int) (*entities.AcquirerHealth, error) {
			gotWindow = windowHours
			if windowHours > 168 {
				return nil, domainerrors.ErrInvalidWindow
			}
			return &entities.AcquirerHealth{
				Acquirer:     acquirer,
				WindowHours:  24,
				TotalCalls:   10,
				SuccessCount: 8,
				FailureCount: 2,
				SuccessRate:  80,
				CircuitState: entities.CircuitClosed,
			}, nil
		},
		overviewFn: func(_ context.Context, windowHours int) ([]*entities.AcquirerHealth, error) {
			gotWindow = windowHours
			out := make([]*entities.AcquirerHealth, 0, 3)
			for _, a := range entities.AllAcquirers() {
				out = append(out, &entities.AcquirerHealth{Acquirer: a, WindowHours: windowHours})
			}
			return out, nil
		},
	}
	r := newAcquirerRouter(monitor, circuitReaderStub{})

	w := doRequest(r, http.MethodGet, "/acquirers/Ativus/health", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Zero(t, gotWindow, "window defaults are applied by the event log")
	var health entities.AcquirerHealth
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, entities.AcquirerAtivus, health.Acquirer)
	assert.Equal(t, 80.0, health.SuccessRate)

	w = doRequest(r, http.MethodGet, "/acquirers/health?windowHours=6", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 6, gotWindow)
	var overview struct {
		Acquirers []entities.AcquirerHealth `json:"acquirers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &overview))
	assert.Len(t, overview.Acquirers, 3)

	w = doRequest(r, http.MethodGet, "/acquirers/inter/health?windowHours=500", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doRequest(r, http.MethodGet, "/acquirers/inter/health?windowHours=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doRequest(r, http.MethodGet, "/acquirers/acme/health", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAcquirerHandler_CircuitState(t *testing.T) {
	circuits := circuitReaderStub{
		entities.AcquirerValorion: {Acquirer: entities.AcquirerValorion, State: entities.CircuitOpen, FailureCount: 5},
	}
	r := newAcquirerRouter(acquirerMonitorStub{}, circuits)

	w := doRequest(r, http.MethodGet, "/acquirers/valorion/circuit", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"OPEN"`)

	w = doRequest(r, http.MethodGet, "/acquirers/inter/circuit", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doRequest(r, http.MethodGet, "/acquirers/acme/circuit", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAcquirerHandler_RecentEvents(t *testing.T) {
	var gotFilter entities.EventFilter
	var gotLimit int
	monitor := acquirerMonitorStub{
		eventsFn: func(_ context.Context, filter entities.EventFilter, limit int) ([]*entities.ApiEvent, error) {
			gotFilter, gotLimit = filter, limit
			if filter.EventType == "bogus" {
				return nil, domainerrors.ErrInvalidInput
			}
			return []*entities.ApiEvent{{Acquirer: entities.AcquirerInter, EventType: entities.ApiEventFailure}}, nil
		},
	}
	r := newAcquirerRouter(monitor, circuitReaderStub{})

	w := doRequest(r, http.MethodGet, "/events?acquirer=INTER&eventType=failure&limit=5", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, entities.EventFilter{Acquirer: entities.AcquirerInter, EventType: entities.ApiEventFailure}, gotFilter)
	assert.Equal(t, 5, gotLimit)
	assert.Contains(t, w.Body.String(), `"eventType":"failure"`)

	w = doRequest(r, http.MethodGet, "/events", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entities.EventFilter{}, gotFilter)
	assert.Zero(t, gotLimit)

	w = doRequest(r, http.MethodGet, "/events?eventType=bogus", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doRequest(r, http.MethodGet, "/events?limit=many", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doRequest(r, http.MethodGet, "/events?acquirer=acme", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
