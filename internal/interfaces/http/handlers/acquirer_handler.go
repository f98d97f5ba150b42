package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"pay-router.backend/internal/domain/entities"
	domainerrors "pay-router.backend/internal/domain/errors"
	"pay-router.backend/internal/interfaces/http/response"
)

type AcquirerMonitor interface {
	HealthSummary(ctx context.Context, acquirer entities.Acquirer, windowHours int) (*entities.AcquirerHealth, error)
	HealthOverview(ctx context.Context, windowHours int) ([]*entities.AcquirerHealth, error)
	RecentEvents(ctx context.Context, filter entities.EventFilter, limit int) ([]*entities.ApiEvent, error)
}

type CircuitReader interface {
	Snapshot(acquirer entities.Acquirer) (entities.AcquirerCircuitState, bool)
}

// AcquirerHandler exposes acquirer health, breaker state and the event log
type AcquirerHandler struct {
	monitor  AcquirerMonitor
	circuits CircuitReader
}

func NewAcquirerHandler(monitor AcquirerMonitor, circuits CircuitReader) *AcquirerHandler {
	return &AcquirerHandler{monitor: monitor, circuits: circuits}
}

// HealthOverview returns the health of every acquirer
// GET /api/v1/acquirers/health?windowHours=
func (h *AcquirerHandler) HealthOverview(c *gin.Context) {
	window, ok := windowHoursQuery(c)
	if !ok {
		return
	}

	overview, err := h.monitor.HealthOverview(c.Request.Context(), window)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"acquirers": overview})
}

// HealthSummary returns the health of one acquirer
// GET /api/v1/acquirers/:acquirer/health?windowHours=
func (h *AcquirerHandler) HealthSummary(c *gin.Context) {
	acquirer, err := entities.ParseAcquirer(c.Param("acquirer"))
	if err != nil {
		response.Error(c, err)
		return
	}
	window, ok := windowHoursQuery(c)
	if !ok {
		return
	}

	health, err := h.monitor.HealthSummary(c.Request.Context(), acquirer, window)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, health)
}

// CircuitState returns the live breaker of one acquirer
// GET /api/v1/acquirers/:acquirer/circuit
func (h *AcquirerHandler) CircuitState(c *gin.Context) {
	acquirer, err := entities.ParseAcquirer(c.Param("acquirer"))
	if err != nil {
		response.Error(c, err)
		return
	}

	state, ok := h.circuits.Snapshot(acquirer)
	if !ok {
		response.Error(c, domainerrors.NotFound("circuit not found"))
		return
	}

	response.Success(c, http.StatusOK, state)
}

// RecentEvents lists the newest acquirer events
// GET /api/v1/events?acquirer=&eventType=&limit=
func (h *AcquirerHandler) RecentEvents(c *gin.Context) {
	filter := entities.EventFilter{
		Acquirer:  entities.Acquirer(c.Query("acquirer")),
		EventType: entities.ApiEventType(c.Query("eventType")),
	}
	if filter.Acquirer != "" {
		acquirer, err := entities.ParseAcquirer(string(filter.Acquirer))
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.Acquirer = acquirer
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, domainerrors.BadRequest("invalid limit"))
			return
		}
		limit = parsed
	}

	events, err := h.monitor.RecentEvents(c.Request.Context(), filter, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"events": events})
}

func windowHoursQuery(c *gin.Context) (int, bool) {
	raw := c.Query("windowHours")
	if raw == "" {
		return 0, true
	}
	window, err := strconv.Atoi(raw)
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid windowHours"))
		return 0, false
	}
	return window, true
}
