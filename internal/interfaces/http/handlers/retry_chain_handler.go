package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"pay-router.backend/internal/domain/entities"
	domainerrors "pay-router.backend/internal/domain/errors"
	"pay-router.backend/internal/interfaces/http/response"
)

type RetryChainService interface {
	GetActiveChain(ctx context.Context, method entities.PaymentMethod) (*entities.ChainSnapshot, error)
	ListSteps(ctx context.Context, method entities.PaymentMethod) ([]*entities.RetryStep, error)
	AddStep(ctx context.Context, method entities.PaymentMethod, acquirer entities.Acquirer, order int) (uuid.UUID, error)
	Reorder(ctx context.Context, method entities.PaymentMethod, orderedIDs []uuid.UUID) error
	RemoveStep(ctx context.Context, id uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// RetryChainHandler handles failover chain configuration
type RetryChainHandler struct {
	chains RetryChainService
}

func NewRetryChainHandler(chains RetryChainService) *RetryChainHandler {
	return &RetryChainHandler{chains: chains}
}

// GetActiveChain returns the ordered active chain of a payment method
// GET /api/v1/retry-chains/:method
func (h *RetryChainHandler) GetActiveChain(c *gin.Context) {
	method, err := entities.ParsePaymentMethod(c.Param("method"))
	if err != nil {
		response.Error(c, err)
		return
	}

	snapshot, err := h.chains.GetActiveChain(c.Request.Context(), method)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, snapshot)
}

// ListSteps returns every step of a method, inactive ones included
// GET /api/v1/retry-chains/:method/steps
func (h *RetryChainHandler) ListSteps(c *gin.Context) {
	method, err := entities.ParsePaymentMethod(c.Param("method"))
	if err != nil {
		response.Error(c, err)
		return
	}

	steps, err := h.chains.ListSteps(c.Request.Context(), method)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"steps": steps})
}

// AddStep appends an acquirer to a method's chain
// POST /api/v1/retry-chains/:method/steps
func (h *RetryChainHandler) AddStep(c *gin.Context) {
	method, err := entities.ParsePaymentMethod(c.Param("method"))
	if err != nil {
		response.Error(c, err)
		return
	}

	var input entities.AddRetryStepInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}
	acquirer, err := entities.ParseAcquirer(input.Acquirer)
	if err != nil {
		response.Error(c, err)
		return
	}

	id, err := h.chains.AddStep(c.Request.Context(), method, acquirer, input.Order)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"id": id})
}

// Reorder rewrites the order of all steps of a method
// PUT /api/v1/retry-chains/:method/order
func (h *RetryChainHandler) Reorder(c *gin.Context) {
	method, err := entities.ParsePaymentMethod(c.Param("method"))
	if err != nil {
		response.Error(c, err)
		return
	}

	var input entities.ReorderRetryChainInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}
	ids := make([]uuid.UUID, 0, len(input.StepIDs))
	for _, raw := range input.StepIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, domainerrors.BadRequest("invalid step ID"))
			return
		}
		ids = append(ids, id)
	}

	if err := h.chains.Reorder(c.Request.Context(), method, ids); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "retry chain reordered"})
}

// SetStepActive toggles a step in or out of routing
// PATCH /api/v1/retry-steps/:id/active
func (h *RetryChainHandler) SetStepActive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid step ID"))
		return
	}

	var input entities.SetRetryStepActiveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	if err := h.chains.SetActive(c.Request.Context(), id, *input.IsActive); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"id": id, "isActive": *input.IsActive})
}

// RemoveStep deletes a step and compacts the remaining orders
// DELETE /api/v1/retry-steps/:id
func (h *RetryChainHandler) RemoveStep(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid step ID"))
		return
	}

	if err := h.chains.RemoveStep(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
