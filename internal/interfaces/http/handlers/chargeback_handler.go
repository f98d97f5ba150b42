package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"pay-router.backend/internal/domain/entities"
	domainerrors "pay-router.backend/internal/domain/errors"
	"pay-router.backend/internal/interfaces/http/response"
	"pay-router.backend/pkg/utils"
)

type ChargebackService interface {
	Record(ctx context.Context, input *entities.RecordChargebackInput) (*entities.Chargeback, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entities.ChargebackStatus, notes *string) (*entities.Chargeback, error)
	Get(ctx context.Context, id uuid.UUID) (*entities.Chargeback, error)
	List(ctx context.Context, filter entities.ChargebackFilter, pagination utils.PaginationParams) ([]*entities.Chargeback, int64, error)
}

// ChargebackHandler handles chargeback endpoints
type ChargebackHandler struct {
	chargebacks ChargebackService
}

func NewChargebackHandler(chargebacks ChargebackService) *ChargebackHandler {
	return &ChargebackHandler{chargebacks: chargebacks}
}

// RecordChargeback stores a newly detected chargeback
// POST /api/v1/chargebacks
func (h *ChargebackHandler) RecordChargeback(c *gin.Context) {
	var input entities.RecordChargebackInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	cb, err := h.chargebacks.Record(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, cb)
}

// GetChargeback
// GET /api/v1/chargebacks/:id
func (h *ChargebackHandler) GetChargeback(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid chargeback ID"))
		return
	}

	cb, err := h.chargebacks.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, cb)
}

// ListChargebacks lists chargebacks, newest first
// GET /api/v1/chargebacks?acquirer=&status=&transactionRef=&page=&limit=
func (h *ChargebackHandler) ListChargebacks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	pagination := utils.GetPaginationParams(page, limit)

	filter := entities.ChargebackFilter{
		Acquirer:       entities.Acquirer(c.Query("acquirer")),
		Status:         entities.ChargebackStatus(c.Query("status")),
		TransactionRef: c.Query("transactionRef"),
	}
	if filter.Acquirer != "" {
		acquirer, err := entities.ParseAcquirer(string(filter.Acquirer))
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.Acquirer = acquirer
	}

	items, total, err := h.chargebacks.List(c.Request.Context(), filter, pagination)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, http.StatusOK, items, utils.CalculateMeta(total, pagination.Page, pagination.Limit))
}

// UpdateChargebackStatus moves a chargeback along its review lifecycle
// PATCH /api/v1/chargebacks/:id/status
func (h *ChargebackHandler) UpdateChargebackStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid chargeback ID"))
		return
	}

	var input entities.UpdateChargebackStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	cb, err := h.chargebacks.UpdateStatus(c.Request.Context(), id, entities.ChargebackStatus(input.Status), input.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, cb)
}
