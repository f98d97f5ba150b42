package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"pay-router.backend/internal/domain/entities"
	domainerrors "pay-router.backend/internal/domain/errors"
	"pay-router.backend/internal/interfaces/http/response"
)

type TransactionService interface {
	Submit(ctx context.Context, txn *entities.Transaction) (*entities.TransactionResult, error)
}

// TransactionHandler handles transaction submission
type TransactionHandler struct {
	orchestrator TransactionService
}

func NewTransactionHandler(orchestrator TransactionService) *TransactionHandler {
	return &TransactionHandler{orchestrator: orchestrator}
}

// SubmitTransaction routes one transaction through its failover chain
// POST /api/v1/transactions
func (h *TransactionHandler) SubmitTransaction(c *gin.Context) {
	var input entities.SubmitTransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	method, err := entities.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		response.Error(c, err)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(input.Amount))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid amount"))
		return
	}

	txn := &entities.Transaction{
		ID:            strings.TrimSpace(input.ID),
		PaymentMethod: method,
		Amount:        amount,
		Currency:      input.Currency,
		Description:   input.Description,
		Metadata:      input.Metadata,
	}

	result, err := h.orchestrator.Submit(c.Request.Context(), txn)
	if err != nil {
		if errors.Is(err, domainerrors.ErrChainExhausted) && result != nil {
			c.JSON(http.StatusPaymentRequired, gin.H{
				"code":    domainerrors.CodeChainExhausted,
				"message": err.Error(),
				"result":  result,
			})
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
