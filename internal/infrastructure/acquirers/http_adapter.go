package acquirers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"pay-router.backend/internal/domain/entities"
	domainerrors "pay-router.backend/internal/domain/errors"
	"pay-router.backend/pkg/logger"
)

const maxErrorBody = 4 << 10

// HTTPAdapter talks to an acquirer exposing a JSON payments endpoint.
type HTTPAdapter struct {
	acquirer entities.Acquirer
	baseURL  string
	apiKey   string
	client   *http.Client
}

type paymentPayload struct {
	TransactionID string            `json:"transactionId"`
	PaymentMethod string            `json:"paymentMethod"`
	Amount        string            `json:"amount"`
	Currency      string            `json:"currency"`
	Description   string            `json:"description,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type paymentReply struct {
	ID          string `json:"id"`
	ExternalRef string `json:"externalRef"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	Error       string `json:"error"`
}

// NewHTTPAdapter creates an adapter. A nil client uses a fresh http.Client;
// the per-attempt deadline comes from the caller's context.
func NewHTTPAdapter(acquirer entities.Acquirer, baseURL, apiKey string, client *http.Client) *HTTPAdapter {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPAdapter{
		acquirer: acquirer,
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		client:   client,
	}
}

func (a *HTTPAdapter) Acquirer() entities.Acquirer { return a.acquirer }

func (a *HTTPAdapter) SubmitPayment(ctx context.Context, req entities.PaymentRequest) (*entities.PaymentResponse, error) {
	body, err := json.Marshal(paymentPayload{
		TransactionID: req.TransactionID,
		PaymentMethod: string(req.PaymentMethod),
		Amount:        req.Amount.StringFixed(2),
		Currency:      req.Currency,
		Description:   req.Description,
		Metadata:      req.Metadata,
	})
	if err != nil {
		return nil, a.fail(domainerrors.AcquirerNetworkError, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return nil, a.fail(domainerrors.AcquirerNetworkError, "failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	httpReq.Header.Set("Idempotency-Key", fmt.Sprintf("%s-%d", req.TransactionID, req.Attempt))

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, a.classifyTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, a.classifyTransport(err)
	}

	var reply paymentReply
	decodeErr := json.Unmarshal(raw, &reply)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// an approval is only trusted when it names the acquirer's reference
		if decodeErr != nil {
			logger.Warn(ctx, "Acquirer approval body is not valid JSON",
				zap.String("acquirer", string(a.acquirer)),
				zap.Int("status", resp.StatusCode),
				zap.Error(decodeErr),
			)
			return nil, a.fail(domainerrors.AcquirerNetworkError, fmt.Sprintf("HTTP %d: unreadable response body", resp.StatusCode), decodeErr)
		}
		ref := reply.ExternalRef
		if ref == "" {
			ref = reply.ID
		}
		if ref == "" {
			logger.Warn(ctx, "Acquirer approval carries no reference",
				zap.String("acquirer", string(a.acquirer)),
				zap.Int("status", resp.StatusCode),
			)
			return nil, a.fail(domainerrors.AcquirerNetworkError, fmt.Sprintf("HTTP %d: response without reference", resp.StatusCode), nil)
		}
		return &entities.PaymentResponse{ExternalRef: ref, Status: reply.Status}, nil
	}

	msg := reply.Message
	if msg == "" {
		msg = reply.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return nil, a.fail(kindForStatus(resp.StatusCode), fmt.Sprintf("HTTP %d: %s", resp.StatusCode, msg), nil)
}

func kindForStatus(status int) domainerrors.AcquirerErrorKind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return domainerrors.AcquirerAuthError
	case status >= 400 && status < 500:
		return domainerrors.AcquirerDeclined
	default:
		return domainerrors.AcquirerNetworkError
	}
}

func (a *HTTPAdapter) classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return a.fail(domainerrors.AcquirerTimeout, "deadline exceeded", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return a.fail(domainerrors.AcquirerTimeout, netErr.Error(), err)
	}
	return a.fail(domainerrors.AcquirerNetworkError, err.Error(), err)
}

func (a *HTTPAdapter) fail(kind domainerrors.AcquirerErrorKind, msg string, err error) error {
	return domainerrors.NewAcquirerError(string(a.acquirer), kind, msg, err)
}
