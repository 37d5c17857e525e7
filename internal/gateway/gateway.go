package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Domenick1991/hotelops/internal/domain"
)

// BeginRequest opens an external transaction with a payment provider.
type BeginRequest struct {
	Reference   string
	AmountCents int64
	Currency    string
	Metadata    map[string]string
}

// Adapter is the two-call contract every payment provider is driven
// through: Begin opens a transaction and returns the provider's reference;
// the outcome arrives later through the webhook.
type Adapter interface {
	Begin(ctx context.Context, req BeginRequest) (string, error)
}

// Registry maps payment methods to their provider adapters.
type Registry struct {
	adapters map[domain.PaymentMethod]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[domain.PaymentMethod]Adapter)}
}

func (r *Registry) Register(method domain.PaymentMethod, adapter Adapter) {
	r.adapters[method] = adapter
}

func (r *Registry) For(method domain.PaymentMethod) (Adapter, error) {
	adapter, ok := r.adapters[method]
	if !ok {
		return nil, fmt.Errorf("no gateway adapter for method %s: %w", method, domain.ErrGatewayUnavailable)
	}
	return adapter, nil
}

// HTTPAdapter drives a JSON-over-HTTP provider. Transport failures are
// wrapped as ErrGatewayUnavailable so callers can retry; they are never
// treated as a payment outcome.
type HTTPAdapter struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPAdapter(baseURL, apiKey string) *HTTPAdapter {
	return &HTTPAdapter{baseURL: baseURL, apiKey: apiKey, client: &http.Client{}}
}

type beginPayload struct {
	Reference string            `json:"reference"`
	Amount    int64             `json:"amount_cents"`
	Currency  string            `json:"currency"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type beginResponse struct {
	TransactionID string `json:"transaction_id"`
}

func (a *HTTPAdapter) Begin(ctx context.Context, req BeginRequest) (string, error) {
	body, err := json.Marshal(beginPayload{
		Reference: req.Reference,
		Amount:    req.AmountCents,
		Currency:  req.Currency,
		Metadata:  req.Metadata,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.SetBasicAuth(a.apiKey, "")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("begin %s: %v: %w", req.Reference, err, domain.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("begin %s: gateway returned %d: %w", req.Reference, resp.StatusCode, domain.ErrGatewayUnavailable)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("begin %s: gateway rejected request (%d): %s", req.Reference, resp.StatusCode, raw)
	}

	var out beginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("begin %s: decode response: %w", req.Reference, err)
	}
	if out.TransactionID == "" {
		return "", fmt.Errorf("begin %s: gateway returned empty transaction id", req.Reference)
	}
	return out.TransactionID, nil
}

var _ Adapter = (*HTTPAdapter)(nil)
