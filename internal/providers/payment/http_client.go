package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desklyhq/deskly/internal/config"
)

// HTTPProvider talks to the billing provider's REST API. One attempt per
// call; failures surface to the caller unretried.
type HTTPProvider struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPProvider(cfg config.Config) *HTTPProvider {
	return &HTTPProvider{
		name:    cfg.BillingProviderName,
		baseURL: cfg.BillingProviderBaseURL,
		apiKey:  cfg.BillingProviderAPIKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *HTTPProvider) Name() string {
	return p.name
}

func (p *HTTPProvider) CancelSubscription(ctx context.Context, providerSubscriptionID string, mode CancelMode) (CancelResult, error) {
	if !mode.Valid() {
		return CancelResult{}, fmt.Errorf("unknown cancel mode %q", mode)
	}

	body := map[string]any{
		"cancel_at_period_end": mode == CancelModeAtPeriodEnd,
	}
	var result CancelResult
	err := p.do(ctx, http.MethodPost,
		"/v1/subscriptions/"+url.PathEscape(providerSubscriptionID)+"/cancel",
		nil, body, &result)
	if err != nil {
		return CancelResult{}, err
	}
	return result, nil
}

func (p *HTTPProvider) ListInvoices(ctx context.Context, limit int, startingAfter string) ([]Invoice, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if startingAfter != "" {
		query.Set("starting_after", startingAfter)
	}

	var payload struct {
		Data []Invoice `json:"data"`
	}
	if err := p.do(ctx, http.MethodGet, "/v1/invoices", query, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

func (p *HTTPProvider) ListPrices(ctx context.Context, currency string) ([]Price, error) {
	query := url.Values{}
	if currency != "" {
		query.Set("currency", strings.ToLower(currency))
	}

	var payload struct {
		Data []Price `json:"data"`
	}
	if err := p.do(ctx, http.MethodGet, "/v1/prices", query, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

func (p *HTTPProvider) CreatePrice(ctx context.Context, req CreatePriceRequest) (Price, error) {
	var price Price
	if err := p.do(ctx, http.MethodPost, "/v1/prices", nil, req, &price); err != nil {
		return Price{}, err
	}
	return price, nil
}

func (p *HTTPProvider) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if strings.TrimSpace(p.apiKey) == "" {
		return ErrNotConfigured
	}

	endpoint := p.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: provider returned %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("provider rejected request: %s", apiErr.Error.Message)
		}
		return fmt.Errorf("provider rejected request with status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var _ Provider = (*HTTPProvider)(nil)
