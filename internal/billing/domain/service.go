package domain

import (
	"context"
	"errors"

	"github.com/desklyhq/deskly/internal/config"
	"github.com/desklyhq/deskly/pkg/db/pagination"
)

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvoiceNotFound  = errors.New("invoice_not_found")
	ErrInvalidStatus    = errors.New("invalid_invoice_status")
	ErrInvalidSort      = errors.New("invalid_sort")
	ErrInvalidLimit     = errors.New("invalid_backfill_limit")
	ErrInvalidCurrency  = errors.New("invalid_currency")
	ErrInvalidProductID = errors.New("invalid_product_id")
	ErrInvalidSignature = errors.New("invalid_webhook_signature")
	ErrInvalidPayload   = errors.New("invalid_webhook_payload")
)

type ListInvoiceFilter struct {
	Search                 string
	Status                 InvoiceStatus
	ProviderSubscriptionID string
	SortBy                 string
	SortDir                string
}

type ListInvoiceRequest struct {
	pagination.Pagination
	Search                 string `form:"search"`
	Status                 string `form:"status"`
	ProviderSubscriptionID string `form:"provider_subscription_id"`
	SortBy                 string `form:"sort_by"`
	SortDir                string `form:"sort_dir"`
}

type ListInvoiceResponse struct {
	pagination.PageInfo `json:"page_info"`
	Invoices            []Invoice `json:"invoices"`
}

type ListWebhookEventFilter struct {
	EventType string
	Status    WebhookStatus
}

type ListWebhookEventRequest struct {
	pagination.Pagination
	EventType string `form:"event_type"`
	Status    string `form:"status"`
}

type ListWebhookEventResponse struct {
	pagination.PageInfo `json:"page_info"`
	Events              []WebhookEvent `json:"events"`
}

// IngestWebhookRequest carries a raw provider delivery. Body is kept raw so
// the signature can be verified over the exact bytes received.
type IngestWebhookRequest struct {
	Provider  string
	Body      []byte
	Signature string
}

type BackfillRequest struct {
	Limit  int  `json:"limit"`
	DryRun bool `json:"dry_run"`
}

// BackfillResult counts one provider invoice per fetched row, so
// MirroredCount+SkippedCount == FetchedCount and MirroredCount never exceeds
// FetchedCount.
type BackfillResult struct {
	DryRun        bool `json:"dry_run"`
	FetchedCount  int  `json:"fetched_count"`
	MirroredCount int  `json:"mirrored_count"`
	SkippedCount  int  `json:"skipped_count"`
}

type CatalogSyncRequest struct {
	DryRun     bool     `json:"dry_run"`
	Currency   string   `json:"currency"`
	ProductIDs []string `json:"product_ids"`
}

type SyncOutcome struct {
	ProductID       string `json:"product_id"`
	ProductCode     string `json:"product_code"`
	LookupKey       string `json:"lookup_key"`
	Outcome         string `json:"outcome"` // created | skipped
	ProviderPriceID string `json:"provider_price_id,omitempty"`
}

type CatalogSyncResult struct {
	DryRun       bool          `json:"dry_run"`
	Currency     string        `json:"currency"`
	CreatedCount int           `json:"created_count"`
	SkippedCount int           `json:"skipped_count"`
	Outcomes     []SyncOutcome `json:"outcomes"`
}

type Service interface {
	ListInvoices(ctx context.Context, req ListInvoiceRequest) (*ListInvoiceResponse, error)
	GetInvoiceByID(ctx context.Context, id string) (*Invoice, error)
	ListWebhookEvents(ctx context.Context, req ListWebhookEventRequest) (*ListWebhookEventResponse, error)
	IngestWebhook(ctx context.Context, req IngestWebhookRequest) (*WebhookEvent, error)
	Backfill(ctx context.Context, req BackfillRequest) (*BackfillResult, error)
	CatalogSync(ctx context.Context, req CatalogSyncRequest) (*CatalogSyncResult, error)
	RuntimeConfig(ctx context.Context) config.BillingRuntimeConfig
}
