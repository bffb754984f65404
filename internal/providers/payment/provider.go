// Package payment wraps the external billing provider's REST API. Deskly only
// displays and triggers actions against that provider; it never implements
// billing logic itself.
package payment

import (
	"context"
	"errors"
	"time"
)

// CancelMode is one of the two sanctioned subscription actions.
type CancelMode string

const (
	CancelModeNow         CancelMode = "cancel_now"
	CancelModeAtPeriodEnd CancelMode = "cancel_at_period_end"
)

func (m CancelMode) Valid() bool {
	return m == CancelModeNow || m == CancelModeAtPeriodEnd
}

// Invoice is a provider invoice record as returned by the provider API.
type Invoice struct {
	ProviderInvoiceID      string     `json:"id"`
	InvoiceNumber          string     `json:"number"`
	ProviderSubscriptionID string     `json:"subscription_id"`
	Status                 string     `json:"status"`
	PeriodStart            *time.Time `json:"period_start"`
	PeriodEnd              *time.Time `json:"period_end"`
	TotalCents             int64      `json:"total"`
	TaxCents               int64      `json:"tax"`
	AmountDueCents         int64      `json:"amount_due"`
	Currency               string     `json:"currency"`
	HostedURL              string     `json:"hosted_invoice_url"`
	PDFURL                 string     `json:"invoice_pdf"`
	CreatedAt              time.Time  `json:"created_at"`
}

// Price is a provider price object. Provider prices are immutable once
// created; a price change always creates a new price object.
type Price struct {
	ID              string `json:"id"`
	LookupKey       string `json:"lookup_key"`
	Currency        string `json:"currency"`
	UnitAmountCents int64  `json:"unit_amount"`
	Active          bool   `json:"active"`
}

type CreatePriceRequest struct {
	LookupKey       string `json:"lookup_key"`
	Currency        string `json:"currency"`
	UnitAmountCents int64  `json:"unit_amount"`
	ProductName     string `json:"product_name"`
}

// CancelResult reflects the provider-side subscription state after a cancel
// action.
type CancelResult struct {
	Status            string     `json:"status"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	CanceledAt        *time.Time `json:"canceled_at"`
}

type Provider interface {
	Name() string
	CancelSubscription(ctx context.Context, providerSubscriptionID string, mode CancelMode) (CancelResult, error)
	ListInvoices(ctx context.Context, limit int, startingAfter string) ([]Invoice, error)
	ListPrices(ctx context.Context, currency string) ([]Price, error)
	CreatePrice(ctx context.Context, req CreatePriceRequest) (Price, error)
}

var (
	ErrNotConfigured = errors.New("billing_provider_not_configured")
	ErrNotFound      = errors.New("billing_provider_not_found")
	ErrUnavailable   = errors.New("billing_provider_unavailable")
)
