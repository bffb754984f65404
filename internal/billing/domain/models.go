// Package domain contains the local read-only mirrors of billing provider
// state. Invoices and webhook events are owned by the provider; Deskly keeps
// a mirror row per record so the console can list them without a provider
// round trip.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusOpen          InvoiceStatus = "open"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusPaymentFailed InvoiceStatus = "payment_failed"
	InvoiceStatusVoid          InvoiceStatus = "void"
	InvoiceStatusUncollectible InvoiceStatus = "uncollectible"
	InvoiceStatusUnknown       InvoiceStatus = "unknown"
)

// ParseInvoiceStatus maps a provider status string onto the local mirror
// vocabulary. Unrecognized provider statuses become unknown rather than an
// error so a provider rollout cannot break the mirror.
func ParseInvoiceStatus(raw string) InvoiceStatus {
	switch InvoiceStatus(raw) {
	case InvoiceStatusDraft, InvoiceStatusOpen, InvoiceStatusPaid,
		InvoiceStatusPaymentFailed, InvoiceStatusVoid, InvoiceStatusUncollectible:
		return InvoiceStatus(raw)
	default:
		return InvoiceStatusUnknown
	}
}

type Invoice struct {
	ID                     snowflake.ID  `gorm:"primaryKey" json:"id"`
	Provider               string        `gorm:"not null;uniqueIndex:idx_billing_invoices_provider_ref,priority:1" json:"provider"`
	ProviderInvoiceID      string        `gorm:"not null;uniqueIndex:idx_billing_invoices_provider_ref,priority:2" json:"provider_invoice_id"`
	InvoiceNumber          string        `gorm:"type:text;index" json:"invoice_number"`
	SubscriptionID         *snowflake.ID `gorm:"index" json:"subscription_id,omitempty"`
	ProviderSubscriptionID string        `gorm:"type:text;index" json:"provider_subscription_id,omitempty"`
	Status                 InvoiceStatus `gorm:"type:text;not null;default:'unknown';index" json:"status"`
	PeriodStart            *time.Time    `gorm:"" json:"period_start,omitempty"`
	PeriodEnd              *time.Time    `gorm:"" json:"period_end,omitempty"`
	TotalCents             int64         `gorm:"not null;default:0" json:"total_cents"`
	TaxCents               int64         `gorm:"not null;default:0" json:"tax_cents"`
	AmountDueCents         int64         `gorm:"not null;default:0" json:"amount_due_cents"`
	Currency               string        `gorm:"type:text" json:"currency"`
	HostedURL              string        `gorm:"type:text" json:"hosted_url,omitempty"`
	PDFURL                 string        `gorm:"type:text" json:"pdf_url,omitempty"`
	IssuedAt               *time.Time    `gorm:"" json:"issued_at,omitempty"`
	CreatedAt              time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt              time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Invoice) TableName() string { return "billing_invoices" }

type WebhookStatus string

const (
	WebhookStatusReceived  WebhookStatus = "received"
	WebhookStatusProcessed WebhookStatus = "processed"
	WebhookStatusFailed    WebhookStatus = "failed"
)

type WebhookEvent struct {
	ID             snowflake.ID   `gorm:"primaryKey" json:"id"`
	Provider       string         `gorm:"not null;uniqueIndex:idx_billing_webhook_events_provider_ref,priority:1" json:"provider"`
	EventID        string         `gorm:"not null;uniqueIndex:idx_billing_webhook_events_provider_ref,priority:2" json:"event_id"`
	EventType      string         `gorm:"not null;index" json:"event_type"`
	Status         WebhookStatus  `gorm:"type:text;not null;default:'received';index" json:"status"`
	SubscriptionID *snowflake.ID  `gorm:"index" json:"subscription_id,omitempty"`
	Payload        datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`
	ProcessedAt    *time.Time     `gorm:"" json:"processed_at,omitempty"`
	ErrorMessage   string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (WebhookEvent) TableName() string { return "billing_webhook_events" }
