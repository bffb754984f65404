// Package domain contains persistence models for rental subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// BillingStatus is the provider-synced lifecycle state of a subscription. It
// is owned by the payment provider: locally it only changes through the two
// sanctioned cancel actions or through webhook mirroring.
type BillingStatus string

const (
	BillingStatusPendingPayment BillingStatus = "pending_payment"
	BillingStatusActive         BillingStatus = "active"
	BillingStatusPaymentFailed  BillingStatus = "payment_failed"
	BillingStatusCancelled      BillingStatus = "cancelled"
)

func (s BillingStatus) Valid() bool {
	switch s {
	case BillingStatusPendingPayment, BillingStatusActive, BillingStatusPaymentFailed, BillingStatusCancelled:
		return true
	default:
		return false
	}
}

type Subscription struct {
	ID                     snowflake.ID      `gorm:"primaryKey" json:"id"`
	CustomerID             snowflake.ID      `gorm:"not null;index" json:"customer_id"`
	BillingStatus          BillingStatus     `gorm:"type:text;not null;default:'pending_payment';index" json:"billing_status"`
	ServiceState           string            `gorm:"type:text" json:"service_state,omitempty"`
	CollectionStatus       string            `gorm:"type:text" json:"collection_status,omitempty"`
	SubtotalCents          int64             `gorm:"not null;default:0" json:"subtotal_cents"`
	TaxCents               int64             `gorm:"not null;default:0" json:"tax_cents"`
	MonthlyTotalCents      int64             `gorm:"not null;default:0" json:"monthly_total_cents"`
	StartAt                time.Time         `gorm:"not null" json:"start_at"`
	EndAt                  *time.Time        `gorm:"" json:"end_at,omitempty"`
	Provider               string            `gorm:"type:text" json:"provider,omitempty"`
	ProviderSubscriptionID string            `gorm:"type:text;index" json:"provider_subscription_id,omitempty"`
	CancelAtPeriodEnd      bool              `gorm:"not null;default:false" json:"cancel_at_period_end"`
	CancelledAt            *time.Time        `gorm:"" json:"cancelled_at,omitempty"`
	Metadata               datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt              time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt              time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

// Item is an ordered line on a subscription. Unit price is captured at order
// time; later catalog price changes do not rewrite history.
type Item struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	SubscriptionID   snowflake.ID `gorm:"not null;index" json:"subscription_id"`
	ProductID        snowflake.ID `gorm:"not null;index" json:"product_id"`
	Name             string       `gorm:"not null" json:"name"`
	Category         string       `gorm:"type:text" json:"category,omitempty"`
	Quantity         int          `gorm:"not null;default:1" json:"quantity"`
	UnitMonthlyCents int64        `gorm:"not null" json:"unit_monthly_cents"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Item) TableName() string { return "subscription_items" }
