// Package domain contains persistence models for the rental catalog.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the catalog lifecycle state of a product.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusInactive:
		return true
	default:
		return false
	}
}

type Product struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	ProductCode       string            `gorm:"not null;uniqueIndex" json:"product_code"`
	Name              string            `gorm:"not null" json:"name"`
	Category          string            `gorm:"type:text;index" json:"category"`
	MonthlyPriceCents int64             `gorm:"not null;default:0" json:"monthly_price_cents"`
	StockQty          int               `gorm:"not null;default:0" json:"stock_qty"`
	Status            Status            `gorm:"type:text;not null;default:'draft';index" json:"status"`
	ImageURL          string            `gorm:"type:text" json:"image_url,omitempty"`
	VideoURL          string            `gorm:"type:text" json:"video_url,omitempty"`
	Description       string            `gorm:"type:text" json:"description,omitempty"`
	ProviderPriceID   string            `gorm:"type:text" json:"provider_price_id,omitempty"`
	Metadata          datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Product) TableName() string { return "products" }
