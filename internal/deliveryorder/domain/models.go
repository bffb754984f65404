// Package domain contains the delivery order lifecycle model. A delivery
// order tracks physical dispatch of a subscription's items, independent of
// the subscription's billing status.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusConfirmed          Status = "confirmed"
	StatusDispatched         Status = "dispatched"
	StatusDelivered          Status = "delivered"
	StatusPartiallyDelivered Status = "partially_delivered"
	StatusFailed             Status = "failed"
	StatusRescheduled        Status = "rescheduled"
	StatusCancelled          Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusConfirmed, StatusDispatched, StatusDelivered, StatusPartiallyDelivered,
		StatusFailed, StatusRescheduled, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusPartiallyDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// transitions is the authoritative table. Absence of a key means the state
// is terminal.
var transitions = map[Status][]Status{
	StatusConfirmed:   {StatusDispatched, StatusCancelled},
	StatusDispatched:  {StatusDelivered, StatusPartiallyDelivered, StatusFailed, StatusRescheduled, StatusCancelled},
	StatusFailed:      {StatusDispatched, StatusCancelled},
	StatusRescheduled: {StatusDispatched, StatusCancelled},
}

// CanTransition reports whether from → to is a permitted move.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// StatusDetail carries the side-field required by the current status. At most
// one field is non-nil, and which one is determined entirely by the status:
// failed carries FailureReason, rescheduled carries RescheduledAt, cancelled
// carries CancelledReason, every other status carries nothing.
type StatusDetail struct {
	FailureReason   *string    `json:"failure_reason,omitempty"`
	RescheduledAt   *time.Time `json:"rescheduled_at,omitempty"`
	CancelledReason *string    `json:"cancelled_reason,omitempty"`
}

// ForStatus returns the detail set a record in the given status must carry,
// taking the single relevant field from d and discarding the rest.
func (d StatusDetail) ForStatus(status Status) StatusDetail {
	switch status {
	case StatusFailed:
		return StatusDetail{FailureReason: d.FailureReason}
	case StatusRescheduled:
		return StatusDetail{RescheduledAt: d.RescheduledAt}
	case StatusCancelled:
		return StatusDetail{CancelledReason: d.CancelledReason}
	default:
		return StatusDetail{}
	}
}

// Complete reports whether d carries the field its status requires and no
// stray fields from other statuses.
func (d StatusDetail) Complete(status Status) bool {
	switch status {
	case StatusFailed:
		return d.FailureReason != nil && *d.FailureReason != "" && d.RescheduledAt == nil && d.CancelledReason == nil
	case StatusRescheduled:
		return d.RescheduledAt != nil && d.FailureReason == nil && d.CancelledReason == nil
	case StatusCancelled:
		return d.CancelledReason != nil && *d.CancelledReason != "" && d.FailureReason == nil && d.RescheduledAt == nil
	default:
		return d.FailureReason == nil && d.RescheduledAt == nil && d.CancelledReason == nil
	}
}

type DeliveryOrder struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrderNumber     string            `gorm:"uniqueIndex;not null" json:"order_number"`
	SubscriptionID  snowflake.ID      `gorm:"not null;index" json:"subscription_id"`
	CustomerID      snowflake.ID      `gorm:"not null;index" json:"customer_id"`
	Status          Status            `gorm:"type:text;not null;default:'confirmed';index" json:"do_status"`
	ScheduledAt     *time.Time        `gorm:"" json:"scheduled_at,omitempty"`
	DeliveryAddress string            `gorm:"type:text" json:"delivery_address,omitempty"`
	FailureReason   *string           `gorm:"type:text" json:"failure_reason,omitempty"`
	RescheduledAt   *time.Time        `gorm:"" json:"rescheduled_at,omitempty"`
	CancelledReason *string           `gorm:"type:text" json:"cancelled_reason,omitempty"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (DeliveryOrder) TableName() string { return "delivery_orders" }

// Detail returns the status-conditional fields as a tagged view of the row.
func (o *DeliveryOrder) Detail() StatusDetail {
	return StatusDetail{
		FailureReason:   o.FailureReason,
		RescheduledAt:   o.RescheduledAt,
		CancelledReason: o.CancelledReason,
	}
}

// applyDetail overwrites all three side-fields from d. Callers pass a detail
// already narrowed with ForStatus so stale fields are cleared in the same
// write.
func (o *DeliveryOrder) applyDetail(d StatusDetail) {
	o.FailureReason = d.FailureReason
	o.RescheduledAt = d.RescheduledAt
	o.CancelledReason = d.CancelledReason
}

// SetStatus moves the order to status and installs exactly the side-field
// that status requires.
func (o *DeliveryOrder) SetStatus(status Status, detail StatusDetail) {
	o.Status = status
	o.applyDetail(detail.ForStatus(status))
}

// Item is a line on a delivery order, copied from the subscription at order
// creation so later subscription edits do not rewrite fulfillment history.
type Item struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	DeliveryOrderID snowflake.ID `gorm:"not null;index" json:"delivery_order_id"`
	ProductID       snowflake.ID `gorm:"not null;index" json:"product_id"`
	Name            string       `gorm:"not null" json:"name"`
	Quantity        int          `gorm:"not null;default:1" json:"quantity"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Item) TableName() string { return "delivery_order_items" }
