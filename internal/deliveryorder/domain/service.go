package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/desklyhq/deskly/pkg/db/pagination"
)

var (
	ErrInvalidID         = errors.New("invalid_delivery_order_id")
	ErrInvalidStatus     = errors.New("invalid_do_status")
	ErrInvalidTransition = errors.New("invalid_status_transition")
	ErrMissingDetail     = errors.New("missing_status_detail")
	ErrUnexpectedDetail  = errors.New("unexpected_status_detail")
	ErrInvalidSort       = errors.New("invalid_sort")
	ErrOrderNotFound     = errors.New("delivery_order_not_found")
)

type ListDeliveryOrderRequest struct {
	pagination.Pagination
	Search         string `form:"search"`
	Status         string `form:"do_status"`
	SubscriptionID string `form:"subscription_id"`
	CustomerID     string `form:"customer_id"`
	SortBy         string `form:"sort_by"`
	SortDir        string `form:"sort_dir"`
}

type ListDeliveryOrderFilter struct {
	Search         string
	Status         Status
	SubscriptionID snowflake.ID
	CustomerID     snowflake.ID
	SortBy         string
	SortDir        string
}

type ListDeliveryOrderResponse struct {
	pagination.PageInfo `json:"page_info"`
	DeliveryOrders      []DeliveryOrder `json:"delivery_orders"`
}

type OrderDetail struct {
	DeliveryOrder
	Items []Item `json:"items"`
}

type CreateDeliveryOrderRequest struct {
	SubscriptionID  string     `json:"subscription_id" binding:"required"`
	ScheduledAt     *time.Time `json:"scheduled_at"`
	DeliveryAddress string     `json:"delivery_address"`
}

// TransitionRequest names a target status together with exactly the
// side-field that status requires. Side-fields belonging to other statuses
// must be absent.
type TransitionRequest struct {
	ID              string     `json:"-"`
	Status          string     `json:"do_status" binding:"required"`
	FailureReason   *string    `json:"failure_reason"`
	RescheduledAt   *time.Time `json:"rescheduled_at"`
	CancelledReason *string    `json:"cancelled_reason"`
}

type Service interface {
	List(ctx context.Context, req ListDeliveryOrderRequest) (*ListDeliveryOrderResponse, error)
	GetByID(ctx context.Context, id string) (*OrderDetail, error)
	Create(ctx context.Context, req CreateDeliveryOrderRequest) (*OrderDetail, error)
	Transition(ctx context.Context, req TransitionRequest) (*DeliveryOrder, error)
}
