package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/desklyhq/deskly/pkg/db/pagination"
)

var (
	ErrInvalidID            = errors.New("invalid_subscription_id")
	ErrInvalidCustomer      = errors.New("invalid_customer")
	ErrInvalidItems         = errors.New("invalid_items")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidStatus        = errors.New("invalid_billing_status")
	ErrInvalidSort          = errors.New("invalid_sort")
	ErrInvalidCancelMode    = errors.New("invalid_cancel_mode")
	ErrActionNotAllowed     = errors.New("action_not_allowed")
	ErrNotProviderBacked    = errors.New("subscription_not_provider_backed")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
)

type ListSubscriptionRequest struct {
	pagination.Pagination
	Search        string `form:"search"`
	BillingStatus string `form:"billing_status"`
	CustomerID    string `form:"customer_id"`
	SortBy        string `form:"sort_by"`
	SortDir       string `form:"sort_dir"`
}

type ListSubscriptionFilter struct {
	Search        string
	BillingStatus BillingStatus
	CustomerID    snowflake.ID
	SortBy        string
	SortDir       string
}

type ListSubscriptionResponse struct {
	pagination.PageInfo `json:"page_info"`
	Subscriptions       []Subscription `json:"subscriptions"`
}

// Detail is a subscription together with its line items.
type Detail struct {
	Subscription
	Items []Item `json:"items"`
}

type CreateItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type CreateSubscriptionRequest struct {
	CustomerID string              `json:"customer_id" binding:"required"`
	StartAt    *time.Time          `json:"start_at"`
	Items      []CreateItemRequest `json:"items" binding:"required"`
}

// CancelSubscriptionRequest names one of the two sanctioned cancel actions.
type CancelSubscriptionRequest struct {
	ID   string `json:"-"`
	Mode string `json:"mode" binding:"required"`
}

// ApplyProviderStatusRequest mirrors a provider-reported status change onto
// the local row. Used by webhook ingestion, never exposed as an admin action.
type ApplyProviderStatusRequest struct {
	ProviderSubscriptionID string
	BillingStatus          BillingStatus
	CancelledAt            *time.Time
}

type Service interface {
	List(ctx context.Context, req ListSubscriptionRequest) (*ListSubscriptionResponse, error)
	GetByID(ctx context.Context, id string) (*Detail, error)
	Create(ctx context.Context, req CreateSubscriptionRequest) (*Detail, error)
	Cancel(ctx context.Context, req CancelSubscriptionRequest) (*Subscription, error)
	ApplyProviderStatus(ctx context.Context, req ApplyProviderStatusRequest) (*Subscription, error)
}
