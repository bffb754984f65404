package domain

import (
	"context"

	"gorm.io/gorm"

	"github.com/desklyhq/deskly/pkg/db/pagination"
)

type Repository interface {
	InsertInvoice(ctx context.Context, tx *gorm.DB, invoice *Invoice) error
	FindInvoiceByID(ctx context.Context, tx *gorm.DB, id int64) (*Invoice, error)
	FindInvoiceByProviderRef(ctx context.Context, tx *gorm.DB, provider, providerInvoiceID string) (*Invoice, error)
	UpdateInvoice(ctx context.Context, tx *gorm.DB, invoice *Invoice) error
	ListInvoices(ctx context.Context, tx *gorm.DB, filter ListInvoiceFilter, page pagination.Pagination) ([]Invoice, int64, error)

	InsertWebhookEvent(ctx context.Context, tx *gorm.DB, event *WebhookEvent) error
	FindWebhookEventByProviderRef(ctx context.Context, tx *gorm.DB, provider, eventID string) (*WebhookEvent, error)
	UpdateWebhookEvent(ctx context.Context, tx *gorm.DB, event *WebhookEvent) error
	ListWebhookEvents(ctx context.Context, tx *gorm.DB, filter ListWebhookEventFilter, page pagination.Pagination) ([]WebhookEvent, int64, error)
}
