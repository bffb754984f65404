package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/desklyhq/deskly/internal/billing/domain"
	"github.com/desklyhq/deskly/pkg/db/pagination"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertInvoice(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice) error {
	return tx.WithContext(ctx).Create(invoice).Error
}

func (r *repo) FindInvoiceByID(ctx context.Context, tx *gorm.DB, id int64) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := tx.WithContext(ctx).First(&invoice, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) FindInvoiceByProviderRef(ctx context.Context, tx *gorm.DB, provider, providerInvoiceID string) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := tx.WithContext(ctx).
		Where("provider = ? AND provider_invoice_id = ?", provider, providerInvoiceID).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) UpdateInvoice(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice) error {
	return tx.WithContext(ctx).Save(invoice).Error
}

var invoiceSortColumns = map[string]string{
	"created_at":   "created_at",
	"issued_at":    "issued_at",
	"total":        "total_cents",
	"period_start": "period_start",
}

func (r *repo) ListInvoices(ctx context.Context, tx *gorm.DB, filter domain.ListInvoiceFilter, page pagination.Pagination) ([]domain.Invoice, int64, error) {
	stmt := tx.WithContext(ctx).Model(&domain.Invoice{})
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		stmt = stmt.Where("LOWER(invoice_number) LIKE ? OR LOWER(provider_invoice_id) LIKE ?", like, like)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.ProviderSubscriptionID != "" {
		stmt = stmt.Where("provider_subscription_id = ?", filter.ProviderSubscriptionID)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := invoiceSortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	dir := "desc"
	if strings.EqualFold(filter.SortDir, "asc") {
		dir = "asc"
	}

	var invoices []domain.Invoice
	err := page.Apply(stmt).
		Order(column + " " + dir).
		Order("id desc").
		Find(&invoices).Error
	if err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

func (r *repo) InsertWebhookEvent(ctx context.Context, tx *gorm.DB, event *domain.WebhookEvent) error {
	return tx.WithContext(ctx).Create(event).Error
}

func (r *repo) FindWebhookEventByProviderRef(ctx context.Context, tx *gorm.DB, provider, eventID string) (*domain.WebhookEvent, error) {
	var event domain.WebhookEvent
	err := tx.WithContext(ctx).
		Where("provider = ? AND event_id = ?", provider, eventID).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *repo) UpdateWebhookEvent(ctx context.Context, tx *gorm.DB, event *domain.WebhookEvent) error {
	return tx.WithContext(ctx).Save(event).Error
}

func (r *repo) ListWebhookEvents(ctx context.Context, tx *gorm.DB, filter domain.ListWebhookEventFilter, page pagination.Pagination) ([]domain.WebhookEvent, int64, error) {
	stmt := tx.WithContext(ctx).Model(&domain.WebhookEvent{})
	if filter.EventType != "" {
		stmt = stmt.Where("event_type = ?", filter.EventType)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []domain.WebhookEvent
	err := page.Apply(stmt).
		Order("created_at desc").
		Order("id desc").
		Find(&events).Error
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
