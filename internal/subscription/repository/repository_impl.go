package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/desklyhq/deskly/internal/subscription/domain"
	"github.com/desklyhq/deskly/pkg/db/pagination"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, tx *gorm.DB, sub *domain.Subscription) error {
	return tx.WithContext(ctx).Create(sub).Error
}

func (r *repo) InsertItems(ctx context.Context, tx *gorm.DB, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := tx.WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", id).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repo) FindByProviderRef(ctx context.Context, tx *gorm.DB, providerSubscriptionID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := tx.WithContext(ctx).Where("provider_subscription_id = ?", providerSubscriptionID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repo) FindItems(ctx context.Context, tx *gorm.DB, subscriptionID snowflake.ID) ([]domain.Item, error) {
	var items []domain.Item
	err := tx.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("id asc").
		Find(&items).Error
	return items, err
}

var sortColumns = map[string]string{
	"created_at":    "created_at",
	"start_at":      "start_at",
	"monthly_total": "monthly_total_cents",
}

func (r *repo) filtered(ctx context.Context, tx *gorm.DB, filter domain.ListSubscriptionFilter) *gorm.DB {
	stmt := tx.WithContext(ctx).Model(&domain.Subscription{})
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		stmt = stmt.Where("LOWER(provider_subscription_id) LIKE ?", like)
	}
	if filter.BillingStatus != "" {
		stmt = stmt.Where("billing_status = ?", filter.BillingStatus)
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	return stmt
}

func (r *repo) List(ctx context.Context, tx *gorm.DB, filter domain.ListSubscriptionFilter, page pagination.Pagination) ([]domain.Subscription, int64, error) {
	stmt := r.filtered(ctx, tx, filter)

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	dir := "desc"
	if strings.EqualFold(filter.SortDir, "asc") {
		dir = "asc"
	}

	var subs []domain.Subscription
	err := page.Apply(stmt).
		Order(column + " " + dir).
		Order("id desc").
		Find(&subs).Error
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func (r *repo) Update(ctx context.Context, tx *gorm.DB, sub *domain.Subscription) error {
	return tx.WithContext(ctx).Save(sub).Error
}
