package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/desklyhq/deskly/internal/deliveryorder/domain"
	"github.com/desklyhq/deskly/pkg/db/pagination"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, tx *gorm.DB, order *domain.DeliveryOrder) error {
	return tx.WithContext(ctx).Create(order).Error
}

func (r *repo) InsertItems(ctx context.Context, tx *gorm.DB, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.DeliveryOrder, error) {
	var order domain.DeliveryOrder
	err := tx.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.DeliveryOrder, error) {
	var order domain.DeliveryOrder
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repo) FindItems(ctx context.Context, tx *gorm.DB, orderID snowflake.ID) ([]domain.Item, error) {
	var items []domain.Item
	err := tx.WithContext(ctx).
		Where("delivery_order_id = ?", orderID).
		Order("id asc").
		Find(&items).Error
	return items, err
}

var sortColumns = map[string]string{
	"created_at":   "created_at",
	"scheduled_at": "scheduled_at",
	"order_number": "order_number",
}

func (r *repo) filtered(ctx context.Context, tx *gorm.DB, filter domain.ListDeliveryOrderFilter) *gorm.DB {
	stmt := tx.WithContext(ctx).Model(&domain.DeliveryOrder{})
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		stmt = stmt.Where("LOWER(order_number) LIKE ?", like)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.SubscriptionID != 0 {
		stmt = stmt.Where("subscription_id = ?", filter.SubscriptionID)
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	return stmt
}

func (r *repo) List(ctx context.Context, tx *gorm.DB, filter domain.ListDeliveryOrderFilter, page pagination.Pagination) ([]domain.DeliveryOrder, int64, error) {
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

	var orders []domain.DeliveryOrder
	err := page.Apply(stmt).
		Order(column + " " + dir).
		Order("id desc").
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *repo) Update(ctx context.Context, tx *gorm.DB, order *domain.DeliveryOrder) error {
	return tx.WithContext(ctx).Save(order).Error
}
