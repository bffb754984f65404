package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/desklyhq/deskly/internal/product/domain"
	"github.com/desklyhq/deskly/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).First(&product, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).First(&product, "product_code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

var sortColumns = map[string]string{
	"name":          "name",
	"product_code":  "product_code",
	"category":      "category",
	"monthly_price": "monthly_price_cents",
	"stock":         "stock_qty",
	"created_at":    "created_at",
}

// SortColumn maps an exposed sort key to its column, defaulting to created_at.
func SortColumn(key string) (string, bool) {
	if key == "" {
		return "created_at", true
	}
	column, ok := sortColumns[key]
	return column, ok
}

func (r *repo) filtered(ctx context.Context, db *gorm.DB, filter domain.ListProductFilter) *gorm.DB {
	stmt := db.WithContext(ctx).Model(&domain.Product{})
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		stmt = stmt.Where("name LIKE ? OR product_code LIKE ?", pattern, pattern)
	}
	if filter.Category != "" {
		stmt = stmt.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	return stmt
}

func (r *repo) ordered(stmt *gorm.DB, filter domain.ListProductFilter) *gorm.DB {
	column, _ := SortColumn(filter.SortBy)
	direction := "desc"
	if filter.SortDir == "asc" {
		direction = "asc"
	}
	return stmt.Order(column + " " + direction).Order("id desc")
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListProductFilter, page pagination.Pagination) ([]domain.Product, int64, error) {
	stmt := r.filtered(ctx, db, filter)

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []domain.Product
	err := r.ordered(page.Apply(stmt), filter).Find(&products).Error
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB, filter domain.ListProductFilter) ([]domain.Product, error) {
	var products []domain.Product
	err := r.ordered(r.filtered(ctx, db, filter), filter).Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repo) ListByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []domain.Product
	err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Save(product).Error
}
