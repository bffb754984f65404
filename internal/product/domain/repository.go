package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/desklyhq/deskly/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Product, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Product, error)
	List(ctx context.Context, db *gorm.DB, filter ListProductFilter, page pagination.Pagination) ([]Product, int64, error)
	ListAll(ctx context.Context, db *gorm.DB, filter ListProductFilter) ([]Product, error)
	ListByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Product, error)
	Update(ctx context.Context, db *gorm.DB, product *Product) error
}
