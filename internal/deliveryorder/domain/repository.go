package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/desklyhq/deskly/pkg/db/pagination"
)

type Repository interface {
	Insert(ctx context.Context, tx *gorm.DB, order *DeliveryOrder) error
	InsertItems(ctx context.Context, tx *gorm.DB, items []Item) error
	FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*DeliveryOrder, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*DeliveryOrder, error)
	FindItems(ctx context.Context, tx *gorm.DB, orderID snowflake.ID) ([]Item, error)
	List(ctx context.Context, tx *gorm.DB, filter ListDeliveryOrderFilter, page pagination.Pagination) ([]DeliveryOrder, int64, error)
	Update(ctx context.Context, tx *gorm.DB, order *DeliveryOrder) error
}
