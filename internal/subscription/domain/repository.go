package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/desklyhq/deskly/pkg/db/pagination"
)

type Repository interface {
	Insert(ctx context.Context, tx *gorm.DB, sub *Subscription) error
	InsertItems(ctx context.Context, tx *gorm.DB, items []Item) error
	FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Subscription, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Subscription, error)
	FindByProviderRef(ctx context.Context, tx *gorm.DB, providerSubscriptionID string) (*Subscription, error)
	FindItems(ctx context.Context, tx *gorm.DB, subscriptionID snowflake.ID) ([]Item, error)
	List(ctx context.Context, tx *gorm.DB, filter ListSubscriptionFilter, page pagination.Pagination) ([]Subscription, int64, error)
	Update(ctx context.Context, tx *gorm.DB, sub *Subscription) error
}
