package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/desklyhq/deskly/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	FindProfile(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*Profile, error)
	FindCompany(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*Company, error)
	List(ctx context.Context, db *gorm.DB, filter ListCustomerFilter, page pagination.Pagination) ([]Customer, int64, error)
	Update(ctx context.Context, db *gorm.DB, customer *Customer) error
	UpsertProfile(ctx context.Context, db *gorm.DB, profile *Profile) error
	UpsertCompany(ctx context.Context, db *gorm.DB, company *Company) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
}
