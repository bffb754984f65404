package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/desklyhq/deskly/internal/customer/domain"
	"github.com/desklyhq/deskly/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Create(customer).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).First(&customer, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

func (r *repo) FindProfile(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*domain.Profile, error) {
	var profile domain.Profile
	err := db.WithContext(ctx).First(&profile, "customer_id = ?", customerID).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repo) FindCompany(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*domain.Company, error) {
	var company domain.Company
	err := db.WithContext(ctx).First(&company, "customer_id = ?", customerID).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

var sortColumns = map[string]string{
	"name":      "name",
	"email":     "email",
	"joined_at": "joined_at",
}

// SortColumn maps an exposed sort key to its column, defaulting to joined_at.
func SortColumn(key string) (string, bool) {
	if key == "" {
		return "joined_at", true
	}
	column, ok := sortColumns[key]
	return column, ok
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListCustomerFilter, page pagination.Pagination) ([]domain.Customer, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Customer{})
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		stmt = stmt.Where("name LIKE ? OR email LIKE ?", pattern, pattern)
	}
	if filter.Role != "" {
		stmt = stmt.Where("role = ?", filter.Role)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, _ := SortColumn(filter.SortBy)
	direction := "desc"
	if filter.SortDir == "asc" {
		direction = "asc"
	}

	var customers []domain.Customer
	err := page.Apply(stmt).
		Order(column + " " + direction).
		Order("id desc").
		Find(&customers).Error
	if err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Save(customer).Error
}

func (r *repo) UpsertProfile(ctx context.Context, db *gorm.DB, profile *domain.Profile) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"full_name", "phone", "job_title", "updated_at"}),
		}).
		Create(profile).Error
}

func (r *repo) UpsertCompany(ctx context.Context, db *gorm.DB, company *domain.Company) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "registration_no", "industry", "team_size", "office_address", "delivery_address", "updated_at"}),
		}).
		Create(company).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).
		Where("customer_id = ?", id).
		Delete(&domain.Profile{})
	if res.Error != nil {
		return 0, res.Error
	}
	res = db.WithContext(ctx).
		Where("customer_id = ?", id).
		Delete(&domain.Company{})
	if res.Error != nil {
		return 0, res.Error
	}
	res = db.WithContext(ctx).Delete(&domain.Customer{}, "id = ?", id)
	return res.RowsAffected, res.Error
}
