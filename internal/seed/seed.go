// Package seed provisions bootstrap records so a fresh install is usable
// without manual database edits.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	authdomain "github.com/desklyhq/deskly/internal/auth/domain"
	customerdomain "github.com/desklyhq/deskly/internal/customer/domain"
	productdomain "github.com/desklyhq/deskly/internal/product/domain"
)

const (
	defaultAdminName    = "Deskly Admin"
	bootstrapSessionTTL = 30 * 24 * time.Hour
)

// EnsureAdmin seeds the admin account used to reach the console before an
// identity provider is connected. When rawToken is non-empty a long-lived
// session is provisioned for it so local setups can log in with a known
// cookie value.
func EnsureAdmin(db *gorm.DB, email, rawToken string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		admin, err := ensureAdminCustomerTx(tx, node, email)
		if err != nil {
			return err
		}
		if rawToken == "" {
			return nil
		}
		return ensureAdminSessionTx(tx, node, admin, rawToken)
	})
}

func ensureAdminCustomerTx(tx *gorm.DB, node *snowflake.Node, email string) (*customerdomain.Customer, error) {
	var existing customerdomain.Customer
	err := tx.Where("email = ?", email).First(&existing).Error
	if err == nil {
		if existing.Role != customerdomain.RoleAdmin {
			existing.Role = customerdomain.RoleAdmin
			if err := tx.Save(&existing).Error; err != nil {
				return nil, err
			}
		}
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	admin := customerdomain.Customer{
		ID:       node.Generate(),
		Name:     defaultAdminName,
		Email:    email,
		Role:     customerdomain.RoleAdmin,
		JoinedAt: now,
	}
	if err := tx.Create(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

func ensureAdminSessionTx(tx *gorm.DB, node *snowflake.Node, admin *customerdomain.Customer, rawToken string) error {
	hash := authdomain.HashToken(rawToken)

	var existing authdomain.Session
	err := tx.Where("token_hash = ?", hash).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	session := authdomain.Session{
		ID:        node.Generate(),
		TokenHash: hash,
		Subject:   admin.ID.String(),
		Email:     admin.Email,
		Role:      customerdomain.RoleAdmin,
		ExpiresAt: time.Now().UTC().Add(bootstrapSessionTTL),
	}
	return tx.Create(&session).Error
}

// EnsureDemoCatalog seeds a small rental catalog for demo environments.
// Existing product codes are left untouched.
func EnsureDemoCatalog(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	demo := []productdomain.Product{
		{ProductCode: "DESK-STD", Name: "Standing Desk", Category: "desks", MonthlyPriceCents: 12000, StockQty: 25, Status: productdomain.StatusActive},
		{ProductCode: "CHAIR-ERGO", Name: "Ergonomic Chair", Category: "chairs", MonthlyPriceCents: 8500, StockQty: 40, Status: productdomain.StatusActive},
		{ProductCode: "MON-27", Name: "27in Monitor", Category: "monitors", MonthlyPriceCents: 4500, StockQty: 60, Status: productdomain.StatusActive},
		{ProductCode: "LAPTOP-14", Name: "14in Laptop", Category: "laptops", MonthlyPriceCents: 22000, StockQty: 15, Status: productdomain.StatusDraft},
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range demo {
			var count int64
			if err := tx.Model(&productdomain.Product{}).
				Where("product_code = ?", p.ProductCode).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			p.ID = node.Generate()
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
