package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	authdomain "github.com/desklyhq/deskly/internal/auth/domain"
	billingdomain "github.com/desklyhq/deskly/internal/billing/domain"
	"github.com/desklyhq/deskly/internal/config"
	customerdomain "github.com/desklyhq/deskly/internal/customer/domain"
	deliveryorderdomain "github.com/desklyhq/deskly/internal/deliveryorder/domain"
	productdomain "github.com/desklyhq/deskly/internal/product/domain"
	"github.com/desklyhq/deskly/internal/seed"
	subscriptiondomain "github.com/desklyhq/deskly/internal/subscription/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Versioned migrations target postgres. The sqlite and mysql
			// dialects are for local development, where the schema is
			// derived from the models directly.
			if err := autoMigrate(conn); err != nil {
				return err
			}
		}

		if cfg.BootstrapAdminEmail != "" {
			if err := seed.EnsureAdmin(conn, cfg.BootstrapAdminEmail, cfg.BootstrapAdminToken); err != nil {
				return err
			}
		}
		if cfg.SeedDemoData {
			return seed.EnsureDemoCatalog(conn)
		}
		return nil
	}),
)

func autoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&customerdomain.Customer{},
		&customerdomain.Profile{},
		&customerdomain.Company{},
		&productdomain.Product{},
		&subscriptiondomain.Subscription{},
		&subscriptiondomain.Item{},
		&deliveryorderdomain.DeliveryOrder{},
		&deliveryorderdomain.Item{},
		&billingdomain.Invoice{},
		&billingdomain.WebhookEvent{},
		&authdomain.Session{},
	)
}
