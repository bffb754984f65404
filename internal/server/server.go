// Package server wires the admin console HTTP surface: gin engine, route
// groups, error mapping, and the auth gate in front of /admin.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/desklyhq/deskly/internal/auth"
	authdomain "github.com/desklyhq/deskly/internal/auth/domain"
	"github.com/desklyhq/deskly/internal/auth/session"
	"github.com/desklyhq/deskly/internal/billing"
	billingdomain "github.com/desklyhq/deskly/internal/billing/domain"
	"github.com/desklyhq/deskly/internal/config"
	"github.com/desklyhq/deskly/internal/customer"
	customerdomain "github.com/desklyhq/deskly/internal/customer/domain"
	"github.com/desklyhq/deskly/internal/deliveryorder"
	deliveryorderdomain "github.com/desklyhq/deskly/internal/deliveryorder/domain"
	"github.com/desklyhq/deskly/internal/media"
	"github.com/desklyhq/deskly/internal/observability"
	"github.com/desklyhq/deskly/internal/observability/logger"
	obsmetrics "github.com/desklyhq/deskly/internal/observability/metrics"
	"github.com/desklyhq/deskly/internal/product"
	productdomain "github.com/desklyhq/deskly/internal/product/domain"
	"github.com/desklyhq/deskly/internal/providers/payment"
	"github.com/desklyhq/deskly/internal/subscription"
	subscriptiondomain "github.com/desklyhq/deskly/internal/subscription/domain"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	auth.Module,
	customer.Module,
	product.Module,
	subscription.Module,
	deliveryorder.Module,
	billing.Module,
	media.Module,
	payment.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(base *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(base, logger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

// Media upload throttling per client IP.
const (
	uploadRatePerSecond = 2
	uploadBurst         = 5
)

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	genID  *snowflake.Node

	sessions *session.Manager
	authSvc  authdomain.Service

	customerSvc      customerdomain.Service
	productSvc       productdomain.Service
	subscriptionSvc  subscriptiondomain.Service
	deliveryOrderSvc deliveryorderdomain.Service
	billingSvc       billingdomain.Service
	mediaSvc         *media.Service
	uploadLimiter    *media.UploadLimiter
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	DB    *gorm.DB
	GenID *snowflake.Node

	Sessions *session.Manager
	AuthSvc  authdomain.Service

	CustomerSvc      customerdomain.Service
	ProductSvc       productdomain.Service
	SubscriptionSvc  subscriptiondomain.Service
	DeliveryOrderSvc deliveryorderdomain.Service
	BillingSvc       billingdomain.Service
	MediaSvc         *media.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:           p.Gin,
		cfg:              p.Cfg,
		db:               p.DB,
		genID:            p.GenID,
		sessions:         p.Sessions,
		authSvc:          p.AuthSvc,
		customerSvc:      p.CustomerSvc,
		productSvc:       p.ProductSvc,
		subscriptionSvc:  p.SubscriptionSvc,
		deliveryOrderSvc: p.DeliveryOrderSvc,
		billingSvc:       p.BillingSvc,
		mediaSvc:         p.MediaSvc,
		uploadLimiter:    media.NewUploadLimiter(uploadRatePerSecond, uploadBurst),
	}

	s.registerAuthRoutes()
	s.registerWebhookRoutes()
	s.registerAdminRoutes()
	s.registerMediaRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	authGroup := s.engine.Group("/auth")

	authGroup.POST("/logout", s.Logout)
	authGroup.GET("/me", s.Me)
}

func (s *Server) registerWebhookRoutes() {
	// Provider webhooks authenticate by signature, not session.
	s.engine.POST("/api/billing/webhooks/:provider", s.IngestBillingWebhook)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.AdminRequired())

	// -------- Customers --------
	admin.GET("/customers", s.ListCustomers)
	admin.GET("/customers/:id", s.GetCustomerByID)
	admin.PATCH("/customers/:id", s.UpdateCustomer)
	admin.PUT("/customers/:id/profile", s.UpdateCustomerProfile)
	admin.PUT("/customers/:id/company", s.UpdateCustomerCompany)
	admin.DELETE("/customers/:id", s.DeleteCustomer)

	// -------- Products --------
	admin.GET("/products", s.ListProducts)
	admin.POST("/products", s.CreateProduct)
	admin.GET("/products/:id", s.GetProductByID)
	admin.PATCH("/products/:id", s.UpdateProduct)
	admin.POST("/products/:id/publish", s.PublishProduct)
	admin.POST("/products/:id/deactivate", s.DeactivateProduct)
	admin.POST("/products/:id/stock", s.AdjustProductStock)
	admin.GET("/products/export", s.ExportProductsCSV)
	admin.POST("/products/import", s.ImportProductsCSV)

	// -------- Subscriptions --------
	admin.GET("/subscriptions", s.ListSubscriptions)
	admin.POST("/subscriptions", s.CreateSubscription)
	admin.GET("/subscriptions/:id", s.GetSubscriptionByID)
	admin.POST("/subscriptions/:id/cancel", s.CancelSubscription)

	// -------- Delivery orders --------
	admin.GET("/delivery-orders", s.ListDeliveryOrders)
	admin.POST("/delivery-orders", s.CreateDeliveryOrder)
	admin.GET("/delivery-orders/:id", s.GetDeliveryOrderByID)
	admin.POST("/delivery-orders/:id/transition", s.TransitionDeliveryOrder)

	// -------- Billing --------
	admin.GET("/billing/invoices", s.ListBillingInvoices)
	admin.GET("/billing/invoices/:id", s.GetBillingInvoiceByID)
	admin.GET("/billing/webhook-events", s.ListBillingWebhookEvents)
	admin.POST("/billing/invoices/backfill", s.BackfillBillingInvoices)
	admin.POST("/billing/catalog-sync", s.SyncCatalogPrices)
	admin.GET("/billing/config", s.GetBillingRuntimeConfig)
}

func (s *Server) registerMediaRoutes() {
	s.engine.POST("/admin/media", s.AdminRequired(), s.uploadLimiter.Middleware(), s.UploadMedia)
	s.engine.Static("/media", s.mediaSvc.Dir())
}
