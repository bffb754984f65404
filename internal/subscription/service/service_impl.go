package service

import (
	"context"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/desklyhq/deskly/internal/config"
	productdomain "github.com/desklyhq/deskly/internal/product/domain"
	"github.com/desklyhq/deskly/internal/providers/payment"
	"github.com/desklyhq/deskly/internal/subscription/domain"
	"github.com/desklyhq/deskly/pkg/db/pagination"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	ProductRepo productdomain.Repository
	Provider    payment.Provider
	Billing     *config.BillingConfigHolder
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	productRepo productdomain.Repository
	provider    payment.Provider
	billing     *config.BillingConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log,
		genID:       p.GenID,
		repo:        p.Repo,
		productRepo: p.ProductRepo,
		provider:    p.Provider,
		billing:     p.Billing,
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func (s *Service) List(ctx context.Context, req domain.ListSubscriptionRequest) (*domain.ListSubscriptionResponse, error) {
	filter := domain.ListSubscriptionFilter{
		Search:  req.Search,
		SortBy:  req.SortBy,
		SortDir: req.SortDir,
	}

	if req.CustomerID != "" {
		id, err := parseID(req.CustomerID)
		if err != nil {
			return nil, err
		}
		filter.CustomerID = id
	}

	if req.BillingStatus != "" {
		status := domain.BillingStatus(req.BillingStatus)
		if !status.Valid() {
			return nil, domain.ErrInvalidStatus
		}
		filter.BillingStatus = status
	}

	if req.SortBy != "" {
		switch req.SortBy {
		case "created_at", "start_at", "monthly_total":
		default:
			return nil, domain.ErrInvalidSort
		}
	}

	page := req.Pagination
	page = page.Normalize()

	subs, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return nil, err
	}

	return &domain.ListSubscriptionResponse{
		PageInfo:      pagination.NewPageInfo(page, total),
		Subscriptions: subs,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (*domain.Detail, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	sub, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrSubscriptionNotFound
	}

	items, err := s.repo.FindItems(ctx, s.db, sub.ID)
	if err != nil {
		return nil, err
	}

	return &domain.Detail{Subscription: *sub, Items: items}, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateSubscriptionRequest) (*domain.Detail, error) {
	customerID, err := snowflake.ParseString(req.CustomerID)
	if err != nil {
		return nil, domain.ErrInvalidCustomer
	}
	if len(req.Items) == 0 {
		return nil, domain.ErrInvalidItems
	}

	startAt := time.Now().UTC()
	if req.StartAt != nil {
		startAt = req.StartAt.UTC()
	}

	sub := &domain.Subscription{
		ID:            s.genID.Generate(),
		CustomerID:    customerID,
		BillingStatus: domain.BillingStatusPendingPayment,
		StartAt:       startAt,
		Provider:      s.billing.Get().Provider,
	}

	var items []domain.Item
	var subtotal int64

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, line := range req.Items {
			productID, err := snowflake.ParseString(line.ProductID)
			if err != nil {
				return domain.ErrInvalidItems
			}
			qty := line.Quantity
			if qty == 0 {
				qty = 1
			}
			if qty < 1 {
				return domain.ErrInvalidQuantity
			}

			product, err := s.productRepo.FindByID(ctx, tx, productID)
			if err != nil {
				return err
			}
			if product == nil || product.Status != productdomain.StatusActive {
				return domain.ErrInvalidItems
			}

			items = append(items, domain.Item{
				ID:               s.genID.Generate(),
				SubscriptionID:   sub.ID,
				ProductID:        product.ID,
				Name:             product.Name,
				Category:         product.Category,
				Quantity:         qty,
				UnitMonthlyCents: product.MonthlyPriceCents,
			})
			subtotal += product.MonthlyPriceCents * int64(qty)
		}

		cfg := s.billing.Get()
		sub.SubtotalCents = subtotal
		sub.TaxCents = int64(math.Round(float64(subtotal) * cfg.SSTTaxRate))
		sub.MonthlyTotalCents = sub.SubtotalCents + sub.TaxCents

		if err := s.repo.Insert(ctx, tx, sub); err != nil {
			return err
		}
		return s.repo.InsertItems(ctx, tx, items)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription created",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("customer_id", customerID.String()),
		zap.Int64("monthly_total_cents", sub.MonthlyTotalCents),
	)

	return &domain.Detail{Subscription: *sub, Items: items}, nil
}

// cancellable reports whether a billing status permits either cancel action.
// Terminal and pre-activation states never offer them.
func cancellable(status domain.BillingStatus) bool {
	return status == domain.BillingStatusActive || status == domain.BillingStatusPaymentFailed
}

func (s *Service) Cancel(ctx context.Context, req domain.CancelSubscriptionRequest) (*domain.Subscription, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	mode := payment.CancelMode(req.Mode)
	if !mode.Valid() {
		return nil, domain.ErrInvalidCancelMode
	}

	sub, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrSubscriptionNotFound
	}
	if !cancellable(sub.BillingStatus) {
		return nil, domain.ErrActionNotAllowed
	}
	if sub.ProviderSubscriptionID == "" {
		return nil, domain.ErrNotProviderBacked
	}

	// Provider first. The local row is a mirror and only moves once the
	// provider has accepted the cancellation.
	result, err := s.provider.CancelSubscription(ctx, sub.ProviderSubscriptionID, mode)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrSubscriptionNotFound
		}

		switch mode {
		case payment.CancelModeNow:
			now := time.Now().UTC()
			cancelledAt := now
			if result.CanceledAt != nil {
				cancelledAt = result.CanceledAt.UTC()
			}
			current.BillingStatus = domain.BillingStatusCancelled
			current.CancelledAt = &cancelledAt
			current.EndAt = &cancelledAt
		case payment.CancelModeAtPeriodEnd:
			current.CancelAtPeriodEnd = true
		}

		if err := s.repo.Update(ctx, tx, current); err != nil {
			return err
		}
		sub = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription cancel requested",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("mode", string(mode)),
		zap.String("billing_status", string(sub.BillingStatus)),
	)

	return sub, nil
}

func (s *Service) ApplyProviderStatus(ctx context.Context, req domain.ApplyProviderStatusRequest) (*domain.Subscription, error) {
	if !req.BillingStatus.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	var sub *domain.Subscription
	err := s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByProviderRef(ctx, tx, req.ProviderSubscriptionID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrSubscriptionNotFound
		}

		current.BillingStatus = req.BillingStatus
		if req.BillingStatus == domain.BillingStatusCancelled {
			cancelledAt := time.Now().UTC()
			if req.CancelledAt != nil {
				cancelledAt = req.CancelledAt.UTC()
			}
			current.CancelledAt = &cancelledAt
			if current.EndAt == nil {
				current.EndAt = &cancelledAt
			}
		}

		if err := s.repo.Update(ctx, tx, current); err != nil {
			return err
		}
		sub = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sub, nil
}
