package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/desklyhq/deskly/internal/deliveryorder/domain"
	subscriptiondomain "github.com/desklyhq/deskly/internal/subscription/domain"
	"github.com/desklyhq/deskly/pkg/db/pagination"
)

type Params struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	GenID            *snowflake.Node
	Repo             domain.Repository
	SubscriptionRepo subscriptiondomain.Repository
}

type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	genID            *snowflake.Node
	repo             domain.Repository
	subscriptionRepo subscriptiondomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:               p.DB,
		log:              p.Log,
		genID:            p.GenID,
		repo:             p.Repo,
		subscriptionRepo: p.SubscriptionRepo,
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func (s *Service) List(ctx context.Context, req domain.ListDeliveryOrderRequest) (*domain.ListDeliveryOrderResponse, error) {
	filter := domain.ListDeliveryOrderFilter{
		Search:  req.Search,
		SortBy:  req.SortBy,
		SortDir: req.SortDir,
	}

	if req.SubscriptionID != "" {
		id, err := parseID(req.SubscriptionID)
		if err != nil {
			return nil, err
		}
		filter.SubscriptionID = id
	}
	if req.CustomerID != "" {
		id, err := parseID(req.CustomerID)
		if err != nil {
			return nil, err
		}
		filter.CustomerID = id
	}

	if req.Status != "" {
		status := domain.Status(req.Status)
		if !status.Valid() {
			return nil, domain.ErrInvalidStatus
		}
		filter.Status = status
	}

	if req.SortBy != "" {
		switch req.SortBy {
		case "created_at", "scheduled_at", "order_number":
		default:
			return nil, domain.ErrInvalidSort
		}
	}

	page := req.Pagination
	page = page.Normalize()

	orders, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return nil, err
	}

	return &domain.ListDeliveryOrderResponse{
		PageInfo:       pagination.NewPageInfo(page, total),
		DeliveryOrders: orders,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (*domain.OrderDetail, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	order, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	items, err := s.repo.FindItems(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}

	return &domain.OrderDetail{DeliveryOrder: *order, Items: items}, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateDeliveryOrderRequest) (*domain.OrderDetail, error) {
	subID, err := snowflake.ParseString(req.SubscriptionID)
	if err != nil {
		return nil, subscriptiondomain.ErrInvalidID
	}

	order := &domain.DeliveryOrder{
		ID:              s.genID.Generate(),
		Status:          domain.StatusConfirmed,
		ScheduledAt:     req.ScheduledAt,
		DeliveryAddress: req.DeliveryAddress,
	}
	order.OrderNumber = "DO-" + order.ID.String()

	var items []domain.Item
	err = s.db.Transaction(func(tx *gorm.DB) error {
		sub, err := s.subscriptionRepo.FindByID(ctx, tx, subID)
		if err != nil {
			return err
		}
		if sub == nil {
			return subscriptiondomain.ErrSubscriptionNotFound
		}

		order.SubscriptionID = sub.ID
		order.CustomerID = sub.CustomerID

		subItems, err := s.subscriptionRepo.FindItems(ctx, tx, sub.ID)
		if err != nil {
			return err
		}
		for _, line := range subItems {
			items = append(items, domain.Item{
				ID:              s.genID.Generate(),
				DeliveryOrderID: order.ID,
				ProductID:       line.ProductID,
				Name:            line.Name,
				Quantity:        line.Quantity,
			})
		}

		if err := s.repo.Insert(ctx, tx, order); err != nil {
			return err
		}
		return s.repo.InsertItems(ctx, tx, items)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("delivery order created",
		zap.String("delivery_order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("subscription_id", order.SubscriptionID.String()),
	)

	return &domain.OrderDetail{DeliveryOrder: *order, Items: items}, nil
}

func (s *Service) Transition(ctx context.Context, req domain.TransitionRequest) (*domain.DeliveryOrder, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	target := domain.Status(req.Status)
	if !target.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	detail := domain.StatusDetail{
		FailureReason:   req.FailureReason,
		RescheduledAt:   req.RescheduledAt,
		CancelledReason: req.CancelledReason,
	}
	narrowed := detail.ForStatus(target)
	if !narrowed.Complete(target) {
		return nil, domain.ErrMissingDetail
	}
	if detail != narrowed {
		return nil, domain.ErrUnexpectedDetail
	}

	var order *domain.DeliveryOrder
	err = s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrOrderNotFound
		}

		if !domain.CanTransition(current.Status, target) {
			return domain.ErrInvalidTransition
		}

		current.SetStatus(target, detail)
		if err := s.repo.Update(ctx, tx, current); err != nil {
			return err
		}
		order = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("delivery order transitioned",
		zap.String("delivery_order_id", order.ID.String()),
		zap.String("do_status", string(order.Status)),
	)

	return order, nil
}
