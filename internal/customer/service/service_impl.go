package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/desklyhq/deskly/internal/customer/domain"
	"github.com/desklyhq/deskly/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	role := domain.Role(strings.TrimSpace(req.Role))
	if role != "" && !role.Valid() {
		return domain.ListCustomerResponse{}, domain.ErrInvalidRole
	}

	sortBy := strings.TrimSpace(req.SortBy)
	if sortBy != "" {
		switch sortBy {
		case "name", "email", "joined_at":
		default:
			return domain.ListCustomerResponse{}, domain.ErrInvalidSort
		}
	}

	page := req.Pagination.Normalize()
	customers, total, err := s.repo.List(ctx, s.db, domain.ListCustomerFilter{
		Search:  strings.TrimSpace(req.Search),
		Role:    role,
		SortBy:  sortBy,
		SortDir: strings.ToLower(strings.TrimSpace(req.SortDir)),
	}, page)
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	return domain.ListCustomerResponse{
		PageInfo:  pagination.NewPageInfo(page, total),
		Customers: customers,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Detail, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.Detail{}, err
	}

	customer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Detail{}, err
	}
	if customer == nil {
		return domain.Detail{}, domain.ErrNotFound
	}

	detail := domain.Detail{Customer: *customer}

	// A customer without a profile is an expected state, not an error.
	profile, err := s.repo.FindProfile(ctx, s.db, id)
	switch {
	case err == nil:
		detail.Profile = profile
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return domain.Detail{}, err
	}

	company, err := s.repo.FindCompany(ctx, s.db, id)
	switch {
	case err == nil:
		detail.Company = company
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return domain.Detail{}, err
	}

	return detail, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCustomerRequest) (domain.Customer, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	customer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if customer == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Customer{}, domain.ErrInvalidName
		}
		customer.Name = name
	}
	if req.Role != nil {
		role := domain.Role(strings.TrimSpace(*req.Role))
		if !role.Valid() {
			return domain.Customer{}, domain.ErrInvalidRole
		}
		customer.Role = role
	}
	customer.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, customer); err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) UpdateProfile(ctx context.Context, req domain.UpdateProfileRequest) (domain.Profile, error) {
	id, err := s.parseID(req.CustomerID)
	if err != nil {
		return domain.Profile{}, err
	}

	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return domain.Profile{}, domain.ErrInvalidFullName
	}

	customer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Profile{}, err
	}
	if customer == nil {
		return domain.Profile{}, domain.ErrNotFound
	}

	now := time.Now().UTC()
	profile := domain.Profile{
		ID:         s.genID.Generate(),
		CustomerID: id,
		FullName:   fullName,
		Phone:      strings.TrimSpace(req.Phone),
		JobTitle:   strings.TrimSpace(req.JobTitle),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.UpsertProfile(ctx, s.db, &profile); err != nil {
		return domain.Profile{}, err
	}
	return profile, nil
}

func (s *Service) UpdateCompany(ctx context.Context, req domain.UpdateCompanyRequest) (domain.Company, error) {
	id, err := s.parseID(req.CustomerID)
	if err != nil {
		return domain.Company{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Company{}, domain.ErrInvalidCompany
	}

	customer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Company{}, err
	}
	if customer == nil {
		return domain.Company{}, domain.ErrNotFound
	}

	now := time.Now().UTC()
	company := domain.Company{
		ID:              s.genID.Generate(),
		CustomerID:      id,
		Name:            name,
		RegistrationNo:  strings.TrimSpace(req.RegistrationNo),
		Industry:        strings.TrimSpace(req.Industry),
		TeamSize:        req.TeamSize,
		OfficeAddress:   strings.TrimSpace(req.OfficeAddress),
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.UpsertCompany(ctx, s.db, &company); err != nil {
		return domain.Company{}, err
	}
	return company, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := s.parseID(rawID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.Delete(ctx, tx, id)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrNotFound
		}
		s.log.Info("customer deleted", zap.String("customer_id", id.String()))
		return nil
	})
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
