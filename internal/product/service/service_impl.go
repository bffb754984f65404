package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/desklyhq/deskly/internal/product/domain"
	"github.com/desklyhq/deskly/pkg/db"
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
		log:   p.Log.Named("product.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListProductRequest) (domain.ListProductResponse, error) {
	filter, err := s.buildFilter(req)
	if err != nil {
		return domain.ListProductResponse{}, err
	}

	page := req.Pagination.Normalize()
	products, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListProductResponse{}, err
	}

	return domain.ListProductResponse{
		PageInfo: pagination.NewPageInfo(page, total),
		Products: products,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Product, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.Product{}, err
	}

	product, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Product{}, err
	}
	if product == nil {
		return domain.Product{}, domain.ErrNotFound
	}
	return *product, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateProductRequest) (domain.Product, error) {
	code := strings.ToUpper(strings.TrimSpace(req.ProductCode))
	if code == "" {
		return domain.Product{}, domain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, domain.ErrInvalidName
	}
	if req.MonthlyPriceCents < 0 {
		return domain.Product{}, domain.ErrInvalidPrice
	}
	if req.StockQty < 0 {
		return domain.Product{}, domain.ErrInvalidStock
	}

	existing, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return domain.Product{}, err
	}
	if existing != nil {
		return domain.Product{}, domain.ErrDuplicateCode
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:                s.genID.Generate(),
		ProductCode:       code,
		Name:              name,
		Category:          strings.TrimSpace(req.Category),
		MonthlyPriceCents: req.MonthlyPriceCents,
		StockQty:          req.StockQty,
		Status:            domain.StatusDraft,
		ImageURL:          strings.TrimSpace(req.ImageURL),
		VideoURL:          strings.TrimSpace(req.VideoURL),
		Description:       strings.TrimSpace(req.Description),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Insert(ctx, s.db, &product); err != nil {
		// The pre-check above races with concurrent creates; the unique
		// index on product_code is the arbiter.
		if db.IsDuplicateKeyErr(err) {
			return domain.Product{}, domain.ErrDuplicateCode
		}
		return domain.Product{}, err
	}
	return product, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateProductRequest) (domain.Product, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Product{}, err
	}

	product, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Product{}, err
	}
	if product == nil {
		return domain.Product{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, domain.ErrInvalidName
		}
		product.Name = name
	}
	if req.Category != nil {
		product.Category = strings.TrimSpace(*req.Category)
	}
	if req.MonthlyPriceCents != nil {
		if *req.MonthlyPriceCents < 0 {
			return domain.Product{}, domain.ErrInvalidPrice
		}
		product.MonthlyPriceCents = *req.MonthlyPriceCents
	}
	if req.ImageURL != nil {
		product.ImageURL = strings.TrimSpace(*req.ImageURL)
	}
	if req.VideoURL != nil {
		product.VideoURL = strings.TrimSpace(*req.VideoURL)
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	product.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, product); err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) Publish(ctx context.Context, rawID string) (domain.Product, error) {
	return s.transition(ctx, rawID, domain.StatusActive)
}

func (s *Service) Deactivate(ctx context.Context, rawID string) (domain.Product, error) {
	return s.transition(ctx, rawID, domain.StatusInactive)
}

func (s *Service) transition(ctx context.Context, rawID string, target domain.Status) (domain.Product, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.Product{}, err
	}

	var updated domain.Product
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrNotFound
		}

		if !catalogTransitionAllowed(product.Status, target) {
			return domain.ErrInvalidTransition
		}

		product.Status = target
		product.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, tx, product); err != nil {
			return err
		}
		updated = *product
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.log.Info("product status changed",
		zap.String("product_id", updated.ID.String()),
		zap.String("status", string(updated.Status)),
	)
	return updated, nil
}

// catalogTransitionAllowed guards publish/deactivate: a product cannot return
// to draft, and the two actions are no-ops only through their own endpoints.
func catalogTransitionAllowed(from, to domain.Status) bool {
	switch to {
	case domain.StatusActive:
		return from == domain.StatusDraft || from == domain.StatusInactive
	case domain.StatusInactive:
		return from == domain.StatusDraft || from == domain.StatusActive
	default:
		return false
	}
}

func (s *Service) AdjustStock(ctx context.Context, req domain.AdjustStockRequest) (domain.Product, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Product{}, err
	}
	if (req.Delta == nil) == (req.Absolute == nil) {
		return domain.Product{}, domain.ErrInvalidStock
	}

	var updated domain.Product
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrNotFound
		}

		next := product.StockQty
		if req.Delta != nil {
			next += *req.Delta
		} else {
			next = *req.Absolute
		}
		if next < 0 {
			return domain.ErrInvalidStock
		}

		product.StockQty = next
		product.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, tx, product); err != nil {
			return err
		}
		updated = *product
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return updated, nil
}

// csvHeader is the import/export column set. Media URLs are deliberately
// excluded from exports.
var csvHeader = []string{"product_code", "name", "category", "monthly_price_cents", "stock_qty", "status", "description"}

func (s *Service) ExportCSV(ctx context.Context, req domain.ListProductRequest, w io.Writer) error {
	filter, err := s.buildFilter(req)
	if err != nil {
		return err
	}

	products, err := s.repo.ListAll(ctx, s.db, filter)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range products {
		record := []string{
			p.ProductCode,
			p.Name,
			p.Category,
			strconv.FormatInt(p.MonthlyPriceCents, 10),
			strconv.Itoa(p.StockQty),
			string(p.Status),
			p.Description,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (domain.ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return domain.ImportResult{}, domain.ErrInvalidCSV
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"product_code", "name"} {
		if _, ok := columns[required]; !ok {
			return domain.ImportResult{}, fmt.Errorf("%w: missing %s column", domain.ErrInvalidCSV, required)
		}
	}

	var rows []domain.CreateProductRequest
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.ImportResult{}, fmt.Errorf("%w: row %d", domain.ErrInvalidCSV, line)
		}

		row, err := parseCSVRow(columns, record)
		if err != nil {
			return domain.ImportResult{}, fmt.Errorf("%w: row %d", err, line)
		}
		rows = append(rows, row)
	}

	// Imported rows are always created as drafts, whatever the file says.
	imported := 0
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for _, row := range rows {
			existing, err := s.repo.FindByCode(ctx, tx, row.ProductCode)
			if err != nil {
				return err
			}
			if existing != nil {
				return domain.ErrDuplicateCode
			}

			product := domain.Product{
				ID:                s.genID.Generate(),
				ProductCode:       row.ProductCode,
				Name:              row.Name,
				Category:          row.Category,
				MonthlyPriceCents: row.MonthlyPriceCents,
				StockQty:          row.StockQty,
				Status:            domain.StatusDraft,
				Description:       row.Description,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if err := s.repo.Insert(ctx, tx, &product); err != nil {
				if db.IsDuplicateKeyErr(err) {
					return domain.ErrDuplicateCode
				}
				return err
			}
			imported++
		}
		return nil
	})
	if err != nil {
		return domain.ImportResult{}, err
	}

	s.log.Info("catalog import", zap.Int("imported_count", imported))
	return domain.ImportResult{ImportedCount: imported}, nil
}

func parseCSVRow(columns map[string]int, record []string) (domain.CreateProductRequest, error) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	code := strings.ToUpper(field("product_code"))
	if code == "" {
		return domain.CreateProductRequest{}, domain.ErrInvalidCode
	}
	name := field("name")
	if name == "" {
		return domain.CreateProductRequest{}, domain.ErrInvalidName
	}

	var price int64
	if raw := field("monthly_price_cents"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			return domain.CreateProductRequest{}, domain.ErrInvalidPrice
		}
		price = parsed
	}

	var stock int
	if raw := field("stock_qty"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return domain.CreateProductRequest{}, domain.ErrInvalidStock
		}
		stock = parsed
	}

	return domain.CreateProductRequest{
		ProductCode:       code,
		Name:              name,
		Category:          field("category"),
		MonthlyPriceCents: price,
		StockQty:          stock,
		Description:       field("description"),
	}, nil
}

func (s *Service) buildFilter(req domain.ListProductRequest) (domain.ListProductFilter, error) {
	status := domain.Status(strings.TrimSpace(req.Status))
	if status != "" && !status.Valid() {
		return domain.ListProductFilter{}, domain.ErrInvalidStatus
	}

	sortBy := strings.TrimSpace(req.SortBy)
	if sortBy != "" {
		switch sortBy {
		case "name", "product_code", "category", "monthly_price", "stock", "created_at":
		default:
			return domain.ListProductFilter{}, domain.ErrInvalidSort
		}
	}

	return domain.ListProductFilter{
		Search:   strings.TrimSpace(req.Search),
		Category: strings.TrimSpace(req.Category),
		Status:   status,
		SortBy:   sortBy,
		SortDir:  strings.ToLower(strings.TrimSpace(req.SortDir)),
	}, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
