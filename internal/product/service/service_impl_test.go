package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/desklyhq/deskly/internal/product/domain"
	"github.com/desklyhq/deskly/internal/product/repository"
	"github.com/desklyhq/deskly/pkg/db/pagination"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&domain.Product{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	}).(*Service)
	return svc, db
}

func createProduct(t *testing.T, svc *Service, code, name string) domain.Product {
	product, err := svc.Create(context.Background(), domain.CreateProductRequest{
		ProductCode:       code,
		Name:              name,
		Category:          "desk",
		MonthlyPriceCents: 12900,
		StockQty:          4,
	})
	require.NoError(t, err)
	return product
}

func TestCreateStartsAsDraft(t *testing.T) {
	svc, _ := newTestService(t)
	product := createProduct(t, svc, "dsk-001", "Standing Desk")

	assert.Equal(t, domain.StatusDraft, product.Status)
	assert.Equal(t, "DSK-001", product.ProductCode)
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	svc, _ := newTestService(t)
	createProduct(t, svc, "DSK-001", "Standing Desk")

	_, err := svc.Create(context.Background(), domain.CreateProductRequest{
		ProductCode: "DSK-001",
		Name:        "Another Desk",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)
}

// blindRepo never sees existing codes, forcing Create past its pre-check so
// the unique index decides.
type blindRepo struct {
	domain.Repository
}

func (r blindRepo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Product, error) {
	return nil, nil
}

func TestCreateMapsInsertRaceToDuplicateCode(t *testing.T) {
	svc, _ := newTestService(t)
	createProduct(t, svc, "DSK-001", "Standing Desk")

	svc.repo = blindRepo{svc.repo}
	_, err := svc.Create(context.Background(), domain.CreateProductRequest{
		ProductCode: "DSK-001",
		Name:        "Another Desk",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func TestLifecycleTransitions(t *testing.T) {
	svc, _ := newTestService(t)
	product := createProduct(t, svc, "DSK-001", "Standing Desk")

	published, err := svc.Publish(context.Background(), product.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, published.Status)

	// publishing an already active product is rejected
	_, err = svc.Publish(context.Background(), product.ID.String())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	deactivated, err := svc.Deactivate(context.Background(), product.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInactive, deactivated.Status)

	// inactive products can be re-published
	republished, err := svc.Publish(context.Background(), product.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, republished.Status)
}

func TestAdjustStock(t *testing.T) {
	svc, _ := newTestService(t)
	product := createProduct(t, svc, "DSK-001", "Standing Desk")

	delta := 3
	updated, err := svc.AdjustStock(context.Background(), domain.AdjustStockRequest{
		ID:    product.ID.String(),
		Delta: &delta,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.StockQty)

	absolute := 2
	updated, err = svc.AdjustStock(context.Background(), domain.AdjustStockRequest{
		ID:       product.ID.String(),
		Absolute: &absolute,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.StockQty)

	negative := -5
	_, err = svc.AdjustStock(context.Background(), domain.AdjustStockRequest{
		ID:    product.ID.String(),
		Delta: &negative,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStock)

	_, err = svc.AdjustStock(context.Background(), domain.AdjustStockRequest{
		ID: product.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStock)
}

func TestImportCSVCreatesDraftsOnly(t *testing.T) {
	svc, _ := newTestService(t)

	input := strings.Join([]string{
		"product_code,name,category,monthly_price_cents,stock_qty,status",
		"CHR-001,Ergo Chair,chair,8900,10,active",
		"CHR-002,Task Chair,chair,5900,3,inactive",
	}, "\n")

	result, err := svc.ImportCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, result.ImportedCount)

	resp, err := svc.List(context.Background(), domain.ListProductRequest{
		Pagination: pagination.Pagination{Page: 1, Limit: 10},
	})
	require.NoError(t, err)
	require.Len(t, resp.Products, 2)
	for _, p := range resp.Products {
		assert.Equal(t, domain.StatusDraft, p.Status)
	}
}

func TestImportCSVBadRowAbortsWholeFile(t *testing.T) {
	svc, db := newTestService(t)

	input := strings.Join([]string{
		"product_code,name,monthly_price_cents",
		"CHR-001,Ergo Chair,8900",
		"CHR-002,,5900",
	}, "\n")

	_, err := svc.ImportCSV(context.Background(), strings.NewReader(input))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidName)
	assert.Contains(t, err.Error(), "row 3")

	var count int64
	require.NoError(t, db.Model(&domain.Product{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestExportCSVOmitsMediaColumns(t *testing.T) {
	svc, _ := newTestService(t)
	product := createProduct(t, svc, "DSK-001", "Standing Desk")

	_, err := svc.Update(context.Background(), domain.UpdateProductRequest{
		ID:       product.ID.String(),
		ImageURL: strPtr("https://cdn.example.com/desk.png"),
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), domain.ListProductRequest{}, &buf))

	out := buf.String()
	assert.Contains(t, out, "DSK-001")
	assert.NotContains(t, out, "image_url")
	assert.NotContains(t, out, "cdn.example.com")
}

func strPtr(s string) *string { return &s }
