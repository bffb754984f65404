package domain

import (
	"context"
	"errors"
	"io"

	"github.com/desklyhq/deskly/pkg/db/pagination"
)

type ListProductRequest struct {
	pagination.Pagination
	Search   string
	Category string
	Status   string
	SortBy   string
	SortDir  string
}

type ListProductFilter struct {
	Search   string
	Category string
	Status   Status
	SortBy   string
	SortDir  string
}

type ListProductResponse struct {
	pagination.PageInfo
	Products []Product `json:"products"`
}

type CreateProductRequest struct {
	ProductCode       string `json:"product_code"`
	Name              string `json:"name"`
	Category          string `json:"category"`
	MonthlyPriceCents int64  `json:"monthly_price_cents"`
	StockQty          int    `json:"stock_qty"`
	ImageURL          string `json:"image_url"`
	VideoURL          string `json:"video_url"`
	Description       string `json:"description"`
}

type UpdateProductRequest struct {
	ID                string
	Name              *string `json:"name"`
	Category          *string `json:"category"`
	MonthlyPriceCents *int64  `json:"monthly_price_cents"`
	ImageURL          *string `json:"image_url"`
	VideoURL          *string `json:"video_url"`
	Description       *string `json:"description"`
}

// AdjustStockRequest carries either a relative delta or an absolute quantity,
// never both.
type AdjustStockRequest struct {
	ID       string
	Delta    *int `json:"delta"`
	Absolute *int `json:"absolute"`
}

type ImportResult struct {
	ImportedCount int `json:"imported_count"`
}

type Service interface {
	List(context.Context, ListProductRequest) (ListProductResponse, error)
	GetByID(ctx context.Context, id string) (Product, error)
	Create(context.Context, CreateProductRequest) (Product, error)
	Update(context.Context, UpdateProductRequest) (Product, error)
	Publish(ctx context.Context, id string) (Product, error)
	Deactivate(ctx context.Context, id string) (Product, error)
	AdjustStock(context.Context, AdjustStockRequest) (Product, error)
	ExportCSV(ctx context.Context, filter ListProductRequest, w io.Writer) error
	ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error)
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidCode       = errors.New("invalid_product_code")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidPrice      = errors.New("invalid_price")
	ErrInvalidStock      = errors.New("invalid_stock")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidSort       = errors.New("invalid_sort")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrInvalidCSV        = errors.New("invalid_csv")
	ErrDuplicateCode     = errors.New("duplicate_product_code")
	ErrNotFound          = errors.New("not_found")
)
