package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	productdomain "github.com/desklyhq/deskly/internal/product/domain"
	"github.com/desklyhq/deskly/pkg/db/pagination"
)

type listProductQuery struct {
	pagination.Pagination
	Search   string `form:"search"`
	Category string `form:"category"`
	Status   string `form:"status"`
	SortBy   string `form:"sort_by"`
	SortDir  string `form:"sort_dir"`
}

func (q listProductQuery) toRequest() productdomain.ListProductRequest {
	return productdomain.ListProductRequest{
		Pagination: q.Pagination,
		Search:     strings.TrimSpace(q.Search),
		Category:   strings.TrimSpace(q.Category),
		Status:     strings.TrimSpace(q.Status),
		SortBy:     strings.TrimSpace(q.SortBy),
		SortDir:    strings.TrimSpace(q.SortDir),
	}
}

func (s *Server) ListProducts(c *gin.Context) {
	var query listProductQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productSvc.List(c.Request.Context(), query.toRequest())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProductByID(c *gin.Context) {
	resp, err := s.productSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req productdomain.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateProduct(c *gin.Context) {
	var req productdomain.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = c.Param("id")

	resp, err := s.productSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PublishProduct(c *gin.Context) {
	resp, err := s.productSvc.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeactivateProduct(c *gin.Context) {
	resp, err := s.productSvc.Deactivate(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AdjustProductStock(c *gin.Context) {
	var req productdomain.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = c.Param("id")

	resp, err := s.productSvc.AdjustStock(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ExportProductsCSV streams the current filter state as a CSV attachment.
func (s *Server) ExportProductsCSV(c *gin.Context) {
	var query listProductQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	filename := fmt.Sprintf("products-%s.csv", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := s.productSvc.ExportCSV(c.Request.Context(), query.toRequest(), c.Writer); err != nil {
		AbortWithError(c, err)
		return
	}
}

func (s *Server) ImportProductsCSV(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "invalid_file", "csv file is required"))
		return
	}
	defer file.Close()

	resp, err := s.productSvc.ImportCSV(c.Request.Context(), file)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// CSV row errors arrive wrapped with the offending row number, so matching
// uses errors.Is rather than direct comparison.
func isProductValidationError(err error) bool {
	for _, sentinel := range []error{
		productdomain.ErrInvalidID,
		productdomain.ErrInvalidCode,
		productdomain.ErrInvalidName,
		productdomain.ErrInvalidPrice,
		productdomain.ErrInvalidStock,
		productdomain.ErrInvalidStatus,
		productdomain.ErrInvalidSort,
		productdomain.ErrInvalidTransition,
		productdomain.ErrInvalidCSV,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
