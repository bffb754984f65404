package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	billingdomain "github.com/desklyhq/deskly/internal/billing/domain"
	"github.com/desklyhq/deskly/pkg/db/pagination"
)

// maxWebhookBody caps inbound webhook payloads at 1 MiB.
const maxWebhookBody = 1 << 20

func (s *Server) ListBillingInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Search                 string `form:"search"`
		Status                 string `form:"status"`
		ProviderSubscriptionID string `form:"provider_subscription_id"`
		SortBy                 string `form:"sort_by"`
		SortDir                string `form:"sort_dir"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.billingSvc.ListInvoices(c.Request.Context(), billingdomain.ListInvoiceRequest{
		Pagination:             query.Pagination,
		Search:                 strings.TrimSpace(query.Search),
		Status:                 strings.TrimSpace(query.Status),
		ProviderSubscriptionID: strings.TrimSpace(query.ProviderSubscriptionID),
		SortBy:                 strings.TrimSpace(query.SortBy),
		SortDir:                strings.TrimSpace(query.SortDir),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBillingInvoiceByID(c *gin.Context) {
	resp, err := s.billingSvc.GetInvoiceByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListBillingWebhookEvents(c *gin.Context) {
	var query struct {
		pagination.Pagination
		EventType string `form:"event_type"`
		Status    string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.billingSvc.ListWebhookEvents(c.Request.Context(), billingdomain.ListWebhookEventRequest{
		Pagination: query.Pagination,
		EventType:  strings.TrimSpace(query.EventType),
		Status:     strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) IngestBillingWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	event, err := s.billingSvc.IngestWebhook(c.Request.Context(), billingdomain.IngestWebhookRequest{
		Provider:  c.Param("provider"),
		Body:      body,
		Signature: c.GetHeader("X-Webhook-Signature"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"event_id": event.EventID,
		"status":   event.Status,
	}})
}

func (s *Server) BackfillBillingInvoices(c *gin.Context) {
	var req billingdomain.BackfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.billingSvc.Backfill(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SyncCatalogPrices(c *gin.Context) {
	var req billingdomain.CatalogSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.billingSvc.CatalogSync(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBillingRuntimeConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.billingSvc.RuntimeConfig(c.Request.Context())})
}

func isBillingValidationError(err error) bool {
	switch err {
	case billingdomain.ErrInvalidID,
		billingdomain.ErrInvalidStatus,
		billingdomain.ErrInvalidSort,
		billingdomain.ErrInvalidLimit,
		billingdomain.ErrInvalidCurrency,
		billingdomain.ErrInvalidProductID,
		billingdomain.ErrInvalidPayload:
		return true
	default:
		return false
	}
}
