package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	subscriptiondomain "github.com/desklyhq/deskly/internal/subscription/domain"
	"github.com/desklyhq/deskly/pkg/db/pagination"
)

func (s *Server) ListSubscriptions(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Search        string `form:"search"`
		BillingStatus string `form:"billing_status"`
		CustomerID    string `form:"customer_id"`
		SortBy        string `form:"sort_by"`
		SortDir       string `form:"sort_dir"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.List(c.Request.Context(), subscriptiondomain.ListSubscriptionRequest{
		Pagination:    query.Pagination,
		Search:        strings.TrimSpace(query.Search),
		BillingStatus: strings.TrimSpace(query.BillingStatus),
		CustomerID:    strings.TrimSpace(query.CustomerID),
		SortBy:        strings.TrimSpace(query.SortBy),
		SortDir:       strings.TrimSpace(query.SortDir),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSubscriptionByID(c *gin.Context) {
	resp, err := s.subscriptionSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateSubscription(c *gin.Context) {
	var req subscriptiondomain.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type cancelSubscriptionRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// CancelSubscription dispatches one of the two sanctioned cancel actions.
// The interactive confirmation lives in the console UI; by the time this
// endpoint is hit the action is final.
func (s *Server) CancelSubscription(c *gin.Context) {
	var req cancelSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.Cancel(c.Request.Context(), subscriptiondomain.CancelSubscriptionRequest{
		ID:   c.Param("id"),
		Mode: strings.TrimSpace(req.Mode),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isSubscriptionValidationError(err error) bool {
	switch err {
	case subscriptiondomain.ErrInvalidID,
		subscriptiondomain.ErrInvalidCustomer,
		subscriptiondomain.ErrInvalidItems,
		subscriptiondomain.ErrInvalidQuantity,
		subscriptiondomain.ErrInvalidStatus,
		subscriptiondomain.ErrInvalidSort,
		subscriptiondomain.ErrInvalidCancelMode,
		subscriptiondomain.ErrActionNotAllowed,
		subscriptiondomain.ErrNotProviderBacked:
		return true
	default:
		return false
	}
}
