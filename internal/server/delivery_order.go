package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	deliveryorderdomain "github.com/desklyhq/deskly/internal/deliveryorder/domain"
	"github.com/desklyhq/deskly/pkg/db/pagination"
)

func (s *Server) ListDeliveryOrders(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Search         string `form:"search"`
		Status         string `form:"do_status"`
		SubscriptionID string `form:"subscription_id"`
		CustomerID     string `form:"customer_id"`
		SortBy         string `form:"sort_by"`
		SortDir        string `form:"sort_dir"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.deliveryOrderSvc.List(c.Request.Context(), deliveryorderdomain.ListDeliveryOrderRequest{
		Pagination:     query.Pagination,
		Search:         strings.TrimSpace(query.Search),
		Status:         strings.TrimSpace(query.Status),
		SubscriptionID: strings.TrimSpace(query.SubscriptionID),
		CustomerID:     strings.TrimSpace(query.CustomerID),
		SortBy:         strings.TrimSpace(query.SortBy),
		SortDir:        strings.TrimSpace(query.SortDir),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDeliveryOrderByID(c *gin.Context) {
	resp, err := s.deliveryOrderSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateDeliveryOrder(c *gin.Context) {
	var req deliveryorderdomain.CreateDeliveryOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.deliveryOrderSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// TransitionDeliveryOrder moves an order along the dispatch lifecycle. The
// request must carry exactly the side-field its target status requires.
func (s *Server) TransitionDeliveryOrder(c *gin.Context) {
	var req deliveryorderdomain.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = c.Param("id")

	resp, err := s.deliveryOrderSvc.Transition(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isDeliveryOrderValidationError(err error) bool {
	switch err {
	case deliveryorderdomain.ErrInvalidID,
		deliveryorderdomain.ErrInvalidStatus,
		deliveryorderdomain.ErrInvalidTransition,
		deliveryorderdomain.ErrMissingDetail,
		deliveryorderdomain.ErrUnexpectedDetail,
		deliveryorderdomain.ErrInvalidSort:
		return true
	default:
		return false
	}
}
