package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	customerdomain "github.com/desklyhq/deskly/internal/customer/domain"
	"github.com/desklyhq/deskly/pkg/db/pagination"
)

func (s *Server) ListCustomers(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Search  string `form:"search"`
		Role    string `form:"role"`
		SortBy  string `form:"sort_by"`
		SortDir string `form:"sort_dir"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.List(c.Request.Context(), customerdomain.ListCustomerRequest{
		Pagination: query.Pagination,
		Search:     strings.TrimSpace(query.Search),
		Role:       strings.TrimSpace(query.Role),
		SortBy:     strings.TrimSpace(query.SortBy),
		SortDir:    strings.TrimSpace(query.SortDir),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCustomerByID(c *gin.Context) {
	resp, err := s.customerSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateCustomerRequest struct {
	Name *string `json:"name"`
	Role *string `json:"role"`
}

func (s *Server) UpdateCustomer(c *gin.Context) {
	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.Update(c.Request.Context(), customerdomain.UpdateCustomerRequest{
		ID:   c.Param("id"),
		Name: req.Name,
		Role: req.Role,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateProfileRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	JobTitle string `json:"job_title"`
}

func (s *Server) UpdateCustomerProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.UpdateProfile(c.Request.Context(), customerdomain.UpdateProfileRequest{
		CustomerID: c.Param("id"),
		FullName:   strings.TrimSpace(req.FullName),
		Phone:      strings.TrimSpace(req.Phone),
		JobTitle:   strings.TrimSpace(req.JobTitle),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateCompanyRequest struct {
	Name            string `json:"name"`
	RegistrationNo  string `json:"registration_no"`
	Industry        string `json:"industry"`
	TeamSize        int    `json:"team_size"`
	OfficeAddress   string `json:"office_address"`
	DeliveryAddress string `json:"delivery_address"`
}

func (s *Server) UpdateCustomerCompany(c *gin.Context) {
	var req updateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.UpdateCompany(c.Request.Context(), customerdomain.UpdateCompanyRequest{
		CustomerID:      c.Param("id"),
		Name:            strings.TrimSpace(req.Name),
		RegistrationNo:  strings.TrimSpace(req.RegistrationNo),
		Industry:        strings.TrimSpace(req.Industry),
		TeamSize:        req.TeamSize,
		OfficeAddress:   strings.TrimSpace(req.OfficeAddress),
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteCustomer(c *gin.Context) {
	if err := s.customerSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func isCustomerValidationError(err error) bool {
	switch err {
	case customerdomain.ErrInvalidID,
		customerdomain.ErrInvalidName,
		customerdomain.ErrInvalidRole,
		customerdomain.ErrInvalidFullName,
		customerdomain.ErrInvalidCompany,
		customerdomain.ErrInvalidSort:
		return true
	default:
		return false
	}
}
