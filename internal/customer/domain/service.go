package domain

import (
	"context"
	"errors"

	"github.com/desklyhq/deskly/pkg/db/pagination"
)

type ListCustomerRequest struct {
	pagination.Pagination
	Search  string
	Role    string
	SortBy  string
	SortDir string
}

type ListCustomerFilter struct {
	Search  string
	Role    Role
	SortBy  string
	SortDir string
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

// Detail is a customer with its optional profile and company records. Either
// pointer may be nil; that is "no record yet", not an error.
type Detail struct {
	Customer Customer `json:"customer"`
	Profile  *Profile `json:"profile"`
	Company  *Company `json:"company"`
}

type UpdateCustomerRequest struct {
	ID   string
	Name *string
	Role *string
}

type UpdateProfileRequest struct {
	CustomerID string
	FullName   string
	Phone      string
	JobTitle   string
}

type UpdateCompanyRequest struct {
	CustomerID      string
	Name            string
	RegistrationNo  string
	Industry        string
	TeamSize        int
	OfficeAddress   string
	DeliveryAddress string
}

type Service interface {
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(ctx context.Context, id string) (Detail, error)
	Update(context.Context, UpdateCustomerRequest) (Customer, error)
	UpdateProfile(context.Context, UpdateProfileRequest) (Profile, error)
	UpdateCompany(context.Context, UpdateCompanyRequest) (Company, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidRole     = errors.New("invalid_role")
	ErrInvalidFullName = errors.New("invalid_full_name")
	ErrInvalidCompany  = errors.New("invalid_company")
	ErrInvalidSort     = errors.New("invalid_sort")
	ErrNotFound        = errors.New("not_found")
)
