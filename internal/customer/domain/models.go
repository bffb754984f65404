// Package domain contains persistence models for customers.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Role is the access level carried on the customer account.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCustomer:
		return true
	default:
		return false
	}
}

type Customer struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name      string            `gorm:"not null" json:"name"`
	Email     string            `gorm:"not null;uniqueIndex" json:"email"`
	Role      Role              `gorm:"type:text;not null;default:'customer'" json:"role"`
	JoinedAt  time.Time         `gorm:"not null" json:"joined_at"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }

// Profile is the zero-or-one personal record behind a customer.
type Profile struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	CustomerID snowflake.ID `gorm:"not null;uniqueIndex" json:"customer_id"`
	FullName   string       `gorm:"not null" json:"full_name"`
	Phone      string       `gorm:"type:text" json:"phone,omitempty"`
	JobTitle   string       `gorm:"type:text" json:"job_title,omitempty"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Profile) TableName() string { return "customer_profiles" }

// Company is the zero-or-one business record behind a customer.
type Company struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	CustomerID      snowflake.ID `gorm:"not null;uniqueIndex" json:"customer_id"`
	Name            string       `gorm:"not null" json:"name"`
	RegistrationNo  string       `gorm:"type:text" json:"registration_no,omitempty"`
	Industry        string       `gorm:"type:text" json:"industry,omitempty"`
	TeamSize        int          `gorm:"not null;default:0" json:"team_size"`
	OfficeAddress   string       `gorm:"type:text" json:"office_address,omitempty"`
	DeliveryAddress string       `gorm:"type:text" json:"delivery_address,omitempty"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Company) TableName() string { return "customer_companies" }
