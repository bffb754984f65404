// Package domain contains the server-side session record backing the admin
// console gate. Sessions are issued when the identity provider hands a user
// back to Deskly; the console only ever validates them.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/bwmarrin/snowflake"

	customerdomain "github.com/desklyhq/deskly/internal/customer/domain"
)

// HashToken is the stored form of a session token. Raw tokens are never
// persisted.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

type Session struct {
	ID         snowflake.ID        `gorm:"primaryKey" json:"id"`
	TokenHash  string              `gorm:"uniqueIndex;not null" json:"-"`
	Subject    string              `gorm:"not null;index" json:"subject"`
	Email      string              `gorm:"not null" json:"email"`
	Role       customerdomain.Role `gorm:"type:text;not null" json:"role"`
	ExpiresAt  time.Time           `gorm:"not null;index" json:"expires_at"`
	LastSeenAt *time.Time          `gorm:"" json:"last_seen_at,omitempty"`
	CreatedAt  time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Session) TableName() string { return "auth_sessions" }

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

func (s *Session) IsAdmin() bool {
	return s.Role == customerdomain.RoleAdmin
}
