package domain

import (
	"context"
	"errors"
	"time"

	customerdomain "github.com/desklyhq/deskly/internal/customer/domain"
)

var (
	ErrInvalidRole    = errors.New("invalid_role")
	ErrInvalidSubject = errors.New("invalid_subject")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrSessionExpired = errors.New("session_expired")
)

type IssueRequest struct {
	Subject string
	Email   string
	Role    customerdomain.Role
	TTL     time.Duration
}

// IssueResult carries the raw token exactly once. Only its hash is stored.
type IssueResult struct {
	RawToken  string
	ExpiresAt time.Time
	Session   *Session
}

type Service interface {
	Issue(ctx context.Context, req IssueRequest) (*IssueResult, error)
	Resolve(ctx context.Context, rawToken string) (*Session, error)
	Revoke(ctx context.Context, rawToken string) error
}
