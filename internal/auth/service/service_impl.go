package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/desklyhq/deskly/internal/auth/domain"
)

const defaultSessionTTL = 12 * time.Hour

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log,
		genID: p.GenID,
	}
}

func newRawToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (s *Service) Issue(ctx context.Context, req domain.IssueRequest) (*domain.IssueResult, error) {
	if strings.TrimSpace(req.Subject) == "" {
		return nil, domain.ErrInvalidSubject
	}
	if !req.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}

	raw, err := newRawToken()
	if err != nil {
		return nil, err
	}

	sess := &domain.Session{
		ID:        s.genID.Generate(),
		TokenHash: domain.HashToken(raw),
		Subject:   req.Subject,
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Role:      req.Role,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return nil, err
	}

	s.log.Info("session issued",
		zap.String("subject", sess.Subject),
		zap.String("role", string(sess.Role)),
		zap.Time("expires_at", sess.ExpiresAt),
	)

	return &domain.IssueResult{
		RawToken:  raw,
		ExpiresAt: sess.ExpiresAt,
		Session:   sess,
	}, nil
}

func (s *Service) Resolve(ctx context.Context, rawToken string) (*domain.Session, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, domain.ErrUnauthorized
	}

	var sess domain.Session
	err := s.db.WithContext(ctx).
		Where("token_hash = ?", domain.HashToken(rawToken)).
		First(&sess).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}

	now := time.Now().UTC()
	if sess.Expired(now) {
		// Expired rows are removed on first sight rather than by a sweeper.
		s.db.WithContext(ctx).Delete(&domain.Session{}, "id = ?", sess.ID)
		return nil, domain.ErrSessionExpired
	}

	sess.LastSeenAt = &now
	s.db.WithContext(ctx).Model(&domain.Session{}).
		Where("id = ?", sess.ID).
		Update("last_seen_at", now)

	return &sess, nil
}

func (s *Service) Revoke(ctx context.Context, rawToken string) error {
	if strings.TrimSpace(rawToken) == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Delete(&domain.Session{}, "token_hash = ?", domain.HashToken(rawToken)).Error
}
