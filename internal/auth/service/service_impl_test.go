package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/desklyhq/deskly/internal/auth/domain"
	customerdomain "github.com/desklyhq/deskly/internal/customer/domain"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Session{}))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	return &Service{db: db, log: zap.NewNop(), genID: node}
}

func TestIssueAndResolveRoundTrip(t *testing.T) {
	svc := newTestService(t)

	issued, err := svc.Issue(context.Background(), domain.IssueRequest{
		Subject: "usr_123",
		Email:   "Admin@Deskly.MY",
		Role:    customerdomain.RoleAdmin,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, issued.RawToken)
	assert.Equal(t, "admin@deskly.my", issued.Session.Email)

	sess, err := svc.Resolve(context.Background(), issued.RawToken)
	require.NoError(t, err)
	assert.Equal(t, "usr_123", sess.Subject)
	assert.True(t, sess.IsAdmin())
	require.NotNil(t, sess.LastSeenAt)
}

func TestResolveRejectsUnknownToken(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestResolveExpiredSessionIsRemoved(t *testing.T) {
	svc := newTestService(t)

	issued, err := svc.Issue(context.Background(), domain.IssueRequest{
		Subject: "usr_456",
		Email:   "staff@deskly.my",
		Role:    customerdomain.RoleAdmin,
		TTL:     time.Millisecond,
	})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = svc.Resolve(context.Background(), issued.RawToken)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)

	var count int64
	require.NoError(t, svc.db.Model(&domain.Session{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRevokeInvalidatesToken(t *testing.T) {
	svc := newTestService(t)

	issued, err := svc.Issue(context.Background(), domain.IssueRequest{
		Subject: "usr_789",
		Email:   "ops@deskly.my",
		Role:    customerdomain.RoleCustomer,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), issued.RawToken))

	_, err = svc.Resolve(context.Background(), issued.RawToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestIssueValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Issue(context.Background(), domain.IssueRequest{
		Subject: " ",
		Role:    customerdomain.RoleAdmin,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSubject)

	_, err = svc.Issue(context.Background(), domain.IssueRequest{
		Subject: "usr_1",
		Role:    customerdomain.Role("superuser"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}
