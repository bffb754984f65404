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

	"github.com/desklyhq/deskly/internal/deliveryorder/domain"
	"github.com/desklyhq/deskly/internal/deliveryorder/repository"
	subscriptiondomain "github.com/desklyhq/deskly/internal/subscription/domain"
	subscriptionrepository "github.com/desklyhq/deskly/internal/subscription/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.DeliveryOrder{},
		&domain.Item{},
		&subscriptiondomain.Subscription{},
		&subscriptiondomain.Item{},
	))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	return &Service{
		db:               db,
		log:              zap.NewNop(),
		genID:            node,
		repo:             repository.Provide(),
		subscriptionRepo: subscriptionrepository.Provide(),
	}
}

func seedOrder(t *testing.T, db *gorm.DB, node *snowflake.Node, status domain.Status) *domain.DeliveryOrder {
	t.Helper()

	order := &domain.DeliveryOrder{
		ID:             node.Generate(),
		SubscriptionID: node.Generate(),
		CustomerID:     node.Generate(),
		Status:         status,
	}
	order.OrderNumber = "DO-" + order.ID.String()
	require.NoError(t, db.Create(order).Error)
	return order
}

func strPtr(s string) *string { return &s }

func TestCreateCopiesSubscriptionItems(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	sub := &subscriptiondomain.Subscription{
		ID:            svc.genID.Generate(),
		CustomerID:    svc.genID.Generate(),
		BillingStatus: subscriptiondomain.BillingStatusActive,
		StartAt:       time.Now().UTC(),
	}
	require.NoError(t, db.Create(sub).Error)
	require.NoError(t, db.Create(&subscriptiondomain.Item{
		ID:               svc.genID.Generate(),
		SubscriptionID:   sub.ID,
		ProductID:        svc.genID.Generate(),
		Name:             "Standing Desk",
		Quantity:         2,
		UnitMonthlyCents: 5000,
	}).Error)

	detail, err := svc.Create(context.Background(), domain.CreateDeliveryOrderRequest{
		SubscriptionID:  sub.ID.String(),
		DeliveryAddress: "12 Jalan Ampang, KL",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusConfirmed, detail.Status)
	assert.Equal(t, sub.CustomerID, detail.CustomerID)
	assert.NotEmpty(t, detail.OrderNumber)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, "Standing Desk", detail.Items[0].Name)
	assert.Equal(t, 2, detail.Items[0].Quantity)
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from    domain.Status
		to      domain.Status
		allowed bool
	}{
		{domain.StatusConfirmed, domain.StatusDispatched, true},
		{domain.StatusConfirmed, domain.StatusCancelled, true},
		{domain.StatusConfirmed, domain.StatusDelivered, false},
		{domain.StatusDispatched, domain.StatusDelivered, true},
		{domain.StatusDispatched, domain.StatusPartiallyDelivered, true},
		{domain.StatusDispatched, domain.StatusFailed, true},
		{domain.StatusDispatched, domain.StatusRescheduled, true},
		{domain.StatusDispatched, domain.StatusCancelled, true},
		{domain.StatusDispatched, domain.StatusConfirmed, false},
		{domain.StatusFailed, domain.StatusDispatched, true},
		{domain.StatusFailed, domain.StatusCancelled, true},
		{domain.StatusFailed, domain.StatusDelivered, false},
		{domain.StatusRescheduled, domain.StatusDispatched, true},
		{domain.StatusRescheduled, domain.StatusCancelled, true},
		{domain.StatusDelivered, domain.StatusConfirmed, false},
		{domain.StatusPartiallyDelivered, domain.StatusDispatched, false},
		{domain.StatusCancelled, domain.StatusDispatched, false},
	}

	for _, tc := range cases {
		got := domain.CanTransition(tc.from, tc.to)
		assert.Equal(t, tc.allowed, got, "%s -> %s", tc.from, tc.to)
	}
}

func TestTransitionRejectsDeliveredToConfirmed(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	order := seedOrder(t, db, svc.genID, domain.StatusDelivered)

	_, err := svc.Transition(context.Background(), domain.TransitionRequest{
		ID:     order.ID.String(),
		Status: string(domain.StatusConfirmed),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTransitionSideFieldMatchesStatus(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	order := seedOrder(t, db, svc.genID, domain.StatusDispatched)

	updated, err := svc.Transition(context.Background(), domain.TransitionRequest{
		ID:            order.ID.String(),
		Status:        string(domain.StatusFailed),
		FailureReason: strPtr("recipient absent"),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.FailureReason)
	assert.Equal(t, "recipient absent", *updated.FailureReason)
	assert.Nil(t, updated.RescheduledAt)
	assert.Nil(t, updated.CancelledReason)

	// Retry path clears the failure reason again.
	updated, err = svc.Transition(context.Background(), domain.TransitionRequest{
		ID:     order.ID.String(),
		Status: string(domain.StatusDispatched),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.FailureReason)
	assert.Nil(t, updated.RescheduledAt)
	assert.Nil(t, updated.CancelledReason)

	rescheduledAt := time.Date(2026, 9, 2, 14, 0, 0, 0, time.UTC)
	updated, err = svc.Transition(context.Background(), domain.TransitionRequest{
		ID:            order.ID.String(),
		Status:        string(domain.StatusRescheduled),
		RescheduledAt: &rescheduledAt,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.RescheduledAt)
	assert.Nil(t, updated.FailureReason)
	assert.Nil(t, updated.CancelledReason)

	updated, err = svc.Transition(context.Background(), domain.TransitionRequest{
		ID:              order.ID.String(),
		Status:          string(domain.StatusCancelled),
		CancelledReason: strPtr("customer moved out"),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.CancelledReason)
	assert.Nil(t, updated.FailureReason)
	assert.Nil(t, updated.RescheduledAt)
}

func TestTransitionRequiresSideField(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	order := seedOrder(t, db, svc.genID, domain.StatusDispatched)

	_, err := svc.Transition(context.Background(), domain.TransitionRequest{
		ID:     order.ID.String(),
		Status: string(domain.StatusFailed),
	})
	assert.ErrorIs(t, err, domain.ErrMissingDetail)

	_, err = svc.Transition(context.Background(), domain.TransitionRequest{
		ID:            order.ID.String(),
		Status:        string(domain.StatusFailed),
		FailureReason: strPtr(""),
	})
	assert.ErrorIs(t, err, domain.ErrMissingDetail)
}

func TestTransitionRejectsStraySideField(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	order := seedOrder(t, db, svc.genID, domain.StatusDispatched)

	_, err := svc.Transition(context.Background(), domain.TransitionRequest{
		ID:            order.ID.String(),
		Status:        string(domain.StatusDelivered),
		FailureReason: strPtr("should not be here"),
	})
	assert.ErrorIs(t, err, domain.ErrUnexpectedDetail)

	rescheduledAt := time.Now().UTC()
	_, err = svc.Transition(context.Background(), domain.TransitionRequest{
		ID:              order.ID.String(),
		Status:          string(domain.StatusCancelled),
		CancelledReason: strPtr("duplicate order"),
		RescheduledAt:   &rescheduledAt,
	})
	assert.ErrorIs(t, err, domain.ErrUnexpectedDetail)
}

func TestTransitionUnknownOrder(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.Transition(context.Background(), domain.TransitionRequest{
		ID:     svc.genID.Generate().String(),
		Status: string(domain.StatusDispatched),
	})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = svc.Transition(context.Background(), domain.TransitionRequest{
		ID:     "not-a-number",
		Status: string(domain.StatusDispatched),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestListRejectsMalformedIDFilters(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.List(context.Background(), domain.ListDeliveryOrderRequest{SubscriptionID: "not-an-id"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = svc.List(context.Background(), domain.ListDeliveryOrderRequest{CustomerID: "not-an-id"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
