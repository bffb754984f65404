package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/desklyhq/deskly/internal/config"
	productdomain "github.com/desklyhq/deskly/internal/product/domain"
	productrepository "github.com/desklyhq/deskly/internal/product/repository"
	"github.com/desklyhq/deskly/internal/providers/payment"
	"github.com/desklyhq/deskly/internal/subscription/domain"
	"github.com/desklyhq/deskly/internal/subscription/repository"
)

type fakeProvider struct {
	cancelCalls  int
	lastMode     payment.CancelMode
	cancelResult payment.CancelResult
	cancelErr    error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) CancelSubscription(ctx context.Context, providerSubscriptionID string, mode payment.CancelMode) (payment.CancelResult, error) {
	f.cancelCalls++
	f.lastMode = mode
	if f.cancelErr != nil {
		return payment.CancelResult{}, f.cancelErr
	}
	return f.cancelResult, nil
}

func (f *fakeProvider) ListInvoices(ctx context.Context, limit int, startingAfter string) ([]payment.Invoice, error) {
	return nil, nil
}

func (f *fakeProvider) ListPrices(ctx context.Context, currency string) ([]payment.Price, error) {
	return nil, nil
}

func (f *fakeProvider) CreatePrice(ctx context.Context, req payment.CreatePriceRequest) (payment.Price, error) {
	return payment.Price{}, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.Subscription{},
		&domain.Item{},
		&productdomain.Product{},
	))
	return db
}

func newTestService(t *testing.T, db *gorm.DB, provider payment.Provider) *Service {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return &Service{
		db:          db,
		log:         zap.NewNop(),
		genID:       node,
		repo:        repository.Provide(),
		productRepo: productrepository.Provide(),
		provider:    provider,
		billing:     config.NewStaticBillingConfigHolder(config.DefaultBillingRuntimeConfig()),
	}
}

func seedSubscription(t *testing.T, db *gorm.DB, node *snowflake.Node, status domain.BillingStatus, providerRef string) *domain.Subscription {
	t.Helper()

	sub := &domain.Subscription{
		ID:                     node.Generate(),
		CustomerID:             node.Generate(),
		BillingStatus:          status,
		SubtotalCents:          10000,
		TaxCents:               800,
		MonthlyTotalCents:      10800,
		StartAt:                time.Now().UTC().AddDate(0, -2, 0),
		Provider:               "stripe",
		ProviderSubscriptionID: providerRef,
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}

func TestCreateComputesTotalsWithSST(t *testing.T) {
	db := setupTestDB(t)
	provider := &fakeProvider{}
	svc := newTestService(t, db, provider)

	desk := &productdomain.Product{
		ID:                svc.genID.Generate(),
		ProductCode:       "DSK-100",
		Name:              "Standing Desk",
		Category:          "desks",
		MonthlyPriceCents: 5000,
		Status:            productdomain.StatusActive,
	}
	chair := &productdomain.Product{
		ID:                svc.genID.Generate(),
		ProductCode:       "CHR-100",
		Name:              "Task Chair",
		Category:          "chairs",
		MonthlyPriceCents: 2500,
		Status:            productdomain.StatusActive,
	}
	require.NoError(t, db.Create(desk).Error)
	require.NoError(t, db.Create(chair).Error)

	detail, err := svc.Create(context.Background(), domain.CreateSubscriptionRequest{
		CustomerID: svc.genID.Generate().String(),
		Items: []domain.CreateItemRequest{
			{ProductID: desk.ID.String(), Quantity: 2},
			{ProductID: chair.ID.String()},
		},
	})
	require.NoError(t, err)

	// 2x5000 + 1x2500 = 12500 subtotal, 8% SST = 1000 tax
	assert.Equal(t, int64(12500), detail.SubtotalCents)
	assert.Equal(t, int64(1000), detail.TaxCents)
	assert.Equal(t, int64(13500), detail.MonthlyTotalCents)
	assert.Equal(t, domain.BillingStatusPendingPayment, detail.BillingStatus)
	require.Len(t, detail.Items, 2)
	assert.Equal(t, 1, detail.Items[1].Quantity)
	assert.Equal(t, int64(5000), detail.Items[0].UnitMonthlyCents)
}

func TestCreateRejectsInactiveProduct(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &fakeProvider{})

	draft := &productdomain.Product{
		ID:                svc.genID.Generate(),
		ProductCode:       "DSK-200",
		Name:              "Unreleased Desk",
		MonthlyPriceCents: 9000,
		Status:            productdomain.StatusDraft,
	}
	require.NoError(t, db.Create(draft).Error)

	_, err := svc.Create(context.Background(), domain.CreateSubscriptionRequest{
		CustomerID: svc.genID.Generate().String(),
		Items:      []domain.CreateItemRequest{{ProductID: draft.ID.String()}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidItems)

	var count int64
	require.NoError(t, db.Model(&domain.Subscription{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCancelGuardRejectsNonCancellableStates(t *testing.T) {
	db := setupTestDB(t)
	provider := &fakeProvider{}
	svc := newTestService(t, db, provider)

	for _, status := range []domain.BillingStatus{
		domain.BillingStatusPendingPayment,
		domain.BillingStatusCancelled,
	} {
		sub := seedSubscription(t, db, svc.genID, status, "sub_guard_"+string(status))

		_, err := svc.Cancel(context.Background(), domain.CancelSubscriptionRequest{
			ID:   sub.ID.String(),
			Mode: string(payment.CancelModeNow),
		})
		assert.ErrorIs(t, err, domain.ErrActionNotAllowed, "status %s", status)
	}

	// The guard fires before any provider call is made.
	assert.Zero(t, provider.cancelCalls)
}

func TestCancelNowUpdatesLocalMirror(t *testing.T) {
	db := setupTestDB(t)
	canceledAt := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		cancelResult: payment.CancelResult{Status: "canceled", CanceledAt: &canceledAt},
	}
	svc := newTestService(t, db, provider)

	sub := seedSubscription(t, db, svc.genID, domain.BillingStatusActive, "sub_now_1")

	updated, err := svc.Cancel(context.Background(), domain.CancelSubscriptionRequest{
		ID:   sub.ID.String(),
		Mode: string(payment.CancelModeNow),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, provider.cancelCalls)
	assert.Equal(t, payment.CancelModeNow, provider.lastMode)
	assert.Equal(t, domain.BillingStatusCancelled, updated.BillingStatus)
	require.NotNil(t, updated.CancelledAt)
	assert.Equal(t, canceledAt, updated.CancelledAt.UTC())
	require.NotNil(t, updated.EndAt)
	assert.False(t, updated.CancelAtPeriodEnd)
}

func TestCancelAtPeriodEndSetsFlagOnly(t *testing.T) {
	db := setupTestDB(t)
	provider := &fakeProvider{
		cancelResult: payment.CancelResult{Status: "active", CancelAtPeriodEnd: true},
	}
	svc := newTestService(t, db, provider)

	sub := seedSubscription(t, db, svc.genID, domain.BillingStatusPaymentFailed, "sub_period_1")

	updated, err := svc.Cancel(context.Background(), domain.CancelSubscriptionRequest{
		ID:   sub.ID.String(),
		Mode: string(payment.CancelModeAtPeriodEnd),
	})
	require.NoError(t, err)

	assert.True(t, updated.CancelAtPeriodEnd)
	assert.Equal(t, domain.BillingStatusPaymentFailed, updated.BillingStatus)
	assert.Nil(t, updated.CancelledAt)
	assert.Nil(t, updated.EndAt)
}

func TestCancelProviderFailureLeavesMirrorUntouched(t *testing.T) {
	db := setupTestDB(t)
	provider := &fakeProvider{cancelErr: errors.New("upstream timeout")}
	svc := newTestService(t, db, provider)

	sub := seedSubscription(t, db, svc.genID, domain.BillingStatusActive, "sub_fail_1")

	_, err := svc.Cancel(context.Background(), domain.CancelSubscriptionRequest{
		ID:   sub.ID.String(),
		Mode: string(payment.CancelModeNow),
	})
	require.Error(t, err)

	var stored domain.Subscription
	require.NoError(t, db.First(&stored, "id = ?", sub.ID).Error)
	assert.Equal(t, domain.BillingStatusActive, stored.BillingStatus)
	assert.Nil(t, stored.CancelledAt)
}

func TestCancelRequiresProviderBacking(t *testing.T) {
	db := setupTestDB(t)
	provider := &fakeProvider{}
	svc := newTestService(t, db, provider)

	sub := seedSubscription(t, db, svc.genID, domain.BillingStatusActive, "")

	_, err := svc.Cancel(context.Background(), domain.CancelSubscriptionRequest{
		ID:   sub.ID.String(),
		Mode: string(payment.CancelModeAtPeriodEnd),
	})
	assert.ErrorIs(t, err, domain.ErrNotProviderBacked)
	assert.Zero(t, provider.cancelCalls)
}

func TestApplyProviderStatusMirrorsWebhookChange(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &fakeProvider{})

	seedSubscription(t, db, svc.genID, domain.BillingStatusPendingPayment, "sub_hook_1")

	updated, err := svc.ApplyProviderStatus(context.Background(), domain.ApplyProviderStatusRequest{
		ProviderSubscriptionID: "sub_hook_1",
		BillingStatus:          domain.BillingStatusActive,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BillingStatusActive, updated.BillingStatus)

	_, err = svc.ApplyProviderStatus(context.Background(), domain.ApplyProviderStatusRequest{
		ProviderSubscriptionID: "sub_hook_unknown",
		BillingStatus:          domain.BillingStatusActive,
	})
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
}

func TestListRejectsMalformedCustomerFilter(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &fakeProvider{})

	_, err := svc.List(context.Background(), domain.ListSubscriptionRequest{CustomerID: "not-an-id"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
