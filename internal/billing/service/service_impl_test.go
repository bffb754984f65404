package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/desklyhq/deskly/internal/billing/domain"
	"github.com/desklyhq/deskly/internal/billing/repository"
	"github.com/desklyhq/deskly/internal/config"
	productdomain "github.com/desklyhq/deskly/internal/product/domain"
	productrepository "github.com/desklyhq/deskly/internal/product/repository"
	"github.com/desklyhq/deskly/internal/providers/payment"
	subscriptiondomain "github.com/desklyhq/deskly/internal/subscription/domain"
	subscriptionrepository "github.com/desklyhq/deskly/internal/subscription/repository"
	subscriptionservice "github.com/desklyhq/deskly/internal/subscription/service"
)

type fakeProvider struct {
	invoices    []payment.Invoice
	prices      []payment.Price
	created     []payment.CreatePriceRequest
	listErr     error
	cancelCalls int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) CancelSubscription(ctx context.Context, providerSubscriptionID string, mode payment.CancelMode) (payment.CancelResult, error) {
	f.cancelCalls++
	return payment.CancelResult{Status: "canceled"}, nil
}

func (f *fakeProvider) ListInvoices(ctx context.Context, limit int, startingAfter string) ([]payment.Invoice, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit > len(f.invoices) {
		limit = len(f.invoices)
	}
	return f.invoices[:limit], nil
}

func (f *fakeProvider) ListPrices(ctx context.Context, currency string) ([]payment.Price, error) {
	return f.prices, nil
}

func (f *fakeProvider) CreatePrice(ctx context.Context, req payment.CreatePriceRequest) (payment.Price, error) {
	f.created = append(f.created, req)
	return payment.Price{
		ID:              fmt.Sprintf("price_%d", len(f.created)),
		LookupKey:       req.LookupKey,
		Currency:        req.Currency,
		UnitAmountCents: req.UnitAmountCents,
		Active:          true,
	}, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.Invoice{},
		&domain.WebhookEvent{},
		&subscriptiondomain.Subscription{},
		&subscriptiondomain.Item{},
		&productdomain.Product{},
	))
	return db
}

func newTestService(t *testing.T, db *gorm.DB, provider payment.Provider, secret string) *Service {
	t.Helper()

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	holder := config.NewStaticBillingConfigHolder(config.DefaultBillingRuntimeConfig())

	subSvc := subscriptionservice.New(subscriptionservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Repo:        subscriptionrepository.Provide(),
		ProductRepo: productrepository.Provide(),
		Provider:    provider,
		Billing:     holder,
	})

	return &Service{
		db:              db,
		log:             zap.NewNop(),
		genID:           node,
		webhookSecret:   secret,
		repo:            repository.Provide(),
		productRepo:     productrepository.Provide(),
		subscriptionSvc: subSvc,
		provider:        provider,
		billing:         holder,
	}
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func providerInvoice(n int, subRef string) payment.Invoice {
	return payment.Invoice{
		ProviderInvoiceID:      fmt.Sprintf("in_%04d", n),
		InvoiceNumber:          fmt.Sprintf("DSKLY-%04d", n),
		ProviderSubscriptionID: subRef,
		Status:                 "paid",
		TotalCents:             10800,
		TaxCents:               800,
		AmountDueCents:         0,
		Currency:               "myr",
		CreatedAt:              time.Now().UTC(),
	}
}

func TestBackfillMirroredNeverExceedsFetched(t *testing.T) {
	db := setupTestDB(t)
	provider := &fakeProvider{}
	for i := 1; i <= 5; i++ {
		provider.invoices = append(provider.invoices, providerInvoice(i, ""))
	}
	svc := newTestService(t, db, provider, "")

	// Pre-mirror two of the five so the run sees a mix.
	for _, src := range provider.invoices[:2] {
		_, inserted, err := svc.mirrorInvoiceCounted(context.Background(), db, "stripe", src)
		require.NoError(t, err)
		require.True(t, inserted)
	}

	result, err := svc.Backfill(context.Background(), domain.BackfillRequest{Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, 5, result.FetchedCount)
	assert.Equal(t, 3, result.MirroredCount)
	assert.Equal(t, 2, result.SkippedCount)
	assert.LessOrEqual(t, result.MirroredCount, result.FetchedCount)

	var count int64
	require.NoError(t, db.Model(&domain.Invoice{}).Count(&count).Error)
	assert.EqualValues(t, 5, count)
}

func TestBackfillDryRunWritesNothing(t *testing.T) {
	db := setupTestDB(t)
	provider := &fakeProvider{invoices: []payment.Invoice{providerInvoice(1, ""), providerInvoice(2, "")}}
	svc := newTestService(t, db, provider, "")

	result, err := svc.Backfill(context.Background(), domain.BackfillRequest{Limit: 10, DryRun: true})
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 2, result.FetchedCount)
	assert.Equal(t, 2, result.MirroredCount)

	var count int64
	require.NoError(t, db.Model(&domain.Invoice{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestBackfillRejectsOutOfRangeLimit(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &fakeProvider{}, "")

	_, err := svc.Backfill(context.Background(), domain.BackfillRequest{Limit: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidLimit)

	_, err = svc.Backfill(context.Background(), domain.BackfillRequest{Limit: 10000})
	assert.ErrorIs(t, err, domain.ErrInvalidLimit)
}

func TestIngestWebhookIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &fakeProvider{}, "")

	body := []byte(`{"id":"evt_001","type":"invoice.paid","data":{"object":{"id":"in_0001","number":"DSKLY-0001","status":"paid","total":10800,"currency":"myr"}}}`)

	first, err := svc.IngestWebhook(context.Background(), domain.IngestWebhookRequest{Provider: "stripe", Body: body})
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookStatusProcessed, first.Status)

	second, err := svc.IngestWebhook(context.Background(), domain.IngestWebhookRequest{Provider: "stripe", Body: body})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var events, invoices int64
	require.NoError(t, db.Model(&domain.WebhookEvent{}).Count(&events).Error)
	require.NoError(t, db.Model(&domain.Invoice{}).Count(&invoices).Error)
	assert.EqualValues(t, 1, events)
	assert.EqualValues(t, 1, invoices)
}

// blindFirstLookupRepo misses the first dedupe lookup so ingest reaches the
// insert with the event already mirrored, as a concurrent delivery would.
type blindFirstLookupRepo struct {
	domain.Repository
	lookups int
}

func (r *blindFirstLookupRepo) FindWebhookEventByProviderRef(ctx context.Context, tx *gorm.DB, provider, eventID string) (*domain.WebhookEvent, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, nil
	}
	return r.Repository.FindWebhookEventByProviderRef(ctx, tx, provider, eventID)
}

func TestIngestWebhookConcurrentDuplicateStillAcks(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &fakeProvider{}, "")

	body := []byte(`{"id":"evt_001","type":"invoice.paid","data":{"object":{"id":"in_0001","number":"DSKLY-0001","status":"paid","total":10800,"currency":"myr"}}}`)

	first, err := svc.IngestWebhook(context.Background(), domain.IngestWebhookRequest{Provider: "stripe", Body: body})
	require.NoError(t, err)

	svc.repo = &blindFirstLookupRepo{Repository: svc.repo}
	second, err := svc.IngestWebhook(context.Background(), domain.IngestWebhookRequest{Provider: "stripe", Body: body})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, domain.WebhookStatusProcessed, second.Status)

	var events, invoices int64
	require.NoError(t, db.Model(&domain.WebhookEvent{}).Count(&events).Error)
	require.NoError(t, db.Model(&domain.Invoice{}).Count(&invoices).Error)
	assert.EqualValues(t, 1, events)
	assert.EqualValues(t, 1, invoices)
}

func TestIngestWebhookRejectsBadSignature(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &fakeProvider{}, "whsec_test")

	body := []byte(`{"id":"evt_002","type":"invoice.paid","data":{"object":{"id":"in_0002","status":"paid"}}}`)

	_, err := svc.IngestWebhook(context.Background(), domain.IngestWebhookRequest{
		Provider:  "stripe",
		Body:      body,
		Signature: "deadbeef",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	_, err = svc.IngestWebhook(context.Background(), domain.IngestWebhookRequest{
		Provider:  "stripe",
		Body:      body,
		Signature: signBody("whsec_test", body),
	})
	require.NoError(t, err)
}

func TestIngestWebhookUpdatesSubscriptionStatus(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &fakeProvider{}, "")

	sub := &subscriptiondomain.Subscription{
		ID:                     svc.genID.Generate(),
		CustomerID:             svc.genID.Generate(),
		BillingStatus:          subscriptiondomain.BillingStatusPendingPayment,
		StartAt:                time.Now().UTC(),
		Provider:               "stripe",
		ProviderSubscriptionID: "sub_hook_9",
	}
	require.NoError(t, db.Create(sub).Error)

	body := []byte(`{"id":"evt_003","type":"customer.subscription.updated","data":{"object":{"id":"sub_hook_9","status":"active"}}}`)
	event, err := svc.IngestWebhook(context.Background(), domain.IngestWebhookRequest{Provider: "stripe", Body: body})
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookStatusProcessed, event.Status)
	require.NotNil(t, event.SubscriptionID)
	assert.Equal(t, sub.ID, *event.SubscriptionID)

	var stored subscriptiondomain.Subscription
	require.NoError(t, db.First(&stored, "id = ?", sub.ID).Error)
	assert.Equal(t, subscriptiondomain.BillingStatusActive, stored.BillingStatus)
}

func TestIngestWebhookUnknownSubscriptionIsRecordedFailed(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &fakeProvider{}, "")

	body := []byte(`{"id":"evt_004","type":"customer.subscription.deleted","data":{"object":{"id":"sub_missing","status":"canceled"}}}`)
	event, err := svc.IngestWebhook(context.Background(), domain.IngestWebhookRequest{Provider: "stripe", Body: body})
	require.NoError(t, err)

	assert.Equal(t, domain.WebhookStatusFailed, event.Status)
	assert.NotEmpty(t, event.ErrorMessage)
	require.NotNil(t, event.ProcessedAt)
}

func seedProduct(t *testing.T, db *gorm.DB, node *snowflake.Node, code string, cents int64) *productdomain.Product {
	t.Helper()

	product := &productdomain.Product{
		ID:                node.Generate(),
		ProductCode:       code,
		Name:              code,
		MonthlyPriceCents: cents,
		Status:            productdomain.StatusActive,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestCatalogSyncDryRunCreatesNothing(t *testing.T) {
	db := setupTestDB(t)
	provider := &fakeProvider{}
	svc := newTestService(t, db, provider, "")

	seedProduct(t, db, svc.genID, "DSK-100", 5000)
	seedProduct(t, db, svc.genID, "CHR-100", 2500)

	result, err := svc.CatalogSync(context.Background(), domain.CatalogSyncRequest{DryRun: true})
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 2, result.CreatedCount)
	assert.Zero(t, result.SkippedCount)
	assert.Empty(t, provider.created)

	// An identical apply run afterwards may commit what the preview counted.
	applied, err := svc.CatalogSync(context.Background(), domain.CatalogSyncRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, applied.CreatedCount)
	assert.Len(t, provider.created, 2)
}

func TestCatalogSyncSkipsExistingPrices(t *testing.T) {
	db := setupTestDB(t)
	provider := &fakeProvider{
		prices: []payment.Price{{
			ID:              "price_existing",
			LookupKey:       "dsk-100_monthly_myr_5000",
			Currency:        "myr",
			UnitAmountCents: 5000,
			Active:          true,
		}},
	}
	svc := newTestService(t, db, provider, "")

	product := seedProduct(t, db, svc.genID, "DSK-100", 5000)

	result, err := svc.CatalogSync(context.Background(), domain.CatalogSyncRequest{})
	require.NoError(t, err)

	assert.Zero(t, result.CreatedCount)
	assert.Equal(t, 1, result.SkippedCount)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, "skipped", result.Outcomes[0].Outcome)
	assert.Empty(t, provider.created)

	var stored productdomain.Product
	require.NoError(t, db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, "price_existing", stored.ProviderPriceID)
}

func TestCatalogSyncProductSubset(t *testing.T) {
	db := setupTestDB(t)
	provider := &fakeProvider{}
	svc := newTestService(t, db, provider, "")

	desk := seedProduct(t, db, svc.genID, "DSK-100", 5000)
	seedProduct(t, db, svc.genID, "CHR-100", 2500)

	result, err := svc.CatalogSync(context.Background(), domain.CatalogSyncRequest{
		ProductIDs: []string{desk.ID.String()},
	})
	require.NoError(t, err)

	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, desk.ID.String(), result.Outcomes[0].ProductID)

	_, err = svc.CatalogSync(context.Background(), domain.CatalogSyncRequest{
		ProductIDs: []string{"nope"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidProductID)
}

func TestGetInvoiceByID(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db, &fakeProvider{}, "")

	invoice := domain.Invoice{
		ID:                svc.genID.Generate(),
		Provider:          "stripe",
		ProviderInvoiceID: "in_lookup",
		InvoiceNumber:     "DSKLY-9000",
		Status:            domain.InvoiceStatusPaid,
		TotalCents:        10800,
	}
	require.NoError(t, db.Create(&invoice).Error)

	found, err := svc.GetInvoiceByID(context.Background(), invoice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "DSKLY-9000", found.InvoiceNumber)

	_, err = svc.GetInvoiceByID(context.Background(), svc.genID.Generate().String())
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)

	_, err = svc.GetInvoiceByID(context.Background(), "not-an-id")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
