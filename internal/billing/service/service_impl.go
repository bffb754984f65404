package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/desklyhq/deskly/internal/billing/domain"
	"github.com/desklyhq/deskly/internal/config"
	productdomain "github.com/desklyhq/deskly/internal/product/domain"
	"github.com/desklyhq/deskly/internal/providers/payment"
	subscriptiondomain "github.com/desklyhq/deskly/internal/subscription/domain"
	"github.com/desklyhq/deskly/pkg/db"
	"github.com/desklyhq/deskly/pkg/db/pagination"
)

const (
	defaultBackfillLimit = 50
	maxBackfillLimit     = 500
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Cfg             config.Config
	Repo            domain.Repository
	ProductRepo     productdomain.Repository
	SubscriptionSvc subscriptiondomain.Service
	Provider        payment.Provider
	Billing         *config.BillingConfigHolder
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	webhookSecret   string
	repo            domain.Repository
	productRepo     productdomain.Repository
	subscriptionSvc subscriptiondomain.Service
	provider        payment.Provider
	billing         *config.BillingConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log,
		genID:           p.GenID,
		webhookSecret:   p.Cfg.BillingWebhookSecret,
		repo:            p.Repo,
		productRepo:     p.ProductRepo,
		subscriptionSvc: p.SubscriptionSvc,
		provider:        p.Provider,
		billing:         p.Billing,
	}
}

func (s *Service) ListInvoices(ctx context.Context, req domain.ListInvoiceRequest) (*domain.ListInvoiceResponse, error) {
	filter := domain.ListInvoiceFilter{
		Search:                 req.Search,
		ProviderSubscriptionID: req.ProviderSubscriptionID,
		SortBy:                 req.SortBy,
		SortDir:                req.SortDir,
	}

	if req.Status != "" {
		status := domain.ParseInvoiceStatus(req.Status)
		if status == domain.InvoiceStatusUnknown && req.Status != string(domain.InvoiceStatusUnknown) {
			return nil, domain.ErrInvalidStatus
		}
		filter.Status = status
	}

	if req.SortBy != "" {
		switch req.SortBy {
		case "created_at", "issued_at", "total", "period_start":
		default:
			return nil, domain.ErrInvalidSort
		}
	}

	page := req.Pagination
	page = page.Normalize()

	invoices, total, err := s.repo.ListInvoices(ctx, s.db, filter, page)
	if err != nil {
		return nil, err
	}

	return &domain.ListInvoiceResponse{
		PageInfo: pagination.NewPageInfo(page, total),
		Invoices: invoices,
	}, nil
}

func (s *Service) GetInvoiceByID(ctx context.Context, rawID string) (*domain.Invoice, error) {
	id, err := snowflake.ParseString(rawID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	invoice, err := s.repo.FindInvoiceByID(ctx, s.db, int64(id))
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrInvoiceNotFound
	}
	return invoice, nil
}

func (s *Service) ListWebhookEvents(ctx context.Context, req domain.ListWebhookEventRequest) (*domain.ListWebhookEventResponse, error) {
	filter := domain.ListWebhookEventFilter{EventType: req.EventType}

	if req.Status != "" {
		status := domain.WebhookStatus(req.Status)
		switch status {
		case domain.WebhookStatusReceived, domain.WebhookStatusProcessed, domain.WebhookStatusFailed:
			filter.Status = status
		default:
			return nil, domain.ErrInvalidStatus
		}
	}

	page := req.Pagination
	page = page.Normalize()

	events, total, err := s.repo.ListWebhookEvents(ctx, s.db, filter, page)
	if err != nil {
		return nil, err
	}

	return &domain.ListWebhookEventResponse{
		PageInfo: pagination.NewPageInfo(page, total),
		Events:   events,
	}, nil
}

// verifySignature checks the hex-encoded HMAC-SHA256 of the raw body. An
// empty configured secret disables verification, for local development only.
func (s *Service) verifySignature(body []byte, signature string) bool {
	if s.webhookSecret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	got := strings.TrimPrefix(signature, "sha256=")
	return hmac.Equal([]byte(want), []byte(got))
}

type webhookEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type subscriptionEventObject struct {
	ID                string     `json:"id"`
	Status            string     `json:"status"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	CanceledAt        *time.Time `json:"canceled_at"`
}

// providerSubscriptionStatus maps the provider's subscription status
// vocabulary onto the local billing statuses.
func providerSubscriptionStatus(raw string) (subscriptiondomain.BillingStatus, bool) {
	switch raw {
	case "active", "trialing":
		return subscriptiondomain.BillingStatusActive, true
	case "past_due", "unpaid":
		return subscriptiondomain.BillingStatusPaymentFailed, true
	case "canceled", "cancelled":
		return subscriptiondomain.BillingStatusCancelled, true
	case "incomplete", "incomplete_expired":
		return subscriptiondomain.BillingStatusPendingPayment, true
	default:
		return "", false
	}
}

func (s *Service) IngestWebhook(ctx context.Context, req domain.IngestWebhookRequest) (*domain.WebhookEvent, error) {
	if !s.verifySignature(req.Body, req.Signature) {
		return nil, domain.ErrInvalidSignature
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(req.Body, &envelope); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if envelope.ID == "" || envelope.Type == "" {
		return nil, domain.ErrInvalidPayload
	}

	// Providers redeliver events at-least-once. An already mirrored event id
	// is acknowledged without reprocessing.
	existing, err := s.repo.FindWebhookEventByProviderRef(ctx, s.db, req.Provider, envelope.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	event := &domain.WebhookEvent{
		ID:        s.genID.Generate(),
		Provider:  req.Provider,
		EventID:   envelope.ID,
		EventType: envelope.Type,
		Status:    domain.WebhookStatusReceived,
		Payload:   req.Body,
	}
	if err := s.repo.InsertWebhookEvent(ctx, s.db, event); err != nil {
		// A concurrent delivery of the same event can win the insert; the
		// unique (provider, event_id) index turns that into the same
		// acknowledge-without-reprocessing path as the lookup above.
		if db.IsDuplicateKeyErr(err) {
			winner, findErr := s.repo.FindWebhookEventByProviderRef(ctx, s.db, req.Provider, envelope.ID)
			if findErr != nil {
				return nil, findErr
			}
			if winner != nil {
				return winner, nil
			}
		}
		return nil, err
	}

	processErr := s.processWebhookEvent(ctx, event, envelope)

	now := time.Now().UTC()
	event.ProcessedAt = &now
	if processErr != nil {
		event.Status = domain.WebhookStatusFailed
		event.ErrorMessage = processErr.Error()
		s.log.Warn("webhook processing failed",
			zap.String("event_id", envelope.ID),
			zap.String("event_type", envelope.Type),
			zap.Error(processErr),
		)
	} else {
		event.Status = domain.WebhookStatusProcessed
	}

	if err := s.repo.UpdateWebhookEvent(ctx, s.db, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Service) processWebhookEvent(ctx context.Context, event *domain.WebhookEvent, envelope webhookEnvelope) error {
	switch {
	case strings.HasPrefix(envelope.Type, "invoice."):
		var obj payment.Invoice
		if err := json.Unmarshal(envelope.Data.Object, &obj); err != nil {
			return domain.ErrInvalidPayload
		}
		if envelope.Type == "invoice.payment_failed" {
			obj.Status = string(domain.InvoiceStatusPaymentFailed)
		}
		invoice, err := s.mirrorInvoice(ctx, s.db, event.Provider, obj)
		if err != nil {
			return err
		}
		event.SubscriptionID = invoice.SubscriptionID
		return nil

	case strings.HasPrefix(envelope.Type, "customer.subscription."):
		var obj subscriptionEventObject
		if err := json.Unmarshal(envelope.Data.Object, &obj); err != nil {
			return domain.ErrInvalidPayload
		}
		status, ok := providerSubscriptionStatus(obj.Status)
		if envelope.Type == "customer.subscription.deleted" {
			status, ok = subscriptiondomain.BillingStatusCancelled, true
		}
		if !ok {
			return fmt.Errorf("unmapped provider subscription status %q", obj.Status)
		}
		sub, err := s.subscriptionSvc.ApplyProviderStatus(ctx, subscriptiondomain.ApplyProviderStatusRequest{
			ProviderSubscriptionID: obj.ID,
			BillingStatus:          status,
			CancelledAt:            obj.CanceledAt,
		})
		if err != nil {
			return err
		}
		event.SubscriptionID = &sub.ID
		return nil

	default:
		// Unhandled event types are mirrored for the console listing and
		// acknowledged without side effects.
		return nil
	}
}

// mirrorInvoice upserts the local mirror row for a provider invoice.
func (s *Service) mirrorInvoice(ctx context.Context, tx *gorm.DB, provider string, src payment.Invoice) (*domain.Invoice, error) {
	invoice, _, err := s.mirrorInvoiceCounted(ctx, tx, provider, src)
	return invoice, err
}

func (s *Service) mirrorInvoiceCounted(ctx context.Context, tx *gorm.DB, provider string, src payment.Invoice) (*domain.Invoice, bool, error) {
	existing, err := s.repo.FindInvoiceByProviderRef(ctx, tx, provider, src.ProviderInvoiceID)
	if err != nil {
		return nil, false, err
	}

	var subID *snowflake.ID
	if src.ProviderSubscriptionID != "" {
		sub, err := s.findSubscriptionByProviderRef(ctx, tx, src.ProviderSubscriptionID)
		if err != nil {
			return nil, false, err
		}
		if sub != nil {
			subID = &sub.ID
		}
	}

	issuedAt := src.CreatedAt
	if existing != nil {
		existing.Status = domain.ParseInvoiceStatus(src.Status)
		existing.InvoiceNumber = src.InvoiceNumber
		existing.PeriodStart = src.PeriodStart
		existing.PeriodEnd = src.PeriodEnd
		existing.TotalCents = src.TotalCents
		existing.TaxCents = src.TaxCents
		existing.AmountDueCents = src.AmountDueCents
		existing.HostedURL = src.HostedURL
		existing.PDFURL = src.PDFURL
		if existing.SubscriptionID == nil {
			existing.SubscriptionID = subID
		}
		if err := s.repo.UpdateInvoice(ctx, tx, existing); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	invoice := &domain.Invoice{
		ID:                     s.genID.Generate(),
		Provider:               provider,
		ProviderInvoiceID:      src.ProviderInvoiceID,
		InvoiceNumber:          src.InvoiceNumber,
		SubscriptionID:         subID,
		ProviderSubscriptionID: src.ProviderSubscriptionID,
		Status:                 domain.ParseInvoiceStatus(src.Status),
		PeriodStart:            src.PeriodStart,
		PeriodEnd:              src.PeriodEnd,
		TotalCents:             src.TotalCents,
		TaxCents:               src.TaxCents,
		AmountDueCents:         src.AmountDueCents,
		Currency:               src.Currency,
		HostedURL:              src.HostedURL,
		PDFURL:                 src.PDFURL,
		IssuedAt:               &issuedAt,
	}
	if err := s.repo.InsertInvoice(ctx, tx, invoice); err != nil {
		return nil, false, err
	}
	return invoice, true, nil
}

func (s *Service) findSubscriptionByProviderRef(ctx context.Context, tx *gorm.DB, ref string) (*subscriptiondomain.Subscription, error) {
	var sub subscriptiondomain.Subscription
	err := tx.WithContext(ctx).Where("provider_subscription_id = ?", ref).First(&sub).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (s *Service) Backfill(ctx context.Context, req domain.BackfillRequest) (*domain.BackfillResult, error) {
	limit := req.Limit
	if limit == 0 {
		limit = defaultBackfillLimit
	}
	if limit < 1 || limit > maxBackfillLimit {
		return nil, domain.ErrInvalidLimit
	}

	fetched, err := s.provider.ListInvoices(ctx, limit, "")
	if err != nil {
		return nil, err
	}

	result := &domain.BackfillResult{
		DryRun:       req.DryRun,
		FetchedCount: len(fetched),
	}

	providerName := s.billing.Get().Provider
	for _, src := range fetched {
		existing, err := s.repo.FindInvoiceByProviderRef(ctx, s.db, providerName, src.ProviderInvoiceID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			result.SkippedCount++
			continue
		}
		if !req.DryRun {
			if _, _, err := s.mirrorInvoiceCounted(ctx, s.db, providerName, src); err != nil {
				return nil, err
			}
		}
		result.MirroredCount++
	}

	s.log.Info("invoice backfill",
		zap.Bool("dry_run", result.DryRun),
		zap.Int("fetched_count", result.FetchedCount),
		zap.Int("mirrored_count", result.MirroredCount),
		zap.Int("skipped_count", result.SkippedCount),
	)

	return result, nil
}

// priceLookupKey identifies a provider price for a product at one amount and
// currency. Provider prices are immutable, so a price change produces a new
// lookup key and a new created outcome on the next sync.
func priceLookupKey(code string, currency string, amountCents int64) string {
	return fmt.Sprintf("%s_monthly_%s_%d", strings.ToLower(code), strings.ToLower(currency), amountCents)
}

func (s *Service) CatalogSync(ctx context.Context, req domain.CatalogSyncRequest) (*domain.CatalogSyncResult, error) {
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = strings.ToLower(s.billing.Get().Currency)
	}
	if len(currency) != 3 {
		return nil, domain.ErrInvalidCurrency
	}

	var products []productdomain.Product
	var err error
	if len(req.ProductIDs) > 0 {
		ids := make([]snowflake.ID, 0, len(req.ProductIDs))
		for _, raw := range req.ProductIDs {
			id, err := snowflake.ParseString(raw)
			if err != nil {
				return nil, domain.ErrInvalidProductID
			}
			ids = append(ids, id)
		}
		products, err = s.productRepo.ListByIDs(ctx, s.db, ids)
	} else {
		products, err = s.productRepo.ListAll(ctx, s.db, productdomain.ListProductFilter{Status: productdomain.StatusActive})
	}
	if err != nil {
		return nil, err
	}

	existing, err := s.provider.ListPrices(ctx, currency)
	if err != nil {
		return nil, err
	}
	byLookupKey := make(map[string]payment.Price, len(existing))
	for _, price := range existing {
		if price.Active {
			byLookupKey[price.LookupKey] = price
		}
	}

	result := &domain.CatalogSyncResult{DryRun: req.DryRun, Currency: currency}

	for _, product := range products {
		key := priceLookupKey(product.ProductCode, currency, product.MonthlyPriceCents)
		outcome := domain.SyncOutcome{
			ProductID:   product.ID.String(),
			ProductCode: product.ProductCode,
			LookupKey:   key,
		}

		if price, ok := byLookupKey[key]; ok {
			outcome.Outcome = "skipped"
			outcome.ProviderPriceID = price.ID
			result.SkippedCount++
			if !req.DryRun && product.ProviderPriceID != price.ID {
				product.ProviderPriceID = price.ID
				if err := s.productRepo.Update(ctx, s.db, &product); err != nil {
					return nil, err
				}
			}
		} else {
			outcome.Outcome = "created"
			result.CreatedCount++
			if !req.DryRun {
				created, err := s.provider.CreatePrice(ctx, payment.CreatePriceRequest{
					LookupKey:       key,
					Currency:        currency,
					UnitAmountCents: product.MonthlyPriceCents,
					ProductName:     product.Name,
				})
				if err != nil {
					return nil, err
				}
				outcome.ProviderPriceID = created.ID
				product.ProviderPriceID = created.ID
				if err := s.productRepo.Update(ctx, s.db, &product); err != nil {
					return nil, err
				}
			}
		}

		result.Outcomes = append(result.Outcomes, outcome)
	}

	s.log.Info("catalog price sync",
		zap.Bool("dry_run", result.DryRun),
		zap.String("currency", currency),
		zap.Int("created_count", result.CreatedCount),
		zap.Int("skipped_count", result.SkippedCount),
	)

	return result, nil
}

func (s *Service) RuntimeConfig(ctx context.Context) config.BillingRuntimeConfig {
	return s.billing.Get()
}
