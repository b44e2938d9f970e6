package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"decostore-rest-api/internal/email"
	"decostore-rest-api/internal/metrics"
	"decostore-rest-api/internal/model"
	"decostore-rest-api/internal/pricing"
	"decostore-rest-api/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// ErrInvalidQuote wraps validation failures of quote input.
var ErrInvalidQuote = errors.New("invalid quote request")

// QuoteValidity is how long a saved quote stays open.
const QuoteValidity = 30 * 24 * time.Hour

// QuoteBackend is the remote store of pricing tables and saved quotes.
type QuoteBackend interface {
	GetPricingTable(ctx context.Context, decorationType model.DecorationType) (*model.PricingTable, error)
	CreateQuoteSession(ctx context.Context, q model.QuoteSession) error
	CreateQuoteItem(ctx context.Context, quoteID string, lineNumber int, tier string, item model.QuoteLineItem) error
}

// EmailSender delivers template mail.
type EmailSender interface {
	Enabled() bool
	Send(ctx context.Context, templateID string, params map[string]interface{}) error
}

// QuoteDeps are the collaborators of a QuoteService.
type QuoteDeps struct {
	Backend    QuoteBackend
	Calculator *pricing.Calculator
	Email      EmailSender // optional
	TemplateID string
	Directory  *email.Directory
	Logs       repository.QuoteLogRepository // optional
	Metrics    *metrics.Metrics
	Logger     logrus.FieldLogger
	Now        func() time.Time
}

// SaveQuoteInput is a quote to price and persist.
type SaveQuoteInput struct {
	Request       pricing.QuoteRequest `json:"request"`
	Customer      model.Customer       `json:"customer"`
	SessionID     string               `json:"session_id"`
	SalesRepEmail string               `json:"sales_rep_email" validate:"omitempty,email"`
	Notes         string               `json:"notes"`
	SendEmail     bool                 `json:"send_email"`
}

// SavedQuote is the outcome of Save. Error carries partial item failures,
// Warning a failed email.
type SavedQuote struct {
	Session     model.QuoteSession `json:"session"`
	Quote       *model.PricedQuote `json:"quote"`
	FailedItems int                `json:"failed_items"`
	Error       string             `json:"error,omitempty"`
	Warning     string             `json:"warning,omitempty"`
}

// QuoteService prices and saves quotes.
type QuoteService struct {
	backend    QuoteBackend
	calc       *pricing.Calculator
	email      EmailSender
	templateID string
	directory  *email.Directory
	logs       repository.QuoteLogRepository
	metrics    *metrics.Metrics
	logger     logrus.FieldLogger
	now        func() time.Time
	validate   *validator.Validate

	seqMu  sync.Mutex
	seqDay string
	seq    int
}

// NewQuoteService creates a QuoteService.
func NewQuoteService(deps QuoteDeps) *QuoteService {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	calc := deps.Calculator
	if calc == nil {
		calc = pricing.NewCalculator(pricing.DefaultLTM())
	}
	dir := deps.Directory
	if dir == nil {
		dir = email.NewDirectory(email.DefaultStaff, email.DefaultStaff[0].Email)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &QuoteService{
		backend:    deps.Backend,
		calc:       calc,
		email:      deps.Email,
		templateID: deps.TemplateID,
		directory:  dir,
		logs:       deps.Logs,
		metrics:    deps.Metrics,
		logger:     logger.WithField("component", "quote"),
		now:        now,
		validate:   validator.New(),
	}
}

// Calculate prices req against freshly fetched pricing tables.
func (s *QuoteService) Calculate(ctx context.Context, req pricing.QuoteRequest) (*model.PricedQuote, error) {
	req = normalizeRequest(req)
	if err := s.validate.Struct(req); err != nil {
		s.metrics.ObservePricing("invalid")
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuote, err)
	}
	for _, p := range req.Products {
		if !p.DecorationType.Valid() {
			s.metrics.ObservePricing("invalid")
			return nil, fmt.Errorf("%w: unknown decoration type %q", ErrInvalidQuote, p.DecorationType)
		}
	}

	tables, err := s.fetchTables(ctx, req.DecorationTypes())
	if err != nil {
		s.metrics.ObservePricing("unavailable")
		return nil, err
	}

	quote, err := s.calc.Calculate(req, tables)
	if err != nil {
		s.metrics.ObservePricing("unavailable")
		return nil, err
	}
	s.metrics.ObservePricing("success")
	return quote, nil
}

// normalizeRequest lowercases decoration types on a copy of the products.
func normalizeRequest(req pricing.QuoteRequest) pricing.QuoteRequest {
	products := make([]pricing.ProductRequest, len(req.Products))
	for i, p := range req.Products {
		p.DecorationType = model.DecorationType(strings.ToLower(strings.TrimSpace(string(p.DecorationType))))
		products[i] = p
	}
	req.Products = products
	return req
}

func (s *QuoteService) fetchTables(ctx context.Context, types []model.DecorationType) (pricing.Tables, error) {
	tables := make(pricing.Tables, len(types))
	errs := make([]error, len(types))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i, t := range types {
		wg.Add(1)
		go func(i int, t model.DecorationType) {
			defer wg.Done()
			table, err := s.backend.GetPricingTable(ctx, t)
			if err != nil {
				errs[i] = fmt.Errorf("%w: %s: %w", pricing.ErrPricingUnavailable, t, err)
				return
			}
			mu.Lock()
			tables[t] = table
			mu.Unlock()
		}(i, t)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return tables, nil
}

// Save prices and persists a quote, then optionally emails it.
func (s *QuoteService) Save(ctx context.Context, in SaveQuoteInput) (*SavedQuote, error) {
	if err := s.validate.Struct(in); err != nil {
		s.metrics.ObserveQuoteSaved("invalid")
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuote, err)
	}

	in.Request = normalizeRequest(in.Request)
	quote, err := s.Calculate(ctx, in.Request)
	if err != nil {
		s.metrics.ObserveQuoteSaved("failure")
		return nil, err
	}

	rep := s.directory.Resolve(in.SalesRepEmail)
	now := s.now()
	header := model.QuoteSession{
		QuoteID:        s.NextQuoteID(in.Request.DecorationTypes()),
		SessionID:      in.SessionID,
		Customer:       in.Customer,
		SalesRepEmail:  rep.Email,
		Status:         "Open",
		TotalQuantity:  quote.TotalQuantity,
		SubtotalAmount: quote.Subtotal,
		LTMFeeTotal:    quote.LTMFeeTotal,
		TotalAmount:    quote.GrandTotal,
		Notes:          in.Notes,
		CreatedAt:      now.UTC(),
		ExpiresAt:      now.Add(QuoteValidity).UTC(),
	}
	log := s.logger.WithField("quote_id", header.QuoteID)

	if err := s.backend.CreateQuoteSession(ctx, header); err != nil {
		s.metrics.ObserveQuoteSaved("failure")
		s.record(ctx, header, len(quote.LineItems), len(quote.LineItems), model.EmailSkipped, err.Error())
		return nil, fmt.Errorf("failed to save quote %s: %w", header.QuoteID, err)
	}

	saved := &SavedQuote{Session: header, Quote: quote}
	saved.FailedItems = s.saveItems(ctx, header.QuoteID, quote)
	if saved.FailedItems > 0 {
		saved.Error = fmt.Sprintf("%d of %d quote items failed to save", saved.FailedItems, len(quote.LineItems))
		log.Warn(saved.Error)
	}

	emailStatus := model.EmailSkipped
	if in.SendEmail {
		if err := s.sendQuoteEmail(ctx, header, quote, rep); err != nil {
			emailStatus = model.EmailFailed
			saved.Warning = "Quote saved, but the confirmation email could not be sent"
			log.WithError(err).Warn("failed to send quote email")
		} else {
			emailStatus = model.EmailSent
		}
	}

	s.record(ctx, header, len(quote.LineItems), saved.FailedItems, emailStatus, saved.Error)

	outcome := "success"
	if saved.FailedItems > 0 {
		outcome = "partial"
	}
	s.metrics.ObserveQuoteSaved(outcome)
	log.WithFields(logrus.Fields{
		"total":        header.TotalAmount.StringFixed(2),
		"items":        len(quote.LineItems),
		"email_status": emailStatus,
	}).Info("quote saved")
	return saved, nil
}

func (s *QuoteService) saveItems(ctx context.Context, quoteID string, quote *model.PricedQuote) int {
	tiers := make(map[model.DecorationType]string, len(quote.Types))
	for _, t := range quote.Types {
		tiers[t.DecorationType] = t.Tier
	}

	errs := make([]error, len(quote.LineItems))
	var wg sync.WaitGroup
	for i := range quote.LineItems {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			item := quote.LineItems[i]
			errs[i] = s.backend.CreateQuoteItem(ctx, quoteID, i+1, tiers[item.DecorationType], item)
		}(i)
	}
	wg.Wait()

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			s.logger.WithError(err).WithFields(logrus.Fields{"quote_id": quoteID, "line": i + 1}).Warn("failed to save quote item")
		}
	}
	return failed
}

func (s *QuoteService) sendQuoteEmail(ctx context.Context, q model.QuoteSession, quote *model.PricedQuote, rep email.StaffMember) error {
	if s.email == nil || !s.email.Enabled() {
		return email.ErrDisabled
	}

	var lines []string
	for _, li := range quote.LineItems {
		lines = append(lines, fmt.Sprintf("%s %s (%s) x%d @ %s = %s",
			li.StyleNumber, li.Color, li.Description, li.Quantity,
			li.UnitPriceWithLTM.StringFixed(2), li.LineTotal.StringFixed(2)))
	}

	params := map[string]interface{}{
		"quote_id":       q.QuoteID,
		"customer_name":  q.Customer.Name,
		"customer_email": q.Customer.Email,
		"company_name":   q.Customer.Company,
		"phone":          q.Customer.Phone,
		"sales_rep_name": rep.Name,
		"sales_rep":      rep.Email,
		"total_quantity": q.TotalQuantity,
		"subtotal":       quote.Subtotal.StringFixed(2),
		"ltm_fee":        quote.LTMFeeTotal.StringFixed(2),
		"setup_fees":     quote.SetupFees.StringFixed(2),
		"discount":       quote.Discount.StringFixed(2),
		"grand_total":    quote.GrandTotal.StringFixed(2),
		"products":       strings.Join(lines, "\n"),
		"notes":          q.Notes,
		"valid_until":    q.ExpiresAt.Format("January 2, 2006"),
		"to_email":       q.Customer.Email,
		"reply_to":       rep.Email,
	}
	return s.email.Send(ctx, s.templateID, params)
}

func (s *QuoteService) record(ctx context.Context, q model.QuoteSession, items, failed int, emailStatus, errMsg string) {
	if s.logs == nil {
		return
	}
	entry := &model.QuoteLog{
		QuoteID:       q.QuoteID,
		CustomerEmail: q.Customer.Email,
		SalesRepEmail: q.SalesRepEmail,
		TotalAmount:   q.TotalAmount.StringFixed(2),
		ItemCount:     items,
		FailedItems:   failed,
		EmailStatus:   emailStatus,
		ErrorMessage:  errMsg,
		CreatedAt:     q.CreatedAt,
	}
	if err := s.logs.InsertQuoteLog(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("quote_id", q.QuoteID).Warn("failed to write quote log")
	}
}

var quotePrefixes = map[model.DecorationType]string{
	model.DecorationEmbroidery:    "EMB",
	model.DecorationCapEmbroidery: "CAP",
	model.DecorationDTG:           "DTG",
	model.DecorationDTF:           "DTF",
	model.DecorationScreenPrint:   "SPC",
	model.DecorationVinyl:         "VNL",
}

// QuotePrefix returns the id prefix of a quote with the given types.
func QuotePrefix(types []model.DecorationType) string {
	if len(types) == 1 {
		if p, ok := quotePrefixes[types[0]]; ok {
			return p
		}
	}
	return "MIX"
}

// NextQuoteID mints <PREFIX><MMDD>-<n>; n restarts at 1 every day.
func (s *QuoteService) NextQuoteID(types []model.DecorationType) string {
	day := s.now().Format("0102")

	s.seqMu.Lock()
	if s.seqDay != day {
		s.seqDay = day
		s.seq = 0
	}
	s.seq++
	n := s.seq
	s.seqMu.Unlock()

	return fmt.Sprintf("%s%s-%d", QuotePrefix(types), day, n)
}
