package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"decostore-rest-api/internal/cache"
	"decostore-rest-api/internal/email"
	"decostore-rest-api/internal/model"
	"decostore-rest-api/internal/pricing"
	"decostore-rest-api/internal/proxy"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuoteBackend struct {
	mu       sync.Mutex
	tables   map[model.DecorationType]*model.PricingTable
	sessions []model.QuoteSession
	items    map[int]model.QuoteLineItem
	tiers    map[int]string
	itemErr  func(line int) error
}

func newFakeQuoteBackend() *fakeQuoteBackend {
	return &fakeQuoteBackend{
		tables: map[model.DecorationType]*model.PricingTable{
			model.DecorationEmbroidery: flatTable(model.DecorationEmbroidery, "15.00"),
			model.DecorationDTG:        flatTable(model.DecorationDTG, "9.00"),
		},
		items: make(map[int]model.QuoteLineItem),
		tiers: make(map[int]string),
	}
}

func flatTable(dt model.DecorationType, price string) *model.PricingTable {
	table := &model.PricingTable{DecorationType: dt, Tiers: pricing.DefaultTiers()}
	for _, tier := range table.Tiers {
		table.Prices = append(table.Prices, model.PriceProfile{
			PricingKey: "STD",
			SizeGroup:  "ALL",
			TierLabel:  tier.Label,
			UnitPrice:  mustDecimal(price),
		})
	}
	table.SizeGroups = map[string]string{"S": "ALL", "M": "ALL", "L": "ALL", "XL": "ALL"}
	return table
}

func (f *fakeQuoteBackend) GetPricingTable(ctx context.Context, dt model.DecorationType) (*model.PricingTable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table, ok := f.tables[dt]
	if !ok {
		return nil, &proxy.StatusError{StatusCode: 404, Body: "no pricing"}
	}
	return table, nil
}

func (f *fakeQuoteBackend) CreateQuoteSession(ctx context.Context, q model.QuoteSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, q)
	return nil
}

func (f *fakeQuoteBackend) CreateQuoteItem(ctx context.Context, quoteID string, line int, tier string, item model.QuoteLineItem) error {
	if f.itemErr != nil {
		if err := f.itemErr(line); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[line] = item
	f.tiers[line] = tier
	return nil
}

type fakeSender struct {
	err    error
	params map[string]interface{}
}

func (f *fakeSender) Enabled() bool { return true }

func (f *fakeSender) Send(ctx context.Context, templateID string, params map[string]interface{}) error {
	f.params = params
	return f.err
}

type fakeQuoteLogs struct {
	mu   sync.Mutex
	logs []model.QuoteLog
}

func (f *fakeQuoteLogs) InsertQuoteLog(ctx context.Context, log *model.QuoteLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, *log)
	return nil
}

func (f *fakeQuoteLogs) GetQuoteLogs(ctx context.Context, limit, offset int) ([]model.QuoteLog, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logs, int64(len(f.logs)), nil
}

func (f *fakeQuoteLogs) Close() error { return nil }

func tenPieceRequest() pricing.QuoteRequest {
	return pricing.QuoteRequest{
		Products: []pricing.ProductRequest{{
			StyleNumber:    "PC54",
			Color:          "Navy",
			DecorationType: "Embroidery",
			PricingKey:     "STD",
			Sizes:          map[string]int{"S": 2, "M": 4, "L": 4},
		}},
	}
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 7, 10, 30, 0, 0, time.UTC)
}

func TestQuoteService_CalculateTenPieces(t *testing.T) {
	svc := NewQuoteService(QuoteDeps{Backend: newFakeQuoteBackend(), Logger: quietLogger()})

	quote, err := svc.Calculate(context.Background(), tenPieceRequest())
	require.NoError(t, err)

	require.Len(t, quote.LineItems, 1)
	line := quote.LineItems[0]
	assert.Equal(t, "5.00", line.LTMPerUnit.StringFixed(2))
	assert.Equal(t, "20.00", line.UnitPriceWithLTM.StringFixed(2))
	assert.Equal(t, "200.00", quote.Subtotal.StringFixed(2))
	assert.Equal(t, "200.00", quote.GrandTotal.StringFixed(2))
	assert.Equal(t, "50.00", quote.LTMFeeTotal.StringFixed(2))
	require.Len(t, quote.Types, 1)
	assert.Equal(t, "1-23", quote.Types[0].Tier)
}

func TestQuoteService_CalculateErrors(t *testing.T) {
	svc := NewQuoteService(QuoteDeps{Backend: newFakeQuoteBackend(), Logger: quietLogger()})
	ctx := context.Background()

	_, err := svc.Calculate(ctx, pricing.QuoteRequest{})
	assert.ErrorIs(t, err, ErrInvalidQuote)
	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))

	req := tenPieceRequest()
	req.Products[0].DecorationType = "laser"
	_, err = svc.Calculate(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidQuote)

	req = tenPieceRequest()
	req.Products[0].DecorationType = model.DecorationVinyl
	_, err = svc.Calculate(ctx, req)
	assert.ErrorIs(t, err, pricing.ErrPricingUnavailable)
	assert.True(t, proxy.IsNotFound(err))
}

func TestQuoteService_Save(t *testing.T) {
	backend := newFakeQuoteBackend()
	sender := &fakeSender{}
	logs := &fakeQuoteLogs{}
	svc := NewQuoteService(QuoteDeps{
		Backend:    backend,
		Email:      sender,
		TemplateID: "quote_tmpl",
		Directory:  email.NewDirectory(email.DefaultStaff, "sales@example.com"),
		Logs:       logs,
		Logger:     quietLogger(),
		Now:        fixedNow,
	})

	req := tenPieceRequest()
	req.Products = append(req.Products, pricing.ProductRequest{
		StyleNumber:    "G500",
		Color:          "Black",
		DecorationType: model.DecorationDTG,
		PricingKey:     "STD",
		Sizes:          map[string]int{"L": 30},
	})

	saved, err := svc.Save(context.Background(), SaveQuoteInput{
		Request:       req,
		Customer:      model.Customer{Name: "Jane Buyer", Email: "jane@buyer.test", Company: "Buyer Co"},
		SalesRepEmail: "print@example.com",
		SendEmail:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, "MIX0307-1", saved.Session.QuoteID)
	assert.Equal(t, fixedNow().Add(30*24*time.Hour), saved.Session.ExpiresAt)
	assert.Equal(t, "print@example.com", saved.Session.SalesRepEmail)
	assert.Empty(t, saved.Error)
	assert.Empty(t, saved.Warning)

	require.Len(t, backend.sessions, 1)
	assert.Len(t, backend.items, 2)
	assert.Equal(t, "1-23", backend.tiers[1])
	assert.Equal(t, "24-47", backend.tiers[2])

	assert.Equal(t, "MIX0307-1", sender.params["quote_id"])
	assert.Equal(t, "Print Desk", sender.params["sales_rep_name"])

	require.Len(t, logs.logs, 1)
	assert.Equal(t, model.EmailSent, logs.logs[0].EmailStatus)
	assert.Equal(t, saved.Session.TotalAmount.StringFixed(2), logs.logs[0].TotalAmount)
}

func TestQuoteService_SavePartialAndEmailFailure(t *testing.T) {
	backend := newFakeQuoteBackend()
	backend.itemErr = func(line int) error {
		if line == 2 {
			return &proxy.StatusError{StatusCode: 500, Body: "write failed"}
		}
		return nil
	}
	logs := &fakeQuoteLogs{}
	svc := NewQuoteService(QuoteDeps{
		Backend: backend,
		Email:   &fakeSender{err: errors.New("smtp down")},
		Logs:    logs,
		Logger:  quietLogger(),
		Now:     fixedNow,
	})

	saved, err := svc.Save(context.Background(), SaveQuoteInput{
		Request:   tenPieceRequest(),
		Customer:  model.Customer{Name: "Jane Buyer", Email: "jane@buyer.test"},
		SendEmail: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "EMB0307-1", saved.Session.QuoteID)
	assert.Equal(t, "sales@example.com", saved.Session.SalesRepEmail)
	assert.Equal(t, 0, saved.FailedItems)
	assert.NotEmpty(t, saved.Warning)

	// Two size price points produce two lines; the second fails to save.
	table := backend.tables[model.DecorationEmbroidery]
	table.Prices = append(table.Prices,
		model.PriceProfile{PricingKey: "STD", SizeGroup: "BIG", TierLabel: "1-23", UnitPrice: mustDecimal("17.00")})
	table.SizeGroups["2XL"] = "BIG"

	req := tenPieceRequest()
	req.Products[0].Sizes = map[string]int{"S": 2, "2XL": 1}

	saved, err = svc.Save(context.Background(), SaveQuoteInput{
		Request:  req,
		Customer: model.Customer{Name: "Jane Buyer", Email: "jane@buyer.test"},
	})
	require.NoError(t, err)
	assert.Equal(t, "EMB0307-2", saved.Session.QuoteID)
	assert.Equal(t, 1, saved.FailedItems)
	assert.Equal(t, "1 of 2 quote items failed to save", saved.Error)

	require.Len(t, logs.logs, 2)
	assert.Equal(t, model.EmailFailed, logs.logs[0].EmailStatus)
	assert.Equal(t, model.EmailSkipped, logs.logs[1].EmailStatus)
	assert.Equal(t, 1, logs.logs[1].FailedItems)
}

func TestQuoteService_SaveValidatesCustomer(t *testing.T) {
	svc := NewQuoteService(QuoteDeps{Backend: newFakeQuoteBackend(), Logger: quietLogger()})

	_, err := svc.Save(context.Background(), SaveQuoteInput{
		Request:  tenPieceRequest(),
		Customer: model.Customer{Name: "Jane", Email: "not-an-email"},
	})
	assert.ErrorIs(t, err, ErrInvalidQuote)
}

func TestQuotePrefix(t *testing.T) {
	assert.Equal(t, "EMB", QuotePrefix([]model.DecorationType{model.DecorationEmbroidery}))
	assert.Equal(t, "CAP", QuotePrefix([]model.DecorationType{model.DecorationCapEmbroidery}))
	assert.Equal(t, "SPC", QuotePrefix([]model.DecorationType{model.DecorationScreenPrint}))
	assert.Equal(t, "MIX", QuotePrefix([]model.DecorationType{model.DecorationDTG, model.DecorationDTF}))
	assert.Equal(t, "MIX", QuotePrefix(nil))
}

type countingPriceSource struct {
	calls int
	err   error
}

func (c *countingPriceSource) GetStylePrice(ctx context.Context, style string) (*model.StylePrice, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &model.StylePrice{
		StyleNumber: style,
		Sizes:       []model.SizePrice{{Size: "M", Price: mustDecimal("8.50")}},
		MinPrice:    mustDecimal("8.50"),
		MaxPrice:    mustDecimal("8.50"),
	}, nil
}

func TestPriceCacheService(t *testing.T) {
	ctx := context.Background()
	source := &countingPriceSource{}
	c := cache.NewMemoryCache()
	defer c.Close()
	svc := NewPriceCacheService(source, c, time.Hour, quietLogger())

	for i := 0; i < 3; i++ {
		sp, err := svc.GetStylePrice(ctx, "pc54")
		require.NoError(t, err)
		assert.Equal(t, "8.50", sp.MaxPrice.StringFixed(2))
	}
	assert.Equal(t, 1, source.calls)
	assert.EqualValues(t, 2, svc.Stats().Hits)

	require.NoError(t, svc.Invalidate(ctx, "PC54"))
	_, err := svc.GetStylePrice(ctx, "PC54")
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)

	failing := NewPriceCacheService(&countingPriceSource{err: errNetwork}, c, time.Hour, quietLogger())
	_, err = failing.GetStylePrice(ctx, "G500")
	assert.Error(t, err)

	assert.Nil(t, NewPriceCacheService(nil, c, time.Hour, nil))
}
