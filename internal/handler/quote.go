package handler

import (
	"errors"
	"net/http"

	"decostore-rest-api/internal/email"
	"decostore-rest-api/internal/pricing"
	"decostore-rest-api/internal/service"
	"decostore-rest-api/pkg/apierror"
	"decostore-rest-api/pkg/response"

	"github.com/sirupsen/logrus"
)

// QuoteHandler handles quote pricing and saving.
type QuoteHandler struct {
	quotes *service.QuoteService
	staff  *email.Directory
	logger logrus.FieldLogger
}

// NewQuoteHandler creates a new quote handler. staff may be nil.
func NewQuoteHandler(quotes *service.QuoteService, staff *email.Directory, logger logrus.FieldLogger) *QuoteHandler {
	return &QuoteHandler{
		quotes: quotes,
		staff:  staff,
		logger: logger.WithField("component", "quote_handler"),
	}
}

// SalesReps handles GET /api/v1/quotes/sales-reps
func (h *QuoteHandler) SalesReps(w http.ResponseWriter, r *http.Request) {
	if h.staff == nil {
		response.OK(w, []email.StaffMember{})
		return
	}
	response.OK(w, h.staff.Members())
}

func (h *QuoteHandler) quoteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidQuote):
		response.Error(w, validationError("Invalid quote request", err))
	case errors.Is(err, pricing.ErrPricingUnavailable):
		h.logger.WithError(err).Warn("pricing unavailable")
		response.Error(w, apierror.ServiceUnavailable("Pricing is temporarily unavailable"))
	default:
		h.logger.WithError(err).Error("quote request failed")
		response.Error(w, upstreamError(err))
	}
}

// Calculate handles POST /api/v1/quotes/calculate
func (h *QuoteHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req pricing.QuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	quote, err := h.quotes.Calculate(r.Context(), req)
	if err != nil {
		h.quoteError(w, err)
		return
	}
	response.OK(w, quote)
}

// Save handles POST /api/v1/quotes
func (h *QuoteHandler) Save(w http.ResponseWriter, r *http.Request) {
	var in service.SaveQuoteInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Error(w, err)
		return
	}

	saved, err := h.quotes.Save(r.Context(), in)
	if err != nil {
		h.quoteError(w, err)
		return
	}
	response.Created(w, saved)
}
