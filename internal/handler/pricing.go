package handler

import (
	"net/http"
	"strings"

	"decostore-rest-api/internal/model"
	"decostore-rest-api/internal/pricing"
	"decostore-rest-api/pkg/apierror"
	"decostore-rest-api/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// PricingHandler serves display prices and the print location catalog.
type PricingHandler struct {
	prices StylePrices
	logger logrus.FieldLogger
}

// NewPricingHandler creates a new pricing handler. prices may be nil when
// no proxy is configured.
func NewPricingHandler(prices StylePrices, logger logrus.FieldLogger) *PricingHandler {
	return &PricingHandler{
		prices: prices,
		logger: logger.WithField("component", "pricing_handler"),
	}
}

// GetStylePrice handles GET /api/v1/pricing/styles/{style_number}
func (h *PricingHandler) GetStylePrice(w http.ResponseWriter, r *http.Request) {
	style := strings.TrimSpace(chi.URLParam(r, "style_number"))
	if style == "" {
		response.Error(w, apierror.BadRequest("style_number is required"))
		return
	}
	if h.prices == nil {
		response.Error(w, apierror.ServiceUnavailable("Pricing is not configured"))
		return
	}

	price, err := h.prices.GetStylePrice(r.Context(), style)
	if err != nil {
		h.logger.WithError(err).WithField("style_number", style).Warn("style price lookup failed")
		response.Error(w, upstreamError(err))
		return
	}
	response.OK(w, price)
}

// LocationsResponse is the location catalog plus an optional resolved
// selection.
type LocationsResponse struct {
	Locations  []pricing.Location `json:"locations"`
	Selected   []pricing.Location `json:"selected,omitempty"`
	PricingKey string             `json:"pricing_key,omitempty"`
}

// GetLocations handles GET /api/v1/pricing/locations
// ?select=LC,FB toggles the codes in order and returns the combined key.
func (h *PricingHandler) GetLocations(w http.ResponseWriter, r *http.Request) {
	resp := LocationsResponse{Locations: pricing.Locations()}

	if raw := r.URL.Query().Get("select"); raw != "" {
		sel, err := pricing.NewLocationSelection(strings.Split(raw, ",")...)
		if err != nil {
			response.Error(w, apierror.BadRequest(err.Error()))
			return
		}
		resp.Selected = sel.Selected()
		resp.PricingKey = sel.Key()
	}
	response.OK(w, resp)
}

// DecorationTypes handles GET /api/v1/pricing/decoration-types
func (h *PricingHandler) DecorationTypes(w http.ResponseWriter, r *http.Request) {
	response.OK(w, model.DecorationTypes)
}
