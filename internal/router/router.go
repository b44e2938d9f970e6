package router

import (
	"net/http"

	"decostore-rest-api/internal/handler"
	"decostore-rest-api/internal/metrics"
	"decostore-rest-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	CartHandler    *handler.CartHandler
	PricingHandler *handler.PricingHandler
	QuoteHandler   *handler.QuoteHandler
	AdminHandler   *handler.AdminHandler
	StaffAuth      func(http.Handler) http.Handler
	Metrics        *metrics.Metrics
	Logger         logrus.FieldLogger
	CORSOrigins    []string
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.NewRecovery(logger))
	r.Use(middleware.NewLogging(logger))
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetrics(cfg.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key", "X-Client-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	staffAuth := cfg.StaffAuth
	if staffAuth == nil {
		staffAuth = middleware.NewStaffAuth(nil)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		if cfg.CartHandler != nil {
			r.Route("/cart", func(r chi.Router) {
				r.Use(middleware.RequireClientID)
				r.Get("/", cfg.CartHandler.GetCart)
				r.Delete("/", cfg.CartHandler.ClearCart)
				r.Post("/items", cfg.CartHandler.AddItem)
				r.Get("/items/{item_ref}", cfg.CartHandler.GetItem)
				r.Delete("/items/{item_ref}", cfg.CartHandler.RemoveItem)
				r.Put("/items/{item_ref}/sizes/{size}", cfg.CartHandler.UpdateQuantity)
				r.Post("/items/{item_ref}/move-to-cart", cfg.CartHandler.MoveToCart)
				r.Post("/save-for-later", cfg.CartHandler.SaveForLater)
				r.Post("/sync", cfg.CartHandler.Sync)
			})
		}

		if cfg.PricingHandler != nil {
			r.Route("/pricing", func(r chi.Router) {
				r.Get("/styles/{style_number}", cfg.PricingHandler.GetStylePrice)
				r.Get("/locations", cfg.PricingHandler.GetLocations)
				r.Get("/decoration-types", cfg.PricingHandler.DecorationTypes)
			})
		}

		if cfg.QuoteHandler != nil {
			r.Post("/quotes/calculate", cfg.QuoteHandler.Calculate)
			r.Get("/quotes/sales-reps", cfg.QuoteHandler.SalesReps)
			r.With(staffAuth).Post("/quotes", cfg.QuoteHandler.Save)
		}

		// Staff-only routes
		if cfg.AdminHandler != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Use(staffAuth)
				r.Get("/stats", cfg.AdminHandler.GetStats)
				r.Post("/cleanup", cfg.AdminHandler.RunCleanup)
				r.Get("/quote-logs", cfg.AdminHandler.GetQuoteLogs)
				r.Delete("/cache/prices/{style_number}", cfg.AdminHandler.InvalidatePrice)
			})
		}
	})

	return r
}
