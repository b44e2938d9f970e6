package handler

import (
	"context"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"decostore-rest-api/internal/cache"
	"decostore-rest-api/internal/model"
	"decostore-rest-api/internal/repository"
	"decostore-rest-api/pkg/apierror"
	"decostore-rest-api/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// StylePrices is the cached style price lookup.
type StylePrices interface {
	GetStylePrice(ctx context.Context, styleNumber string) (*model.StylePrice, error)
	Invalidate(ctx context.Context, styleNumber string) error
	Stats() cache.Stats
}

// MirrorCleaner prunes stale mirror entries on demand.
type MirrorCleaner interface {
	RunNow() (int64, error)
}

// CartCounter reports how many carts are held in memory.
type CartCounter interface {
	Len() int
}

// AdminDeps are the collaborators of AdminHandler. All are optional.
type AdminDeps struct {
	Mirror     repository.MirrorRepository
	MirrorType string
	Prices     StylePrices
	Carts      CartCounter
	Cleanup    MirrorCleaner
	QuoteLogs  repository.QuoteLogRepository
	Logger     logrus.FieldLogger
}

// AdminHandler handles staff-only HTTP requests.
type AdminHandler struct {
	deps      AdminDeps
	logger    logrus.FieldLogger
	startTime time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDeps) *AdminHandler {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AdminHandler{
		deps:      deps,
		logger:    logger.WithField("component", "admin_handler"),
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	if h.deps.Mirror != nil {
		mirrorStats, err := h.deps.Mirror.GetStats(ctx)
		if err == nil {
			mirrorStats["status"] = "connected"
			mirrorStats["type"] = h.deps.MirrorType
			stats["mirror"] = mirrorStats
		} else {
			stats["mirror"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["mirror"] = map[string]interface{}{"status": "not_configured"}
	}

	if h.deps.Prices != nil {
		stats["price_cache"] = h.deps.Prices.Stats()
	} else {
		stats["price_cache"] = map[string]interface{}{"status": "not_configured"}
	}

	if h.deps.Carts != nil {
		stats["carts_in_memory"] = h.deps.Carts.Len()
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// RunCleanup handles POST /api/v1/admin/cleanup
func (h *AdminHandler) RunCleanup(w http.ResponseWriter, r *http.Request) {
	if h.deps.Cleanup == nil {
		response.Error(w, apierror.ServiceUnavailable("Cart mirror is not configured"))
		return
	}
	deleted, err := h.deps.Cleanup.RunNow()
	if err != nil {
		h.logger.WithError(err).Error("manual mirror cleanup failed")
		response.Error(w, apierror.InternalError("Cleanup failed"))
		return
	}
	response.OK(w, map[string]interface{}{"deleted": deleted})
}

// InvalidatePrice handles DELETE /api/v1/admin/cache/prices/{style_number}
func (h *AdminHandler) InvalidatePrice(w http.ResponseWriter, r *http.Request) {
	style := strings.TrimSpace(chi.URLParam(r, "style_number"))
	if h.deps.Prices == nil {
		response.Error(w, apierror.ServiceUnavailable("Pricing is not configured"))
		return
	}
	if err := h.deps.Prices.Invalidate(r.Context(), style); err != nil {
		h.logger.WithError(err).WithField("style_number", style).Error("failed to invalidate price")
		response.Error(w, apierror.InternalError("Failed to invalidate cached price"))
		return
	}
	response.NoContent(w)
}

// GetQuoteLogs handles GET /api/v1/admin/quote-logs
func (h *AdminHandler) GetQuoteLogs(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	if h.deps.QuoteLogs == nil {
		response.JSONWithMeta(w, http.StatusOK, []model.QuoteLog{}, page, limit, 0)
		return
	}

	logs, total, err := h.deps.QuoteLogs.GetQuoteLogs(r.Context(), limit, (page-1)*limit)
	if err != nil {
		h.logger.WithError(err).Error("failed to fetch quote logs")
		response.Error(w, apierror.InternalError("Failed to fetch logs"))
		return
	}
	if logs == nil {
		logs = []model.QuoteLog{}
	}
	response.JSONWithMeta(w, http.StatusOK, logs, page, limit, total)
}
