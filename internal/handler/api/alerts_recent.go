package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	domrepo "ChochScan/internal/domain/repository"
	icache "ChochScan/internal/service/cache"
	"ChochScan/internal/service/metrics"
	"ChochScan/internal/service/ratelimit"
	applogger "ChochScan/pkg/logger"
	"ChochScan/pkg/util"
)

// RecentSignalsHandler serves the most recent alerts on a hot path the
// dashboard polls every few seconds. It stays on plain net/http with a
// byte cache so repeated polls skip binding and the database entirely.
type RecentSignalsHandler struct {
	store domrepo.AlertStore
	cache icache.BytesCache
	rl    *ratelimit.Limiter
	l     *applogger.Logger
}

func NewRecentSignalsHandler(store domrepo.AlertStore) *RecentSignalsHandler {
	metrics.Register()
	return &RecentSignalsHandler{store: store, rl: ratelimit.New()}
}

func (h *RecentSignalsHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLogger injects a structured logger.
func (h *RecentSignalsHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *RecentSignalsHandler) Recent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "recent"
		defer func() {
			metrics.DashboardLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		}()

		limit := util.ParseIntDefault(r.URL.Query().Get("limit"), 50)
		if limit < 1 || limit > 500 {
			http.Error(w, "limit out of range", http.StatusBadRequest)
			return
		}
		if !h.rl.Allow(r.RemoteAddr+":recent", 5, 2) {
			if h.l != nil {
				h.l.Warn("signals.recent rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}

		cacheKey := "recent:" + strconv.Itoa(limit)
		if h.cache != nil {
			if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
				if h.l != nil {
					h.l.Warn("signals.recent cache_get_error", applogger.Error(err))
				}
			} else if ok {
				w.Header().Set("Content-Type", "application/json")
				if _, err := w.Write(b); err != nil && h.l != nil {
					h.l.Warn("signals.recent write_error", applogger.Error(err))
				}
				return
			}
		}

		alerts, total, err := h.store.List(r.Context(), domrepo.AlertFilter{Limit: limit})
		if err != nil {
			metrics.DashboardErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("signals.recent error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		b, err := json.Marshal(map[string]interface{}{"alerts": alerts, "total": total})
		if err != nil {
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if h.cache != nil {
			if err := h.cache.SetBytes(cacheKey, b, 5*time.Second); err != nil && h.l != nil {
				h.l.Warn("signals.recent cache_set_error", applogger.Error(err))
			}
		}
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("signals.recent write_error", applogger.Error(err))
		}
	}
}
