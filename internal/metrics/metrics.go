// Package metrics declares the Prometheus collectors for the catalog site.
// All collectors are registered against the default registry.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts served requests by route pattern and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinema_http_requests_total",
		Help: "Total HTTP requests served, by method, route pattern and status.",
	}, []string{"method", "route", "status"})

	// HTTPDuration tracks handler latency per route pattern.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cinema_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// CatalogErrors counts failed catalog operations.
	CatalogErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinema_catalog_errors_total",
		Help: "Failed catalog data operations, by operation.",
	}, []string{"op"})

	// ViewsRecorded counts successful view inserts.
	ViewsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cinema_views_recorded_total",
		Help: "Playback page views written to movie_views.",
	})

	// LinksProbed counts link checker outcomes.
	LinksProbed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinema_links_probed_total",
		Help: "Streaming link probes, by result.",
	}, []string{"result"})
)

// RegisterPoolStats publishes connection-pool gauges read from stats at scrape time.
// A nil snapshot reports zeros.
func RegisterPoolStats(reg prometheus.Registerer, stats func() *pgxpool.Stat) error {
	gauges := []struct {
		name, help string
		value      func(*pgxpool.Stat) float64
	}{
		{"cinema_db_pool_acquired_conns", "Connections currently checked out of the pool.", func(st *pgxpool.Stat) float64 { return float64(st.AcquiredConns()) }},
		{"cinema_db_pool_idle_conns", "Idle connections in the pool.", func(st *pgxpool.Stat) float64 { return float64(st.IdleConns()) }},
		{"cinema_db_pool_total_conns", "Open connections in the pool.", func(st *pgxpool.Stat) float64 { return float64(st.TotalConns()) }},
		{"cinema_db_pool_max_conns", "Configured pool size.", func(st *pgxpool.Stat) float64 { return float64(st.MaxConns()) }},
	}
	for _, g := range gauges {
		value := g.value
		collector := prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: g.name, Help: g.help}, func() float64 {
			st := stats()
			if st == nil {
				return 0
			}
			return value(st)
		})
		if err := reg.Register(collector); err != nil {
			return fmt.Errorf("register %s: %w", g.name, err)
		}
	}
	return nil
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency keyed by the chi route pattern,
// so /movie/{id} stays one series regardless of id.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := RoutePattern(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// RoutePattern returns the matched chi pattern, or "unmatched".
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
