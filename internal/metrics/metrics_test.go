package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/movie/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(HTTPRequests.WithLabelValues(http.MethodGet, "/movie/{id}", "404"))
	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/movie/"+id, nil))
	}
	after := testutil.ToFloat64(HTTPRequests.WithLabelValues(http.MethodGet, "/movie/{id}", "404"))

	assert.Equal(t, before+2, after)
}

func TestRoutePatternUnmatched(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	assert.Equal(t, "unmatched", RoutePattern(req))
}

func TestRegisterPoolStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	calls := 0
	stats := func() *pgxpool.Stat {
		calls++
		return nil
	}
	require.NoError(t, RegisterPoolStats(reg, stats))

	n, err := testutil.GatherAndCount(reg, "cinema_db_pool_acquired_conns", "cinema_db_pool_idle_conns", "cinema_db_pool_total_conns", "cinema_db_pool_max_conns")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, calls)

	assert.Error(t, RegisterPoolStats(reg, stats))
}
