package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/cinema-online/internal/catalog"
	"github.com/Clark-Hu/cinema-online/internal/catalog/catalogtest"
	"github.com/Clark-Hu/cinema-online/internal/config"
	"github.com/Clark-Hu/cinema-online/internal/domain"
	"github.com/Clark-Hu/cinema-online/internal/logging"
	"github.com/Clark-Hu/cinema-online/internal/session"
)

type testEnv struct {
	db       *catalogtest.Memory
	catalog  *catalog.Service
	sessions *session.Manager
	srv      *Server
}

type stubHealth struct{ err error }

func (h stubHealth) HealthCheck(context.Context) error { return h.err }

func newTestEnv(tb testing.TB) *testEnv {
	tb.Helper()
	return newTestEnvWithHealth(tb, nil)
}

func newTestEnvWithHealth(tb testing.TB, health HealthChecker) *testEnv {
	tb.Helper()
	db := catalogtest.New()
	svc := catalogtest.NewService(db)
	sessions := session.NewManager("test-secret-0123456789", time.Hour, false)
	cfg := config.Config{
		Port:             "0",
		SiteName:         "سينما أونلاين",
		ReadTimeoutSecs:  15,
		WriteTimeoutSecs: 15,
		IdleTimeoutSecs:  60,
	}
	srv, err := New(cfg, svc, health, sessions, logging.Discard())
	require.NoError(tb, err)
	return &testEnv{db: db, catalog: svc, sessions: sessions, srv: srv}
}

func (e *testEnv) seed(tb testing.TB, title string, typ domain.ContentType, rating float64, genres ...string) domain.Movie {
	tb.Helper()
	m, err := e.catalog.CreateMovie(context.Background(), catalog.MovieInput{
		Title:       title,
		Description: title + " description",
		Type:        typ,
		Rating:      rating,
		Genre:       genres,
	})
	require.NoError(tb, err)
	return m
}

func (e *testEnv) adminToken(tb testing.TB) string {
	tb.Helper()
	admin, err := e.sessions.Login("editor@example.com", "pw")
	require.NoError(tb, err)
	token, err := e.sessions.Issue(admin)
	require.NoError(tb, err)
	return token
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (e *testEnv) asAdmin(tb testing.TB, req *http.Request) *http.Request {
	tb.Helper()
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: e.adminToken(tb)})
	return req
}

func jsonRequest(tb testing.TB, method, path string, payload interface{}) *http.Request {
	tb.Helper()
	var body io.Reader = http.NoBody
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(tb, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(method, path string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decodeJSON(tb testing.TB, rec *httptest.ResponseRecorder, dst interface{}) {
	tb.Helper()
	require.NoError(tb, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestHealthz(t *testing.T) {
	t.Run("no checker", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.get("/healthz")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("database down", func(t *testing.T) {
		env := newTestEnvWithHealth(t, stubHealth{err: errors.New("dial tcp: refused")})
		rec := env.get("/healthz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp errorResponse
		decodeJSON(t, rec, &resp)
		assert.Equal(t, "UNAVAILABLE", resp.Code)
	})

	t.Run("database up", func(t *testing.T) {
		env := newTestEnvWithHealth(t, stubHealth{})
		rec := env.get("/healthz")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.get("/api/movies")

	rec := env.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cinema_http_requests_total")
}

func TestUnknownRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	rec = env.get("/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "404")
}

func TestRendererParsesEveryPage(t *testing.T) {
	r, err := newRenderer()
	require.NoError(t, err)
	for _, name := range pageNames {
		assert.Contains(t, r.pages, name)
	}

	rec := httptest.NewRecorder()
	err = r.execute(rec, http.StatusOK, "missing", page{})
	assert.Error(t, err)
}
