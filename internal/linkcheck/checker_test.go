package linkcheck

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/cinema-online/internal/domain"
	"github.com/Clark-Hu/cinema-online/internal/logging"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<html>player</html>"))
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusFound)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func linkTo(id, url string) domain.StreamingLink {
	return domain.StreamingLink{ID: id, MovieID: "m1", ServerName: "S", Quality: "HD", URL: url, IsActive: true}
}

func TestHTTPCheckerCheck(t *testing.T) {
	srv := newUpstream(t)
	checker := NewHTTPChecker(300*time.Millisecond, logging.Discard())
	ctx := context.Background()

	tests := []struct {
		name      string
		link      domain.StreamingLink
		reachable bool
		status    int
	}{
		{"ok", linkTo("1", srv.URL+"/ok"), true, http.StatusOK},
		{"redirect followed", linkTo("2", srv.URL+"/moved"), true, http.StatusOK},
		{"gone", linkTo("3", srv.URL+"/gone"), false, http.StatusGone},
		{"timeout", linkTo("4", srv.URL+"/slow"), false, 0},
		{"no target", linkTo("5", "not a url"), false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := checker.Check(ctx, tt.link)
			assert.Equal(t, tt.reachable, res.Reachable)
			assert.Equal(t, tt.status, res.Status)
			if !tt.reachable {
				assert.Error(t, res.Err)
			}
		})
	}
}

func TestHTTPCheckerUsesEmbedSource(t *testing.T) {
	srv := newUpstream(t)
	checker := NewHTTPChecker(time.Second, logging.Discard())

	link := linkTo("1", srv.URL+"/gone")
	embed := `<iframe src="` + srv.URL + `/ok"></iframe>`
	link.EmbedCode = &embed

	res := checker.Check(context.Background(), link)
	assert.True(t, res.Reachable)
	assert.Equal(t, srv.URL+"/ok", res.Target)
}

func TestHTTPCheckerNoTarget(t *testing.T) {
	checker := NewHTTPChecker(time.Second, logging.Discard())
	res := checker.Check(context.Background(), linkTo("1", ""))
	assert.ErrorIs(t, res.Err, ErrNoTarget)
}

type stubChecker struct {
	mu       sync.Mutex
	inFlight int
	peak     int
	down     map[string]bool
}

func (s *stubChecker) Check(_ context.Context, link domain.StreamingLink) Result {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	s.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	if s.down[link.ID] {
		return Result{Link: link, Status: http.StatusNotFound, Err: errors.New("down")}
	}
	return Result{Link: link, Status: http.StatusOK, Reachable: true}
}

func TestCheckAllKeepsOrderAndLimit(t *testing.T) {
	stub := &stubChecker{}
	links := make([]domain.StreamingLink, 12)
	for i := range links {
		links[i] = linkTo(string(rune('a'+i)), "https://x.example")
	}

	results := CheckAll(context.Background(), stub, links, 3)
	require.Len(t, results, len(links))
	for i, res := range results {
		assert.Equal(t, links[i].ID, res.Link.ID)
	}
	assert.LessOrEqual(t, stub.peak, 3)
}

type fakeSource struct {
	links       []domain.StreamingLink
	deactivated []string
	failOn      string
}

func (f *fakeSource) ListActiveLinks(context.Context) ([]domain.StreamingLink, error) {
	return f.links, nil
}

func (f *fakeSource) DeactivateLink(_ context.Context, id string) error {
	if id == f.failOn {
		return errors.New("db down")
	}
	f.deactivated = append(f.deactivated, id)
	return nil
}

func TestSweep(t *testing.T) {
	links := []domain.StreamingLink{linkTo("a", "u"), linkTo("b", "u"), linkTo("c", "u"), linkTo("d", "u")}
	stub := &stubChecker{down: map[string]bool{"b": true, "c": true}}

	t.Run("report only", func(t *testing.T) {
		src := &fakeSource{links: links}
		report, err := Sweep(context.Background(), src, stub, 2, false, logging.Discard())
		require.NoError(t, err)
		assert.Equal(t, 4, report.Checked)
		assert.Equal(t, 2, report.Unreachable)
		assert.Equal(t, 0, report.Deactivated)
		assert.Empty(t, src.deactivated)
	})

	t.Run("deactivate continues past failures", func(t *testing.T) {
		src := &fakeSource{links: links, failOn: "b"}
		report, err := Sweep(context.Background(), src, stub, 2, true, logging.Discard())
		require.NoError(t, err)
		assert.Equal(t, 2, report.Unreachable)
		assert.Equal(t, 1, report.Deactivated)
		assert.Equal(t, []string{"c"}, src.deactivated)
	})
}
