package httpserver

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/cinema-online/internal/domain"
)

type adminCtxKey struct{}

// requestLogger writes one structured line per request.
func requestLogger(logger *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			entry := logger.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
				"remote":      r.RemoteAddr,
			})
			switch {
			case status >= http.StatusInternalServerError:
				entry.Error("request")
			case r.URL.Path == "/healthz" || r.URL.Path == "/metrics":
				entry.Debug("request")
			default:
				entry.Info("request")
			}
		})
	}
}

// requireAdminPage redirects to the login page when the session is missing or invalid.
func (s *Server) requireAdminPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, err := s.sessions.FromRequest(r)
		if err != nil {
			s.sessions.ClearCookie(w)
			target := "/admin"
			if r.Method == http.MethodGet {
				target += "?next=" + url.QueryEscape(r.URL.RequestURI())
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(withAdmin(r.Context(), admin)))
	})
}

// requireAdminAPI answers 401 when the session is missing or invalid.
func (s *Server) requireAdminAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, err := s.sessions.FromRequest(r)
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
			return
		}
		next.ServeHTTP(w, r.WithContext(withAdmin(r.Context(), admin)))
	})
}

func withAdmin(ctx context.Context, admin domain.Admin) context.Context {
	return context.WithValue(ctx, adminCtxKey{}, admin)
}

func adminFromContext(ctx context.Context) (domain.Admin, bool) {
	admin, ok := ctx.Value(adminCtxKey{}).(domain.Admin)
	return admin, ok
}
