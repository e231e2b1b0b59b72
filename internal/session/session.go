// Package session issues and verifies the admin dashboard session token.
//
// Login accepts any non-empty email and password; the token is an HS256 JWT
// carried in an HttpOnly cookie, or as a Bearer token by JSON clients.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Clark-Hu/cinema-online/internal/domain"
)

// CookieName is the admin session cookie.
const CookieName = "cinema_admin"

const issuer = "cinema-online"

var (
	// ErrMissingCredentials is returned by Login when a field is blank.
	ErrMissingCredentials = errors.New("session: email and password are required")
	// ErrNoSession is returned when a request carries no token.
	ErrNoSession = errors.New("session: no token")
	// ErrInvalidToken covers bad signatures, expiry and malformed claims.
	ErrInvalidToken = errors.New("session: invalid token")
)

// Claims is the JWT payload.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
}

// Manager signs and parses session tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewManager builds a Manager. secure marks the cookie Secure.
func NewManager(secret string, ttl time.Duration, secure bool) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
	}
}

// TTL is the lifetime of issued tokens.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Login checks the form fields and returns the identity to issue a token for.
func (m *Manager) Login(email, password string) (domain.Admin, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.Admin{}, ErrMissingCredentials
	}
	name := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		name = email[:at]
	}
	return domain.Admin{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Role:      domain.RoleAdmin,
		CreatedAt: m.now(),
	}, nil
}

// Issue signs a token for admin.
func (m *Manager) Issue(admin domain.Admin) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   admin.Email,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Role: string(admin.Role),
		Name: admin.Name,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns the admin it names.
func (m *Manager) Parse(raw string) (domain.Admin, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return domain.Admin{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.Role != string(domain.RoleAdmin) {
		return domain.Admin{}, ErrInvalidToken
	}
	admin := domain.Admin{
		ID:    claims.ID,
		Email: claims.Subject,
		Name:  claims.Name,
		Role:  domain.AdminRole(claims.Role),
	}
	if claims.IssuedAt != nil {
		admin.CreatedAt = claims.IssuedAt.Time
	}
	return admin, nil
}

// FromRequest reads the token from the session cookie, then from a Bearer header.
func (m *Manager) FromRequest(r *http.Request) (domain.Admin, error) {
	raw := ""
	if c, err := r.Cookie(CookieName); err == nil {
		raw = c.Value
	}
	if raw == "" {
		auth := strings.TrimSpace(r.Header.Get("Authorization"))
		if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
			raw = strings.TrimSpace(auth[7:])
		}
	}
	if raw == "" {
		return domain.Admin{}, ErrNoSession
	}
	return m.Parse(raw)
}

// SetCookie stores token on the response.
func (m *Manager) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		Expires:  m.now().Add(m.ttl),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
