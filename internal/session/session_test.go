package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/cinema-online/internal/domain"
)

const testSecret = "0123456789abcdef0123"

func newTestManager(now time.Time) *Manager {
	m := NewManager(testSecret, time.Hour, false)
	m.now = func() time.Time { return now }
	return m
}

func TestLogin(t *testing.T) {
	m := newTestManager(time.Now())

	admin, err := m.Login("  editor@cinema.example ", "anything")
	require.NoError(t, err)
	assert.Equal(t, "editor@cinema.example", admin.Email)
	assert.Equal(t, "editor", admin.Name)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	for _, tc := range [][2]string{{"", "pw"}, {"  ", "pw"}, {"a@b.c", ""}} {
		_, err := m.Login(tc[0], tc[1])
		assert.ErrorIs(t, err, ErrMissingCredentials)
	}
}

func TestIssueAndParse(t *testing.T) {
	now := time.Now()
	m := newTestManager(now)
	admin, err := m.Login("root@cinema.example", "pw")
	require.NoError(t, err)

	token, err := m.Issue(admin)
	require.NoError(t, err)

	got, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "root@cinema.example", got.Email)
	assert.Equal(t, "root", got.Name)
	assert.Equal(t, domain.RoleAdmin, got.Role)
}

func TestParseRejects(t *testing.T) {
	now := time.Now()
	m := newTestManager(now)
	admin, _ := m.Login("root@cinema.example", "pw")
	token, err := m.Issue(admin)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := newTestManager(now.Add(2 * time.Hour))
		_, err := later.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewManager("another-secret-of-length", time.Hour, false)
		_, err := other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong role", func(t *testing.T) {
		claims := Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "viewer@cinema.example",
				Issuer:    issuer,
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			Role: "viewer",
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = m.Parse(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("alg none", func(t *testing.T) {
		claims := Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "root@cinema.example",
				Issuer:    issuer,
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			Role: "admin",
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Parse(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestFromRequest(t *testing.T) {
	m := newTestManager(time.Now())
	admin, _ := m.Login("root@cinema.example", "pw")
	token, err := m.Issue(admin)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	_, err = m.FromRequest(req)
	assert.ErrorIs(t, err, ErrNoSession)

	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	got, err := m.FromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "root@cinema.example", got.Email)

	bearer := httptest.NewRequest(http.MethodPost, "/api/admin/movies", nil)
	bearer.Header.Set("Authorization", "bearer "+token)
	got, err = m.FromRequest(bearer)
	require.NoError(t, err)
	assert.Equal(t, "root@cinema.example", got.Email)
}

func TestCookies(t *testing.T) {
	m := newTestManager(time.Now())

	rec := httptest.NewRecorder()
	m.SetCookie(rec, "tok")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	rec = httptest.NewRecorder()
	m.ClearCookie(rec)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}
