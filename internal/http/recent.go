package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/Clark-Hu/cinema-online/internal/catalog"
)

const (
	recentCookie   = "cinema_recent"
	maxRecent      = 5
	maxRecentRunes = 100
	recentMaxAge   = 90 * 24 * 60 * 60
)

// readRecent decodes the recent-searches cookie. A damaged cookie reads as empty.
func readRecent(r *http.Request) []string {
	c, err := r.Cookie(recentCookie)
	if err != nil || c.Value == "" {
		return []string{}
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return []string{}
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{}
	}
	out := make([]string, 0, maxRecent)
	for i := len(items) - 1; i >= 0; i-- {
		out = pushRecent(out, items[i])
	}
	return out
}

// recordRecent stores q at the head of the list when it is long enough to search.
func recordRecent(w http.ResponseWriter, r *http.Request, q string) []string {
	current := readRecent(r)
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < catalog.MinSearchLength {
		return current
	}
	next := pushRecent(current, q)
	writeRecent(w, next)
	return next
}

func clearRecent(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     recentCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeRecent(w http.ResponseWriter, items []string) {
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     recentCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   recentMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// pushRecent puts q first, drops an earlier copy and keeps at most maxRecent entries.
func pushRecent(items []string, q string) []string {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) > maxRecentRunes {
		q = strings.TrimSpace(string([]rune(q)[:maxRecentRunes]))
	}
	if q == "" {
		return items
	}
	out := make([]string, 0, maxRecent)
	out = append(out, q)
	for _, item := range items {
		if item == q {
			continue
		}
		if len(out) == maxRecent {
			break
		}
		out = append(out, item)
	}
	return out
}
