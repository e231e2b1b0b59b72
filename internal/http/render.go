package httpserver

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Clark-Hu/cinema-online/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"home", "list", "detail", "watch", "search",
	"admin_login", "dashboard", "not_found", "error",
}

type renderer struct {
	pages map[string]*template.Template
}

// page is the envelope every template receives; Data holds the page-specific model.
type page struct {
	Site        string
	Title       string
	Description string
	Nav         string
	Query       string
	Admin       *domain.Admin
	Data        interface{}
}

func newRenderer() (*renderer, error) {
	r := &renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

func (rd *renderer) execute(w http.ResponseWriter, status int, name string, p page) error {
	t, ok := rd.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		return fmt.Errorf("execute template %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

var templateFuncs = template.FuncMap{
	"rating": func(v float64) string {
		return fmt.Sprintf("%.1f", v)
	},
	"duration":    formatDuration,
	"typeLabel":   typeLabel,
	"statusLabel": statusLabel,
	"join":        strings.Join,
	"truncate":    truncate,
	"compact":     compactNumber,
	"year":        func() int { return time.Now().Year() },
	"isSeries":    func(t domain.ContentType) bool { return t == domain.TypeSeries },
	"active":      func(s domain.Status) bool { return s == domain.StatusActive },
	"dict":        dict,
	"seq":         seq,
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// dict builds a map from alternating keys and values so partials can take several arguments.
func dict(pairs ...interface{}) (map[string]interface{}, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]interface{}, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

func formatDuration(mins int) string {
	if mins <= 0 {
		return ""
	}
	h, m := mins/60, mins%60
	switch {
	case h == 0:
		return fmt.Sprintf("%d دقيقة", m)
	case m == 0:
		return fmt.Sprintf("%d ساعة", h)
	default:
		return fmt.Sprintf("%dس %dد", h, m)
	}
}

func typeLabel(t domain.ContentType) string {
	if t == domain.TypeSeries {
		return "مسلسل"
	}
	return "فيلم"
}

func statusLabel(s domain.Status) string {
	if s == domain.StatusActive {
		return "نشط"
	}
	return "غير نشط"
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

func compactNumber(n int64) string {
	switch {
	case n >= 1_000_000:
		return trimZero(fmt.Sprintf("%.1f", float64(n)/1_000_000)) + "M"
	case n >= 1_000:
		return trimZero(fmt.Sprintf("%.1f", float64(n)/1_000)) + "K"
	default:
		return fmt.Sprintf("%d", n)
	}
}

func trimZero(s string) string {
	return strings.TrimSuffix(s, ".0")
}
