package httpserver

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/cinema-online/internal/catalog"
	"github.com/Clark-Hu/cinema-online/internal/domain"
	"github.com/Clark-Hu/cinema-online/internal/session"
)

const (
	dashboardRecent = 5
	maxFormMemory   = 1 << 20
)

const (
	tabOverview = "overview"
	tabMovies   = "movies"
	tabSeries   = "series"
)

var flashMessages = map[string]string{
	"created":  "تم إضافة المحتوى بنجاح",
	"toggled":  "تم تحديث حالة المحتوى",
	"deleted":  "تم حذف المحتوى",
	"episode":  "تم إضافة الحلقة بنجاح",
	"loggedin": "مرحباً بك في لوحة التحكم",
}

var flashErrors = map[string]string{
	"invalid":   "يرجى التحقق من البيانات المدخلة",
	"not_found": "المحتوى غير موجود",
	"conflict":  "هذه الحلقة موجودة بالفعل",
	"failed":    "حدث خطأ أثناء حفظ البيانات",
}

var fieldLabels = map[string]string{
	"title":          "العنوان",
	"description":    "الوصف",
	"type":           "النوع",
	"status":         "الحالة",
	"rating":         "التقييم",
	"release_year":   "سنة الإصدار",
	"duration":       "المدة",
	"season_number":  "رقم الموسم",
	"episode_number": "رقم الحلقة",
	"movie_id":       "المحتوى",
	"server_name":    "اسم السيرفر",
	"quality":        "الجودة",
	"url":            "الرابط",
}

type loginData struct {
	Email      string
	Error      string
	Next       string
	Connection catalog.ConnectionStatus
}

type dashboardData struct {
	Tab     string
	Query   string
	Stats   domain.CatalogStats
	Recent  []domain.Movie
	Rows    []domain.Movie
	Total   int
	Message string
	Error   string
	Failed  bool
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if _, err := s.sessions.FromRequest(r); err == nil {
		http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
		return
	}
	s.renderLogin(w, r, http.StatusOK, loginData{Next: safeNext(r.URL.Query().Get("next"))})
}

func (s *Server) handleAdminLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderLogin(w, r, http.StatusBadRequest, loginData{Error: "تعذر قراءة النموذج"})
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	next := safeNext(r.PostForm.Get("next"))

	admin, err := s.sessions.Login(email, r.PostForm.Get("password"))
	if errors.Is(err, session.ErrMissingCredentials) {
		s.renderLogin(w, r, http.StatusUnprocessableEntity, loginData{
			Email: email,
			Next:  next,
			Error: "يرجى إدخال جميع البيانات",
		})
		return
	}
	if err != nil {
		s.renderFailure(w, r, err)
		return
	}

	token, err := s.sessions.Issue(admin)
	if err != nil {
		s.logger.WithError(err).Error("issue session token")
		s.renderFailure(w, r, err)
		return
	}
	s.sessions.SetCookie(w, token)
	s.logger.WithField("admin", admin.Email).Info("admin signed in")

	if next == "" {
		next = "/admin/dashboard?msg=loggedin"
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.ClearCookie(w)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, data loginData) {
	data.Connection = s.catalog.CheckConnection(r.Context())
	s.render(w, r, status, "admin_login", s.newPage(r, "دخول الإدارة - "+s.cfg.SiteName, "admin", data))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	data := dashboardData{
		Tab:     dashboardTab(query.Get("tab")),
		Query:   strings.TrimSpace(query.Get("q")),
		Message: flashMessages[query.Get("msg")],
		Error:   flashError(query.Get("err"), query.Get("field")),
	}
	status := http.StatusOK

	all, err := s.catalog.ListAll(r.Context())
	if err != nil {
		s.reportError(r, err)
		data.Failed = true
		status = http.StatusInternalServerError
	} else {
		data.Stats = tally(all)
		data.Recent = catalog.Window(all, 0, dashboardRecent)
		data.Rows = filterRows(all, data.Tab, data.Query)
		data.Total = len(all)
	}
	if stats, err := s.catalog.Stats(r.Context()); err == nil {
		data.Stats.Views = stats.Views
	}

	p := s.newPage(r, "لوحة التحكم - "+s.cfg.SiteName, "admin", data)
	if admin, ok := adminFromContext(r.Context()); ok {
		p.Admin = &admin
	}
	s.render(w, r, status, "dashboard", p)
}

func (s *Server) handleAdminCreateMovie(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.redirectDashboard(w, r, tabOverview, url.Values{"err": {"invalid"}})
		return
	}
	form := r.PostForm

	in, ferr := movieFromForm(form)
	if ferr != nil {
		s.redirectDashboard(w, r, tabOverview, validationFlash(ferr))
		return
	}
	movie, stored, err := s.catalog.CreateMovieWithLinks(r.Context(), in, linksFromForm(form))
	if err != nil {
		s.redirectDashboard(w, r, tabOverview, s.flashFor(r, err))
		return
	}
	s.logger.WithFields(logrus.Fields{"movie_id": movie.ID, "links": stored}).Info("admin created movie")
	s.redirectDashboard(w, r, tabForType(movie.Type), url.Values{"msg": {"created"}})
}

func (s *Server) handleAdminToggleStatus(w http.ResponseWriter, r *http.Request) {
	movie, err := s.catalog.ToggleStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.redirectDashboard(w, r, returnTab(r), s.flashFor(r, err))
		return
	}
	s.logger.WithFields(logrus.Fields{"movie_id": movie.ID, "status": movie.Status}).Info("admin toggled status")
	s.redirectDashboard(w, r, returnTab(r), url.Values{"msg": {"toggled"}})
}

func (s *Server) handleAdminDeleteMovie(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.catalog.DeleteMovie(r.Context(), id); err != nil {
		s.redirectDashboard(w, r, returnTab(r), s.flashFor(r, err))
		return
	}
	s.logger.WithField("movie_id", id).Info("admin deleted movie")
	s.redirectDashboard(w, r, returnTab(r), url.Values{"msg": {"deleted"}})
}

func (s *Server) handleAdminCreateEpisode(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.redirectDashboard(w, r, tabSeries, url.Values{"err": {"invalid"}})
		return
	}
	form := r.PostForm
	movieID := chi.URLParam(r, "id")

	in, ferr := episodeFromForm(movieID, form)
	if ferr != nil {
		s.redirectDashboard(w, r, tabSeries, validationFlash(ferr))
		return
	}
	ctx := r.Context()
	episode, err := s.catalog.CreateEpisode(ctx, in)
	if err != nil {
		s.redirectDashboard(w, r, tabSeries, s.flashFor(r, err))
		return
	}

	if link := firstLink(form); link != nil {
		link.MovieID = movieID
		link.EpisodeID = &episode.ID
		link.IsActive = true
		if _, err := s.catalog.CreateStreamingLink(ctx, *link); err != nil {
			s.logger.WithField("episode_id", episode.ID).WithError(err).Warn("episode link skipped")
		}
	}
	s.redirectDashboard(w, r, tabSeries, url.Values{"msg": {"episode"}})
}

func (s *Server) redirectDashboard(w http.ResponseWriter, r *http.Request, tab string, params url.Values) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("tab", tab)
	http.Redirect(w, r, "/admin/dashboard?"+params.Encode(), http.StatusSeeOther)
}

// flashFor turns a catalog error into dashboard query params, reporting unexpected ones.
func (s *Server) flashFor(r *http.Request, err error) url.Values {
	var verr *catalog.ValidationError
	switch {
	case errors.As(err, &verr):
		return validationFlash(verr)
	case errors.Is(err, catalog.ErrNotFound):
		return url.Values{"err": {"not_found"}}
	case errors.Is(err, catalog.ErrConflict):
		return url.Values{"err": {"conflict"}}
	default:
		s.reportError(r, err)
		return url.Values{"err": {"failed"}}
	}
}

func validationFlash(verr *catalog.ValidationError) url.Values {
	return url.Values{"err": {"invalid"}, "field": {verr.Field}}
}

func flashError(code, field string) string {
	msg, ok := flashErrors[code]
	if !ok {
		return ""
	}
	if label, ok := fieldLabels[field]; ok {
		msg += ": " + label
	}
	return msg
}

func movieFromForm(form url.Values) (catalog.MovieInput, *catalog.ValidationError) {
	in := catalog.MovieInput{
		Title:       form.Get("title"),
		TitleEn:     formString(form, "title_en"),
		Description: form.Get("description"),
		PosterURL:   formString(form, "poster_url"),
		BackdropURL: formString(form, "backdrop_url"),
		Genre:       catalog.SplitGenres(form.Get("genre")),
		Type:        domain.ContentType(strings.TrimSpace(form.Get("type"))),
		Status:      domain.Status(strings.TrimSpace(form.Get("status"))),
	}
	var err *catalog.ValidationError
	if in.ReleaseYear, err = formInt(form, "release_year"); err != nil {
		return in, err
	}
	if in.Duration, err = formInt(form, "duration"); err != nil {
		return in, err
	}
	if raw := strings.TrimSpace(form.Get("rating")); raw != "" {
		v, perr := strconv.ParseFloat(raw, 64)
		if perr != nil {
			return in, &catalog.ValidationError{Field: "rating", Message: "rating must be a number"}
		}
		in.Rating = v
	}
	return in, nil
}

func episodeFromForm(movieID string, form url.Values) (catalog.EpisodeInput, *catalog.ValidationError) {
	in := catalog.EpisodeInput{
		MovieID:      movieID,
		Title:        form.Get("title"),
		Description:  formString(form, "description"),
		ThumbnailURL: formString(form, "thumbnail_url"),
	}
	var err *catalog.ValidationError
	if in.SeasonNumber, err = formInt(form, "season_number"); err != nil {
		return in, err
	}
	if in.EpisodeNumber, err = formInt(form, "episode_number"); err != nil {
		return in, err
	}
	if in.Duration, err = formInt(form, "duration"); err != nil {
		return in, err
	}
	return in, nil
}

// linksFromForm zips the repeated link_* fields by position.
func linksFromForm(form url.Values) []catalog.LinkInput {
	urls := form["link_url"]
	servers := form["link_server"]
	qualities := form["link_quality"]
	embeds := form["link_embed"]

	links := make([]catalog.LinkInput, 0, len(urls))
	for i, u := range urls {
		if strings.TrimSpace(u) == "" {
			continue
		}
		link := catalog.LinkInput{
			ServerName: at(servers, i),
			Quality:    at(qualities, i),
			URL:        u,
		}
		if embed := strings.TrimSpace(at(embeds, i)); embed != "" {
			link.EmbedCode = &embed
		}
		links = append(links, link)
	}
	return links
}

func firstLink(form url.Values) *catalog.LinkInput {
	links := linksFromForm(form)
	if len(links) == 0 {
		return nil
	}
	return &links[0]
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

func formString(form url.Values, key string) *string {
	return normalizeStringPtr(stringPtr(form.Get(key)))
}

func formInt(form url.Values, key string) (int, *catalog.ValidationError) {
	raw := strings.TrimSpace(form.Get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &catalog.ValidationError{Field: key, Message: key + " must be a whole number"}
	}
	return v, nil
}

func stringPtr(s string) *string { return &s }

// tally counts rows the way the overview cards show them.
func tally(rows []domain.Movie) domain.CatalogStats {
	var stats domain.CatalogStats
	var ratingSum float64
	for _, m := range rows {
		if m.IsSeries() {
			stats.Series++
		} else {
			stats.Movies++
		}
		if m.Status == domain.StatusActive {
			stats.ActiveContent++
			ratingSum += m.Rating
		}
	}
	if stats.ActiveContent > 0 {
		stats.AverageRating = ratingSum / float64(stats.ActiveContent)
	}
	return stats
}

func filterRows(rows []domain.Movie, tab, q string) []domain.Movie {
	needle := strings.ToLower(q)
	out := make([]domain.Movie, 0, len(rows))
	for _, m := range rows {
		switch tab {
		case tabMovies:
			if m.IsSeries() {
				continue
			}
		case tabSeries:
			if !m.IsSeries() {
				continue
			}
		}
		if needle != "" && !matchesTitle(m, needle) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func matchesTitle(m domain.Movie, needle string) bool {
	if strings.Contains(strings.ToLower(m.Title), needle) {
		return true
	}
	return m.TitleEn != nil && strings.Contains(strings.ToLower(*m.TitleEn), needle)
}

func dashboardTab(raw string) string {
	switch raw {
	case tabMovies, tabSeries:
		return raw
	default:
		return tabOverview
	}
}

func tabForType(t domain.ContentType) string {
	if t == domain.TypeSeries {
		return tabSeries
	}
	return tabMovies
}

func returnTab(r *http.Request) string {
	if err := r.ParseForm(); err != nil {
		return tabOverview
	}
	return dashboardTab(r.PostForm.Get("tab"))
}

// safeNext only accepts same-site absolute paths.
func safeNext(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return ""
	}
	return raw
}
