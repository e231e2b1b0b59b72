package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/cinema-online/internal/catalog"
	"github.com/Clark-Hu/cinema-online/internal/domain"
	"github.com/Clark-Hu/cinema-online/internal/player"
)

const (
	homeLatest   = 12
	homeTrending = 6
	homeShelf    = 8
	homeHero     = 5
	homeTop      = 6
	relatedLimit = 6
)

type homeData struct {
	Hero     []domain.Movie
	Trending []domain.Movie
	Latest   []domain.Movie
	Films    []domain.Movie
	Series   []domain.Movie
	TopRated []domain.Movie
	Stats    domain.CatalogStats
	DBError  bool
}

type listData struct {
	Type    domain.ContentType
	Heading string
	Items   []domain.Movie
	Failed  bool
}

type detailData struct {
	Movie          domain.Movie
	Seasons        []domain.Season
	SelectedSeason *domain.Season
	Related        []domain.Movie
}

type watchData struct {
	Player   player.View
	Previous *domain.Episode
	Next     *domain.Episode
}

type searchData struct {
	Query    string
	Results  []domain.Movie
	Recent   []string
	Searched bool
	TooShort bool
	Failed   bool
}

type errorData struct {
	Message string
}

func (s *Server) newPage(r *http.Request, title, nav string, data interface{}) page {
	p := page{
		Site:  s.cfg.SiteName,
		Title: title,
		Nav:   nav,
		Data:  data,
	}
	if s.sessions != nil {
		if admin, err := s.sessions.FromRequest(r); err == nil {
			p.Admin = &admin
		}
	}
	return p
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	if err := s.pages.execute(w, status, name, p); err != nil {
		s.logger.WithError(err).WithField("template", name).Error("render failed")
		s.reportError(r, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (s *Server) renderNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "not_found", s.newPage(r, "لم يتم العثور على الصفحة", "", nil))
}

// renderFailure shows the generic error page for anything that is not a missing row.
func (s *Server) renderFailure(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		s.renderNotFound(w, r)
		return
	}
	s.reportError(r, err)
	s.render(w, r, http.StatusInternalServerError, "error", s.newPage(r, "حدث خطأ", "", errorData{
		Message: "حدث خطأ غير متوقع. يرجى المحاولة لاحقاً.",
	}))
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
		return
	}
	s.renderNotFound(w, r)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var data homeData
	filmType, seriesType := domain.TypeMovie, domain.TypeSeries

	latest, err := s.catalog.ListMovies(ctx, nil, homeLatest)
	if err != nil {
		data.DBError = true
	}
	top, err := s.catalog.TopRated(ctx, catalog.DefaultShelfLimit)
	if err != nil {
		data.DBError = true
	}
	films, err := s.catalog.ListMovies(ctx, &filmType, homeShelf)
	if err != nil {
		data.DBError = true
	}
	series, err := s.catalog.ListMovies(ctx, &seriesType, homeShelf)
	if err != nil {
		data.DBError = true
	}
	stats, err := s.catalog.Stats(ctx)
	if err != nil {
		data.DBError = true
	}

	data.Latest = latest
	data.Trending = catalog.Window(latest, 0, homeTrending)
	data.Hero = catalog.Window(top, 0, homeHero)
	data.TopRated = catalog.Window(top, 0, homeTop)
	data.Films = films
	data.Series = series
	data.Stats = stats

	p := s.newPage(r, s.cfg.SiteName+" - مشاهدة الأفلام والمسلسلات مجاناً", "home", data)
	p.Description = "شاهد أحدث الأفلام والمسلسلات العربية والأجنبية مجاناً وبجودة عالية"
	s.render(w, r, http.StatusOK, "home", p)
}

func (s *Server) handleMoviesPage(w http.ResponseWriter, r *http.Request) {
	s.renderList(w, r, domain.TypeMovie, "الأفلام", "movies")
}

func (s *Server) handleSeriesPage(w http.ResponseWriter, r *http.Request) {
	s.renderList(w, r, domain.TypeSeries, "المسلسلات", "series")
}

func (s *Server) renderList(w http.ResponseWriter, r *http.Request, typ domain.ContentType, heading, nav string) {
	data := listData{Type: typ, Heading: heading}
	status := http.StatusOK
	items, err := s.catalog.ListMovies(r.Context(), &typ, 0)
	if err != nil {
		s.reportError(r, err)
		data.Failed = true
		status = http.StatusInternalServerError
	}
	data.Items = items
	s.render(w, r, status, "list", s.newPage(r, heading+" - "+s.cfg.SiteName, nav, data))
}

func (s *Server) handleMovieDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	movie, err := s.catalog.GetMovie(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.renderFailure(w, r, err)
		return
	}

	data := detailData{Movie: movie}
	if movie.IsSeries() {
		episodes, err := s.catalog.ListEpisodes(ctx, movie.ID)
		if err != nil {
			s.renderFailure(w, r, err)
			return
		}
		data.Seasons = catalog.GroupBySeason(episodes)
		data.SelectedSeason = pickSeason(data.Seasons, r.URL.Query().Get("season"))
	}
	if len(movie.Genre) > 0 {
		related, err := s.catalog.ByGenre(ctx, movie.Genre[0], relatedLimit+1)
		if err == nil {
			data.Related = withoutMovie(related, movie.ID, relatedLimit)
		}
	}

	p := s.newPage(r, movie.Title+" - "+s.cfg.SiteName, navFor(movie.Type), data)
	p.Description = truncate(movie.Description, 160)
	s.render(w, r, http.StatusOK, "detail", p)
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	movie, err := s.catalog.GetMovie(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.renderFailure(w, r, err)
		return
	}

	query := r.URL.Query()
	var (
		episode   *domain.Episode
		episodeID *string
		data      watchData
	)
	if id := strings.TrimSpace(query.Get("episode")); id != "" {
		ep, err := s.catalog.GetEpisode(ctx, movie.ID, id)
		if err != nil {
			s.renderFailure(w, r, err)
			return
		}
		episode = &ep
		episodeID = &ep.ID
		if episodes, err := s.catalog.ListEpisodes(ctx, movie.ID); err == nil {
			data.Previous, data.Next = neighbours(episodes, ep.ID)
		}
	}

	links, err := s.catalog.ListStreamingLinks(ctx, movie.ID, episodeID)
	if err != nil {
		s.renderFailure(w, r, err)
		return
	}
	data.Player = player.Build(movie, episode, links, query.Get("server"))

	// A failed view insert is logged by the catalog and never blocks playback.
	_, _ = s.catalog.RecordView(ctx, viewInput(r, movie.ID, episodeID))

	p := s.newPage(r, "مشاهدة "+movie.Title+" - "+s.cfg.SiteName, navFor(movie.Type), data)
	p.Description = "مشاهدة " + movie.Title + " مجاناً بجودة عالية"
	s.render(w, r, http.StatusOK, "watch", p)
}

func (s *Server) handleSearchPage(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	data := searchData{Query: q, Results: []domain.Movie{}}
	status := http.StatusOK

	switch {
	case q == "":
		data.Recent = readRecent(r)
	case utf8.RuneCountInString(q) < catalog.MinSearchLength:
		data.TooShort = true
		data.Recent = readRecent(r)
	default:
		data.Searched = true
		data.Recent = recordRecent(w, r, q)
		results, err := s.catalog.Search(r.Context(), q)
		if err != nil {
			s.reportError(r, err)
			data.Failed = true
			status = http.StatusInternalServerError
		} else {
			data.Results = results
		}
	}

	title := "البحث - " + s.cfg.SiteName
	if q != "" {
		title = "نتائج البحث عن " + q + " - " + s.cfg.SiteName
	}
	p := s.newPage(r, title, "search", data)
	p.Query = q
	s.render(w, r, status, "search", p)
}

func (s *Server) handleClearRecent(w http.ResponseWriter, r *http.Request) {
	clearRecent(w)
	http.Redirect(w, r, "/search", http.StatusSeeOther)
}

func pickSeason(seasons []domain.Season, raw string) *domain.Season {
	if len(seasons) == 0 {
		return nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		for i := range seasons {
			if seasons[i].Number == n {
				return &seasons[i]
			}
		}
	}
	return &seasons[0]
}

func neighbours(episodes []domain.Episode, id string) (prev, next *domain.Episode) {
	for i := range episodes {
		if episodes[i].ID != id {
			continue
		}
		if i > 0 {
			prev = &episodes[i-1]
		}
		if i+1 < len(episodes) {
			next = &episodes[i+1]
		}
		return prev, next
	}
	return nil, nil
}

func withoutMovie(items []domain.Movie, id string, limit int) []domain.Movie {
	out := make([]domain.Movie, 0, limit)
	for _, m := range items {
		if m.ID == id {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, m)
	}
	return out
}

func navFor(t domain.ContentType) string {
	if t == domain.TypeSeries {
		return "series"
	}
	return "movies"
}
