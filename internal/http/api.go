package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/cinema-online/internal/catalog"
	"github.com/Clark-Hu/cinema-online/internal/domain"
)

type movieResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	TitleEn     *string   `json:"titleEn,omitempty"`
	Description string    `json:"description"`
	PosterURL   *string   `json:"posterUrl,omitempty"`
	BackdropURL *string   `json:"backdropUrl,omitempty"`
	ReleaseYear int       `json:"releaseYear,omitempty"`
	Duration    int       `json:"duration,omitempty"`
	Genre       []string  `json:"genre"`
	Rating      float64   `json:"rating"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type movieListResponse struct {
	Items []movieResponse `json:"items"`
}

type searchResponse struct {
	Query string          `json:"query"`
	Items []movieResponse `json:"items"`
}

type episodeResponse struct {
	ID            string    `json:"id"`
	MovieID       string    `json:"movieId"`
	SeasonNumber  int       `json:"seasonNumber"`
	EpisodeNumber int       `json:"episodeNumber"`
	Title         string    `json:"title"`
	Description   *string   `json:"description,omitempty"`
	Duration      int       `json:"duration,omitempty"`
	ThumbnailURL  *string   `json:"thumbnailUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type seasonResponse struct {
	Number   int               `json:"number"`
	Episodes []episodeResponse `json:"episodes"`
}

type episodeListResponse struct {
	Items   []episodeResponse `json:"items"`
	Seasons []seasonResponse  `json:"seasons"`
}

type linkResponse struct {
	ID         string    `json:"id"`
	MovieID    string    `json:"movieId"`
	EpisodeID  *string   `json:"episodeId,omitempty"`
	ServerName string    `json:"serverName"`
	Quality    string    `json:"quality"`
	URL        string    `json:"url"`
	EmbedCode  *string   `json:"embedCode,omitempty"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
}

type linkListResponse struct {
	Items []linkResponse `json:"items"`
}

type viewRequest struct {
	EpisodeID *string `json:"episodeId"`
}

type viewResponse struct {
	ID        string    `json:"id"`
	MovieID   string    `json:"movieId"`
	EpisodeID *string   `json:"episodeId,omitempty"`
	ViewedAt  time.Time `json:"viewedAt"`
}

type tableStatusResponse struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
	OK    bool   `json:"ok"`
}

type statusResponse struct {
	Connected bool                  `json:"connected"`
	LatencyMs int64                 `json:"latencyMs"`
	Tables    []tableStatusResponse `json:"tables"`
}

type linkRequest struct {
	ServerName string  `json:"serverName"`
	Quality    string  `json:"quality"`
	URL        string  `json:"url"`
	EmbedCode  *string `json:"embedCode"`
}

type movieCreateRequest struct {
	Title       string        `json:"title"`
	TitleEn     *string       `json:"titleEn"`
	Description string        `json:"description"`
	PosterURL   *string       `json:"posterUrl"`
	BackdropURL *string       `json:"backdropUrl"`
	ReleaseYear int           `json:"releaseYear"`
	Duration    int           `json:"duration"`
	Genre       []string      `json:"genre"`
	Rating      float64       `json:"rating"`
	Type        string        `json:"type"`
	Status      string        `json:"status"`
	Links       []linkRequest `json:"links"`
}

type movieCreateResponse struct {
	Movie        movieResponse `json:"movie"`
	LinksCreated int           `json:"linksCreated"`
}

type movieUpdateRequest struct {
	Title       *string  `json:"title"`
	TitleEn     *string  `json:"titleEn"`
	Description *string  `json:"description"`
	PosterURL   *string  `json:"posterUrl"`
	BackdropURL *string  `json:"backdropUrl"`
	ReleaseYear *int     `json:"releaseYear"`
	Duration    *int     `json:"duration"`
	Genre       []string `json:"genre"`
	Rating      *float64 `json:"rating"`
	Type        *string  `json:"type"`
	Status      *string  `json:"status"`
}

type linkCreateRequest struct {
	MovieID    string  `json:"movieId"`
	EpisodeID  *string `json:"episodeId"`
	ServerName string  `json:"serverName"`
	Quality    string  `json:"quality"`
	URL        string  `json:"url"`
	EmbedCode  *string `json:"embedCode"`
	IsActive   *bool   `json:"isActive"`
}

type episodeCreateRequest struct {
	MovieID       string  `json:"movieId"`
	SeasonNumber  int     `json:"seasonNumber"`
	EpisodeNumber int     `json:"episodeNumber"`
	Title         string  `json:"title"`
	Description   *string `json:"description"`
	Duration      int     `json:"duration"`
	ThumbnailURL  *string `json:"thumbnailUrl"`
}

func (s *Server) handleAPIListMovies(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	typ, err := parseContentType(query)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	limit, err := parseLimit(query, 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	items, err := s.catalog.ListMovies(r.Context(), typ, limit)
	if err != nil {
		s.respondCatalogError(w, r, err, "Failed to list movies")
		return
	}
	s.respondJSON(w, http.StatusOK, movieListResponse{Items: toMovieResponses(items)})
}

func (s *Server) handleAPITopRated(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query(), catalog.DefaultShelfLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	items, err := s.catalog.TopRated(r.Context(), limit)
	if err != nil {
		s.respondCatalogError(w, r, err, "Failed to list top rated")
		return
	}
	s.respondJSON(w, http.StatusOK, movieListResponse{Items: toMovieResponses(items)})
}

func (s *Server) handleAPIByGenre(w http.ResponseWriter, r *http.Request) {
	genre, err := url.PathUnescape(chi.URLParam(r, "genre"))
	if err != nil || strings.TrimSpace(genre) == "" {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid genre parameter")
		return
	}
	limit, err := parseLimit(r.URL.Query(), catalog.DefaultShelfLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	items, err := s.catalog.ByGenre(r.Context(), genre, limit)
	if err != nil {
		s.respondCatalogError(w, r, err, "Failed to list genre")
		return
	}
	s.respondJSON(w, http.StatusOK, movieListResponse{Items: toMovieResponses(items)})
}

func (s *Server) handleAPIGetMovie(w http.ResponseWriter, r *http.Request) {
	movie, err := s.catalog.GetMovie(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondCatalogError(w, r, err, "Failed to fetch movie")
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleAPIListEpisodes(w http.ResponseWriter, r *http.Request) {
	movie, err := s.catalog.GetMovie(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondCatalogError(w, r, err, "Failed to fetch episodes")
		return
	}
	episodes, err := s.catalog.ListEpisodes(r.Context(), movie.ID)
	if err != nil {
		s.respondCatalogError(w, r, err, "Failed to fetch episodes")
		return
	}

	resp := episodeListResponse{Items: make([]episodeResponse, 0, len(episodes)), Seasons: []seasonResponse{}}
	for _, ep := range episodes {
		resp.Items = append(resp.Items, toEpisodeResponse(ep))
	}
	for _, season := range catalog.GroupBySeason(episodes) {
		sr := seasonResponse{Number: season.Number, Episodes: make([]episodeResponse, 0, len(season.Episodes))}
		for _, ep := range season.Episodes {
			sr.Episodes = append(sr.Episodes, toEpisodeResponse(ep))
		}
		resp.Seasons = append(resp.Seasons, sr)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAPIListLinks(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "id")
	var episodeID *string
	if val := strings.TrimSpace(r.URL.Query().Get("episode")); val != "" {
		episodeID = &val
	}
	links, err := s.catalog.ListStreamingLinks(r.Context(), movieID, episodeID)
	if err != nil {
		s.respondCatalogError(w, r, err, "Failed to fetch streaming links")
		return
	}
	resp := linkListResponse{Items: make([]linkResponse, 0, len(links))}
	for _, l := range links {
		resp.Items = append(resp.Items, toLinkResponse(l))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAPIRecordView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := decodeJSONBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.respondDecodeError(w, err)
		return
	}
	movie, err := s.catalog.GetMovie(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondCatalogError(w, r, err, "Failed to record view")
		return
	}
	episodeID := normalizeStringPtr(req.EpisodeID)
	if episodeID != nil {
		if _, err := s.catalog.GetEpisode(r.Context(), movie.ID, *episodeID); err != nil {
			s.respondCatalogError(w, r, err, "Failed to record view")
			return
		}
	}
	view, err := s.catalog.RecordView(r.Context(), viewInput(r, movie.ID, episodeID))
	if err != nil {
		s.respondCatalogError(w, r, err, "Failed to record view")
		return
	}
	s.respondJSON(w, http.StatusCreated, viewResponse{
		ID:        view.ID,
		MovieID:   view.MovieID,
		EpisodeID: view.EpisodeID,
		ViewedAt:  view.ViewedAt,
	})
}

func (s *Server) handleAPISearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	items, err := s.catalog.Search(r.Context(), q)
	if err != nil {
		s.respondCatalogError(w, r, err, "Search failed")
		return
	}
	s.respondJSON(w, http.StatusOK, searchResponse{Query: q, Items: toMovieResponses(items)})
}

func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	conn := s.catalog.CheckConnection(r.Context())
	resp := statusResponse{
		Connected: conn.Connected,
		LatencyMs: conn.Latency.Milliseconds(),
		Tables:    []tableStatusResponse{},
	}
	for _, probe := range s.catalog.TableStatus(r.Context()) {
		resp.Tables = append(resp.Tables, tableStatusResponse{Table: probe.Table, Rows: probe.Rows, OK: probe.OK()})
	}
	status := http.StatusOK
	if !conn.Connected {
		status = http.StatusServiceUnavailable
	}
	s.respondJSON(w, status, resp)
}

func (s *Server) handleAPICreateMovie(w http.ResponseWriter, r *http.Request) {
	var req movieCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	links := make([]catalog.LinkInput, 0, len(req.Links))
	for _, l := range req.Links {
		links = append(links, catalog.LinkInput{
			ServerName: l.ServerName,
			Quality:    l.Quality,
			URL:        l.URL,
			EmbedCode:  l.EmbedCode,
		})
	}

	movie, stored, err := s.catalog.CreateMovieWithLinks(r.Context(), catalog.MovieInput{
		Title:       req.Title,
		TitleEn:     req.TitleEn,
		Description: req.Description,
		PosterURL:   req.PosterURL,
		BackdropURL: req.BackdropURL,
		ReleaseYear: req.ReleaseYear,
		Duration:    req.Duration,
		Genre:       req.Genre,
		Rating:      req.Rating,
		Type:        domain.ContentType(strings.TrimSpace(req.Type)),
		Status:      domain.Status(strings.TrimSpace(req.Status)),
	}, links)
	if err != nil {
		s.respondCatalogError(w, r, err, "Failed to create movie")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/movies/%s", movie.ID))
	s.respondJSON(w, http.StatusCreated, movieCreateResponse{Movie: toMovieResponse(movie), LinksCreated: stored})
}

func (s *Server) handleAPIUpdateMovie(w http.ResponseWriter, r *http.Request) {
	var req movieUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	patch := catalog.MoviePatch{
		Title:       req.Title,
		TitleEn:     normalizeStringPtr(req.TitleEn),
		Description: req.Description,
		PosterURL:   normalizeStringPtr(req.PosterURL),
		BackdropURL: normalizeStringPtr(req.BackdropURL),
		ReleaseYear: req.ReleaseYear,
		Duration:    req.Duration,
		Genre:       req.Genre,
		Rating:      req.Rating,
	}
	if req.Type != nil {
		typ := domain.ContentType(strings.TrimSpace(*req.Type))
		patch.Type = &typ
	}
	if req.Status != nil {
		status := domain.Status(strings.TrimSpace(*req.Status))
		patch.Status = &status
	}

	movie, err := s.catalog.UpdateMovie(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.respondCatalogError(w, r, err, "Failed to update movie")
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func (s *Server) handleAPIDeleteMovie(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteMovie(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondCatalogError(w, r, err, "Failed to delete movie")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAPICreateLink(w http.ResponseWriter, r *http.Request) {
	var req linkCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	link, err := s.catalog.CreateStreamingLink(r.Context(), catalog.LinkInput{
		MovieID:    strings.TrimSpace(req.MovieID),
		EpisodeID:  req.EpisodeID,
		ServerName: req.ServerName,
		Quality:    req.Quality,
		URL:        req.URL,
		EmbedCode:  req.EmbedCode,
		IsActive:   active,
	})
	if err != nil {
		s.respondCatalogError(w, r, err, "Failed to create streaming link")
		return
	}
	s.respondJSON(w, http.StatusCreated, toLinkResponse(link))
}

func (s *Server) handleAPICreateEpisode(w http.ResponseWriter, r *http.Request) {
	var req episodeCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	ep, err := s.catalog.CreateEpisode(r.Context(), catalog.EpisodeInput{
		MovieID:       strings.TrimSpace(req.MovieID),
		SeasonNumber:  req.SeasonNumber,
		EpisodeNumber: req.EpisodeNumber,
		Title:         req.Title,
		Description:   req.Description,
		Duration:      req.Duration,
		ThumbnailURL:  req.ThumbnailURL,
	})
	if err != nil {
		s.respondCatalogError(w, r, err, "Failed to create episode")
		return
	}
	s.respondJSON(w, http.StatusCreated, toEpisodeResponse(ep))
}

func parseContentType(query url.Values) (*domain.ContentType, error) {
	val := strings.TrimSpace(query.Get("type"))
	if val == "" {
		return nil, nil
	}
	typ := domain.ContentType(val)
	if !typ.Valid() {
		return nil, fmt.Errorf("invalid type value")
	}
	return &typ, nil
}

func parseLimit(query url.Values, fallback int) (int, error) {
	val := strings.TrimSpace(query.Get("limit"))
	if val == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(val)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("invalid limit value")
	}
	return limit, nil
}

func viewInput(r *http.Request, movieID string, episodeID *string) catalog.ViewInput {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	ua := r.UserAgent()
	return catalog.ViewInput{
		MovieID:   movieID,
		EpisodeID: episodeID,
		IPAddress: &ip,
		UserAgent: &ua,
	}
}

func toMovieResponses(items []domain.Movie) []movieResponse {
	out := make([]movieResponse, 0, len(items))
	for _, m := range items {
		out = append(out, toMovieResponse(m))
	}
	return out
}

func toMovieResponse(m domain.Movie) movieResponse {
	genre := m.Genre
	if genre == nil {
		genre = []string{}
	}
	return movieResponse{
		ID:          m.ID,
		Title:       m.Title,
		TitleEn:     m.TitleEn,
		Description: m.Description,
		PosterURL:   m.PosterURL,
		BackdropURL: m.BackdropURL,
		ReleaseYear: m.ReleaseYear,
		Duration:    m.Duration,
		Genre:       genre,
		Rating:      m.Rating,
		Type:        string(m.Type),
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toEpisodeResponse(ep domain.Episode) episodeResponse {
	return episodeResponse{
		ID:            ep.ID,
		MovieID:       ep.MovieID,
		SeasonNumber:  ep.SeasonNumber,
		EpisodeNumber: ep.EpisodeNumber,
		Title:         ep.Title,
		Description:   ep.Description,
		Duration:      ep.Duration,
		ThumbnailURL:  ep.ThumbnailURL,
		CreatedAt:     ep.CreatedAt,
	}
}

func toLinkResponse(l domain.StreamingLink) linkResponse {
	return linkResponse{
		ID:         l.ID,
		MovieID:    l.MovieID,
		EpisodeID:  l.EpisodeID,
		ServerName: l.ServerName,
		Quality:    l.Quality,
		URL:        l.URL,
		EmbedCode:  l.EmbedCode,
		IsActive:   l.IsActive,
		CreatedAt:  l.CreatedAt,
	}
}
