// Package catalogtest provides an in-memory catalog for handler and service tests.
package catalogtest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Clark-Hu/cinema-online/internal/catalog"
	"github.com/Clark-Hu/cinema-online/internal/domain"
	"github.com/Clark-Hu/cinema-online/internal/logging"
	"github.com/Clark-Hu/cinema-online/internal/repository"
)

// ErrBoom is returned by stores told to fail.
var ErrBoom = errors.New("boom")

// Memory holds catalog tables in slices. Rows are exported for assertions;
// the Fail* knobs make the matching store return ErrBoom.
type Memory struct {
	mu       sync.Mutex
	Movies   []domain.Movie
	Episodes []domain.Episode
	Links    []domain.StreamingLink
	Views    []domain.MovieView
	clock    time.Time

	FailMovies bool
	FailLinks  map[string]bool // by URL
	FailTable  map[string]bool
	LastFilter repository.MovieListFilters
}

// New returns an empty Memory whose clock starts at 2024-01-01 and ticks a second per insert.
func New() *Memory {
	return &Memory{
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		FailLinks: map[string]bool{},
		FailTable: map[string]bool{},
	}
}

func (db *Memory) tick() time.Time {
	db.clock = db.clock.Add(time.Second)
	return db.clock
}

// Stores exposes db as catalog stores.
func (db *Memory) Stores() catalog.Stores {
	return catalog.Stores{
		Movies:   memMovies{db},
		Episodes: memEpisodes{db},
		Links:    memLinks{db},
		Views:    memViews{db},
		Tables:   memTables{db},
	}
}

// NewService builds a catalog service over db with a silent logger.
func NewService(db *Memory) *catalog.Service {
	return catalog.NewWithStores(db.Stores(), logging.Discard())
}

type memMovies struct{ db *Memory }

func (f memMovies) Create(_ context.Context, p repository.MovieCreateParams) (domain.Movie, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.FailMovies {
		return domain.Movie{}, ErrBoom
	}
	now := f.db.tick()
	m := domain.Movie{
		ID: uuid.NewString(), Title: p.Title, TitleEn: p.TitleEn, Description: p.Description,
		PosterURL: p.PosterURL, BackdropURL: p.BackdropURL, ReleaseYear: p.ReleaseYear,
		Duration: p.Duration, Genre: p.Genre, Rating: p.Rating, Type: p.Type, Status: p.Status,
		CreatedAt: now, UpdatedAt: now,
	}
	f.db.Movies = append(f.db.Movies, m)
	return m, nil
}

func (f memMovies) find(id string) int {
	for i, m := range f.db.Movies {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (f memMovies) GetByID(_ context.Context, id string) (domain.Movie, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if i := f.find(id); i >= 0 {
		return f.db.Movies[i], nil
	}
	return domain.Movie{}, repository.ErrNotFound
}

func (f memMovies) GetActiveByID(ctx context.Context, id string) (domain.Movie, error) {
	m, err := f.GetByID(ctx, id)
	if err != nil {
		return m, err
	}
	if m.Status != domain.StatusActive {
		return domain.Movie{}, repository.ErrNotFound
	}
	return m, nil
}

func (f memMovies) Update(_ context.Context, id string, p repository.MovieUpdateParams) (domain.Movie, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	i := f.find(id)
	if i < 0 {
		return domain.Movie{}, repository.ErrNotFound
	}
	m := &f.db.Movies[i]
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.Rating != nil {
		m.Rating = *p.Rating
	}
	if p.Genre != nil {
		m.Genre = p.Genre
	}
	if p.Status != nil {
		m.Status = *p.Status
	}
	return *m, nil
}

func (f memMovies) SetStatus(_ context.Context, id string, status domain.Status) (domain.Movie, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	i := f.find(id)
	if i < 0 {
		return domain.Movie{}, repository.ErrNotFound
	}
	f.db.Movies[i].Status = status
	return f.db.Movies[i], nil
}

func (f memMovies) Delete(_ context.Context, id string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	i := f.find(id)
	if i < 0 {
		return repository.ErrNotFound
	}
	f.db.Movies = append(f.db.Movies[:i], f.db.Movies[i+1:]...)
	return nil
}

func (f memMovies) List(_ context.Context, flt repository.MovieListFilters) ([]domain.Movie, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.LastFilter = flt
	if f.db.FailMovies {
		return nil, ErrBoom
	}
	out := make([]domain.Movie, 0)
	for _, m := range f.db.Movies {
		if flt.Status != nil && m.Status != *flt.Status {
			continue
		}
		if flt.Type != nil && m.Type != *flt.Type {
			continue
		}
		if flt.Genre != nil && !contains(m.Genre, *flt.Genre) {
			continue
		}
		if flt.Query != nil && !matches(m, *flt.Query) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(a, b int) bool {
		if flt.OrderBy == repository.OrderRating && out[a].Rating != out[b].Rating {
			return out[a].Rating > out[b].Rating
		}
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	if flt.Limit > 0 && len(out) > flt.Limit {
		out = out[:flt.Limit]
	}
	return out, nil
}

func (f memMovies) Stats(context.Context) (domain.CatalogStats, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.FailMovies {
		return domain.CatalogStats{}, ErrBoom
	}
	var s domain.CatalogStats
	var sum float64
	for _, m := range f.db.Movies {
		if m.Status != domain.StatusActive {
			continue
		}
		s.ActiveContent++
		sum += m.Rating
		if m.IsSeries() {
			s.Series++
		} else {
			s.Movies++
		}
	}
	if s.ActiveContent > 0 {
		s.AverageRating = sum / float64(s.ActiveContent)
	}
	return s, nil
}

type memEpisodes struct{ db *Memory }

func (f memEpisodes) Create(_ context.Context, p repository.EpisodeCreateParams) (domain.Episode, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	ep := domain.Episode{
		ID: uuid.NewString(), MovieID: p.MovieID, SeasonNumber: p.SeasonNumber,
		EpisodeNumber: p.EpisodeNumber, Title: p.Title, Description: p.Description,
		Duration: p.Duration, ThumbnailURL: p.ThumbnailURL, CreatedAt: f.db.tick(),
	}
	f.db.Episodes = append(f.db.Episodes, ep)
	return ep, nil
}

func (f memEpisodes) ListByMovie(_ context.Context, movieID string) ([]domain.Episode, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]domain.Episode, 0)
	for _, ep := range f.db.Episodes {
		if ep.MovieID == movieID {
			out = append(out, ep)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].SeasonNumber != out[b].SeasonNumber {
			return out[a].SeasonNumber < out[b].SeasonNumber
		}
		return out[a].EpisodeNumber < out[b].EpisodeNumber
	})
	return out, nil
}

func (f memEpisodes) Get(_ context.Context, movieID, episodeID string) (domain.Episode, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, ep := range f.db.Episodes {
		if ep.MovieID == movieID && ep.ID == episodeID {
			return ep, nil
		}
	}
	return domain.Episode{}, repository.ErrNotFound
}

type memLinks struct{ db *Memory }

func (f memLinks) Create(_ context.Context, p repository.LinkCreateParams) (domain.StreamingLink, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.FailLinks[p.URL] {
		return domain.StreamingLink{}, ErrBoom
	}
	l := domain.StreamingLink{
		ID: uuid.NewString(), MovieID: p.MovieID, EpisodeID: p.EpisodeID, ServerName: p.ServerName,
		Quality: p.Quality, URL: p.URL, EmbedCode: p.EmbedCode, IsActive: p.IsActive, CreatedAt: f.db.tick(),
	}
	f.db.Links = append(f.db.Links, l)
	return l, nil
}

func (f memLinks) ListActive(_ context.Context, movieID string, episodeID *string) ([]domain.StreamingLink, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]domain.StreamingLink, 0)
	for _, l := range f.db.Links {
		if l.MovieID != movieID || !l.IsActive {
			continue
		}
		if episodeID == nil && l.EpisodeID != nil {
			continue
		}
		if episodeID != nil && (l.EpisodeID == nil || *l.EpisodeID != *episodeID) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f memLinks) ListAllActive(context.Context) ([]domain.StreamingLink, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]domain.StreamingLink, 0)
	for _, l := range f.db.Links {
		if l.IsActive {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f memLinks) SetActive(_ context.Context, id string, active bool) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for i := range f.db.Links {
		if f.db.Links[i].ID == id {
			f.db.Links[i].IsActive = active
			return nil
		}
	}
	return repository.ErrNotFound
}

type memViews struct{ db *Memory }

func (f memViews) Record(_ context.Context, p repository.ViewCreateParams) (domain.MovieView, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	v := domain.MovieView{ID: uuid.NewString(), MovieID: p.MovieID, EpisodeID: p.EpisodeID,
		IPAddress: p.IPAddress, UserAgent: p.UserAgent, ViewedAt: f.db.tick()}
	f.db.Views = append(f.db.Views, v)
	return v, nil
}

func (f memViews) Count(context.Context) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return int64(len(f.db.Views)), nil
}

type memTables struct{ db *Memory }

func (f memTables) CountRows(_ context.Context, table string) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.FailTable[table] {
		return 0, ErrBoom
	}
	switch table {
	case "movies":
		return int64(len(f.db.Movies)), nil
	case "episodes":
		return int64(len(f.db.Episodes)), nil
	case "streaming_links":
		return int64(len(f.db.Links)), nil
	case "movie_views":
		return int64(len(f.db.Views)), nil
	}
	return 0, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func matches(m domain.Movie, q string) bool {
	q = strings.ToLower(q)
	if strings.Contains(strings.ToLower(m.Title), q) || strings.Contains(strings.ToLower(m.Description), q) {
		return true
	}
	return m.TitleEn != nil && strings.Contains(strings.ToLower(*m.TitleEn), q)
}
