// Package catalog is the single data-access surface used by pages, the JSON API,
// the admin dashboard and cinemactl. Each operation is one query against the
// catalog tables; failures are logged once here and returned wrapped.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/cinema-online/internal/domain"
	"github.com/Clark-Hu/cinema-online/internal/metrics"
	"github.com/Clark-Hu/cinema-online/internal/repository"
)

const (
	// MinSearchLength is the shortest trimmed query that reaches the database.
	MinSearchLength = 2
	// SearchLimit caps search results.
	SearchLimit = 20
	// DefaultShelfLimit applies to TopRated and ByGenre when no limit is given.
	DefaultShelfLimit = 10
)

var (
	// ErrNotFound is returned for missing rows, inactive rows on public reads and malformed ids.
	ErrNotFound = repository.ErrNotFound
	// ErrConflict is returned when an insert collides with an existing row,
	// such as a duplicate season and episode number.
	ErrConflict = errors.New("catalog: conflict")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type (
	MovieInput   = repository.MovieCreateParams
	MoviePatch   = repository.MovieUpdateParams
	EpisodeInput = repository.EpisodeCreateParams
	LinkInput    = repository.LinkCreateParams
	ViewInput    = repository.ViewCreateParams
)

// MovieStore is the movies table.
type MovieStore interface {
	Create(ctx context.Context, params repository.MovieCreateParams) (domain.Movie, error)
	GetByID(ctx context.Context, id string) (domain.Movie, error)
	GetActiveByID(ctx context.Context, id string) (domain.Movie, error)
	Update(ctx context.Context, id string, params repository.MovieUpdateParams) (domain.Movie, error)
	SetStatus(ctx context.Context, id string, status domain.Status) (domain.Movie, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filters repository.MovieListFilters) ([]domain.Movie, error)
	Stats(ctx context.Context) (domain.CatalogStats, error)
}

// EpisodeStore is the episodes table.
type EpisodeStore interface {
	Create(ctx context.Context, params repository.EpisodeCreateParams) (domain.Episode, error)
	ListByMovie(ctx context.Context, movieID string) ([]domain.Episode, error)
	Get(ctx context.Context, movieID, episodeID string) (domain.Episode, error)
}

// LinkStore is the streaming_links table.
type LinkStore interface {
	Create(ctx context.Context, params repository.LinkCreateParams) (domain.StreamingLink, error)
	ListActive(ctx context.Context, movieID string, episodeID *string) ([]domain.StreamingLink, error)
	ListAllActive(ctx context.Context) ([]domain.StreamingLink, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// ViewStore is the movie_views table.
type ViewStore interface {
	Record(ctx context.Context, params repository.ViewCreateParams) (domain.MovieView, error)
	Count(ctx context.Context) (int64, error)
}

// TableCounter runs count(*) probes.
type TableCounter interface {
	CountRows(ctx context.Context, table string) (int64, error)
}

// Stores bundles the table accessors the service needs.
type Stores struct {
	Movies   MovieStore
	Episodes EpisodeStore
	Links    LinkStore
	Views    ViewStore
	Tables   TableCounter
}

// Service implements the catalog operations.
type Service struct {
	movies   MovieStore
	episodes EpisodeStore
	links    LinkStore
	views    ViewStore
	tables   TableCounter
	logger   *logrus.Entry
}

// New builds a Service over the Postgres repositories.
func New(repo *repository.Repository, logger *logrus.Entry) *Service {
	return NewWithStores(Stores{
		Movies:   repo.Movies,
		Episodes: repo.Episodes,
		Links:    repo.Links,
		Views:    repo.Views,
		Tables:   repo,
	}, logger)
}

// NewWithStores builds a Service over arbitrary store implementations.
func NewWithStores(stores Stores, logger *logrus.Entry) *Service {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		movies:   stores.Movies,
		episodes: stores.Episodes,
		links:    stores.Links,
		views:    stores.Views,
		tables:   stores.Tables,
		logger:   logger.WithField("component", "catalog"),
	}
}

// ListMovies returns active rows newest first, optionally narrowed by type and limit.
func (s *Service) ListMovies(ctx context.Context, typ *domain.ContentType, limit int) ([]domain.Movie, error) {
	active := domain.StatusActive
	items, err := s.movies.List(ctx, repository.MovieListFilters{Status: &active, Type: typ, Limit: clampLimit(limit)})
	if err != nil {
		return nil, s.fail("list_movies", err, logrus.Fields{"type": typ})
	}
	return items, nil
}

// ListAll returns every row, including inactive ones, newest first.
func (s *Service) ListAll(ctx context.Context) ([]domain.Movie, error) {
	items, err := s.movies.List(ctx, repository.MovieListFilters{})
	if err != nil {
		return nil, s.fail("list_all", err, nil)
	}
	return items, nil
}

// GetMovie fetches one active row.
func (s *Service) GetMovie(ctx context.Context, id string) (domain.Movie, error) {
	if !validID(id) {
		return domain.Movie{}, ErrNotFound
	}
	movie, err := s.movies.GetActiveByID(ctx, id)
	if err != nil {
		return domain.Movie{}, s.fail("get_movie", err, logrus.Fields{"movie_id": id})
	}
	return movie, nil
}

// GetAnyMovie fetches a row regardless of status, for the dashboard.
func (s *Service) GetAnyMovie(ctx context.Context, id string) (domain.Movie, error) {
	if !validID(id) {
		return domain.Movie{}, ErrNotFound
	}
	movie, err := s.movies.GetByID(ctx, id)
	if err != nil {
		return domain.Movie{}, s.fail("get_any_movie", err, logrus.Fields{"movie_id": id})
	}
	return movie, nil
}

// ListEpisodes returns a series' episodes by season then episode number.
func (s *Service) ListEpisodes(ctx context.Context, movieID string) ([]domain.Episode, error) {
	if !validID(movieID) {
		return []domain.Episode{}, nil
	}
	items, err := s.episodes.ListByMovie(ctx, movieID)
	if err != nil {
		return nil, s.fail("list_episodes", err, logrus.Fields{"movie_id": movieID})
	}
	return items, nil
}

// GetEpisode fetches one episode of a series.
func (s *Service) GetEpisode(ctx context.Context, movieID, episodeID string) (domain.Episode, error) {
	if !validID(movieID) || !validID(episodeID) {
		return domain.Episode{}, ErrNotFound
	}
	ep, err := s.episodes.Get(ctx, movieID, episodeID)
	if err != nil {
		return domain.Episode{}, s.fail("get_episode", err, logrus.Fields{"movie_id": movieID, "episode_id": episodeID})
	}
	return ep, nil
}

// ListStreamingLinks returns active links for a movie, or for one of its episodes.
func (s *Service) ListStreamingLinks(ctx context.Context, movieID string, episodeID *string) ([]domain.StreamingLink, error) {
	if !validID(movieID) || (episodeID != nil && !validID(*episodeID)) {
		return []domain.StreamingLink{}, nil
	}
	items, err := s.links.ListActive(ctx, movieID, episodeID)
	if err != nil {
		return nil, s.fail("list_streaming_links", err, logrus.Fields{"movie_id": movieID, "episode_id": episodeID})
	}
	return items, nil
}

// Search matches title, title_en and description. Queries shorter than
// MinSearchLength return an empty result without touching the database.
func (s *Service) Search(ctx context.Context, query string) ([]domain.Movie, error) {
	term := strings.TrimSpace(query)
	if utf8.RuneCountInString(term) < MinSearchLength {
		return []domain.Movie{}, nil
	}
	active := domain.StatusActive
	items, err := s.movies.List(ctx, repository.MovieListFilters{
		Status:  &active,
		Query:   &term,
		OrderBy: repository.OrderRating,
		Limit:   SearchLimit,
	})
	if err != nil {
		return nil, s.fail("search", err, logrus.Fields{"query": term})
	}
	return items, nil
}

// TopRated returns the highest rated active rows.
func (s *Service) TopRated(ctx context.Context, limit int) ([]domain.Movie, error) {
	if limit <= 0 {
		limit = DefaultShelfLimit
	}
	active := domain.StatusActive
	items, err := s.movies.List(ctx, repository.MovieListFilters{Status: &active, OrderBy: repository.OrderRating, Limit: clampLimit(limit)})
	if err != nil {
		return nil, s.fail("top_rated", err, nil)
	}
	return items, nil
}

// ByGenre returns active rows tagged with genre, best rated first.
func (s *Service) ByGenre(ctx context.Context, genre string, limit int) ([]domain.Movie, error) {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return []domain.Movie{}, nil
	}
	if limit <= 0 {
		limit = DefaultShelfLimit
	}
	active := domain.StatusActive
	items, err := s.movies.List(ctx, repository.MovieListFilters{Status: &active, Genre: &genre, OrderBy: repository.OrderRating, Limit: clampLimit(limit)})
	if err != nil {
		return nil, s.fail("by_genre", err, logrus.Fields{"genre": genre})
	}
	return items, nil
}

// RecordView stores a playback page hit.
func (s *Service) RecordView(ctx context.Context, in ViewInput) (domain.MovieView, error) {
	if !validID(in.MovieID) {
		return domain.MovieView{}, ErrNotFound
	}
	if in.EpisodeID != nil && !validID(*in.EpisodeID) {
		in.EpisodeID = nil
	}
	in.IPAddress = optional(in.IPAddress)
	in.UserAgent = optional(in.UserAgent)
	view, err := s.views.Record(ctx, in)
	if err != nil {
		return domain.MovieView{}, s.fail("record_view", err, logrus.Fields{"movie_id": in.MovieID})
	}
	metrics.ViewsRecorded.Inc()
	return view, nil
}

// CreateMovie validates and inserts a row.
func (s *Service) CreateMovie(ctx context.Context, in MovieInput) (domain.Movie, error) {
	in = normalizeMovie(in)
	if err := validateMovie(in); err != nil {
		return domain.Movie{}, err
	}
	movie, err := s.movies.Create(ctx, in)
	if err != nil {
		return domain.Movie{}, s.fail("create_movie", err, logrus.Fields{"title": in.Title})
	}
	s.logger.WithFields(logrus.Fields{"movie_id": movie.ID, "type": movie.Type}).Info("movie created")
	return movie, nil
}

// CreateMovieWithLinks creates a row and then each link with a non-empty URL.
// A failed link insert is logged and skipped; it never undoes the row.
func (s *Service) CreateMovieWithLinks(ctx context.Context, in MovieInput, links []LinkInput) (domain.Movie, int, error) {
	movie, err := s.CreateMovie(ctx, in)
	if err != nil {
		return domain.Movie{}, 0, err
	}

	stored := 0
	for i, link := range links {
		if strings.TrimSpace(link.URL) == "" {
			continue
		}
		link.MovieID = movie.ID
		link.IsActive = true
		if _, err := s.CreateStreamingLink(ctx, link); err != nil {
			s.logger.WithFields(logrus.Fields{"movie_id": movie.ID, "index": i}).WithError(err).Warn("streaming link skipped")
			continue
		}
		stored++
	}
	return movie, stored, nil
}

// UpdateMovie applies a partial update.
func (s *Service) UpdateMovie(ctx context.Context, id string, patch MoviePatch) (domain.Movie, error) {
	if !validID(id) {
		return domain.Movie{}, ErrNotFound
	}
	patch = normalizePatch(patch)
	if err := validatePatch(patch); err != nil {
		return domain.Movie{}, err
	}
	movie, err := s.movies.Update(ctx, id, patch)
	if err != nil {
		return domain.Movie{}, s.fail("update_movie", err, logrus.Fields{"movie_id": id})
	}
	return movie, nil
}

// SetStatus switches a row between active and inactive.
func (s *Service) SetStatus(ctx context.Context, id string, status domain.Status) (domain.Movie, error) {
	if !validID(id) {
		return domain.Movie{}, ErrNotFound
	}
	if !status.Valid() {
		return domain.Movie{}, &ValidationError{Field: "status", Message: "status must be active or inactive"}
	}
	movie, err := s.movies.SetStatus(ctx, id, status)
	if err != nil {
		return domain.Movie{}, s.fail("set_status", err, logrus.Fields{"movie_id": id, "status": status})
	}
	return movie, nil
}

// ToggleStatus flips the current status of a row.
func (s *Service) ToggleStatus(ctx context.Context, id string) (domain.Movie, error) {
	current, err := s.GetAnyMovie(ctx, id)
	if err != nil {
		return domain.Movie{}, err
	}
	return s.SetStatus(ctx, id, current.Status.Toggle())
}

// DeleteMovie removes a row and everything hanging off it.
func (s *Service) DeleteMovie(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	if err := s.movies.Delete(ctx, id); err != nil {
		return s.fail("delete_movie", err, logrus.Fields{"movie_id": id})
	}
	s.logger.WithField("movie_id", id).Info("movie deleted")
	return nil
}

// CreateStreamingLink validates and inserts a link.
func (s *Service) CreateStreamingLink(ctx context.Context, in LinkInput) (domain.StreamingLink, error) {
	in = normalizeLink(in)
	if err := validateLink(in); err != nil {
		return domain.StreamingLink{}, err
	}
	link, err := s.links.Create(ctx, in)
	if err != nil {
		return domain.StreamingLink{}, s.fail("create_streaming_link", err, logrus.Fields{"movie_id": in.MovieID})
	}
	return link, nil
}

// CreateEpisode validates and inserts an episode.
func (s *Service) CreateEpisode(ctx context.Context, in EpisodeInput) (domain.Episode, error) {
	in = normalizeEpisode(in)
	if err := validateEpisode(in); err != nil {
		return domain.Episode{}, err
	}
	ep, err := s.episodes.Create(ctx, in)
	if err != nil {
		return domain.Episode{}, s.fail("create_episode", err, logrus.Fields{"movie_id": in.MovieID})
	}
	return ep, nil
}

// ListActiveLinks returns every active link, for the link checker.
func (s *Service) ListActiveLinks(ctx context.Context) ([]domain.StreamingLink, error) {
	items, err := s.links.ListAllActive(ctx)
	if err != nil {
		return nil, s.fail("list_active_links", err, nil)
	}
	return items, nil
}

// DeactivateLink hides a link from players.
func (s *Service) DeactivateLink(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	if err := s.links.SetActive(ctx, id, false); err != nil {
		return s.fail("deactivate_link", err, logrus.Fields{"link_id": id})
	}
	return nil
}

// Stats gathers the counters for the home strip and dashboard cards.
func (s *Service) Stats(ctx context.Context) (domain.CatalogStats, error) {
	stats, err := s.movies.Stats(ctx)
	if err != nil {
		return domain.CatalogStats{}, s.fail("stats", err, nil)
	}
	views, err := s.views.Count(ctx)
	if err != nil {
		return domain.CatalogStats{}, s.fail("stats", err, nil)
	}
	stats.Views = views
	return stats, nil
}

func (s *Service) fail(op string, err error, fields logrus.Fields) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			s.logger.WithFields(fields).WithField("op", op).WithField("constraint", pgErr.ConstraintName).Warn("catalog insert conflict")
			return fmt.Errorf("%s: %w", op, ErrConflict)
		case pgForeignKeyViolation:
			s.logger.WithFields(fields).WithField("op", op).WithField("constraint", pgErr.ConstraintName).Warn("catalog reference missing")
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
	}
	s.logger.WithFields(fields).WithField("op", op).WithError(err).Error("catalog operation failed")
	metrics.CatalogErrors.WithLabelValues(op).Inc()
	return fmt.Errorf("%s: %w", op, err)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func clampLimit(limit int) int {
	const maxLimit = 200
	if limit < 0 {
		return 0
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
