package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/cinema-online/internal/domain"
)

// MoviesRepository provides persistence helpers for catalog rows.
type MoviesRepository struct {
	pool *pgxpool.Pool
}

const movieColumns = `
    id,
    title,
    title_en,
    description,
    poster_url,
    backdrop_url,
    release_year,
    duration,
    genre,
    rating,
    type,
    status,
    created_at,
    updated_at
`

// MovieOrder selects the sort applied by List.
type MovieOrder int

const (
	// OrderNewest sorts by created_at descending.
	OrderNewest MovieOrder = iota
	// OrderRating sorts by rating descending.
	OrderRating
)

// MovieCreateParams bundles the fields required to create a catalog row.
type MovieCreateParams struct {
	Title       string
	TitleEn     *string
	Description string
	PosterURL   *string
	BackdropURL *string
	ReleaseYear int
	Duration    int
	Genre       []string
	Rating      float64
	Type        domain.ContentType
	Status      domain.Status
}

// MovieUpdateParams carries a partial update; nil fields keep their stored value.
type MovieUpdateParams struct {
	Title       *string
	TitleEn     *string
	Description *string
	PosterURL   *string
	BackdropURL *string
	ReleaseYear *int
	Duration    *int
	Genre       []string
	Rating      *float64
	Type        *domain.ContentType
	Status      *domain.Status
}

// MovieListFilters encapsulates the predicates the site issues.
type MovieListFilters struct {
	Status *domain.Status
	Type   *domain.ContentType
	Genre  *string
	// Query matches title, title_en or description case-insensitively.
	Query   *string
	OrderBy MovieOrder
	// Limit of zero means no limit.
	Limit int
}

// Create inserts a new row and returns the stored entity.
func (r *MoviesRepository) Create(ctx context.Context, params MovieCreateParams) (domain.Movie, error) {
	genre := params.Genre
	if genre == nil {
		genre = []string{}
	}
	query := fmt.Sprintf(`
        INSERT INTO movies (title, title_en, description, poster_url, backdrop_url, release_year, duration, genre, rating, type, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING %s
    `, movieColumns)

	row := r.pool.QueryRow(ctx, query,
		params.Title, params.TitleEn, params.Description, params.PosterURL, params.BackdropURL,
		params.ReleaseYear, params.Duration, genre, params.Rating, string(params.Type), string(params.Status))
	return scanMovie(row)
}

// GetByID fetches a row by its identifier regardless of status.
func (r *MoviesRepository) GetByID(ctx context.Context, id string) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE id = $1`, movieColumns)
	return r.getOne(ctx, query, id)
}

// GetActiveByID fetches a publicly visible row.
func (r *MoviesRepository) GetActiveByID(ctx context.Context, id string) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE id = $1 AND status = $2`, movieColumns)
	return r.getOne(ctx, query, id, string(domain.StatusActive))
}

func (r *MoviesRepository) getOne(ctx context.Context, query string, args ...interface{}) (domain.Movie, error) {
	movie, err := scanMovie(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Movie{}, ErrNotFound
		}
		return domain.Movie{}, err
	}
	return movie, nil
}

// Update applies a partial update and returns the stored row.
func (r *MoviesRepository) Update(ctx context.Context, id string, params MovieUpdateParams) (domain.Movie, error) {
	var typ, status *string
	if params.Type != nil {
		v := string(*params.Type)
		typ = &v
	}
	if params.Status != nil {
		v := string(*params.Status)
		status = &v
	}

	query := fmt.Sprintf(`
        UPDATE movies
        SET title = COALESCE($2, title),
            title_en = COALESCE($3, title_en),
            description = COALESCE($4, description),
            poster_url = COALESCE($5, poster_url),
            backdrop_url = COALESCE($6, backdrop_url),
            release_year = COALESCE($7, release_year),
            duration = COALESCE($8, duration),
            genre = COALESCE($9::text[], genre),
            rating = COALESCE($10, rating),
            type = COALESCE($11, type),
            status = COALESCE($12, status),
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, movieColumns)

	return r.getOne(ctx, query, id,
		params.Title, params.TitleEn, params.Description, params.PosterURL, params.BackdropURL,
		params.ReleaseYear, params.Duration, params.Genre, params.Rating, typ, status)
}

// SetStatus switches a row between active and inactive.
func (r *MoviesRepository) SetStatus(ctx context.Context, id string, status domain.Status) (domain.Movie, error) {
	query := fmt.Sprintf(`
        UPDATE movies SET status = $2, updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, movieColumns)
	return r.getOne(ctx, query, id, string(status))
}

// Delete removes a row; episodes, links and views cascade.
func (r *MoviesRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns rows that match the provided filters.
func (r *MoviesRepository) List(ctx context.Context, filters MovieListFilters) ([]domain.Movie, error) {
	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Status != nil {
		where = append(where, fmt.Sprintf("status = %s", arg(string(*filters.Status))))
	}
	if filters.Type != nil {
		where = append(where, fmt.Sprintf("type = %s", arg(string(*filters.Type))))
	}
	if filters.Genre != nil && strings.TrimSpace(*filters.Genre) != "" {
		where = append(where, fmt.Sprintf("genre @> ARRAY[%s]::text[]", arg(strings.TrimSpace(*filters.Genre))))
	}
	if filters.Query != nil && strings.TrimSpace(*filters.Query) != "" {
		p := arg("%" + EscapeLike(strings.TrimSpace(*filters.Query)) + "%")
		where = append(where, fmt.Sprintf("(title ILIKE %s OR title_en ILIKE %s OR description ILIKE %s)", p, p, p))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(movieColumns)
	queryBuilder.WriteString(" FROM movies")

	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}

	switch filters.OrderBy {
	case OrderRating:
		queryBuilder.WriteString(" ORDER BY rating DESC, created_at DESC, id DESC")
	default:
		queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")
	}
	if filters.Limit > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d", filters.Limit))
	}

	rows, err := r.pool.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Movie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Stats aggregates the counters shown on the home page and dashboard.
// View totals come from ViewsRepository.
func (r *MoviesRepository) Stats(ctx context.Context) (domain.CatalogStats, error) {
	const query = `
        SELECT count(*) FILTER (WHERE status = 'active' AND type = 'movie'),
               count(*) FILTER (WHERE status = 'active' AND type = 'series'),
               count(*) FILTER (WHERE status = 'active'),
               COALESCE(ROUND((AVG(rating) FILTER (WHERE status = 'active'))::numeric, 1), 0)::float8
        FROM movies
    `
	var stats domain.CatalogStats
	err := r.pool.QueryRow(ctx, query).Scan(&stats.Movies, &stats.Series, &stats.ActiveContent, &stats.AverageRating)
	if err != nil {
		return domain.CatalogStats{}, fmt.Errorf("movie stats: %w", err)
	}
	return stats, nil
}

// EscapeLike neutralises LIKE metacharacters so user input matches literally.
func EscapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var (
		movie  domain.Movie
		typ    string
		status string
	)

	err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.TitleEn,
		&movie.Description,
		&movie.PosterURL,
		&movie.BackdropURL,
		&movie.ReleaseYear,
		&movie.Duration,
		&movie.Genre,
		&movie.Rating,
		&typ,
		&status,
		&movie.CreatedAt,
		&movie.UpdatedAt,
	)
	if err != nil {
		return domain.Movie{}, err
	}

	movie.Type = domain.ContentType(typ)
	movie.Status = domain.Status(status)
	if movie.Genre == nil {
		movie.Genre = []string{}
	}
	return movie, nil
}
