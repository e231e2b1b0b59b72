package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/cinema-online/internal/domain"
)

// EpisodesRepository provides helpers for series episodes.
type EpisodesRepository struct {
	pool *pgxpool.Pool
}

const episodeColumns = `id, movie_id, season_number, episode_number, title, description, duration, thumbnail_url, created_at`

// EpisodeCreateParams captures the payload required to add an episode.
type EpisodeCreateParams struct {
	MovieID       string
	SeasonNumber  int
	EpisodeNumber int
	Title         string
	Description   *string
	Duration      int
	ThumbnailURL  *string
}

// Create inserts an episode and returns the stored row.
func (r *EpisodesRepository) Create(ctx context.Context, params EpisodeCreateParams) (domain.Episode, error) {
	query := fmt.Sprintf(`
        INSERT INTO episodes (movie_id, season_number, episode_number, title, description, duration, thumbnail_url)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING %s
    `, episodeColumns)

	row := r.pool.QueryRow(ctx, query, params.MovieID, params.SeasonNumber, params.EpisodeNumber,
		params.Title, params.Description, params.Duration, params.ThumbnailURL)
	return scanEpisode(row)
}

// ListByMovie returns a series' episodes ordered by season then episode number.
func (r *EpisodesRepository) ListByMovie(ctx context.Context, movieID string) ([]domain.Episode, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM episodes
        WHERE movie_id = $1
        ORDER BY season_number ASC, episode_number ASC
    `, episodeColumns)

	rows, err := r.pool.Query(ctx, query, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Episode, 0)
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Get fetches one episode scoped to its series.
func (r *EpisodesRepository) Get(ctx context.Context, movieID, episodeID string) (domain.Episode, error) {
	query := fmt.Sprintf(`SELECT %s FROM episodes WHERE movie_id = $1 AND id = $2`, episodeColumns)
	ep, err := scanEpisode(r.pool.QueryRow(ctx, query, movieID, episodeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Episode{}, ErrNotFound
		}
		return domain.Episode{}, err
	}
	return ep, nil
}

func scanEpisode(row pgx.Row) (domain.Episode, error) {
	var ep domain.Episode
	err := row.Scan(
		&ep.ID,
		&ep.MovieID,
		&ep.SeasonNumber,
		&ep.EpisodeNumber,
		&ep.Title,
		&ep.Description,
		&ep.Duration,
		&ep.ThumbnailURL,
		&ep.CreatedAt,
	)
	if err != nil {
		return domain.Episode{}, err
	}
	return ep, nil
}
