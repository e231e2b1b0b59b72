package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/cinema-online/internal/domain"
)

// ViewsRepository records playback page hits.
type ViewsRepository struct {
	pool *pgxpool.Pool
}

// ViewCreateParams describes one page hit.
type ViewCreateParams struct {
	MovieID   string
	EpisodeID *string
	IPAddress *string
	UserAgent *string
}

// Record inserts a view row.
func (r *ViewsRepository) Record(ctx context.Context, params ViewCreateParams) (domain.MovieView, error) {
	const query = `
        INSERT INTO movie_views (movie_id, episode_id, ip_address, user_agent)
        VALUES ($1,$2,$3,$4)
        RETURNING id, movie_id, episode_id, ip_address, user_agent, viewed_at
    `
	var view domain.MovieView
	err := r.pool.QueryRow(ctx, query, params.MovieID, params.EpisodeID, params.IPAddress, params.UserAgent).Scan(
		&view.ID,
		&view.MovieID,
		&view.EpisodeID,
		&view.IPAddress,
		&view.UserAgent,
		&view.ViewedAt,
	)
	if err != nil {
		return domain.MovieView{}, err
	}
	return view, nil
}

// Count returns the total number of recorded views.
func (r *ViewsRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM movie_views`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count views: %w", err)
	}
	return n, nil
}
