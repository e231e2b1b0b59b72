package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/cinema-online/internal/domain"
)

// LinksRepository provides helpers for streaming links.
type LinksRepository struct {
	pool *pgxpool.Pool
}

const linkColumns = `id, movie_id, episode_id, server_name, quality, url, embed_code, is_active, created_at`

// LinkCreateParams captures the payload required to add a streaming link.
type LinkCreateParams struct {
	MovieID    string
	EpisodeID  *string
	ServerName string
	Quality    string
	URL        string
	EmbedCode  *string
	IsActive   bool
}

// Create inserts a link and returns the stored row.
func (r *LinksRepository) Create(ctx context.Context, params LinkCreateParams) (domain.StreamingLink, error) {
	query := fmt.Sprintf(`
        INSERT INTO streaming_links (movie_id, episode_id, server_name, quality, url, embed_code, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING %s
    `, linkColumns)

	row := r.pool.QueryRow(ctx, query, params.MovieID, params.EpisodeID, params.ServerName,
		params.Quality, params.URL, params.EmbedCode, params.IsActive)
	return scanLink(row)
}

// ListActive returns active links for a movie. A nil episodeID selects movie-level links only.
func (r *LinksRepository) ListActive(ctx context.Context, movieID string, episodeID *string) ([]domain.StreamingLink, error) {
	if episodeID != nil {
		query := fmt.Sprintf(`
            SELECT %s FROM streaming_links
            WHERE movie_id = $1 AND is_active AND episode_id = $2
            ORDER BY quality DESC, created_at ASC
        `, linkColumns)
		return r.list(ctx, query, movieID, *episodeID)
	}
	query := fmt.Sprintf(`
        SELECT %s FROM streaming_links
        WHERE movie_id = $1 AND is_active AND episode_id IS NULL
        ORDER BY quality DESC, created_at ASC
    `, linkColumns)
	return r.list(ctx, query, movieID)
}

// ListAllActive returns every active link, for the link checker.
func (r *LinksRepository) ListAllActive(ctx context.Context) ([]domain.StreamingLink, error) {
	query := fmt.Sprintf(`SELECT %s FROM streaming_links WHERE is_active ORDER BY created_at ASC`, linkColumns)
	return r.list(ctx, query)
}

// SetActive flips a link's is_active flag.
func (r *LinksRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE streaming_links SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *LinksRepository) list(ctx context.Context, query string, args ...interface{}) ([]domain.StreamingLink, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.StreamingLink, 0)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, link)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanLink(row pgx.Row) (domain.StreamingLink, error) {
	var link domain.StreamingLink
	err := row.Scan(
		&link.ID,
		&link.MovieID,
		&link.EpisodeID,
		&link.ServerName,
		&link.Quality,
		&link.URL,
		&link.EmbedCode,
		&link.IsActive,
		&link.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StreamingLink{}, ErrNotFound
		}
		return domain.StreamingLink{}, err
	}
	return link, nil
}
