package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/cinema-online/internal/store"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("repository: not found")

// probeTables lists the tables CountRows may touch.
var probeTables = map[string]struct{}{
	"movies":          {},
	"episodes":        {},
	"streaming_links": {},
	"movie_views":     {},
	"admins":          {},
}

// Repository aggregates all table-specific repositories.
type Repository struct {
	Movies   *MoviesRepository
	Episodes *EpisodesRepository
	Links    *LinksRepository
	Views    *ViewsRepository

	pool *pgxpool.Pool
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Movies:   &MoviesRepository{pool: pool},
		Episodes: &EpisodesRepository{pool: pool},
		Links:    &LinksRepository{pool: pool},
		Views:    &ViewsRepository{pool: pool},
		pool:     pool,
	}
}

// CountRows runs count(*) against one of the catalog tables.
func (r *Repository) CountRows(ctx context.Context, table string) (int64, error) {
	if _, ok := probeTables[table]; !ok {
		return 0, fmt.Errorf("repository: unknown table %q", table)
	}
	var n int64
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, table)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
