package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the relational data-store facade shared by the API, workers,
// scheduler and redirector. It owns no business rules; every method maps to
// one statement (or one transaction) against Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var ErrNotConfigured = errors.New("store requires a non-nil pool")

func Must(pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, ErrNotConfigured
	}
	return New(pool), nil
}
