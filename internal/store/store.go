// Package store is the persistence layer for users and file metadata.
//
// Every file operation takes the requesting user id and filters by it in the
// query itself. That scoping is the only access-control mechanism for file
// data; callers must not add side channels around it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrDuplicateUsername is returned by CreateUser when the username is taken.
var ErrDuplicateUsername = errors.New("username already exists")

// Store wraps the SQL connection pool.
type Store struct {
	db *sql.DB
}

// New wraps an already-open connection pool (used by tests with sqlmock).
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens a PostgreSQL connection pool and validates connectivity.
func Open(databaseURL string) (*Store, *sql.DB, error) {
	if databaseURL == "" {
		return nil, nil, errors.New("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return &Store{db: db}, db, nil
}
