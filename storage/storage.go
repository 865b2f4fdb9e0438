// Package storage runs parameterized SQL against Postgres. Stores receive
// the shared pool by injection; there is no package-level singleton.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"taskdeck/domain"
)

// DB owns the connection pool lifecycle. Each query acquires a connection
// from the pool for its duration and releases it on completion or failure.
type DB struct {
	pool *sql.DB
}

// Open creates the pool. Connections are established lazily; call Ping to
// verify reachability.
func Open(connStr string) (*DB, error) {
	if connStr == "" {
		return nil, errors.New("storage: empty connection string")
	}
	pool, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(10)
	pool.SetMaxIdleConns(5)
	pool.SetConnMaxIdleTime(5 * time.Minute)
	return &DB{pool: pool}, nil
}

func (d *DB) Close() error {
	return d.pool.Close()
}

func (d *DB) Ping(ctx context.Context) error {
	return d.pool.PingContext(ctx)
}

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// translateError maps constraint violations onto domain errors so a race
// between the service's precondition read and the write still surfaces as a
// client error rather than a 500.
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return domain.BadRequest("id already exists")
		case pqForeignKeyViolation:
			return domain.ErrProjectNotFound
		}
	}
	return err
}
