// Package storage is the Receiver's durable Charge store (C4): transactional
// CRUD against Postgres with per-external_id serializability via an
// advisory lock, adapted from the teacher's idempotency-key repository.
package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS charges (
	id BIGSERIAL PRIMARY KEY,
	external_id TEXT UNIQUE NOT NULL,
	value NUMERIC NOT NULL,
	status TEXT NOT NULL DEFAULT 'PENDING',
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	paid_at TIMESTAMPTZ
);
`

// NewPostgresDB opens a connection pool and applies the charges schema.
func NewPostgresDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
