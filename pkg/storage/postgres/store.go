// SPDX-License-Identifier: LGPL-3.0-or-later

// Package postgres implements pkg/storage.Store over a pgx connection
// pool, grounded on the teacher's pgxpool-backed store (connect,
// ping, sub-store-per-entity) but re-keyed to this module's schema:
// magic_links, shared_secrets, and shared_secrets_tracking.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veilmark/corevault/pkg/storage"
)

// Store implements storage.Store over PostgreSQL via pgxpool.
type Store struct {
	pool          *pgxpool.Pool
	magicLinks    *magicLinkStore
	sharedSecrets *sharedSecretStore
	tracking      *trackingStore
}

// NewStore opens a connection pool against dsn, verifies
// connectivity, and ensures the schema exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping database: %w", err)
	}
	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return &Store{
		pool:          pool,
		magicLinks:    &magicLinkStore{db: pool},
		sharedSecrets: &sharedSecretStore{db: pool},
		tracking:      &trackingStore{db: pool},
	}, nil
}

func (s *Store) MagicLinks() storage.MagicLinkStore       { return s.magicLinks }
func (s *Store) SharedSecrets() storage.SharedSecretStore { return s.sharedSecrets }
func (s *Store) Tracking() storage.TrackingStore          { return s.tracking }

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS magic_links (
	token            TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	session_pub_key  TEXT NOT NULL,
	session_x25519   TEXT NOT NULL,
	ui_host          TEXT NOT NULL,
	next_path        TEXT NOT NULL DEFAULT '',
	email_lang       TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL,
	expires_at       TIMESTAMPTZ NOT NULL,
	consumed_at      TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS shared_secrets (
	url_token        TEXT PRIMARY KEY,
	reference_id     TEXT NOT NULL,
	role             TEXT NOT NULL,
	sealed_payload   TEXT NOT NULL,
	pending_reads    BIGINT NOT NULL,
	otp_hash         TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL,
	expires_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS shared_secrets_reference_id_idx ON shared_secrets (reference_id);

CREATE TABLE IF NOT EXISTS shared_secrets_tracking (
	reference_id     TEXT PRIMARY KEY,
	read_at          TIMESTAMPTZ,
	read_count       BIGINT NOT NULL DEFAULT 0,
	expires_at       TIMESTAMPTZ NOT NULL
);
`

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}
