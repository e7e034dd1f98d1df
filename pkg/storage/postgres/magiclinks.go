// SPDX-License-Identifier: LGPL-3.0-or-later

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veilmark/corevault/pkg/storage"
)

type magicLinkStore struct {
	db *pgxpool.Pool
}

func (m *magicLinkStore) Create(ctx context.Context, link *storage.MagicLink) error {
	_, err := m.db.Exec(ctx, `
		INSERT INTO magic_links
			(token, user_id, session_pub_key, session_x25519, ui_host, next_path, email_lang, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		link.Token, link.UserID, link.SessionPubKey, link.SessionX25519,
		link.UIHost, link.NextPath, link.EmailLang, link.CreatedAt, link.ExpiresAt)
	return err
}

func (m *magicLinkStore) Get(ctx context.Context, token string) (*storage.MagicLink, error) {
	row := m.db.QueryRow(ctx, `
		SELECT token, user_id, session_pub_key, session_x25519, ui_host, next_path, email_lang, created_at, expires_at, consumed_at
		FROM magic_links WHERE token = $1`, token)
	return scanMagicLink(row)
}

// Consume is the magic-link single-use gate: one conditional UPDATE
// guarded by "WHERE consumed_at IS NULL", per section 5's isolation
// contract. The handler proceeds only if exactly one row was affected.
func (m *magicLinkStore) Consume(ctx context.Context, token string) (*storage.MagicLink, error) {
	tag, err := m.db.Exec(ctx, `
		UPDATE magic_links SET consumed_at = now()
		WHERE token = $1 AND consumed_at IS NULL`, token)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		if _, err := m.Get(ctx, token); errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, storage.ErrConflict
	}
	return m.Get(ctx, token)
}

func (m *magicLinkStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := m.db.Exec(ctx, `DELETE FROM magic_links WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanMagicLink(row pgx.Row) (*storage.MagicLink, error) {
	var link storage.MagicLink
	err := row.Scan(&link.Token, &link.UserID, &link.SessionPubKey, &link.SessionX25519,
		&link.UIHost, &link.NextPath, &link.EmailLang, &link.CreatedAt, &link.ExpiresAt, &link.ConsumedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}
