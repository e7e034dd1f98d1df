// SPDX-License-Identifier: LGPL-3.0-or-later

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veilmark/corevault/pkg/storage"
)

type sharedSecretStore struct {
	db *pgxpool.Pool
}

func (s *sharedSecretStore) Create(ctx context.Context, sender, receiver *storage.SharedSecretRow) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, row := range []*storage.SharedSecretRow{sender, receiver} {
		if _, err := tx.Exec(ctx, `
			INSERT INTO shared_secrets
				(url_token, reference_id, role, sealed_payload, pending_reads, otp_hash, created_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			row.URLToken, row.ReferenceID, row.Role, row.SealedPayload,
			row.PendingReads, row.OTPHash, row.CreatedAt, row.ExpiresAt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *sharedSecretStore) GetByToken(ctx context.Context, urlToken string) (*storage.SharedSecretRow, error) {
	row := s.db.QueryRow(ctx, `
		SELECT url_token, reference_id, role, sealed_payload, pending_reads, otp_hash, created_at, expires_at
		FROM shared_secrets WHERE url_token = $1`, urlToken)
	return scanSharedSecretRow(row)
}

// ConsumeRead is the receiver read-count decrement: one conditional
// UPDATE guarded by "WHERE pending_reads > 0", per section 5. The row
// is deleted in the same transaction once the budget reaches zero so
// the sweep never needs to observe a zero-read row.
func (s *sharedSecretStore) ConsumeRead(ctx context.Context, urlToken string) (*storage.SharedSecretRow, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE shared_secrets SET pending_reads = pending_reads - 1
		WHERE url_token = $1 AND role = 'receiver' AND pending_reads > 0`, urlToken)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetByToken(ctx, urlToken); errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, storage.ErrConflict
	}

	row := tx.QueryRow(ctx, `
		SELECT url_token, reference_id, role, sealed_payload, pending_reads, otp_hash, created_at, expires_at
		FROM shared_secrets WHERE url_token = $1`, urlToken)
	result, err := scanSharedSecretRow(row)
	if err != nil {
		return nil, err
	}
	if result.PendingReads == 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM shared_secrets WHERE url_token = $1`, urlToken); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *sharedSecretStore) Delete(ctx context.Context, urlToken string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM shared_secrets WHERE url_token = $1`, urlToken)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *sharedSecretStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM shared_secrets WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanSharedSecretRow(row pgx.Row) (*storage.SharedSecretRow, error) {
	var r storage.SharedSecretRow
	err := row.Scan(&r.URLToken, &r.ReferenceID, &r.Role, &r.SealedPayload,
		&r.PendingReads, &r.OTPHash, &r.CreatedAt, &r.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
