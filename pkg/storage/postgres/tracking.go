// SPDX-License-Identifier: LGPL-3.0-or-later

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veilmark/corevault/pkg/storage"
)

type trackingStore struct {
	db *pgxpool.Pool
}

func (t *trackingStore) EnsureTracking(ctx context.Context, referenceID string, expiresAt time.Time) error {
	_, err := t.db.Exec(ctx, `
		INSERT INTO shared_secrets_tracking (reference_id, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (reference_id) DO NOTHING`, referenceID, expiresAt)
	return err
}

// MarkRead is idempotent by construction: the conditional UPDATE only
// ever sets read_at on the first call, per section 5.
func (t *trackingStore) MarkRead(ctx context.Context, referenceID string) (*storage.TrackingRow, error) {
	tag, err := t.db.Exec(ctx, `
		UPDATE shared_secrets_tracking
		SET read_at = now(), read_count = read_count + 1
		WHERE reference_id = $1 AND read_at IS NULL`, referenceID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		if _, err := t.db.Exec(ctx, `
			UPDATE shared_secrets_tracking SET read_count = read_count + 1
			WHERE reference_id = $1`, referenceID); err != nil {
			return nil, err
		}
	}
	return t.Get(ctx, referenceID)
}

func (t *trackingStore) Get(ctx context.Context, referenceID string) (*storage.TrackingRow, error) {
	row := t.db.QueryRow(ctx, `
		SELECT reference_id, read_at, read_count, expires_at
		FROM shared_secrets_tracking WHERE reference_id = $1`, referenceID)
	return scanTrackingRow(row)
}

func (t *trackingStore) Delete(ctx context.Context, referenceID string) error {
	tag, err := t.db.Exec(ctx, `DELETE FROM shared_secrets_tracking WHERE reference_id = $1`, referenceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (t *trackingStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := t.db.Exec(ctx, `DELETE FROM shared_secrets_tracking WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanTrackingRow(row pgx.Row) (*storage.TrackingRow, error) {
	var r storage.TrackingRow
	err := row.Scan(&r.ReferenceID, &r.ReadAt, &r.ReadCount, &r.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
