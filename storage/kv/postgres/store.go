package pgkv

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/prox/core"
)

const (
	upsertDraft = `
INSERT INTO draft (key, value, updated_at, expires_at)
VALUES (:key, :value, now(), :expires_at)
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at, expires_at = EXCLUDED.expires_at`

	selectDraft = `
SELECT key, value, expires_at FROM draft
WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`

	deleteDraft        = `DELETE FROM draft WHERE key = $1`
	deleteExpiredDraft = `DELETE FROM draft WHERE expires_at IS NOT NULL AND expires_at <= now()`
)

type draftRow struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	ExpiresAt null.Time `db:"expires_at"`
}

// Store is a core.KVStore kept in the `draft` table (see storage/database/migrations).
type Store struct {
	db  *sqlx.DB
	ttl time.Duration // 0: no expiration
}

var _ core.KVStore = (*Store)(nil)

func New(db *sqlx.DB, ttl time.Duration) *Store {
	return &Store{db: db, ttl: ttl}
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	row := draftRow{Key: key, Value: value}
	if s.ttl > 0 {
		row.ExpiresAt = null.TimeFrom(time.Now().UTC().Add(s.ttl))
	}
	if _, err := s.db.NamedExecContext(ctx, upsertDraft, row); err != nil {
		return errors.Wrap(err, "upserting draft")
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var row draftRow
	if err := s.db.GetContext(ctx, &row, selectDraft, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "selecting draft")
	}
	return row.Value, true, nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, deleteDraft, key)
	return errors.Wrap(err, "deleting draft")
}

// PurgeExpired deletes the expired drafts and returns how many were deleted.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, deleteExpiredDraft)
	if err != nil {
		return 0, errors.Wrap(err, "purging expired drafts")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "counting purged drafts")
}
