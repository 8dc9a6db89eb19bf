package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CacheStore is the namespaced TTL key-value store backing every cache
// namespace. Set is an unconditional upsert: last writer wins, matching
// the contract that concurrent duplicate generations converge instead of
// corrupting state.
type CacheStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewCacheStore(db *sql.DB) *CacheStore {
	return &CacheStore{db: db, now: time.Now}
}

func (s *CacheStore) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT value, expires_at
FROM cache_entries
WHERE namespace = $1 AND key = $2
`, namespace, key)

	var value string
	var expiresAt sql.NullTime
	if err := row.Scan(&value, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("scan cache entry: %w", err)
	}

	if expiresAt.Valid && !expiresAt.Time.After(s.now().UTC()) {
		// Lazy purge; an expired row is indistinguishable from a miss.
		_ = s.Delete(ctx, namespace, key)
		return "", false, nil
	}
	return value, true, nil
}

func (s *CacheStore) Set(ctx context.Context, namespace, key, value string, ttl time.Duration) error {
	now := s.now().UTC()
	var expiresAt any
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO cache_entries (namespace, key, value, expires_at, updated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (namespace, key)
DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at
`, namespace, key, value, expiresAt, now)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

func (s *CacheStore) Delete(ctx context.Context, namespace, key string) error {
	_, err := s.db.ExecContext(ctx, `
DELETE FROM cache_entries
WHERE namespace = $1 AND key = $2
`, namespace, key)
	if err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}
