package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"example.com/adtrack/internal/settings"
)

// CacheStore is the durable settings-cache store: one row per tenant holding
// the serialized configuration and its fetch timestamp. It lets a restarted
// process serve stale configuration while the settings source is down.
type CacheStore struct {
	db *DB
}

func NewCacheStore(db *DB) *CacheStore { return &CacheStore{db: db} }

func (s *CacheStore) Load(ctx context.Context, tenantID string) (settings.Entry, bool, error) {
	var payload []byte
	var fetchedAt time.Time

	row := s.db.Pool.QueryRow(ctx,
		`SELECT payload, fetched_at FROM settings_cache WHERE tenant_id=$1`, tenantID)
	if err := row.Scan(&payload, &fetchedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return settings.Entry{}, false, nil
		}
		return settings.Entry{}, false, fmt.Errorf("load settings cache: %w", err)
	}

	var cfg settings.Configuration
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return settings.Entry{}, false, fmt.Errorf("decode settings cache for tenant %s: %w", tenantID, err)
	}
	return settings.Entry{Config: cfg, FetchedAt: fetchedAt.UTC()}, true, nil
}

func (s *CacheStore) Save(ctx context.Context, tenantID string, e settings.Entry) error {
	payload, err := json.Marshal(e.Config)
	if err != nil {
		return fmt.Errorf("encode settings cache for tenant %s: %w", tenantID, err)
	}
	_, err = s.db.Pool.Exec(ctx, `
INSERT INTO settings_cache (tenant_id, payload, fetched_at)
VALUES ($1, $2::jsonb, $3)
ON CONFLICT (tenant_id) DO UPDATE SET payload=EXCLUDED.payload, fetched_at=EXCLUDED.fetched_at`,
		tenantID, string(payload), e.FetchedAt)
	if err != nil {
		return fmt.Errorf("save settings cache: %w", err)
	}
	return nil
}

func (s *CacheStore) Delete(ctx context.Context, tenantID string) error {
	if _, err := s.db.Pool.Exec(ctx,
		`DELETE FROM settings_cache WHERE tenant_id=$1`, tenantID); err != nil {
		return fmt.Errorf("delete settings cache: %w", err)
	}
	return nil
}

var _ settings.Store = (*CacheStore)(nil)
