package store

import (
	"context"
	"fmt"
)

// GetConfig reads a single runtime override from the config_kv table
// (spec.md §4.A get_config). Returns ErrNotFound when the key is unset;
// callers fall back to the YAML-loaded default.
func (s *Store) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM config_kv WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if isNoRows(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get config %q: %w", key, err)
	}
	return value, nil
}

// SetConfig upserts a runtime override. Not named in spec.md §4.A's
// read-path list but required to populate the table that get_config reads;
// grounded on the same upsert shape as SyncAdvisors.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO config_kv (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		return fmt.Errorf("set config %q: %w", key, err)
	}
	return nil
}
