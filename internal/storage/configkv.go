package storage

import (
	"context"
	"fmt"
)

// AllConfig returns every runtime config override as key/value strings.
func (p *PostgresStore) AllConfig(ctx context.Context) (map[string]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT key, value FROM config`)
	if err != nil {
		return nil, fmt.Errorf("query config: %w", err)
	}
	defer rows.Close()

	overrides := make(map[string]string)
	for rows.Next() {
		var key, value string
		err := rows.Scan(&key, &value)
		if err != nil {
			return nil, fmt.Errorf("scan config row: %w", err)
		}
		overrides[key] = value
	}

	return overrides, rows.Err()
}

// SetConfig upserts a runtime config override.
func (p *PostgresStore) SetConfig(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO config (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	_, err := p.db.ExecContext(ctx, query, key, value)
	if err != nil {
		return fmt.Errorf("set config %s: %w", key, err)
	}

	return nil
}
