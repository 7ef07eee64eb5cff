package cart

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresSnapshotStore keeps each anonymous cart snapshot as a single JSON
// row keyed by the guest session token.
type PostgresSnapshotStore struct {
	db *sql.DB
}

func NewPostgresSnapshotStore(db *sql.DB) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db}
}

func (s *PostgresSnapshotStore) Load(ctx context.Context, key string) ([]SnapshotItem, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT items FROM guest_cart_snapshots WHERE snapshot_key = $1
	`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}

	var items []SnapshotItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return items, nil
}

func (s *PostgresSnapshotStore) Save(ctx context.Context, key string, items []SnapshotItem) error {
	if items == nil {
		items = []SnapshotItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO guest_cart_snapshots (snapshot_key, items, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (snapshot_key) DO UPDATE SET
			items = EXCLUDED.items,
			updated_at = EXCLUDED.updated_at
	`, key, raw)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}

func (s *PostgresSnapshotStore) Clear(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM guest_cart_snapshots WHERE snapshot_key = $1`, key)
	if err != nil {
		return fmt.Errorf("clear snapshot %s: %w", key, err)
	}
	return nil
}
