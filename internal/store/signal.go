package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/hazyhaar/sportwire/dbopen"
)

// InsertSignals records the signal breakdown for one item. The
// (item_id, kind, algo_version) uniqueness makes re-scoring under the same
// algorithm version idempotent: a conflicting row is left untouched.
func (s *Store) InsertSignals(ctx context.Context, signals []QualitySignal) error {
	if len(signals) == 0 {
		return nil
	}
	now := time.Now().UnixMilli()
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		for _, sig := range signals {
			if sig.ComputedAt == 0 {
				sig.ComputedAt = now
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO quality_signals (item_id, kind, value, weight, algo_version, computed_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(item_id, kind, algo_version) DO NOTHING`,
				sig.ItemID, sig.Kind, sig.Value, sig.Weight, sig.AlgoVersion, sig.ComputedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

// SignalsForItem returns all recorded signals for an item.
func (s *Store) SignalsForItem(ctx context.Context, itemID string) ([]QualitySignal, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT item_id, kind, value, weight, algo_version, computed_at
		FROM quality_signals WHERE item_id = ? ORDER BY kind`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QualitySignal
	for rows.Next() {
		var sig QualitySignal
		if err := rows.Scan(&sig.ItemID, &sig.Kind, &sig.Value, &sig.Weight,
			&sig.AlgoVersion, &sig.ComputedAt); err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}
