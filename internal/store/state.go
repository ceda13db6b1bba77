package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pez-globo/ventserver/internal/codec"
)

// SaveState upserts record as the latest value of its state type. Each
// write takes the next seq, so LoadAll returns records in write order.
func (s *Store) SaveState(ctx context.Context, record *codec.StateData) error {
	if record == nil || record.StateType == "" {
		return errors.New("save state: missing state type")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO state_records (state_type, data, seq)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM state_records))
		ON CONFLICT(state_type) DO UPDATE SET
			data = excluded.data,
			seq = excluded.seq
	`, record.StateType, record.Data)
	if err != nil {
		return fmt.Errorf("save state %s: %w", record.StateType, err)
	}
	return nil
}

// LoadState returns the record stored for stateType, or nil if none exists.
func (s *Store) LoadState(ctx context.Context, stateType string) (*codec.StateData, error) {
	record := &codec.StateData{StateType: stateType}
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM state_records WHERE state_type = ?`, stateType,
	).Scan(&record.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state %s: %w", stateType, err)
	}
	return record, nil
}

// LoadAll returns every stored record, oldest write first.
func (s *Store) LoadAll(ctx context.Context) ([]*codec.StateData, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT state_type, data FROM state_records
		ORDER BY seq ASC, state_type ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("load states: %w", err)
	}
	defer rows.Close()

	var records []*codec.StateData
	for rows.Next() {
		record := &codec.StateData{}
		if err := rows.Scan(&record.StateType, &record.Data); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load states: %w", err)
	}
	return records, nil
}
