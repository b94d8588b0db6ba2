package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/firecheck/internal/inspection"
)

// QueryAll returns every record, newest first.
// Ordered by timestamp DESC, id DESC so ties are stable.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) QueryAll(ctx context.Context) ([]inspection.Record, error) {
	return s.queryRecords(ctx, "query all", `
		SELECT id, location, timestamp, equipment_checked, notes
		FROM inspections
		ORDER BY timestamp DESC, id DESC
	`)
}

// QueryLatest returns at most n records, newest first.
// It is always a prefix of QueryAll over the same table state.
//
// Returns an invalid argument error, without touching the store, if n < 0.
func (s *Store) QueryLatest(ctx context.Context, n int) ([]inspection.Record, error) {
	if n < 0 {
		return nil, inspection.NewInvalidArgument("query latest", fmt.Sprintf("limit must be >= 0, got %d", n))
	}
	return s.queryRecords(ctx, "query latest", `
		SELECT id, location, timestamp, equipment_checked, notes
		FROM inspections
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, n)
}

// Count returns the total number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.read.QueryRowContext(ctx, `SELECT COUNT(*) FROM inspections`).Scan(&n); err != nil {
		return 0, inspection.NewStorageFault("count", err)
	}
	return n, nil
}

// queryRecords runs a single SELECT over the reader pool and scans every row.
func (s *Store) queryRecords(ctx context.Context, op, query string, args ...any) ([]inspection.Record, error) {
	rows, err := s.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, inspection.NewStorageFault(op, err)
	}
	defer rows.Close()

	records := []inspection.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, inspection.NewStorageFault(op, err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, inspection.NewStorageFault(op, fmt.Errorf("iterate records: %w", err))
	}

	return records, nil
}

// scanRecord scans a row into a Record.
func scanRecord(rows *sql.Rows) (inspection.Record, error) {
	var rec inspection.Record
	if err := rows.Scan(
		&rec.ID, &rec.Location, &rec.Timestamp, &rec.EquipmentChecked, &rec.Notes,
	); err != nil {
		return inspection.Record{}, fmt.Errorf("scan record: %w", err)
	}
	return rec, nil
}
