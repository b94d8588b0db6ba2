package store

import (
	"context"

	"github.com/roach88/firecheck/internal/inspection"
)

// Insert appends a new record and returns its store-assigned id.
//
// The submission is validated before the store is touched. Driver errors are
// returned as inspection storage faults and leave the table unchanged. On
// success every change subscriber is signalled after the commit, without
// waiting for any of them.
func (s *Store) Insert(ctx context.Context, sub inspection.Submission) (int64, error) {
	if err := sub.Validate(); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO inspections
		(location, timestamp, equipment_checked, notes)
		VALUES (?, ?, ?, ?)
	`,
		sub.Location,
		sub.Timestamp,
		sub.EquipmentChecked,
		sub.Notes,
	)
	if err != nil {
		return 0, inspection.NewStorageFault("insert", err)
	}

	// The row is committed at this point, so subscribers must hear about it
	// even if reading the id back fails.
	s.feed.publish()

	id, err := result.LastInsertId()
	if err != nil {
		return 0, inspection.NewStorageFault("insert: last insert id", err)
	}

	return id, nil
}
