package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/roach88/firecheck/internal/inspection"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSubmission creates a submission with the given location and timestamp.
func createTestSubmission(location string, ts int64) inspection.Submission {
	return inspection.Submission{
		Location:         location,
		Timestamp:        ts,
		EquipmentChecked: "CO2 Extinguisher",
		Notes:            "",
	}
}

// mustInsert inserts a submission and fails the test on error.
func mustInsert(t *testing.T, s *Store, sub inspection.Submission) int64 {
	t.Helper()
	id, err := s.Insert(context.Background(), sub)
	if err != nil {
		t.Fatalf("Insert(%q) failed: %v", sub.Location, err)
	}
	return id
}

// failInserts installs a trigger that aborts every insert, simulating a
// medium that can no longer be written.
func failInserts(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec(`
		CREATE TRIGGER fail_insert BEFORE INSERT ON inspections
		BEGIN
			SELECT RAISE(ABORT, 'disk full');
		END
	`)
	if err != nil {
		t.Fatalf("failed to create trigger: %v", err)
	}
}
