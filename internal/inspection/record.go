package inspection

import (
	"strings"
	"time"
)

// Record is a persisted inspection checklist entry.
type Record struct {
	// ID is assigned by the store on insert. Zero means not persisted.
	ID int64 `json:"id"`

	// Location describes where the inspection took place.
	Location string `json:"location"`

	// Timestamp is milliseconds since the Unix epoch, set by the submitter.
	Timestamp int64 `json:"timestamp"`

	// EquipmentChecked is a caller-formatted list of equipment names.
	EquipmentChecked string `json:"equipment_checked"`

	// Notes holds free-text observations and may be empty.
	Notes string `json:"notes"`
}

// Time returns the record timestamp as a time.Time.
func (r Record) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// Submission carries the caller-supplied fields of a new record.
type Submission struct {
	Location         string `json:"location"`
	Timestamp        int64  `json:"timestamp"`
	EquipmentChecked string `json:"equipment_checked"`
	Notes            string `json:"notes"`
}

// Validate checks the submission before it reaches the store.
// Only the location is required; equipment and notes are stored verbatim.
func (s Submission) Validate() error {
	if strings.TrimSpace(s.Location) == "" {
		return NewInvalidArgument("submit", "location must not be empty")
	}
	return nil
}

// Record returns the unpersisted record for this submission.
func (s Submission) Record() Record {
	return Record{
		Location:         s.Location,
		Timestamp:        s.Timestamp,
		EquipmentChecked: s.EquipmentChecked,
		Notes:            s.Notes,
	}
}

// JoinEquipment formats equipment names the way they are displayed and stored:
// trimmed, blanks dropped, joined with ", ".
func JoinEquipment(names ...string) string {
	parts := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, ", ")
}
