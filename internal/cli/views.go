package cli

import (
	"fmt"
	"io"
	"slices"
	"time"

	"golang.org/x/text/message"

	"github.com/roach88/firecheck/internal/inspection"
)

const recordTimeLayout = "2006-01-02 15:04"

// recordList is the result of list; JSON output carries only the records.
type recordList struct {
	Records []inspection.Record `json:"records"`

	printer *message.Printer
	tz      *time.Location
}

func (l recordList) RenderText(w io.Writer) error {
	if len(l.Records) == 0 {
		_, err := fmt.Fprintln(w, l.printer.Sprintf(msgNoInspections))
		return err
	}
	for _, r := range l.Records {
		if err := writeRecord(w, r, l.tz); err != nil {
			return err
		}
	}
	return nil
}

// writeRecord prints one record as a header line plus indented optional
// fields.
func writeRecord(w io.Writer, r inspection.Record, tz *time.Location) error {
	if _, err := fmt.Fprintf(w, "#%d  %s  %s\n", r.ID, r.Time().In(tz).Format(recordTimeLayout), r.Location); err != nil {
		return err
	}
	if r.EquipmentChecked != "" {
		if _, err := fmt.Fprintf(w, "    Equipment: %s\n", r.EquipmentChecked); err != nil {
			return err
		}
	}
	if r.Notes != "" {
		if _, err := fmt.Fprintf(w, "    Notes: %s\n", r.Notes); err != nil {
			return err
		}
	}
	return nil
}

// countResult is the result of count.
type countResult struct {
	Count int `json:"count"`

	printer *message.Printer
}

func (c countResult) RenderText(w io.Writer) error {
	_, err := fmt.Fprintln(w, c.printer.Sprintf(msgInspectionCount, c.Count))
	return err
}

// savedResult is the result of add.
type savedResult struct {
	ID     int64             `json:"id"`
	Record inspection.Record `json:"record"`
}

func (s savedResult) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Saved inspection #%d (%s)\n", s.ID, s.Record.Location)
	return err
}

// summary is one frame of the watch view: the running total and the most
// recent records.
type summary struct {
	Count  int                 `json:"count"`
	Latest []inspection.Record `json:"latest"`

	printer *message.Printer
	tz      *time.Location
}

func (s summary) RenderText(w io.Writer) error {
	if _, err := s.printer.Fprintf(w, "Inspections: %d\n", s.Count); err != nil {
		return err
	}
	if err := (recordList{Records: s.Latest, printer: s.printer, tz: s.tz}).RenderText(w); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

func (s summary) equal(o summary) bool {
	return s.Count == o.Count && slices.Equal(s.Latest, o.Latest)
}
