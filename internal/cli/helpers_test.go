package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/roach88/firecheck/internal/inspection"
	"github.com/roach88/firecheck/internal/store"
)

// Fixed inspection times for deterministic output.
var (
	t1 = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	t2 = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
)

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, opts *RootOptions, args ...string) (string, string, error) {
	t.Helper()
	if opts == nil {
		opts = &RootOptions{}
	}
	cmd := newRootCommand(opts)
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// seedTwoInspections creates a database holding the two-inspection example
// and returns its path.
func seedTwoInspections(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "firecheck.db")
	seed(t, dbPath,
		inspection.Submission{
			Location:         "Central Building – 3rd Floor",
			Timestamp:        t1.UnixMilli(),
			EquipmentChecked: "CO2 Extinguisher, Fire Alarm",
		},
		inspection.Submission{
			Location:         "Warehouse A",
			Timestamp:        t2.UnixMilli(),
			EquipmentChecked: "Hydrant",
			Notes:            "Near expiry",
		},
	)
	return dbPath
}

func seed(t *testing.T, dbPath string, subs ...inspection.Submission) {
	t.Helper()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	for _, sub := range subs {
		_, err := st.Insert(context.Background(), sub)
		require.NoError(t, err)
	}
}

func newGolden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}
