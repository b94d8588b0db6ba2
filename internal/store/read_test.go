package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/firecheck/internal/inspection"
)

func TestQueryAll_EmptyStore(t *testing.T) {
	s := createTestStore(t)

	records, err := s.QueryAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records, "should return empty slice, not nil")
	assert.Empty(t, records)
}

func TestQueryAll_NewestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustInsert(t, s, createTestSubmission("middle", 200))
	mustInsert(t, s, createTestSubmission("oldest", 100))
	mustInsert(t, s, createTestSubmission("newest", 300))

	records, err := s.QueryAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "newest", records[0].Location)
	assert.Equal(t, "middle", records[1].Location)
	assert.Equal(t, "oldest", records[2].Location)
}

func TestQueryAll_TiesBreakByIDDescending(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := mustInsert(t, s, createTestSubmission("first", 500))
	second := mustInsert(t, s, createTestSubmission("second", 500))
	third := mustInsert(t, s, createTestSubmission("third", 500))

	records, err := s.QueryAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []int64{third, second, first}, []int64{records[0].ID, records[1].ID, records[2].ID})

	// Repeated queries over an unchanged table return the same order.
	for i := 0; i < 5; i++ {
		again, err := s.QueryAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, records, again)
	}
}

func TestQueryLatest_PrefixOfQueryAll(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	timestamps := []int64{40, 10, 30, 30, 20, 50}
	for _, ts := range timestamps {
		mustInsert(t, s, createTestSubmission("room", ts))
	}

	all, err := s.QueryAll(ctx)
	require.NoError(t, err)

	for n := 0; n <= len(all)+2; n++ {
		latest, err := s.QueryLatest(ctx, n)
		require.NoError(t, err)

		want := all
		if n < len(all) {
			want = all[:n]
		}
		assert.Equal(t, want, latest, "QueryLatest(%d)", n)
	}
}

func TestQueryLatest_NegativeLimit(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Close())

	// Rejected before touching the (closed) store.
	_, err := s.QueryLatest(context.Background(), -1)
	require.Error(t, err)
	assert.True(t, inspection.IsInvalidArgument(err))
}

func TestQueryLatest_EmptyStore(t *testing.T) {
	s := createTestStore(t)

	records, err := s.QueryLatest(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestCount_EmptyStore(t *testing.T) {
	s := createTestStore(t)

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReads_ClosedStoreIsStorageFault(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Close())
	ctx := context.Background()

	_, err := s.QueryAll(ctx)
	assert.True(t, inspection.IsStorageFault(err))

	_, err = s.QueryLatest(ctx, 3)
	assert.True(t, inspection.IsStorageFault(err))

	_, err = s.Count(ctx)
	assert.True(t, inspection.IsStorageFault(err))
}

func TestScenario_TwoInspections(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	central := mustInsert(t, s, inspection.Submission{
		Location:         "Central Building – 3rd Floor",
		Timestamp:        1000,
		EquipmentChecked: "CO2 Extinguisher, Fire Alarm",
		Notes:            "",
	})
	warehouse := mustInsert(t, s, inspection.Submission{
		Location:         "Warehouse A",
		Timestamp:        2000,
		EquipmentChecked: "Hydrant",
		Notes:            "Near expiry",
	})

	all, err := s.QueryAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, warehouse, all[0].ID)
	assert.Equal(t, central, all[1].ID)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	latest, err := s.QueryLatest(ctx, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "Warehouse A", latest[0].Location)
}
