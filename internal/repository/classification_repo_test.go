package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/signbridge/backend/internal/db"
)

func newTestRepo(t *testing.T) *ClassificationRepository {
	t.Helper()
	testDB, err := db.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { testDB.Close() })
	return NewClassificationRepository(testDB)
}

// TestRecordAndRecent tests the basic record/read round trip.
func TestRecordAndRecent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, "A", 0.91, 12))
	require.NoError(t, repo.Record(ctx, "B", 0.87, 9))
	require.NoError(t, repo.Record(ctx, "C", 0.95, 15))

	records, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Newest first
	require.Equal(t, "C", records[0].Letter)
	require.Equal(t, "B", records[1].Letter)
	require.Equal(t, "A", records[2].Letter)
	require.InDelta(t, 0.95, records[0].Confidence, 1e-9)
	require.EqualValues(t, 15, records[0].LatencyMs)
	require.False(t, records[0].CreatedAt.IsZero())
}

// TestRecentLimit tests that the limit caps the result set.
func TestRecentLimit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Record(ctx, "A", 0.5, int64(i)))
	}

	records, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Non-positive limits fall back to the default
	records, err = repo.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 5)
}

// TestRecentEmpty tests reading from an empty history.
func TestRecentEmpty(t *testing.T) {
	repo := newTestRepo(t)

	records, err := repo.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, records)
}

// TestCount tests the total counter.
func TestCount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, n)

	require.NoError(t, repo.Record(ctx, "A", 0.9, 3))
	require.NoError(t, repo.Record(ctx, "B", 0.8, 4))

	n, err = repo.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}
