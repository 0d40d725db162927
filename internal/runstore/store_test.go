// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package runstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/medscan/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.StoreConfig{StateDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTestStore(t)

	latest, err := s.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest, "empty store has no latest run")
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.BeginRun(ctx, 3)
	require.NoError(t, err)

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, id, latest.ID)
	assert.Equal(t, StatusRunning, latest.Status)
	assert.Equal(t, 3, latest.TotalItems)
	assert.Equal(t, 0, latest.ProcessedItems)
	assert.False(t, latest.StartedAt.IsZero())
	assert.True(t, latest.FinishedAt.IsZero())

	items := []types.Item{
		{Name: "a.txt", Kind: types.KindTextRecord},
		{Name: "b.png", Kind: types.KindImage},
		{Name: "weird.pdf", Kind: types.KindUnsupported},
	}
	for i, it := range items {
		require.NoError(t, s.CheckpointItem(ctx, id, i, it, "result "+it.Name, false))
	}

	latest, err = s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, latest.ProcessedItems)

	require.NoError(t, s.FinishRun(ctx, id, StatusCompleted))

	latest, err = s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, latest.Status)
	assert.False(t, latest.FinishedAt.IsZero())
}

func TestCheckpointOverwrite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.BeginRun(ctx, 1)
	require.NoError(t, err)

	item := types.Item{Name: "a.txt", Kind: types.KindTextRecord}
	require.NoError(t, s.CheckpointItem(ctx, id, 0, item, "first", true))
	require.NoError(t, s.CheckpointItem(ctx, id, 0, item, "second", false))

	items, err := s.RunItems(ctx, id)
	require.NoError(t, err)
	require.Len(t, items, 1, "re-checkpointing a position must not add rows")
	assert.Equal(t, "second", items[0].Result)
	assert.False(t, items[0].Failed)

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, latest.ProcessedItems)
}

func TestRunItemsOrderedByPosition(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.BeginRun(ctx, 3)
	require.NoError(t, err)

	// Checkpoint out of order; reads must come back in processing order.
	require.NoError(t, s.CheckpointItem(ctx, id, 2, types.Item{Name: "c.txt", Kind: types.KindTextRecord}, "c", false))
	require.NoError(t, s.CheckpointItem(ctx, id, 0, types.Item{Name: "a.txt", Kind: types.KindTextRecord}, "a", false))
	require.NoError(t, s.CheckpointItem(ctx, id, 1, types.Item{Name: "b.txt", Kind: types.KindTextRecord}, "b", true))

	items, err := s.RunItems(ctx, id)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, []string{items[0].Name, items[1].Name, items[2].Name})
	assert.True(t, items[1].Failed)
}

func TestRunsMostRecentFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.BeginRun(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, first, StatusFailed))

	second, err := s.BeginRun(ctx, 2)
	require.NoError(t, err)

	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)
	assert.Equal(t, StatusFailed, runs[1].Status)

	limited, err := s.Runs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, second, limited[0].ID)
}
