package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/appraise/internal/errs"
	"github.com/example/appraise/internal/ports/primary"
)

func TestListLogs_ByCampaign(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()

	first, err := env.pipeline.StartCampaign(ctx, env.demoRequest())
	require.NoError(t, err)
	second, err := env.pipeline.StartCampaign(ctx, env.demoRequest())
	require.NoError(t, err)

	entries, err := env.logs.ListLogs(ctx, primary.LogFilters{Campaign: "wmt-demo"})
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	// The rerun created nothing, so every entry belongs to the first run.
	for _, e := range entries {
		assert.Equal(t, first.RunID, e.RunID)
	}

	entries, err = env.logs.ListLogs(ctx, primary.LogFilters{RunID: second.RunID})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListLogs_Filters(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()

	_, err := env.pipeline.StartCampaign(ctx, env.demoRequest())
	require.NoError(t, err)

	entries, err := env.logs.ListLogs(ctx, primary.LogFilters{EntityType: "batch"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Newest first.
	assert.Equal(t, "staffed", entries[0].Detail)
	assert.Equal(t, "validated", entries[1].Detail)

	entries, err = env.logs.ListLogs(ctx, primary.LogFilters{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestListLogs_UnknownCampaign(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.logs.ListLogs(context.Background(), primary.LogFilters{Campaign: "nope"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
