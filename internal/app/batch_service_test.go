package app

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/appraise/internal/core/batch"
	"github.com/example/appraise/internal/core/manifest"
	"github.com/example/appraise/internal/core/tasktype"
	"github.com/example/appraise/internal/ports/primary"
	"github.com/example/appraise/internal/ports/secondary"
)

// registerDemo runs the registry pass that creates markets and metadata.
func registerDemo(t *testing.T, env *testEnv) (*manifest.Context, *primary.CampaignRef) {
	t.Helper()
	mc, err := manifest.Parse([]byte(demoManifest), manifest.FormatJSON)
	require.NoError(t, err)
	ref, err := env.registry.InitCampaign(context.Background(), mc, primary.InitOptions{
		Mode:     primary.SkipAgendas,
		TaskType: tasktype.Direct,
	})
	require.NoError(t, err)
	return mc, ref
}

func rawBatch(name, source, target string, itemTypes ...string) batch.RawBatch {
	b := batch.RawBatch{
		FileName:       name,
		Checksum:       name + "-sum",
		SourceLanguage: source,
		TargetLanguage: target,
	}
	for i, it := range itemTypes {
		b.Items = append(b.Items, batch.RawItem{Line: i + 1, Fields: map[string]string{
			"item_id":     fmt.Sprint(i + 1),
			"item_type":   it,
			"source_text": "Hello",
			"target_text": "Hallo",
		}})
	}
	return b
}

func TestIngest_MaxCountBoundsNewBatches(t *testing.T) {
	env := newTestEnv(t, "")
	mc, ref := registerDemo(t, env)

	res, err := env.batches.Ingest(context.Background(), primary.IngestRequest{
		CampaignID: ref.CampaignID,
		Manifest:   mc,
		TaskType:   tasktype.Direct,
		Batches: []batch.RawBatch{
			rawBatch("a.json", "eng", "deu", "TGT"),
			rawBatch("b.json", "eng", "deu", "TGT"),
			rawBatch("c.json", "eng", "deu", "TGT"),
		},
		MaxCount: 2,
	})
	require.NoError(t, err)

	assert.Len(t, res.Batches, 2)
	assert.Equal(t, 2, res.Processed())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "c.json")
	assert.Equal(t, 2, env.count("SELECT COUNT(*) FROM batches"))
}

func TestIngest_UnknownMarketIsNotRegistered(t *testing.T) {
	env := newTestEnv(t, "")
	mc, ref := registerDemo(t, env)

	res, err := env.batches.Ingest(context.Background(), primary.IngestRequest{
		CampaignID: ref.CampaignID,
		Manifest:   mc,
		TaskType:   tasktype.Direct,
		Batches:    []batch.RawBatch{rawBatch("fra.json", "fra", "eng", "TGT")},
	})
	require.NoError(t, err)

	require.Len(t, res.Batches, 1)
	out := res.Batches[0]
	assert.Equal(t, secondary.BatchInvalid, out.Status)
	assert.Empty(t, out.BatchID)
	assert.NotEmpty(t, out.Violations)
	assert.Equal(t, 0, env.count("SELECT COUNT(*) FROM batches"))
}

func TestIngest_DropsMalformedRows(t *testing.T) {
	env := newTestEnv(t, "")
	mc, ref := registerDemo(t, env)

	res, err := env.batches.Ingest(context.Background(), primary.IngestRequest{
		CampaignID: ref.CampaignID,
		Manifest:   mc,
		TaskType:   tasktype.Direct,
		Batches:    []batch.RawBatch{rawBatch("mixed.json", "eng", "deu", "TGT", "XYZ")},
	})
	require.NoError(t, err)

	require.Len(t, res.Batches, 1)
	out := res.Batches[0]
	assert.Equal(t, secondary.BatchValidated, out.Status)
	assert.Equal(t, 1, out.Items)
	assert.Equal(t, 1, out.Dropped)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "mixed.json: dropped")
	assert.Equal(t, 1, env.count("SELECT COUNT(*) FROM items WHERE batch_id = ?", out.BatchID))
}

func TestIngest_SameContentIsReused(t *testing.T) {
	env := newTestEnv(t, "")
	mc, ref := registerDemo(t, env)
	req := primary.IngestRequest{
		CampaignID: ref.CampaignID,
		Manifest:   mc,
		TaskType:   tasktype.Direct,
		Batches:    []batch.RawBatch{rawBatch("a.json", "eng", "deu", "TGT", "TGT")},
	}

	first, err := env.batches.Ingest(context.Background(), req)
	require.NoError(t, err)
	second, err := env.batches.Ingest(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, first.Batches[0].Created)
	assert.False(t, second.Batches[0].Created)
	assert.Equal(t, first.Batches[0].BatchID, second.Batches[0].BatchID)
	assert.Equal(t, 2, second.Batches[0].Items)
	assert.Equal(t, 0, second.Processed())
	assert.Equal(t, 2, env.count("SELECT COUNT(*) FROM items"))
}
