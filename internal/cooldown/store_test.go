package cooldown

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

func entry(groupID string, dir models.ScalingDirection) models.CooldownEntry {
	return models.CooldownEntry{
		GroupID:    groupID,
		Direction:  dir,
		RecordedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	got, err := store.Last(ctx, "asg-web")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Record(ctx, entry("asg-web", models.ScaleUp)))

	got, err = store.Last(ctx, "asg-web")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.ScaleUp, got.Direction)

	// Re-recording replaces the previous direction
	require.NoError(t, store.Record(ctx, entry("asg-web", models.ScaleDown)))
	got, err = store.Last(ctx, "asg-web")
	require.NoError(t, err)
	assert.Equal(t, models.ScaleDown, got.Direction)

	require.NoError(t, store.Reset(ctx, "asg-web"))
	got, err = store.Last(ctx, "asg-web")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "cooldown.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(ctx, entry("asg-web", models.ScaleUp)))
	require.NoError(t, store.Record(ctx, entry("asg-api", models.ScaleDown)))
	require.NoError(t, store.Close())

	// A fresh store sees what the previous invocation recorded
	reopened, err := NewFileStore(path)
	require.NoError(t, err)

	got, err := reopened.Last(ctx, "asg-web")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.ScaleUp, got.Direction)
	assert.True(t, got.RecordedAt.Equal(entry("", "").RecordedAt))

	got, err = reopened.Last(ctx, "asg-api")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.ScaleDown, got.Direction)
}

func TestFileStoreReset(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cooldown.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(ctx, entry("asg-web", models.ScaleUp)))
	require.NoError(t, store.Reset(ctx, "asg-web"))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	got, err := reopened.Last(ctx, "asg-web")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStoreRejectsCorruptState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cooldown.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}
