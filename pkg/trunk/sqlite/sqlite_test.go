package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/acorn/pkg/config"
	"github.com/ajitpratap0/acorn/pkg/errors"
	"github.com/ajitpratap0/acorn/pkg/nut"
)

type event struct {
	Kind string `json:"kind"`
}

func sqliteConfig(t *testing.T) *config.BaseConfig {
	t.Helper()
	cfg := config.NewBaseConfig("events", BackendType)
	cfg.Storage.DSN = filepath.Join(t.TempDir(), "events.db")
	return cfg
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	tr, err := New[event](sqliteConfig(t), nil)
	require.NoError(t, err)
	defer tr.Close(ctx)

	require.NoError(t, tr.Stash(ctx, nut.New("e1", event{Kind: "created"})))

	out, ok, err := tr.Crack(ctx, "e1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "created", out.Payload.Kind)
}

func TestSQLiteRequiresDSN(t *testing.T) {
	_, err := New[event](config.NewBaseConfig("events", BackendType), nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestSQLiteUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	tr, err := New[event](sqliteConfig(t), nil)
	require.NoError(t, err)
	defer tr.Close(ctx)

	require.NoError(t, tr.Stash(ctx, nut.New("e1", event{Kind: "created"})))
	require.NoError(t, tr.Stash(ctx, nut.New("e1", event{Kind: "updated"})))

	out, ok, err := tr.Crack(ctx, "e1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "updated", out.Payload.Kind)

	nuts, err := tr.CrackAll(ctx)
	require.NoError(t, err)
	assert.Len(t, nuts, 1)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)

	tr, err := New[event](cfg, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Stash(ctx, nut.New("e1", event{Kind: "durable"})))
	require.NoError(t, tr.Close(ctx))

	reopened, err := New[event](cfg, nil)
	require.NoError(t, err)
	defer reopened.Close(ctx)

	out, ok, err := reopened.Crack(ctx, "e1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "durable", out.Payload.Kind)
}

func TestSQLiteCapabilities(t *testing.T) {
	ctx := context.Background()
	tr, err := New[event](sqliteConfig(t), nil)
	require.NoError(t, err)
	defer tr.Close(ctx)

	caps := tr.Capabilities()
	assert.True(t, caps.Durable)
	assert.True(t, caps.SupportsNativeIndex)
	assert.False(t, caps.SupportsHistory)

	_, err = tr.History(ctx, "e1")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotSupported))
}

func TestSQLiteBatchedFlushUsesOneTransaction(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)
	cfg.Batching.Enabled = true
	cfg.Batching.FlushThreshold = 1000
	cfg.Batching.FlushInterval = time.Hour

	tr, err := New[event](cfg, nil)
	require.NoError(t, err)
	defer tr.Close(ctx)

	for i := 0; i < 50; i++ {
		require.NoError(t, tr.Stash(ctx, nut.New(fmt.Sprintf("e%d", i), event{Kind: "bulk"})))
	}
	require.NoError(t, tr.Flush(ctx))

	nuts, err := tr.CrackAll(ctx)
	require.NoError(t, err)
	assert.Len(t, nuts, 50)
}

func TestSQLiteStagedValuesAtRest(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)
	cfg.Compression.Enabled = true
	cfg.Compression.Algorithm = "zstd"
	cfg.Checksum.Enabled = true

	tr, err := New[event](cfg, nil)
	require.NoError(t, err)
	defer tr.Close(ctx)

	require.NoError(t, tr.Stash(ctx, nut.New("e1", event{Kind: "hidden-at-rest"})))

	out, ok, err := tr.Crack(ctx, "e1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hidden-at-rest", out.Payload.Kind)
}
