package trunk_test

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/acorn/pkg/codec"
	"github.com/ajitpratap0/acorn/pkg/config"
	"github.com/ajitpratap0/acorn/pkg/errors"
	"github.com/ajitpratap0/acorn/pkg/nut"
	"github.com/ajitpratap0/acorn/pkg/trunk"
	"github.com/ajitpratap0/acorn/pkg/trunk/trunktest"
)

type note struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

var testKey = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

func plainConfig(name string) *config.BaseConfig {
	return config.NewBaseConfig(name, "double")
}

func fullStageConfig(name string) *config.BaseConfig {
	cfg := config.NewBaseConfig(name, "double")
	cfg.Compression.Enabled = true
	cfg.Compression.Algorithm = "zstd"
	cfg.Encryption.Enabled = true
	cfg.Encryption.Key = testKey
	cfg.Checksum.Enabled = true
	return cfg
}

func newTrunk(t *testing.T, cfg *config.BaseConfig, store *trunktest.Store) *trunk.Base[note] {
	t.Helper()
	b, err := trunk.NewBase[note](cfg, store, trunk.Capabilities{BackendType: "double"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b
}

func TestStashCrackRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := newTrunk(t, plainConfig("roundtrip"), trunktest.NewStore(true))

	in := nut.New("n1", note{Title: "first", Body: "hello"})
	require.NoError(t, b.Stash(ctx, in))

	out, ok, err := b.Crack(ctx, "n1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in.Payload, out.Payload)
	assert.Equal(t, "n1", out.ID)
	assert.False(t, out.Timestamp.IsZero(), "a zero timestamp must be stamped on stash")
}

func TestStashCrackThroughFullPipeline(t *testing.T) {
	ctx := context.Background()
	store := trunktest.NewStore(true)
	b := newTrunk(t, fullStageConfig("staged"), store)

	in := nut.New("n1", note{Title: "secret", Body: "compressed, encrypted, checksummed"})
	require.NoError(t, b.Stash(ctx, in))

	// At rest the value must not contain the plaintext payload.
	raw, ok := store.Raw("n1")
	require.True(t, ok)
	assert.NotContains(t, string(raw), "secret")

	out, ok, err := b.Crack(ctx, "n1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in.Payload, out.Payload)
}

func TestCrackMissingRecord(t *testing.T) {
	b := newTrunk(t, plainConfig("missing"), trunktest.NewStore(true))

	_, ok, err := b.Crack(context.Background(), "ghost")
	require.NoError(t, err, "not-found is not an error")
	assert.False(t, ok)
}

func TestStashRequiresID(t *testing.T) {
	b := newTrunk(t, plainConfig("noid"), trunktest.NewStore(true))

	err := b.Stash(context.Background(), nut.Nut[note]{Payload: note{Title: "anonymous"}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestTossThenCrack(t *testing.T) {
	ctx := context.Background()
	b := newTrunk(t, plainConfig("toss"), trunktest.NewStore(true))

	require.NoError(t, b.Stash(ctx, nut.New("n1", note{Title: "doomed"})))
	require.NoError(t, b.Toss(ctx, "n1"))

	_, ok, err := b.Crack(ctx, "n1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Tossing an already-missing record is idempotent.
	require.NoError(t, b.Toss(ctx, "n1"))
}

func TestCrackAll(t *testing.T) {
	ctx := context.Background()
	b := newTrunk(t, plainConfig("all"), trunktest.NewStore(true))

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("n%d", i)
		require.NoError(t, b.Stash(ctx, nut.New(id, note{Title: id})))
	}

	nuts, err := b.CrackAll(ctx)
	require.NoError(t, err)
	assert.Len(t, nuts, 5)
}

func TestBatchedStashLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := trunktest.NewStore(true)

	cfg := plainConfig("lww")
	cfg.Batching.Enabled = true
	cfg.Batching.FlushThreshold = 100
	cfg.Batching.FlushInterval = time.Hour
	b := newTrunk(t, cfg, store)

	require.NoError(t, b.Stash(ctx, nut.New("n1", note{Title: "one"})))
	require.NoError(t, b.Stash(ctx, nut.New("n1", note{Title: "two"})))
	require.NoError(t, b.Stash(ctx, nut.New("n1", note{Title: "three"})))
	require.NoError(t, b.Flush(ctx))

	out, ok, err := b.Crack(ctx, "n1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "three", out.Payload.Title)
	assert.Equal(t, 1, store.Puts(), "duplicates must be compacted before the backend sees them")
}

func TestThresholdFlushReachesStore(t *testing.T) {
	ctx := context.Background()
	store := trunktest.NewStore(true)

	cfg := plainConfig("threshold")
	cfg.Batching.Enabled = true
	cfg.Batching.FlushThreshold = 3
	cfg.Batching.FlushInterval = time.Hour
	b := newTrunk(t, cfg, store)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Stash(ctx, nut.New(fmt.Sprintf("n%d", i), note{})))
	}

	assert.Eventually(t, func() bool {
		return store.Len() == 3
	}, time.Second, 5*time.Millisecond)
}

func TestFlushFailureIsolation(t *testing.T) {
	ctx := context.Background()
	store := trunktest.NewStore(true)
	store.FailPuts["bad"] = fmt.Errorf("write refused")

	cfg := plainConfig("isolation")
	cfg.Batching.Enabled = true
	cfg.Batching.FlushThreshold = 100
	cfg.Batching.FlushInterval = time.Hour
	b := newTrunk(t, cfg, store)

	require.NoError(t, b.Stash(ctx, nut.New("good1", note{})))
	require.NoError(t, b.Stash(ctx, nut.New("bad", note{})))
	require.NoError(t, b.Stash(ctx, nut.New("good2", note{})))

	err := b.Flush(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFlush))

	for _, id := range []string{"good1", "good2"} {
		_, ok, err := b.Crack(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok, "record %s must survive its poisoned batch-mate", id)
	}
}

func TestCloseDrainsBufferedWrites(t *testing.T) {
	ctx := context.Background()
	store := trunktest.NewStore(true)

	cfg := plainConfig("drain")
	cfg.Batching.Enabled = true
	cfg.Batching.FlushThreshold = 100
	cfg.Batching.FlushInterval = time.Hour

	b, err := trunk.NewBase[note](cfg, store, trunk.Capabilities{BackendType: "double"}, nil)
	require.NoError(t, err)

	require.NoError(t, b.Stash(ctx, nut.New("n1", note{Title: "buffered"})))
	require.NoError(t, b.Close(ctx))

	assert.Equal(t, 1, store.Len(), "disposal must drain the buffer")

	err = b.Stash(ctx, nut.New("late", note{}))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
}

func TestLegacyValueReadableAfterStagesAdded(t *testing.T) {
	ctx := context.Background()
	store := trunktest.NewStore(false)

	// First life of the store: no stages, values at rest are plain JSON.
	b1 := newTrunk(t, plainConfig("legacy"), store)
	require.NoError(t, b1.Stash(ctx, nut.New("n1", note{Title: "pre-pipeline"})))

	raw, ok := store.Raw("n1")
	require.True(t, ok)
	assert.Contains(t, string(raw), "pre-pipeline", "stage-free text values stay readable at rest")

	// Second life: compression enabled. The old value must fall back to
	// the direct decode path instead of failing in the pipeline.
	cfg := plainConfig("legacy")
	cfg.Compression.Enabled = true
	cfg.Compression.Algorithm = "lz4"
	b2 := newTrunk(t, cfg, store)

	out, ok, err := b2.Crack(ctx, "n1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "pre-pipeline", out.Payload.Title)

	// New writes through b2 are transformed; both generations coexist.
	require.NoError(t, b2.Stash(ctx, nut.New("n2", note{Title: "post-pipeline"})))
	nuts, err := b2.CrackAll(ctx)
	require.NoError(t, err)
	assert.Len(t, nuts, 2)
}

func TestStagedValueUnreadableWithoutStages(t *testing.T) {
	ctx := context.Background()
	store := trunktest.NewStore(false)

	cfg := plainConfig("mismatch")
	cfg.Compression.Enabled = true
	cfg.Compression.Algorithm = "zstd"
	b1 := newTrunk(t, cfg, store)
	require.NoError(t, b1.Stash(ctx, nut.New("n1", note{Title: "compressed at rest"})))

	// Reading back through a trunk with no stages must fail rather than
	// return garbage; the value is text-safe encoded, so the legacy path
	// does not rescue it.
	b2 := newTrunk(t, plainConfig("mismatch"), store)
	_, _, err := b2.Crack(ctx, "n1")
	require.Error(t, err)

	out, ok, err := b1.Crack(ctx, "n1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "compressed at rest", out.Payload.Title)
}

func TestTextStoreValuesAreTextSafe(t *testing.T) {
	ctx := context.Background()
	store := trunktest.NewStore(false)

	cfg := fullStageConfig("textsafe")
	b := newTrunk(t, cfg, store)

	require.NoError(t, b.Stash(ctx, nut.New("n1", note{Body: "binary pipeline output"})))

	raw, ok := store.Raw("n1")
	require.True(t, ok)
	decoded, legacy := codec.DecodeText(string(raw))
	assert.False(t, legacy, "transformed values in a text store must be text-safe encoded")
	assert.NotEmpty(t, decoded)
}

func TestHistoryUnsupportedByDefault(t *testing.T) {
	b := newTrunk(t, plainConfig("nohistory"), trunktest.NewStore(true))

	assert.False(t, b.Capabilities().SupportsHistory)

	_, err := b.History(context.Background(), "n1")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotSupported),
		"capabilities and behavior must agree")
}

func TestExportImportBetweenTrunks(t *testing.T) {
	ctx := context.Background()

	src := newTrunk(t, fullStageConfig("src"), trunktest.NewStore(true))
	dst := newTrunk(t, plainConfig("dst"), trunktest.NewStore(true))

	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("n%d", i)
		require.NoError(t, src.Stash(ctx, nut.New(id, note{Title: id})))
	}

	exported, err := src.ExportChanges(ctx)
	require.NoError(t, err)
	require.Len(t, exported, 3)

	require.NoError(t, dst.ImportChanges(ctx, exported))

	nuts, err := dst.CrackAll(ctx)
	require.NoError(t, err)
	assert.Len(t, nuts, 3)
}

func TestRejectExpiredOnStash(t *testing.T) {
	cfg := plainConfig("expiry")
	cfg.Policy.Enabled = true
	cfg.Policy.RejectExpired = true
	b := newTrunk(t, cfg, trunktest.NewStore(true))

	stale := nut.New("n1", note{Title: "stale"}).WithExpiry(time.Now().Add(-time.Minute))
	err := b.Stash(context.Background(), stale)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTransformation))

	fresh := nut.New("n2", note{Title: "fresh"}).WithExpiry(time.Now().Add(time.Hour))
	assert.NoError(t, b.Stash(context.Background(), fresh))
}

func TestCBORCodecRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := trunktest.NewStore(false)

	cfg := plainConfig("cbor")
	cfg.Storage.Codec = "cbor"
	b := newTrunk(t, cfg, store)

	in := nut.New("n1", note{Title: "compact", Body: "binary on the wire"})
	require.NoError(t, b.Stash(ctx, in))

	// CBOR is not printable, so even a stage-free text store gets the
	// text-safe encoding.
	raw, ok := store.Raw("n1")
	require.True(t, ok)
	_, legacy := codec.DecodeText(string(raw))
	assert.False(t, legacy)

	out, ok, err := b.Crack(ctx, "n1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in.Payload, out.Payload)
}

func TestCloseIsIdempotentAndClosesStore(t *testing.T) {
	store := trunktest.NewStore(true)
	b, err := trunk.NewBase[note](plainConfig("close"), store, trunk.Capabilities{BackendType: "double"}, nil)
	require.NoError(t, err)

	require.NoError(t, b.Close(context.Background()))
	assert.True(t, store.Closed())
	require.NoError(t, b.Close(context.Background()))
}
