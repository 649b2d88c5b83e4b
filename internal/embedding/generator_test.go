package embedding

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cv-processor/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEncoder struct {
	calls atomic.Int32
	dims  int
	err   error
}

func (f *fakeEncoder) Encode(_ context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	dims := f.dims
	if dims == 0 {
		dims = Dimensions
	}
	vec := make([]float32, dims)
	for i, r := range text {
		vec[i%dims] += float32(r)
	}
	return vec, nil
}

func l2norm(vec []float32) float64 {
	var sum float64
	for _, f := range vec {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

func TestEmbedBlankReturnsZeroVector(t *testing.T) {
	loads := 0
	g := NewGenerator("test", func(context.Context) (Encoder, error) {
		loads++
		return &fakeEncoder{}, nil
	}, nil, nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		vec, err := g.Embed(context.Background(), text)
		require.NoError(t, err)
		require.Len(t, vec, Dimensions)
		assert.Zero(t, l2norm(vec))
	}
	assert.Zero(t, loads)
}

func TestEmbedNormalizesAndIsIdempotent(t *testing.T) {
	enc := &fakeEncoder{}
	g := NewGenerator("test", StaticLoader(enc), nil, nil)

	first, err := g.Embed(context.Background(), "Senior Go engineer")
	require.NoError(t, err)
	require.Len(t, first, Dimensions)
	assert.InDelta(t, 1.0, l2norm(first), 1e-5)

	second, err := g.Embed(context.Background(), "  Senior Go engineer  ")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEmbedUsesCache(t *testing.T) {
	enc := &fakeEncoder{}
	cache := NewMemoryCache(time.Hour)
	g := NewGenerator("test", StaticLoader(enc), cache, nil)

	first, err := g.Embed(context.Background(), "Python developer")
	require.NoError(t, err)
	second, err := g.Embed(context.Background(), "Python developer")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), enc.calls.Load())
	assert.Equal(t, 1, cache.Len())
}

func TestEmbedRetriesFailedLoad(t *testing.T) {
	attempts := 0
	g := NewGenerator("test", func(context.Context) (Encoder, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("weights unavailable")
		}
		return &fakeEncoder{}, nil
	}, nil, nil)

	_, err := g.Embed(context.Background(), "text")
	var embErr *apperr.EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Contains(t, err.Error(), "weights unavailable")

	_, err = g.Embed(context.Background(), "text")
	require.NoError(t, err)

	_, err = g.Embed(context.Background(), "more text")
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestEmbedLoadsOnceUnderConcurrency(t *testing.T) {
	var loads atomic.Int32
	g := NewGenerator("test", func(context.Context) (Encoder, error) {
		loads.Add(1)
		time.Sleep(10 * time.Millisecond)
		return &fakeEncoder{}, nil
	}, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Embed(context.Background(), "concurrent text")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
}

func TestEmbedRejectsBadModelOutput(t *testing.T) {
	tests := []struct {
		name string
		enc  *fakeEncoder
	}{
		{name: "wrong width", enc: &fakeEncoder{dims: 768}},
		{name: "encoder error", enc: &fakeEncoder{err: errors.New("rate limited")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator("test", StaticLoader(tt.enc), nil, nil)
			_, err := g.Embed(context.Background(), "text")

			var embErr *apperr.EmbeddingError
			assert.ErrorAs(t, err, &embErr)
		})
	}

	_, err := normalize(make([]float32, Dimensions))
	assert.Error(t, err)
}

func TestEmbedWithoutLoader(t *testing.T) {
	g := NewGenerator("test", nil, nil, nil)
	_, err := g.Embed(context.Background(), "text")

	var embErr *apperr.EmbeddingError
	assert.ErrorAs(t, err, &embErr)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(time.Millisecond)

	require.NoError(t, cache.Set(ctx, "k", []float32{1}))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	cache.CleanExpired()
	assert.Zero(t, cache.Len())
}

func TestMemoryCacheCopiesVectors(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(0)

	vec := []float32{1, 2}
	require.NoError(t, cache.Set(ctx, "k", vec))
	vec[0] = 9

	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, got)
}

func TestMemoryCacheEvictsOldestWhenFull(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(0)
	cache.maxEntries = 2

	require.NoError(t, cache.Set(ctx, "a", []float32{1}))
	require.NoError(t, cache.Set(ctx, "b", []float32{2}))
	cache.entries["a"].Timestamp = time.Now().Add(-time.Minute)

	// Overwriting an existing key never evicts.
	require.NoError(t, cache.Set(ctx, "b", []float32{3}))
	assert.Equal(t, 2, cache.Len())

	require.NoError(t, cache.Set(ctx, "c", []float32{4}))
	assert.Equal(t, 2, cache.Len())

	_, ok, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok, "oldest entry evicted")

	for _, key := range []string{"b", "c"} {
		_, ok, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, key)
	}
}
