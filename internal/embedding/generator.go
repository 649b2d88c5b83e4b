// Package embedding turns text into unit-length 384-dimensional vectors.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"cv-processor/internal/apperr"
	"cv-processor/internal/config"
	"cv-processor/internal/logger"

	"go.uber.org/zap"
)

// Dimensions is the width of every vector the generator returns.
const Dimensions = config.EmbeddingDimensions

// Loader builds the encoder. It runs on the first non-blank Embed call and
// again after a failed load.
type Loader func(ctx context.Context) (Encoder, error)

// Generator is the process-wide embedding model handle.
//
// Loading is guarded by a mutex. Inference is not serialized: encoders talk
// to the model over HTTP and are safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	loader  Loader
	encoder Encoder

	model  string
	cache  Cache
	logger *zap.Logger
}

func NewGenerator(model string, loader Loader, cache Cache, log *zap.Logger) *Generator {
	return &Generator{
		loader: loader,
		model:  model,
		cache:  cache,
		logger: logger.OrNop(log),
	}
}

// StaticLoader wraps an already constructed encoder.
func StaticLoader(enc Encoder) Loader {
	return func(context.Context) (Encoder, error) { return enc, nil }
}

// Embed returns the zero vector for blank text and a unit vector otherwise.
// Failures are *apperr.EmbeddingError.
func (g *Generator) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return make([]float32, Dimensions), nil
	}

	key := g.cacheKey(text)
	if vec, ok := g.cached(ctx, key); ok {
		return vec, nil
	}

	enc, err := g.load(ctx)
	if err != nil {
		return nil, &apperr.EmbeddingError{Err: err}
	}

	start := time.Now()
	raw, err := enc.Encode(ctx, text)
	if err != nil {
		return nil, &apperr.EmbeddingError{Err: err}
	}

	vec, err := normalize(raw)
	if err != nil {
		return nil, &apperr.EmbeddingError{Err: err}
	}
	g.logger.Debug("[Embedding] vector generated",
		zap.Int("chars", len(text)),
		zap.Duration("duration", time.Since(start)),
	)

	if g.cache != nil {
		if err := g.cache.Set(ctx, key, vec); err != nil {
			g.logger.Warn("[Embedding] cache write failed", zap.Error(err))
		}
	}
	return vec, nil
}

func (g *Generator) load(ctx context.Context) (Encoder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.encoder != nil {
		return g.encoder, nil
	}
	if g.loader == nil {
		return nil, errors.New("no embedding model configured")
	}

	start := time.Now()
	enc, err := g.loader(ctx)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", g.model, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("load model %s: loader returned no encoder", g.model)
	}

	g.encoder = enc
	g.logger.Info("[Embedding] model loaded", zap.String("model", g.model), zap.Duration("duration", time.Since(start)))
	return enc, nil
}

func (g *Generator) cached(ctx context.Context, key string) ([]float32, bool) {
	if g.cache == nil {
		return nil, false
	}
	vec, ok, err := g.cache.Get(ctx, key)
	if err != nil {
		g.logger.Warn("[Embedding] cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok || len(vec) != Dimensions {
		return nil, false
	}
	return vec, true
}

func (g *Generator) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(g.model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// normalize checks the width and scales to unit L2 norm.
func normalize(raw []float32) ([]float32, error) {
	if len(raw) != Dimensions {
		return nil, fmt.Errorf("model returned %d dimensions, want %d", len(raw), Dimensions)
	}

	var sum float64
	for _, f := range raw {
		sum += float64(f) * float64(f)
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, fmt.Errorf("model returned a vector with norm %v", norm)
	}

	vec := make([]float32, len(raw))
	for i, f := range raw {
		vec[i] = float32(float64(f) / norm)
	}
	return vec, nil
}
