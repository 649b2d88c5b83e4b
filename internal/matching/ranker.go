// Package matching ranks stored candidates against a job posting by cosine
// similarity of their embeddings.
package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cv-processor/internal/apperr"
	"cv-processor/internal/logger"
	"cv-processor/internal/storage"

	"go.uber.org/zap"
)

// MaxTopK caps the result size of a single ranking query.
const MaxTopK = 100

var ErrInvalidTopK = &apperr.InputError{Message: "top_k must be at least 1"}

// Store is the slice of storage the ranker reads.
type Store interface {
	GetJobPosting(ctx context.Context, id string) (*storage.JobPosting, error)
	NearestCVs(ctx context.Context, vec []float32, k int) ([]storage.MatchResult, error)
}

type Ranker struct {
	store  Store
	logger *zap.Logger
}

func NewRanker(store Store, log *zap.Logger) *Ranker {
	return &Ranker{store: store, logger: logger.OrNop(log)}
}

// Rank returns at most topK embedded candidates, best first. Equal scores are
// ordered by candidate creation time, then id.
func (r *Ranker) Rank(ctx context.Context, query []float32, topK int) ([]storage.MatchResult, error) {
	k, err := clampTopK(topK)
	if err != nil {
		return nil, err
	}

	matches, err := r.store.NearestCVs(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("nearest candidates: %w", err)
	}

	res := make([]storage.MatchResult, 0, len(matches))
	for _, m := range matches {
		if m.CV == nil || len(m.CV.Embedding) == 0 {
			continue
		}
		res = append(res, m)
	}

	sort.SliceStable(res, func(i, j int) bool {
		a, b := res[i], res[j]
		if a.SimilarityScore != b.SimilarityScore {
			return a.SimilarityScore > b.SimilarityScore
		}
		if !a.CV.CreatedAt.Equal(b.CV.CreatedAt) {
			return a.CV.CreatedAt.Before(b.CV.CreatedAt)
		}
		return a.CV.ID < b.CV.ID
	})

	if len(res) > k {
		res = res[:k]
	}
	return res, nil
}

// FindTopMatches ranks candidates against a stored posting. A missing posting
// or one without an embedding is a *apperr.RankingPreconditionError.
func (r *Ranker) FindTopMatches(ctx context.Context, postingID string, topK int) ([]storage.MatchResult, error) {
	if _, err := clampTopK(topK); err != nil {
		return nil, err
	}

	posting, err := r.store.GetJobPosting(ctx, postingID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &apperr.RankingPreconditionError{Reason: apperr.ReasonNotFound, ID: postingID}
	}
	if err != nil {
		return nil, fmt.Errorf("load job posting: %w", err)
	}
	if !posting.EmbeddingGenerated || len(posting.Embedding) == 0 {
		return nil, &apperr.RankingPreconditionError{Reason: apperr.ReasonNoEmbedding, ID: postingID}
	}

	start := time.Now()
	matches, err := r.Rank(ctx, posting.Embedding, topK)
	if err != nil {
		return nil, err
	}

	r.logger.Info("[Ranker] candidates ranked",
		zap.String("jd_id", postingID),
		zap.Int("top_k", topK),
		zap.Int("results", len(matches)),
		zap.Duration("duration", time.Since(start)),
	)
	return matches, nil
}

func clampTopK(topK int) (int, error) {
	if topK < 1 {
		return 0, ErrInvalidTopK
	}
	if topK > MaxTopK {
		return MaxTopK, nil
	}
	return topK, nil
}
