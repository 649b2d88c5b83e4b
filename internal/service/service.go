// Package service holds the ingestion, job posting and contact flows that sit
// between the HTTP layer and the pipeline components.
package service

import (
	"context"
	"time"

	"cv-processor/internal/cv"

	"go.uber.org/zap"
)

// Embedder maps text to a stored vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DocumentParser sniffs a raw upload and extracts its text.
type DocumentParser interface {
	ParseDocument(doc cv.RawDocument) (*cv.ParsedCV, error)
}

// FieldParser turns CV text into candidate fields and names the strategy used.
type FieldParser interface {
	Parse(ctx context.Context, text string) (*cv.Fields, string)
}

// Target names the record kind an embedding belongs to.
type Target string

const (
	TargetCV         Target = "cv"
	TargetJobPosting Target = "jd"
)

// Retrier schedules a later embedding attempt. Enqueue reports whether the
// job was accepted.
type Retrier interface {
	Enqueue(target Target, id string) bool
}

// degradeEmbedding logs a failed embedding step and schedules a retry.
func degradeEmbedding(log *zap.Logger, retrier Retrier, target Target, id string, err error) {
	log.Warn("[Embedding] generation failed, record kept without embedding",
		zap.String("target", string(target)),
		zap.String("id", id),
		zap.Error(err),
	)
	if retrier == nil {
		return
	}
	if !retrier.Enqueue(target, id) {
		log.Warn("[Embedding] retry queue full, leaving record for backfill",
			zap.String("target", string(target)),
			zap.String("id", id),
		)
	}
}

func utcNow() *time.Time {
	now := time.Now().UTC()
	return &now
}
