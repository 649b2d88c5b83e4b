package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cv-processor/internal/apperr"
	"cv-processor/internal/cv"
	"cv-processor/internal/logger"
	"cv-processor/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrEmptyDocument = &apperr.InputError{Message: "No file content provided"}

type CVService struct {
	store    storage.Store
	blobs    storage.BlobStore
	parser   DocumentParser
	fields   FieldParser
	embedder Embedder
	retrier  Retrier
	logger   *zap.Logger
}

// NewCVService wires the ingestion pipeline. blobs may be nil.
func NewCVService(store storage.Store, blobs storage.BlobStore, parser DocumentParser, fields FieldParser, embedder Embedder, log *zap.Logger) *CVService {
	return &CVService{
		store:    store,
		blobs:    blobs,
		parser:   parser,
		fields:   fields,
		embedder: embedder,
		logger:   logger.OrNop(log),
	}
}

// SetRetrier installs the hook used when an embedding attempt fails.
func (s *CVService) SetRetrier(r Retrier) {
	s.retrier = r
}

// Ingest turns an uploaded document into a stored candidate record. The
// embedding step is best effort: its failure leaves embedding_generated false.
func (s *CVService) Ingest(ctx context.Context, doc cv.RawDocument) (*storage.CVRecord, error) {
	start := time.Now()
	if len(doc.Data) == 0 {
		return nil, ErrEmptyDocument
	}

	parsed, err := s.parser.ParseDocument(doc)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("[Ingest] text extracted",
		zap.String("filename", parsed.Filename),
		zap.String("format", string(parsed.FileType)),
		zap.Int("chars", len(parsed.FullText)),
	)

	fields, strategy := s.fields.Parse(ctx, parsed.FullText)
	if err := cv.ValidateRequired(fields); err != nil {
		return nil, err
	}

	_, err = s.store.GetCVByEmail(ctx, fields.Email)
	switch {
	case err == nil:
		return nil, &apperr.DuplicateError{Email: fields.Email}
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("check existing cv: %w", err)
	}

	rec := &storage.CVRecord{
		CandidateName: fields.Name,
		Email:         fields.Email,
		Phone:         storage.StringPtr(fields.Phone),
		RawText:       parsed.FullText,
		Summary:       storage.StringPtr(fields.Summary),
		Skills:        fields.Skills,
		FileName:      storage.StringPtr(parsed.Filename),
		FileType:      storage.StringPtr(string(parsed.FileType)),
	}
	blobKey, location := s.storeRaw(ctx, doc, parsed.Filename)
	rec.FileKey = location

	if err := s.store.CreateCV(ctx, rec); err != nil {
		s.discardRaw(ctx, blobKey)
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, &apperr.DuplicateError{Email: fields.Email}
		}
		return nil, fmt.Errorf("create cv: %w", err)
	}

	s.embed(ctx, rec)

	s.logger.Info("[Ingest] cv stored",
		zap.String("cv_id", rec.ID),
		zap.String("email", rec.Email),
		zap.String("strategy", strategy),
		zap.Bool("embedding_generated", rec.EmbeddingGenerated),
		zap.Duration("duration", time.Since(start)),
	)
	return rec, nil
}

func (s *CVService) List(ctx context.Context, params storage.ListParams) ([]*storage.CVRecord, error) {
	return s.store.ListCVs(ctx, params)
}

// EmbedCV generates the embedding of a stored candidate that has none yet.
func (s *CVService) EmbedCV(ctx context.Context, id string) error {
	rec, err := s.store.GetCV(ctx, id)
	if err != nil {
		return err
	}
	if rec.EmbeddingGenerated {
		return nil
	}

	vec, err := s.embedder.Embed(ctx, rec.RawText)
	if err != nil {
		return err
	}
	return s.store.SetCVEmbedding(ctx, id, vec)
}

func (s *CVService) embed(ctx context.Context, rec *storage.CVRecord) {
	vec, err := s.embedder.Embed(ctx, rec.RawText)
	if err == nil {
		err = s.store.SetCVEmbedding(ctx, rec.ID, vec)
	}
	if err != nil {
		degradeEmbedding(s.logger, s.retrier, TargetCV, rec.ID, err)
		return
	}

	rec.Embedding = vec
	rec.EmbeddingGenerated = true
	rec.EmbeddingGeneratedAt = utcNow()
}

// storeRaw keeps the original upload and returns its key and location.
// Failures are logged and leave both empty.
func (s *CVService) storeRaw(ctx context.Context, doc cv.RawDocument, filename string) (string, string) {
	if s.blobs == nil {
		return "", ""
	}
	key := storage.BlobKey(uuid.NewString(), filename)
	location, err := s.blobs.Put(ctx, key, doc.ContentType, doc.Data)
	if err != nil {
		s.logger.Warn("[Ingest] failed to store raw upload", zap.String("key", key), zap.Error(err))
		return "", ""
	}
	return key, location
}

// discardRaw removes an upload whose record was never created.
func (s *CVService) discardRaw(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn("[Ingest] failed to remove orphaned upload", zap.String("key", key), zap.Error(err))
	}
}
