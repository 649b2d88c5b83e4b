package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cv-processor/internal/apperr"

	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned by lookups that match no row.
	ErrNotFound = apperr.ErrNotFound
	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate record")
)

// Shared projections; both stores scan them with scanCVRow and scanJobPostingRow.
const (
	cvColumns = `id, candidate_name, email, phone, raw_text, summary, skills, file_name, file_type,
	file_key, embedding, embedding_generated, embedding_generated_at, created_at, updated_at`
	jdColumns = `id, title, company, department, location, description, requirements, responsibilities,
	required_skills, preferred_skills, benefits, employment_type, experience_level, is_active,
	embedding, embedding_generated, embedding_generated_at, created_at, updated_at`
)

// Store is the persistence collaborator for candidates and job postings.
type Store interface {
	Migrate(ctx context.Context) error
	Close() error

	CreateCV(ctx context.Context, rec *CVRecord) error
	GetCV(ctx context.Context, id string) (*CVRecord, error)
	GetCVByEmail(ctx context.Context, email string) (*CVRecord, error)
	ListCVs(ctx context.Context, params ListParams) ([]*CVRecord, error)
	// SetCVEmbedding stores the vector only while embedding_generated is false.
	SetCVEmbedding(ctx context.Context, id string, vec []float32) error
	PendingCVEmbeddings(ctx context.Context, limit int) ([]string, error)

	CreateJobPosting(ctx context.Context, jp *JobPosting) error
	GetJobPosting(ctx context.Context, id string) (*JobPosting, error)
	ListJobPostings(ctx context.Context, params ListParams) ([]*JobPosting, error)
	SetJobPostingEmbedding(ctx context.Context, id string, vec []float32) error
	PendingJobPostingEmbeddings(ctx context.Context, limit int) ([]string, error)

	// NearestCVs returns up to k embedded candidates ordered by cosine
	// similarity descending, then created_at and id ascending.
	NearestCVs(ctx context.Context, vec []float32, k int) ([]MatchResult, error)
}

// Open picks the SQLite store for sqlite: URLs and Postgres otherwise.
func Open(dsn string, log *zap.Logger) (Store, error) {
	switch {
	case dsn == "":
		return nil, errors.New("database url is empty")
	case strings.HasPrefix(dsn, "sqlite:"):
		path := strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite:"), "//")
		return NewSQLiteStore(path, log)
	default:
		return NewPostgresStore(dsn, log)
	}
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(b), nil
}

func decodeList(raw []byte) ([]string, error) {
	items := []string{}
	if len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}

func likePattern(search string) string {
	return "%" + strings.TrimSpace(search) + "%"
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanCVRow reads the cvColumns projection. The embedding column lands in
// embedding, whose type depends on the driver; extra columns follow it.
func scanCVRow(row rowScanner, embedding interface{}, extra ...interface{}) (*CVRecord, error) {
	var (
		rec     CVRecord
		skills  []byte
		fileKey sql.NullString
	)
	dest := []interface{}{
		&rec.ID, &rec.CandidateName, &rec.Email, &rec.Phone, &rec.RawText, &rec.Summary, &skills,
		&rec.FileName, &rec.FileType, &fileKey, embedding, &rec.EmbeddingGenerated,
		&rec.EmbeddingGeneratedAt, &rec.CreatedAt, &rec.UpdatedAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var err error
	if rec.Skills, err = decodeList(skills); err != nil {
		return nil, err
	}
	rec.FileKey = fileKey.String
	return &rec, nil
}

// scanJobPostingRow reads the jdColumns projection.
func scanJobPostingRow(row rowScanner, embedding interface{}) (*JobPosting, error) {
	var (
		jp    JobPosting
		lists [3][]byte
	)
	err := row.Scan(
		&jp.ID, &jp.Title, &jp.Company, &jp.Department, &jp.Location, &jp.Description,
		&jp.Requirements, &jp.Responsibilities, &lists[0], &lists[1], &lists[2],
		&jp.EmploymentType, &jp.ExperienceLevel, &jp.IsActive, embedding,
		&jp.EmbeddingGenerated, &jp.EmbeddingGeneratedAt, &jp.CreatedAt, &jp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	targets := []*[]string{&jp.RequiredSkills, &jp.PreferredSkills, &jp.Benefits}
	for i, raw := range lists {
		if *targets[i], err = decodeList(raw); err != nil {
			return nil, err
		}
	}
	return &jp, nil
}
