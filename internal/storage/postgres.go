package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cv-processor/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

var postgresSchema = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS cv (
		id                     UUID PRIMARY KEY,
		candidate_name         VARCHAR(255) NOT NULL,
		email                  VARCHAR(255) NOT NULL UNIQUE,
		phone                  VARCHAR(50),
		raw_text               TEXT NOT NULL,
		summary                TEXT,
		skills                 JSONB,
		file_name              VARCHAR(255),
		file_type              VARCHAR(50),
		file_key               TEXT,
		embedding              vector(384),
		embedding_generated    BOOLEAN NOT NULL DEFAULT FALSE,
		embedding_generated_at TIMESTAMPTZ,
		created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS jd (
		id                     UUID PRIMARY KEY,
		title                  VARCHAR(500) NOT NULL,
		company                VARCHAR(255),
		department             VARCHAR(255),
		location               VARCHAR(255),
		description            TEXT NOT NULL,
		requirements           TEXT NOT NULL,
		responsibilities       TEXT,
		required_skills        JSONB,
		preferred_skills       JSONB,
		benefits               JSONB,
		employment_type        VARCHAR(50),
		experience_level       VARCHAR(50),
		is_active              BOOLEAN NOT NULL DEFAULT TRUE,
		embedding              vector(384),
		embedding_generated    BOOLEAN NOT NULL DEFAULT FALSE,
		embedding_generated_at TIMESTAMPTZ,
		created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS cv_created_at_idx ON cv (created_at)`,
	`CREATE INDEX IF NOT EXISTS jd_created_at_idx ON jd (created_at)`,
	`CREATE INDEX IF NOT EXISTS cv_embedding_idx ON cv USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`,
}

// PostgresStore keeps candidates and postings in Postgres with pgvector columns.
type PostgresStore struct {
	connection *sql.DB
	logger     *zap.Logger
}

func NewPostgresStore(dataSourceName string, log *zap.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, err
	}

	// Connection pool tuning
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgresStore{connection: db, logger: logger.OrNop(log)}, nil
}

func (s *PostgresStore) Close() error {
	if err := s.connection.Close(); err != nil {
		s.logger.Error("[Store] error closing the database connection", zap.Error(err))
		return err
	}
	return nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.connection.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateCV(ctx context.Context, rec *CVRecord) error {
	skills, err := encodeList(rec.Skills)
	if err != nil {
		return err
	}

	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()
	rec.UpdatedAt = rec.CreatedAt
	rec.Embedding = nil
	rec.EmbeddingGenerated = false
	rec.EmbeddingGeneratedAt = nil
	if rec.Skills == nil {
		rec.Skills = []string{}
	}

	query := `INSERT INTO cv (id, candidate_name, email, phone, raw_text, summary, skills, file_name,
	              file_type, file_key, embedding_generated, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, FALSE, $11, $12)`
	_, err = s.connection.ExecContext(ctx, query,
		rec.ID,
		rec.CandidateName,
		rec.Email,
		rec.Phone,
		rec.RawText,
		rec.Summary,
		skills,
		rec.FileName,
		rec.FileType,
		rec.FileKey,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	return mapPostgresError(err)
}

func (s *PostgresStore) GetCV(ctx context.Context, id string) (*CVRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := s.connection.QueryRowContext(ctx, `SELECT `+cvColumns+` FROM cv WHERE id = $1`, id)
	return scanPostgresCV(row)
}

func (s *PostgresStore) GetCVByEmail(ctx context.Context, email string) (*CVRecord, error) {
	row := s.connection.QueryRowContext(ctx, `SELECT `+cvColumns+` FROM cv WHERE email = $1`, email)
	return scanPostgresCV(row)
}

// ListCVs returns candidates newest first, filtered by name or email ILIKE.
func (s *PostgresStore) ListCVs(ctx context.Context, params ListParams) ([]*CVRecord, error) {
	params = params.normalized()

	base := `SELECT ` + cvColumns + ` FROM cv`
	var args []interface{}
	i := 1

	if strings.TrimSpace(params.Search) != "" {
		base += fmt.Sprintf(" WHERE (candidate_name ILIKE $%d OR email ILIKE $%d)", i, i)
		args = append(args, likePattern(params.Search))
		i++
	}
	base += fmt.Sprintf(" ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d", i, i+1)
	args = append(args, params.Limit, params.Skip)

	rows, err := s.connection.QueryContext(ctx, base, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []*CVRecord{}
	for rows.Next() {
		rec, err := scanPostgresCV(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func (s *PostgresStore) SetCVEmbedding(ctx context.Context, id string, vec []float32) error {
	return s.setEmbedding(ctx, "cv", id, vec)
}

func (s *PostgresStore) PendingCVEmbeddings(ctx context.Context, limit int) ([]string, error) {
	return s.pending(ctx, "cv", limit)
}

func (s *PostgresStore) CreateJobPosting(ctx context.Context, jp *JobPosting) error {
	lists := make([]string, 3)
	for i, items := range [][]string{jp.RequiredSkills, jp.PreferredSkills, jp.Benefits} {
		encoded, err := encodeList(items)
		if err != nil {
			return err
		}
		lists[i] = encoded
	}

	jp.ID = uuid.NewString()
	jp.CreatedAt = time.Now().UTC()
	jp.UpdatedAt = jp.CreatedAt
	jp.Embedding = nil
	jp.EmbeddingGenerated = false
	jp.EmbeddingGeneratedAt = nil

	query := `INSERT INTO jd (id, title, company, department, location, description, requirements,
	              responsibilities, required_skills, preferred_skills, benefits, employment_type,
	              experience_level, is_active, embedding_generated, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10::jsonb, $11::jsonb, $12, $13, $14,
	              FALSE, $15, $16)`
	_, err := s.connection.ExecContext(ctx, query,
		jp.ID,
		jp.Title,
		jp.Company,
		jp.Department,
		jp.Location,
		jp.Description,
		jp.Requirements,
		jp.Responsibilities,
		lists[0],
		lists[1],
		lists[2],
		jp.EmploymentType,
		jp.ExperienceLevel,
		jp.IsActive,
		jp.CreatedAt,
		jp.UpdatedAt,
	)
	return mapPostgresError(err)
}

func (s *PostgresStore) GetJobPosting(ctx context.Context, id string) (*JobPosting, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := s.connection.QueryRowContext(ctx, `SELECT `+jdColumns+` FROM jd WHERE id = $1`, id)
	return scanPostgresJobPosting(row)
}

// ListJobPostings returns postings newest first, filtered by title or requirements ILIKE.
func (s *PostgresStore) ListJobPostings(ctx context.Context, params ListParams) ([]*JobPosting, error) {
	params = params.normalized()

	base := `SELECT ` + jdColumns + ` FROM jd`
	var where []string
	var args []interface{}
	i := 1

	if params.ActiveOnly {
		where = append(where, "is_active = TRUE")
	}
	if strings.TrimSpace(params.Search) != "" {
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR requirements ILIKE $%d)", i, i))
		args = append(args, likePattern(params.Search))
		i++
	}

	if len(where) > 0 {
		base += " WHERE " + strings.Join(where, " AND ")
	}
	base += fmt.Sprintf(" ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d", i, i+1)
	args = append(args, params.Limit, params.Skip)

	rows, err := s.connection.QueryContext(ctx, base, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []*JobPosting{}
	for rows.Next() {
		jp, err := scanPostgresJobPosting(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, jp)
	}
	return res, rows.Err()
}

func (s *PostgresStore) SetJobPostingEmbedding(ctx context.Context, id string, vec []float32) error {
	return s.setEmbedding(ctx, "jd", id, vec)
}

func (s *PostgresStore) PendingJobPostingEmbeddings(ctx context.Context, limit int) ([]string, error) {
	return s.pending(ctx, "jd", limit)
}

// NearestCVs orders by the pgvector cosine distance operator; similarity is 1 - distance.
func (s *PostgresStore) NearestCVs(ctx context.Context, vec []float32, k int) ([]MatchResult, error) {
	query := `SELECT ` + cvColumns + `, 1 - (embedding <=> $1) AS similarity
	          FROM cv
	          WHERE embedding IS NOT NULL
	          ORDER BY embedding <=> $1, created_at ASC, id ASC
	          LIMIT $2`
	rows, err := s.connection.QueryContext(ctx, query, pgvector.NewVector(vec), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []MatchResult{}
	for rows.Next() {
		var score sql.NullFloat64
		rec, err := scanPostgresCV(rows, &score)
		if err != nil {
			return nil, err
		}
		res = append(res, MatchResult{CV: rec, SimilarityScore: score.Float64})
	}
	return res, rows.Err()
}

// table is one of the fixed names "cv" or "jd".
func (s *PostgresStore) setEmbedding(ctx context.Context, table, id string, vec []float32) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	query := `UPDATE ` + table + `
	          SET embedding = $1, embedding_generated = TRUE, embedding_generated_at = NOW(), updated_at = NOW()
	          WHERE id = $2 AND embedding_generated = FALSE`
	result, err := s.connection.ExecContext(ctx, query, pgvector.NewVector(vec), id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil || n > 0 {
		return err
	}

	var exists bool
	err = s.connection.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	s.logger.Debug("[Store] embedding already set, skipping", zap.String("table", table), zap.String("id", id))
	return nil
}

func (s *PostgresStore) pending(ctx context.Context, table string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.connection.QueryContext(ctx,
		`SELECT id FROM `+table+` WHERE embedding_generated = FALSE ORDER BY created_at ASC, id ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanPostgresCV(row rowScanner, extra ...interface{}) (*CVRecord, error) {
	var embedding *pgvector.Vector
	rec, err := scanCVRow(row, &embedding, extra...)
	if err != nil {
		return nil, err
	}
	if embedding != nil {
		rec.Embedding = embedding.Slice()
	}
	return rec, nil
}

func scanPostgresJobPosting(row rowScanner) (*JobPosting, error) {
	var embedding *pgvector.Vector
	jp, err := scanJobPostingRow(row, &embedding)
	if err != nil {
		return nil, err
	}
	if embedding != nil {
		jp.Embedding = embedding.Slice()
	}
	return jp, nil
}

func mapPostgresError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
