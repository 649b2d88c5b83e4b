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
	"go.uber.org/zap"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cv (
	id                     TEXT PRIMARY KEY,
	candidate_name         TEXT NOT NULL,
	email                  TEXT NOT NULL UNIQUE,
	phone                  TEXT,
	raw_text               TEXT NOT NULL,
	summary                TEXT,
	skills                 TEXT,
	file_name              TEXT,
	file_type              TEXT,
	file_key               TEXT,
	embedding              BLOB,
	embedding_generated    BOOLEAN NOT NULL DEFAULT 0,
	embedding_generated_at DATETIME,
	created_at             DATETIME NOT NULL,
	updated_at             DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS cv_created_at_idx ON cv (created_at);

CREATE TABLE IF NOT EXISTS jd (
	id                     TEXT PRIMARY KEY,
	title                  TEXT NOT NULL,
	company                TEXT,
	department             TEXT,
	location               TEXT,
	description            TEXT NOT NULL,
	requirements           TEXT NOT NULL,
	responsibilities       TEXT,
	required_skills        TEXT,
	preferred_skills       TEXT,
	benefits               TEXT,
	employment_type        TEXT,
	experience_level       TEXT,
	is_active              BOOLEAN NOT NULL DEFAULT 1,
	embedding              BLOB,
	embedding_generated    BOOLEAN NOT NULL DEFAULT 0,
	embedding_generated_at DATETIME,
	created_at             DATETIME NOT NULL,
	updated_at             DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS jd_created_at_idx ON jd (created_at);
`

// SQLiteStore is the embedded store used for local runs and tests. Vectors
// are float32 BLOBs ranked with the vec_cosine SQL function.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewSQLiteStore opens path (":memory:" for a private in-memory database).
func NewSQLiteStore(path string, log *zap.Logger) (*SQLiteStore, error) {
	registerVectorFunctions()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.OrNop(log),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateCV(ctx context.Context, rec *CVRecord) error {
	skills, err := encodeList(rec.Skills)
	if err != nil {
		return err
	}

	rec.ID = uuid.NewString()
	rec.CreatedAt = s.now()
	rec.UpdatedAt = rec.CreatedAt
	rec.Embedding = nil
	rec.EmbeddingGenerated = false
	rec.EmbeddingGeneratedAt = nil
	if rec.Skills == nil {
		rec.Skills = []string{}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cv (id, candidate_name, email, phone, raw_text, summary, skills, file_name,
			file_type, file_key, embedding_generated, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		rec.ID, rec.CandidateName, rec.Email, rec.Phone, rec.RawText, rec.Summary, skills,
		rec.FileName, rec.FileType, rec.FileKey, rec.CreatedAt, rec.UpdatedAt,
	)
	if isSQLiteConstraint(err) {
		return ErrDuplicate
	}
	return err
}

func (s *SQLiteStore) GetCV(ctx context.Context, id string) (*CVRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cvColumns+` FROM cv WHERE id = ?`, id)
	return scanSQLiteCV(row)
}

func (s *SQLiteStore) GetCVByEmail(ctx context.Context, email string) (*CVRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cvColumns+` FROM cv WHERE email = ?`, email)
	return scanSQLiteCV(row)
}

func (s *SQLiteStore) ListCVs(ctx context.Context, params ListParams) ([]*CVRecord, error) {
	params = params.normalized()

	query := `SELECT ` + cvColumns + ` FROM cv`
	var args []interface{}
	if strings.TrimSpace(params.Search) != "" {
		query += ` WHERE candidate_name LIKE ? OR email LIKE ?`
		args = append(args, likePattern(params.Search), likePattern(params.Search))
	}
	query += ` ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?`
	args = append(args, params.Limit, params.Skip)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []*CVRecord{}
	for rows.Next() {
		rec, err := scanSQLiteCV(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func (s *SQLiteStore) SetCVEmbedding(ctx context.Context, id string, vec []float32) error {
	return s.setEmbedding(ctx, "cv", id, vec)
}

func (s *SQLiteStore) PendingCVEmbeddings(ctx context.Context, limit int) ([]string, error) {
	return s.pending(ctx, "cv", limit)
}

func (s *SQLiteStore) CreateJobPosting(ctx context.Context, jp *JobPosting) error {
	lists := make([]string, 3)
	for i, items := range [][]string{jp.RequiredSkills, jp.PreferredSkills, jp.Benefits} {
		encoded, err := encodeList(items)
		if err != nil {
			return err
		}
		lists[i] = encoded
	}

	jp.ID = uuid.NewString()
	jp.CreatedAt = s.now()
	jp.UpdatedAt = jp.CreatedAt
	jp.Embedding = nil
	jp.EmbeddingGenerated = false
	jp.EmbeddingGeneratedAt = nil

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jd (id, title, company, department, location, description, requirements,
			responsibilities, required_skills, preferred_skills, benefits, employment_type,
			experience_level, is_active, embedding_generated, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		jp.ID, jp.Title, jp.Company, jp.Department, jp.Location, jp.Description, jp.Requirements,
		jp.Responsibilities, lists[0], lists[1], lists[2], jp.EmploymentType, jp.ExperienceLevel,
		jp.IsActive, jp.CreatedAt, jp.UpdatedAt,
	)
	if isSQLiteConstraint(err) {
		return ErrDuplicate
	}
	return err
}

func (s *SQLiteStore) GetJobPosting(ctx context.Context, id string) (*JobPosting, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jdColumns+` FROM jd WHERE id = ?`, id)
	return scanSQLiteJobPosting(row)
}

func (s *SQLiteStore) ListJobPostings(ctx context.Context, params ListParams) ([]*JobPosting, error) {
	params = params.normalized()

	var (
		where []string
		args  []interface{}
	)
	if params.ActiveOnly {
		where = append(where, `is_active = 1`)
	}
	if strings.TrimSpace(params.Search) != "" {
		where = append(where, `(title LIKE ? OR requirements LIKE ?)`)
		args = append(args, likePattern(params.Search), likePattern(params.Search))
	}

	query := `SELECT ` + jdColumns + ` FROM jd`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?`
	args = append(args, params.Limit, params.Skip)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []*JobPosting{}
	for rows.Next() {
		jp, err := scanSQLiteJobPosting(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, jp)
	}
	return res, rows.Err()
}

func (s *SQLiteStore) SetJobPostingEmbedding(ctx context.Context, id string, vec []float32) error {
	return s.setEmbedding(ctx, "jd", id, vec)
}

func (s *SQLiteStore) PendingJobPostingEmbeddings(ctx context.Context, limit int) ([]string, error) {
	return s.pending(ctx, "jd", limit)
}

func (s *SQLiteStore) NearestCVs(ctx context.Context, vec []float32, k int) ([]MatchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cvColumns+`, vec_cosine(embedding, ?) AS similarity
		FROM cv
		WHERE embedding IS NOT NULL
		ORDER BY similarity DESC, created_at ASC, id ASC
		LIMIT ?`,
		encodeVector(vec), k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []MatchResult{}
	for rows.Next() {
		var score sql.NullFloat64
		rec, err := scanSQLiteCV(rows, &score)
		if err != nil {
			return nil, err
		}
		res = append(res, MatchResult{CV: rec, SimilarityScore: score.Float64})
	}
	return res, rows.Err()
}

// table is one of the fixed names "cv" or "jd".
func (s *SQLiteStore) setEmbedding(ctx context.Context, table, id string, vec []float32) error {
	now := s.now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE `+table+`
		SET embedding = ?, embedding_generated = 1, embedding_generated_at = ?, updated_at = ?
		WHERE id = ? AND embedding_generated = 0`,
		encodeVector(vec), now, now, id,
	)
	if err != nil {
		return err
	}
	return s.checkUpdated(ctx, result, table, id)
}

func (s *SQLiteStore) checkUpdated(ctx context.Context, result sql.Result, table, id string) error {
	n, err := result.RowsAffected()
	if err != nil || n > 0 {
		return err
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	s.logger.Debug("[Store] embedding already set, skipping", zap.String("table", table), zap.String("id", id))
	return nil
}

func (s *SQLiteStore) pending(ctx context.Context, table string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM `+table+` WHERE embedding_generated = 0 ORDER BY created_at ASC, id ASC LIMIT ?`, limit)
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

func scanSQLiteCV(row rowScanner, extra ...interface{}) (*CVRecord, error) {
	var embedding []byte
	rec, err := scanCVRow(row, &embedding, extra...)
	if err != nil {
		return nil, err
	}
	if rec.Embedding, err = decodeVector(embedding); err != nil {
		return nil, err
	}
	return rec, nil
}

func scanSQLiteJobPosting(row rowScanner) (*JobPosting, error) {
	var embedding []byte
	jp, err := scanJobPostingRow(row, &embedding)
	if err != nil {
		return nil, err
	}
	if jp.Embedding, err = decodeVector(embedding); err != nil {
		return nil, err
	}
	return jp, nil
}

func isSQLiteConstraint(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	// Extended codes carry the primary code in the low byte.
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
