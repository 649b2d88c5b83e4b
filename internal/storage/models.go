package storage

import "time"

// CVRecord is a stored candidate. Optional columns are nil when absent.
type CVRecord struct {
	ID                   string     `json:"id"`
	CandidateName        string     `json:"candidate_name"`
	Email                string     `json:"email"`
	Phone                *string    `json:"phone"`
	RawText              string     `json:"raw_text"`
	Summary              *string    `json:"summary"`
	Skills               []string   `json:"skills"`
	FileName             *string    `json:"file_name"`
	FileType             *string    `json:"file_type"`
	FileKey              string     `json:"-"`
	Embedding            []float32  `json:"-"`
	EmbeddingGenerated   bool       `json:"embedding_generated"`
	EmbeddingGeneratedAt *time.Time `json:"embedding_generated_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// JobPosting is a stored job description.
type JobPosting struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Company              *string    `json:"company"`
	Department           *string    `json:"department"`
	Location             *string    `json:"location"`
	Description          string     `json:"description"`
	Requirements         string     `json:"requirements"`
	Responsibilities     *string    `json:"responsibilities"`
	RequiredSkills       []string   `json:"required_skills"`
	PreferredSkills      []string   `json:"preferred_skills"`
	Benefits             []string   `json:"benefits"`
	EmploymentType       *string    `json:"employment_type"`
	ExperienceLevel      *string    `json:"experience_level"`
	IsActive             bool       `json:"is_active"`
	Embedding            []float32  `json:"-"`
	EmbeddingGenerated   bool       `json:"embedding_generated"`
	EmbeddingGeneratedAt *time.Time `json:"embedding_generated_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// MatchResult pairs a candidate with its cosine similarity to a query vector.
type MatchResult struct {
	CV              *CVRecord `json:"cv"`
	SimilarityScore float64   `json:"similarity_score"`
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// ListParams pages and filters list queries.
type ListParams struct {
	Skip       int
	Limit      int
	Search     string
	ActiveOnly bool
}

func (p ListParams) normalized() ListParams {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultListLimit
	}
	if p.Limit > MaxListLimit {
		p.Limit = MaxListLimit
	}
	return p
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
