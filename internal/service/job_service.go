package service

import (
	"context"
	"fmt"
	"strings"

	"cv-processor/internal/apperr"
	"cv-processor/internal/logger"
	"cv-processor/internal/storage"

	"go.uber.org/zap"
)

// JobPostingInput is the create request for a job posting. Only title and
// requirements are required.
type JobPostingInput struct {
	Title            string   `json:"title"`
	Requirements     string   `json:"requirements"`
	Company          string   `json:"company,omitempty"`
	Department       string   `json:"department,omitempty"`
	Location         string   `json:"location,omitempty"`
	Description      string   `json:"description,omitempty"`
	Responsibilities string   `json:"responsibilities,omitempty"`
	RequiredSkills   []string `json:"required_skills,omitempty"`
	PreferredSkills  []string `json:"preferred_skills,omitempty"`
	Benefits         []string `json:"benefits,omitempty"`
	EmploymentType   string   `json:"employment_type,omitempty"`
	ExperienceLevel  string   `json:"experience_level,omitempty"`
	IsActive         *bool    `json:"is_active,omitempty"`
}

type JobService struct {
	store    storage.Store
	embedder Embedder
	retrier  Retrier
	logger   *zap.Logger
}

func NewJobService(store storage.Store, embedder Embedder, log *zap.Logger) *JobService {
	return &JobService{store: store, embedder: embedder, logger: logger.OrNop(log)}
}

func (s *JobService) SetRetrier(r Retrier) {
	s.retrier = r
}

// Create stores a posting and embeds "title requirements". Description
// defaults to the requirements text.
func (s *JobService) Create(ctx context.Context, in JobPostingInput) (*storage.JobPosting, error) {
	title := strings.TrimSpace(in.Title)
	requirements := strings.TrimSpace(in.Requirements)
	if title == "" {
		return nil, &apperr.InputError{Message: "title is required"}
	}
	if requirements == "" {
		return nil, &apperr.InputError{Message: "requirements is required"}
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = requirements
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	jp := &storage.JobPosting{
		Title:            title,
		Company:          storage.StringPtr(strings.TrimSpace(in.Company)),
		Department:       storage.StringPtr(strings.TrimSpace(in.Department)),
		Location:         storage.StringPtr(strings.TrimSpace(in.Location)),
		Description:      description,
		Requirements:     requirements,
		Responsibilities: storage.StringPtr(strings.TrimSpace(in.Responsibilities)),
		RequiredSkills:   in.RequiredSkills,
		PreferredSkills:  in.PreferredSkills,
		Benefits:         in.Benefits,
		EmploymentType:   storage.StringPtr(strings.TrimSpace(in.EmploymentType)),
		ExperienceLevel:  storage.StringPtr(strings.TrimSpace(in.ExperienceLevel)),
		IsActive:         active,
	}
	if err := s.store.CreateJobPosting(ctx, jp); err != nil {
		return nil, fmt.Errorf("create job posting: %w", err)
	}

	vec, err := s.embedder.Embed(ctx, embeddingText(jp))
	if err == nil {
		err = s.store.SetJobPostingEmbedding(ctx, jp.ID, vec)
	}
	if err != nil {
		degradeEmbedding(s.logger, s.retrier, TargetJobPosting, jp.ID, err)
	} else {
		jp.Embedding = vec
		jp.EmbeddingGenerated = true
		jp.EmbeddingGeneratedAt = utcNow()
	}

	s.logger.Info("[JobPosting] created",
		zap.String("jd_id", jp.ID),
		zap.String("title", jp.Title),
		zap.Bool("embedding_generated", jp.EmbeddingGenerated),
	)
	return jp, nil
}

func (s *JobService) List(ctx context.Context, params storage.ListParams) ([]*storage.JobPosting, error) {
	return s.store.ListJobPostings(ctx, params)
}

// EmbedJobPosting generates the embedding of a stored posting that has none yet.
func (s *JobService) EmbedJobPosting(ctx context.Context, id string) error {
	jp, err := s.store.GetJobPosting(ctx, id)
	if err != nil {
		return err
	}
	if jp.EmbeddingGenerated {
		return nil
	}

	vec, err := s.embedder.Embed(ctx, embeddingText(jp))
	if err != nil {
		return err
	}
	return s.store.SetJobPostingEmbedding(ctx, id, vec)
}

func embeddingText(jp *storage.JobPosting) string {
	return jp.Title + " " + jp.Requirements
}
