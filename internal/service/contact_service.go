package service

import (
	"context"
	"errors"
	"fmt"

	"cv-processor/internal/apperr"
	"cv-processor/internal/logger"
	"cv-processor/internal/notify"
	"cv-processor/internal/storage"

	"go.uber.org/zap"
)

const (
	acceptanceSubject = "Accepted"
	defaultCompany    = "Our Company"
)

type ContactResult struct {
	Message        string `json:"message"`
	CandidateEmail string `json:"candidate_email"`
	CandidateName  string `json:"candidate_name"`
	JobTitle       string `json:"job_title"`
}

type ContactService struct {
	store    storage.Store
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewContactService(store storage.Store, notifier notify.Notifier, log *zap.Logger) *ContactService {
	return &ContactService{store: store, notifier: notifier, logger: logger.OrNop(log)}
}

// Contact sends the acceptance message for a candidate and posting.
func (s *ContactService) Contact(ctx context.Context, cvID, jdID string) (*ContactResult, error) {
	rec, err := s.store.GetCV(ctx, cvID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &apperr.NotFoundError{Resource: "CV", ID: cvID}
		}
		return nil, fmt.Errorf("load cv: %w", err)
	}

	jp, err := s.store.GetJobPosting(ctx, jdID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &apperr.NotFoundError{Resource: "JD", ID: jdID}
		}
		return nil, fmt.Errorf("load job posting: %w", err)
	}

	body := acceptanceBody(rec.CandidateName, jp.Title, companyName(jp))
	if err := s.notifier.Send(ctx, rec.Email, acceptanceSubject, body); err != nil {
		s.logger.Error("[Contact] notification failed",
			zap.String("cv_id", cvID),
			zap.String("jd_id", jdID),
			zap.Error(err),
		)
		return nil, apperr.ErrNotificationFailed
	}

	return &ContactResult{
		Message:        "Acceptance email sent successfully",
		CandidateEmail: rec.Email,
		CandidateName:  rec.CandidateName,
		JobTitle:       jp.Title,
	}, nil
}

func companyName(jp *storage.JobPosting) string {
	if jp.Company == nil || *jp.Company == "" {
		return defaultCompany
	}
	return *jp.Company
}

func acceptanceBody(name, title, company string) string {
	return fmt.Sprintf(`Dear %s,

Congratulations! We are pleased to inform you that your application for the position of %s at %s has been accepted.

We will contact you shortly with next steps.

Best regards,
%s Recruitment Team`, name, title, company, company)
}
