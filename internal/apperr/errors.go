// Package apperr holds the error taxonomy shared by the ingestion and
// matching pipeline, and its mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// FormatError reports a document that is neither PDF nor DOCX.
type FormatError struct {
	DeclaredType string
	// Generic is set when the declared type was a generic binary marker
	// and the leading bytes carried no known signature.
	Generic bool
}

func (e *FormatError) Error() string {
	if e.Generic {
		declared := e.DeclaredType
		if declared == "" {
			declared = "none"
		}
		return fmt.Sprintf("Cannot determine file type from binary content (declared type: %s)", declared)
	}
	return fmt.Sprintf("Unsupported content type: %s. Only PDF and DOCX files are supported", e.DeclaredType)
}

// ErrNoText marks a document that parsed but produced no usable text.
var ErrNoText = errors.New("Could not extract text from file")

// ExtractionError reports a corrupt document or one without text.
type ExtractionError struct {
	Format string
	Err    error
}

func (e *ExtractionError) Error() string {
	if errors.Is(e.Err, ErrNoText) {
		return ErrNoText.Error()
	}
	return fmt.Sprintf("Failed to extract %s: %v", e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// FieldValidationError names a mandatory field neither extraction strategy could find.
type FieldValidationError struct {
	Field string
}

func (e *FieldValidationError) Error() string {
	return fmt.Sprintf("Could not extract %s from CV. Please ensure CV contains %s.", e.Field, fieldHint(e.Field))
}

func fieldHint(field string) string {
	switch field {
	case "email":
		return "email address"
	case "name":
		return "candidate name"
	default:
		return field
	}
}

// DuplicateError is returned when a candidate with the same email already exists.
type DuplicateError struct {
	Email string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("CV with email %s already exists", e.Email)
}

// EmbeddingError is logged by callers and never aborts record creation.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding generation failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// StrategyError is a field extraction strategy failure. It is always
// recovered by falling back to the next strategy.
type StrategyError struct {
	Strategy string
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("%s extraction strategy failed: %v", e.Strategy, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }

const (
	ReasonNotFound    = "not_found"
	ReasonNoEmbedding = "no_embedding"
)

// RankingPreconditionError reports a ranking request that cannot run.
type RankingPreconditionError struct {
	Reason string
	ID     string
}

func (e *RankingPreconditionError) Error() string {
	switch e.Reason {
	case ReasonNotFound:
		return "Job description not found"
	case ReasonNoEmbedding:
		return "JD embedding not available"
	default:
		return fmt.Sprintf("cannot rank against job description %s: %s", e.ID, e.Reason)
	}
}

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotificationFailed = errors.New("Failed to send email")
)

// InputError is a rejected request with a caller-facing message. It matches ErrInvalidInput.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// NotFoundError names the missing resource. It matches ErrNotFound.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// HTTPStatus maps an error from the pipeline onto a transport status code.
func HTTPStatus(err error) int {
	var (
		formatErr     *FormatError
		extractionErr *ExtractionError
		fieldErr      *FieldValidationError
		duplicateErr  *DuplicateError
		rankingErr    *RankingPreconditionError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &formatErr),
		errors.As(err, &extractionErr),
		errors.As(err, &fieldErr),
		errors.As(err, &duplicateErr),
		errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.As(err, &rankingErr):
		if rankingErr.Reason == ReasonNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
