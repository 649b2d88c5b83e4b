package cv

import (
	"strings"

	"cv-processor/internal/apperr"
)

// Fields are the candidate facts extracted from CV text. Empty strings mean "not found".
type Fields struct {
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Phone   string   `json:"phone"`
	Skills  []string `json:"skills"`
	Summary string   `json:"summary"`
}

// Normalize trims every field, lower-cases the email and makes skills non-nil.
func (f *Fields) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.Phone = strings.TrimSpace(f.Phone)
	f.Summary = strings.TrimSpace(f.Summary)

	skills := make([]string, 0, len(f.Skills))
	for _, s := range f.Skills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	f.Skills = skills
}

// ValidateRequired enforces the mandatory name and email before a record is persisted.
func ValidateRequired(f *Fields) error {
	if f == nil || f.Email == "" {
		return &apperr.FieldValidationError{Field: "email"}
	}
	if f.Name == "" {
		return &apperr.FieldValidationError{Field: "name"}
	}
	return nil
}
