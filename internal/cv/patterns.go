package cv

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Thresholds tune the pattern-based extractor.
type Thresholds struct {
	MinPhoneLength  int // matched phone length must be >= this
	NameScanLines   int // non-blank lines searched for a "Name:" label
	MinLabelTokens  int // tokens required after a "Name:" label
	MinNameTokens   int // first-line name token bounds, inclusive
	MaxNameTokens   int
	MinSkillLength  int // skill length must be strictly between these
	MaxSkillLength  int
	MaxSkills       int
	MinSummaryChars int // summary length must be strictly between these
	MaxSummaryChars int
}

var DefaultThresholds = Thresholds{
	MinPhoneLength:  10,
	NameScanLines:   5,
	MinLabelTokens:  2,
	MinNameTokens:   2,
	MaxNameTokens:   4,
	MinSkillLength:  2,
	MaxSkillLength:  50,
	MaxSkills:       20,
	MinSummaryChars: 50,
	MaxSummaryChars: 1000,
}

var (
	emailRe      = regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	phoneRe      = regexp.MustCompile(`[\+]?[(]?\d{1,4}[)]?[-\s\.]?\(?\d{1,3}\)?[-\s\.]?\d{1,4}[-\s\.]?\d{1,4}[-\s\.]?\d{1,9}`)
	nameLineRe   = regexp.MustCompile(`^[A-Za-z\s]+$`)
	skillsRe     = regexp.MustCompile(`(?is)(?:skills?|technical skills?|competencies)[:\s]+(.*?)(?:\n\n|\n[A-Z]|$)`)
	skillSplitRe = regexp.MustCompile(`[,;•·▪●|\n]`)
	summaryRe    = regexp.MustCompile(`(?is)(?:summary|objective|profile|about)[:\s]+(.*?)(?:\n\n|experience|education|skills)`)
)

// PatternStrategy is the deterministic extractor. It never fails.
type PatternStrategy struct {
	thresholds Thresholds
}

func NewPatternStrategy(t Thresholds) *PatternStrategy {
	return &PatternStrategy{thresholds: t}
}

func (p *PatternStrategy) Name() string { return "pattern" }

func (p *PatternStrategy) Extract(_ context.Context, text string) (*Fields, error) {
	return p.Parse(text), nil
}

// Parse pulls each field independently. Missing fields stay empty.
func (p *PatternStrategy) Parse(text string) *Fields {
	return &Fields{
		Email:   p.email(text),
		Phone:   p.phone(text),
		Name:    p.name(text),
		Skills:  p.skills(text),
		Summary: p.summary(text),
	}
}

func (p *PatternStrategy) email(text string) string {
	return strings.ToLower(strings.TrimSpace(emailRe.FindString(text)))
}

func (p *PatternStrategy) phone(text string) string {
	phone := strings.TrimSpace(phoneRe.FindString(text))
	if utf8.RuneCountInString(phone) < p.thresholds.MinPhoneLength {
		return ""
	}
	return phone
}

func (p *PatternStrategy) name(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return ""
	}

	for i, line := range lines {
		if i >= p.thresholds.NameScanLines {
			break
		}
		if !strings.Contains(strings.ToLower(line), "name") {
			continue
		}
		_, after, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		name := strings.TrimSpace(after)
		if len(strings.Fields(name)) >= p.thresholds.MinLabelTokens {
			return name
		}
	}

	first := lines[0]
	tokens := len(strings.Fields(first))
	if tokens >= p.thresholds.MinNameTokens && tokens <= p.thresholds.MaxNameTokens && nameLineRe.MatchString(first) {
		return first
	}
	return ""
}

func (p *PatternStrategy) skills(text string) []string {
	skills := []string{}

	m := skillsRe.FindStringSubmatch(text)
	if m == nil {
		return skills
	}

	for _, token := range skillSplitRe.Split(m[1], -1) {
		token = strings.TrimSpace(token)
		n := utf8.RuneCountInString(token)
		if n <= p.thresholds.MinSkillLength || n >= p.thresholds.MaxSkillLength {
			continue
		}
		skills = append(skills, token)
		if len(skills) == p.thresholds.MaxSkills {
			break
		}
	}
	return skills
}

func (p *PatternStrategy) summary(text string) string {
	m := summaryRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	summary := strings.TrimSpace(m[1])
	n := utf8.RuneCountInString(summary)
	if n <= p.thresholds.MinSummaryChars || n >= p.thresholds.MaxSummaryChars {
		return ""
	}
	return summary
}
