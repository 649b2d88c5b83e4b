package cv

import (
	"context"
	"time"

	"cv-processor/internal/apperr"
	"cv-processor/internal/logger"

	"go.uber.org/zap"
)

// FieldStrategy turns CV text into candidate fields.
type FieldStrategy interface {
	Name() string
	Extract(ctx context.Context, text string) (*Fields, error)
}

// Extractor tries its strategies in order. The pattern strategy is always
// last, so Parse always produces a result.
type Extractor struct {
	strategies []FieldStrategy
	logger     *zap.Logger
}

// NewExtractor builds the chain: the given strategies in order, then the
// pattern strategy with the given thresholds.
func NewExtractor(log *zap.Logger, thresholds Thresholds, strategies ...FieldStrategy) *Extractor {
	chain := make([]FieldStrategy, 0, len(strategies)+1)
	for _, s := range strategies {
		if s != nil {
			chain = append(chain, s)
		}
	}
	chain = append(chain, NewPatternStrategy(thresholds))

	return &Extractor{
		strategies: chain,
		logger:     logger.OrNop(log),
	}
}

// Parse returns the fields and the name of the strategy that produced them.
func (e *Extractor) Parse(ctx context.Context, text string) (*Fields, string) {
	for _, s := range e.strategies {
		start := time.Now()
		fields, err := s.Extract(ctx, text)
		if err == nil && fields != nil {
			fields.Normalize()
			e.logger.Debug("[FieldExtractor] fields extracted",
				zap.String("strategy", s.Name()),
				zap.Int("skills", len(fields.Skills)),
				zap.Duration("duration", time.Since(start)),
			)
			return fields, s.Name()
		}

		e.logger.Warn("[FieldExtractor] strategy failed, falling back",
			zap.Error(&apperr.StrategyError{Strategy: s.Name(), Err: err}),
			zap.Duration("duration", time.Since(start)),
		)
	}

	// Unreachable while the pattern strategy closes the chain.
	return &Fields{Skills: []string{}}, ""
}
