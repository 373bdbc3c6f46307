package classifier

import (
	"context"
	"strings"

	"github.com/tbourn/go-complaints-backend/internal/domain"
)

// Option configures Local.
type Option func(*Local)

// WithTopK sets how many nearest examples vote. Values below 1 are ignored.
func WithTopK(k int) Option {
	return func(l *Local) {
		if k > 0 {
			l.topK = k
		}
	}
}

// WithFallback sets the category returned when nothing matches.
func WithFallback(c domain.Category) Option {
	return func(l *Local) { l.fallback = c }
}

// WithStopwords replaces the default stopword list.
func WithStopwords(words []string) Option {
	return func(l *Local) { l.stopwords = words }
}

// Local is an in-process keyword classifier over a labelled corpus. It is
// immutable after construction and safe for concurrent use.
type Local struct {
	idx       *index
	topK      int
	fallback  domain.Category
	stopwords []string
}

// NewLocal indexes examples. A nil slice uses DefaultCorpus.
func NewLocal(examples []Example, opts ...Option) *Local {
	l := &Local{topK: 5, stopwords: DefaultStopwords}
	for _, o := range opts {
		o(l)
	}
	if examples == nil {
		examples = DefaultCorpus()
	}
	l.idx = buildIndex(examples, stopSet(l.stopwords))
	return l
}

// Predict implements Gateway. The returned status is always Pending.
func (l *Local) Predict(ctx context.Context, req PredictRequest) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return Prediction{}, ErrEmptyText
	}
	cat, ok := vote(l.idx.topK(req.Text, l.topK))
	if !ok {
		if l.fallback == "" {
			return Prediction{}, ErrNoMatch
		}
		cat = l.fallback
	}
	return Prediction{Category: string(cat), Status: string(domain.StatusPending)}, nil
}

// explain returns the examples that would vote for text.
func (l *Local) explain(text string) []Match {
	return l.idx.topK(text, l.topK)
}
