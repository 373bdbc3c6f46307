package classifier

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-complaints-backend/internal/domain"
)

// Match is a scored corpus example.
type Match struct {
	Category domain.Category
	Text     string
	Score    float64
}

type doc struct {
	ex     Example
	tokens map[string]struct{}
}

// index is an immutable labelled example set scored by Jaccard similarity
// between token sets: |Q ∩ D| / |Q ∪ D|. Safe for concurrent reads.
type index struct {
	stop map[string]struct{}
	docs []doc
}

func buildIndex(examples []Example, stop map[string]struct{}) *index {
	docs := make([]doc, 0, len(examples))
	for _, ex := range examples {
		toks := tokenize(ex.Text, stop)
		if len(toks) == 0 {
			continue
		}
		docs = append(docs, doc{ex: ex, tokens: toks})
	}
	return &index{stop: stop, docs: docs}
}

// topK returns up to k examples with a positive score, best first. Ties are
// ordered by category declaration order and then by text.
func (i *index) topK(q string, k int) []Match {
	qTokens := tokenize(q, i.stop)
	if len(qTokens) == 0 || len(i.docs) == 0 {
		return nil
	}
	if k <= 0 {
		k = 3
	}

	var buf []Match
	for _, d := range i.docs {
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(len(qTokens) + len(d.tokens) - over)
		buf = append(buf, Match{Category: d.ex.Category, Text: d.ex.Text, Score: float64(over) / union})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].Score != buf[b].Score {
			return buf[a].Score > buf[b].Score
		}
		if ra, rb := categoryRank(buf[a].Category), categoryRank(buf[b].Category); ra != rb {
			return ra < rb
		}
		return buf[a].Text < buf[b].Text
	})
	if k > len(buf) {
		k = len(buf)
	}
	return buf[:k]
}

// vote sums scores per category over matches and returns the winner. Equal
// totals go to the category declared first.
func vote(matches []Match) (domain.Category, bool) {
	if len(matches) == 0 {
		return "", false
	}
	totals := make(map[domain.Category]float64, len(matches))
	for _, m := range matches {
		totals[m.Category] += m.Score
	}
	var (
		best  domain.Category
		score float64
	)
	for _, c := range domain.Categories() {
		if s, ok := totals[c]; ok && s > score {
			best, score = c, s
		}
	}
	return best, best != ""
}

func categoryRank(c domain.Category) int {
	for i, k := range domain.Categories() {
		if k == c {
			return i
		}
	}
	return len(domain.Categories())
}

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*|\p{N}+`)

var folder = cases.Fold()

// tokenize normalizes s (NFKC, case folding) and returns its word set minus
// stopwords.
func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	s = folder.String(norm.NFKC.String(s))
	words := wordRE.FindAllString(s, -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, skip := stop[w]; skip {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

// DefaultStopwords are function words that carry no category signal.
var DefaultStopwords = []string{
	"a", "an", "the", "and", "or", "but", "is", "was", "were", "be", "been",
	"i", "me", "my", "we", "our", "it", "its", "this", "that", "to", "of",
	"in", "on", "at", "for", "from", "by", "with", "very", "too", "so",
	"because", "after", "when", "yet", "did", "didn", "t", "not", "got",
}

func stopSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			m[w] = struct{}{}
		}
	}
	return m
}
