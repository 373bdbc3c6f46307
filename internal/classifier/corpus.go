package classifier

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tbourn/go-complaints-backend/internal/domain"
)

//go:embed corpus.md
var defaultCorpus string

// Example is one labelled training sentence.
type Example struct {
	Category domain.Category
	Text     string
}

// DefaultCorpus returns the embedded examples.
func DefaultCorpus() []Example {
	ex, err := ParseCorpus(strings.NewReader(defaultCorpus))
	if err != nil {
		panic(fmt.Sprintf("embedded corpus: %v", err))
	}
	return ex
}

// LoadCorpus reads a corpus file from path.
func LoadCorpus(path string) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseCorpus(f)
}

// ParseCorpus reads a Markdown table whose rows are "| Category | text |".
// Header and separator rows are skipped, as are lines outside the table.
// A row whose first cell is not a known category is an error.
func ParseCorpus(r io.Reader) ([]Example, error) {
	var out []Example
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(raw, "|") || !strings.HasSuffix(raw, "|") {
			continue
		}
		cells := splitRow(raw)
		if len(cells) < 2 || isSeparator(cells) || strings.EqualFold(cells[0], "category") {
			continue
		}
		cat, err := domain.ParseCategory(cells[0])
		if err != nil {
			return nil, fmt.Errorf("corpus line %d: %w", line, err)
		}
		text := strings.TrimSpace(strings.Join(cells[1:], " "))
		if text == "" {
			continue
		}
		out = append(out, Example{Category: cat, Text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// splitRow splits a table row on pipes that are cell delimiters. Category
// names contain " / " but never a pipe, so a plain split is enough.
func splitRow(row string) []string {
	cols := strings.Split(strings.Trim(row, "|"), "|")
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, strings.TrimSpace(c))
	}
	return out
}

func isSeparator(cells []string) bool {
	for _, c := range cells {
		tmp := strings.ReplaceAll(c, ":", "")
		tmp = strings.ReplaceAll(tmp, "-", "")
		if strings.TrimSpace(tmp) != "" {
			return false
		}
	}
	return true
}
