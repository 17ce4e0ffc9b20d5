package keyword

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
)

// Pattern is one inclusion pattern from the configuration table. The
// Root column is the pattern id.
type Pattern struct {
	ID string
	re *regexp.Regexp
}

// LoadPatterns reads the pattern configuration CSV (header Root,Regex).
// Every regex is compiled case-insensitively up front so a malformed
// pattern file fails before any note is scanned. Duplicate pattern ids
// are a configuration error.
func LoadPatterns(path string) ([]Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pattern file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read pattern file %s: %w", path, err)
	}

	seen := make(map[string]bool)
	var patterns []Pattern
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("pattern file %s row %d: want Root,Regex columns", path, i+1)
		}
		root, expr := rec[0], rec[1]
		if root == "" {
			return nil, fmt.Errorf("pattern file %s row %d: empty pattern id", path, i+1)
		}
		if seen[root] {
			return nil, fmt.Errorf("pattern file %s row %d: duplicate pattern id %q", path, i+1, root)
		}
		seen[root] = true
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return nil, fmt.Errorf("pattern file %s row %d (%s): %w", path, i+1, root, err)
		}
		patterns = append(patterns, Pattern{ID: root, re: re})
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("pattern file %s contains no patterns", path)
	}
	return patterns, nil
}

// NewPattern compiles an ad hoc pattern; used by tests and callers that
// build pattern sets programmatically.
func NewPattern(id, expr string) (Pattern, error) {
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("pattern %s: %w", id, err)
	}
	return Pattern{ID: id, re: re}, nil
}
