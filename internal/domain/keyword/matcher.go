package keyword

import "sort"

// Matcher finds every inclusion-pattern span in a note. The pattern set
// is fixed for the run; Matcher is safe for concurrent use.
type Matcher struct {
	patterns []Pattern
}

func NewMatcher(patterns []Pattern) *Matcher {
	return &Matcher{patterns: patterns}
}

// Match returns all spans where any pattern matches, case-insensitive.
// Spans from different patterns may overlap; within one pattern the
// spans follow regexp find-all semantics (leftmost, non-overlapping).
// Results are ordered by start offset, ties broken by pattern id, so
// two runs over the same text produce identical sequences. Empty text
// and invalid UTF-8 yield no matches and never fail.
func (m *Matcher) Match(text string) []Match {
	if text == "" {
		return nil
	}
	var out []Match
	for _, p := range m.patterns {
		for _, span := range p.re.FindAllStringIndex(text, -1) {
			out = append(out, Match{
				PatternID: p.ID,
				Start:     span[0],
				End:       span[1],
				Text:      text[span[0]:span[1]],
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].PatternID < out[j].PatternID
	})
	return out
}
