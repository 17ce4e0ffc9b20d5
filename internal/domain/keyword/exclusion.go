package keyword

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Exclusion categories, in evaluation order. The first category whose
// rule fires is recorded on the match; later categories are not
// consulted. Order only affects attribution, never the include/exclude
// outcome, since rules combine with OR and nothing re-includes a match.
const (
	CategoryNegation       = "negation"
	CategoryFamily         = "family"
	CategoryAdvisory       = "advisory"
	CategoryAdministrative = "administrative"
)

type scope int

const (
	// scopePreceding looks at the window bytes before the match.
	scopePreceding scope = iota
	// scopeSurrounding looks at the window bytes on both sides.
	scopeSurrounding
	// scopeNote looks at the whole note regardless of the window.
	scopeNote
)

// Cues holds the cue vocabulary per exclusion category. Cues are plain
// words or phrases; they match case-insensitively on word boundaries.
type Cues struct {
	Negation       []string
	Family         []string
	Advisory       []string
	Administrative []string
}

// DefaultCues is the vocabulary the phenotype was validated with.
func DefaultCues() Cues {
	return Cues{
		Negation: []string{
			"no", "not", "never", "denies", "without",
			"negative", "free of", "absent", "ruled out",
		},
		Family: []string{
			"family member", "family history", "mother", "father",
			"parent", "sibling", "relative",
		},
		Advisory: []string{
			"if", "recommend", "suggest", "advise", "should",
			"limiting", "avoid", "consider", "encourage", "abstain",
		},
		Administrative: []string{
			"authorization", "release", "consent", "information",
			"disclosure", "permission", "record", "agreement",
			"form", "policy", "audit",
		},
	}
}

// LoadCues reads a cue-vocabulary override CSV (header category,cue).
// Categories not present in the file keep no cues, so an override file
// replaces the vocabulary wholesale.
func LoadCues(path string) (Cues, error) {
	f, err := os.Open(path)
	if err != nil {
		return Cues{}, fmt.Errorf("open cue file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return Cues{}, fmt.Errorf("read cue file %s: %w", path, err)
	}

	var cues Cues
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		if len(rec) < 2 || rec[1] == "" {
			return Cues{}, fmt.Errorf("cue file %s row %d: want category,cue columns", path, i+1)
		}
		switch rec[0] {
		case CategoryNegation:
			cues.Negation = append(cues.Negation, rec[1])
		case CategoryFamily:
			cues.Family = append(cues.Family, rec[1])
		case CategoryAdvisory:
			cues.Advisory = append(cues.Advisory, rec[1])
		case CategoryAdministrative:
			cues.Administrative = append(cues.Administrative, rec[1])
		default:
			return Cues{}, fmt.Errorf("cue file %s row %d: unknown category %q", path, i+1, rec[0])
		}
	}
	return cues, nil
}

// rule is one exclusion category: a pure predicate over the scoped text.
type rule struct {
	category string
	scope    scope
	re       *regexp.Regexp
}

func (r rule) fires(scoped string) bool {
	return r.re.MatchString(scoped)
}

// Excluder applies the exclusion rule set to matches. Window size is in
// bytes and bounds scope strictly by character count; sentence
// boundaries inside the window do not stop a cue from applying.
type Excluder struct {
	window int
	rules  []rule
}

func NewExcluder(window int, cues Cues) (*Excluder, error) {
	if window <= 0 {
		return nil, fmt.Errorf("exclusion window must be positive, got %d", window)
	}
	specs := []struct {
		category string
		scope    scope
		cues     []string
	}{
		{CategoryNegation, scopePreceding, cues.Negation},
		{CategoryFamily, scopeSurrounding, cues.Family},
		{CategoryAdvisory, scopeSurrounding, cues.Advisory},
		{CategoryAdministrative, scopeNote, cues.Administrative},
	}
	e := &Excluder{window: window}
	for _, spec := range specs {
		if len(spec.cues) == 0 {
			continue
		}
		re, err := compileCues(spec.cues)
		if err != nil {
			return nil, fmt.Errorf("%s cues: %w", spec.category, err)
		}
		e.rules = append(e.rules, rule{category: spec.category, scope: spec.scope, re: re})
	}
	return e, nil
}

func compileCues(cues []string) (*regexp.Regexp, error) {
	quoted := make([]string, len(cues))
	for i, c := range cues {
		quoted[i] = regexp.QuoteMeta(c)
	}
	return regexp.Compile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Evaluate returns the category of the first rule that fires for the
// match, or "" when the match stands. A match is excluded iff a rule
// fires; no rule ever restores an excluded match.
func (e *Excluder) Evaluate(text string, m Match) string {
	for _, r := range e.rules {
		if r.fires(e.scopedText(text, m, r.scope)) {
			return r.category
		}
	}
	return ""
}

func (e *Excluder) scopedText(text string, m Match, s scope) string {
	switch s {
	case scopePreceding:
		lo := m.Start - e.window
		if lo < 0 {
			lo = 0
		}
		return text[lo:m.Start]
	case scopeSurrounding:
		lo := m.Start - e.window
		if lo < 0 {
			lo = 0
		}
		hi := m.End + e.window
		if hi > len(text) {
			hi = len(text)
		}
		return text[lo:hi]
	default:
		return text
	}
}
