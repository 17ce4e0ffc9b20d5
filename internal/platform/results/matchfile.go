package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"

	"github.com/clinphen/audcohort/internal/platform/cohort"
)

// MatchRow is one keyword match, included or excluded. Excluded rows
// carry the category of the rule that fired so false-positive
// suppression stays auditable.
type MatchRow struct {
	PersonID    int64
	NoteID      int64
	PatternID   string
	SpanStart   int
	SpanEnd     int
	MatchedText string
	Included    bool
	ExcludedBy  string
}

var matchHeader = []string{
	"person_id", "note_id", "pattern_id",
	"span_start", "span_end", "matched_text",
	"included", "excluded_by",
}

// MatchWriter appends match rows to a CSV file. Safe for concurrent use
// by scan workers; rows from different notes interleave, rows within a
// note stay in match order because each note is written in one call.
type MatchWriter struct {
	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

func NewMatchWriter(path string) (*MatchWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create match file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(matchHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write match header: %w", err)
	}
	return &MatchWriter{f: f, w: w}, nil
}

// WriteNote writes all rows for one note as a single block.
func (mw *MatchWriter) WriteNote(rows []MatchRow) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	for _, r := range rows {
		rec := []string{
			strconv.FormatInt(r.PersonID, 10),
			strconv.FormatInt(r.NoteID, 10),
			r.PatternID,
			strconv.Itoa(r.SpanStart),
			strconv.Itoa(r.SpanEnd),
			r.MatchedText,
			strconv.FormatBool(r.Included),
			r.ExcludedBy,
		}
		if err := mw.w.Write(rec); err != nil {
			return fmt.Errorf("write match row: %w", err)
		}
	}
	return nil
}

func (mw *MatchWriter) Close() error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.w.Flush()
	if err := mw.w.Error(); err != nil {
		mw.f.Close()
		return fmt.Errorf("flush match file: %w", err)
	}
	return mw.f.Close()
}

// ReadMatchRows loads a match file produced by MatchWriter.
func ReadMatchRows(path string) ([]MatchRow, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotRun)
		}
		return nil, fmt.Errorf("open match file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read match file %s: %w", path, err)
	}

	rows := make([]MatchRow, 0, len(records))
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		if len(rec) != len(matchHeader) {
			return nil, fmt.Errorf("match file %s row %d: got %d columns, want %d", path, i+1, len(rec), len(matchHeader))
		}
		personID, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("match file %s row %d person_id: %w", path, i+1, err)
		}
		noteID, err := strconv.ParseInt(rec[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("match file %s row %d note_id: %w", path, i+1, err)
		}
		start, err := strconv.Atoi(rec[3])
		if err != nil {
			return nil, fmt.Errorf("match file %s row %d span_start: %w", path, i+1, err)
		}
		end, err := strconv.Atoi(rec[4])
		if err != nil {
			return nil, fmt.Errorf("match file %s row %d span_end: %w", path, i+1, err)
		}
		included, err := strconv.ParseBool(rec[6])
		if err != nil {
			return nil, fmt.Errorf("match file %s row %d included: %w", path, i+1, err)
		}
		rows = append(rows, MatchRow{
			PersonID:    personID,
			NoteID:      noteID,
			PatternID:   rec[2],
			SpanStart:   start,
			SpanEnd:     end,
			MatchedText: rec[5],
			Included:    included,
			ExcludedBy:  rec[7],
		})
	}
	return rows, nil
}

// ReadMatchCohort derives the keyword cohort from a match file: every
// patient with at least one included match.
func ReadMatchCohort(path string) (*cohort.Set, error) {
	rows, err := ReadMatchRows(path)
	if err != nil {
		return nil, err
	}
	set := cohort.New()
	for _, r := range rows {
		if r.Included {
			set.Add(r.PersonID)
		}
	}
	return set, nil
}
