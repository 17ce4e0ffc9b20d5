// Package results owns the flat-file results area: cohort files, the
// keyword match file, and audit tables. Every output is a plain CSV so
// the downstream analysis can be redone from the files alone.
package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/clinphen/audcohort/internal/platform/cohort"
)

// Well-known file names inside the results directory.
const (
	DrugCohortFile     = "aud_drug_cohort.csv"
	ICDCohortFile      = "aud_icd_cohort.csv"
	ICDCountsFile      = "aud_icd_counts.csv"
	KeywordMatchesFile = "aud_keyword_matches.csv"
	SummaryFile        = "aud_phenotype_summary.csv"

	intermediateDirName = "intermediate_keywords"
)

// ErrNotRun marks a cohort file that does not exist yet. A missing file
// means the extractor has not run, never that the cohort is empty.
var ErrNotRun = errors.New("extractor output not found; run the extractor first")

type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// IntermediateDir returns (and creates) the per-partition checkpoint
// directory used by the keyword engine's file source.
func (s *Store) IntermediateDir() (string, error) {
	dir := filepath.Join(s.dir, intermediateDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create intermediate dir: %w", err)
	}
	return dir, nil
}

// WriteCohort writes one person id per row, ascending, under a
// person_id header. Writing is atomic per file: a rerun over unchanged
// sources replaces the file with identical bytes.
func (s *Store) WriteCohort(name string, set *cohort.Set) error {
	rows := make([][]string, 0, set.Len())
	for _, id := range set.IDs() {
		rows = append(rows, []string{strconv.FormatInt(id, 10)})
	}
	return s.WriteTable(name, []string{"person_id"}, rows)
}

// ReadCohort loads a cohort file, returning ErrNotRun when the file is
// absent.
func (s *Store) ReadCohort(name string) (*cohort.Set, error) {
	path := s.Path(name)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotRun)
		}
		return nil, fmt.Errorf("open cohort file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read cohort file %s: %w", path, err)
	}
	set := cohort.New()
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		id, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cohort file %s row %d: %w", path, i+1, err)
		}
		set.Add(id)
	}
	return set, nil
}

// WriteTable writes a header plus rows to name, replacing any previous
// file atomically (write to temp, rename).
func (s *Store) WriteTable(name string, header []string, rows [][]string) error {
	path := s.Path(name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
