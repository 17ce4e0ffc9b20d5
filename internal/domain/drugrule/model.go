// Package drugrule implements the medication-exposure arm of the AUD
// phenotype: a patient is in the cohort when at least one drug_exposure
// record carries a concept id from the AUD medication concept set.
package drugrule

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// ConceptSet is the AUD medication concept set, keyed by OMOP concept id.
type ConceptSet map[int64]struct{}

func (cs ConceptSet) Contains(id int64) bool {
	_, ok := cs[id]
	return ok
}

// IDs returns the concept ids in unspecified order.
func (cs ConceptSet) IDs() []int64 {
	ids := make([]int64, 0, len(cs))
	for id := range cs {
		ids = append(ids, id)
	}
	return ids
}

// LoadConceptSet reads the concept-set configuration file: a CSV whose
// first column is the concept id, with a header row. An empty set is a
// configuration error, never an empty cohort.
func LoadConceptSet(path string) (ConceptSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open concept set: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read concept set %s: %w", path, err)
	}

	set := make(ConceptSet)
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		if len(rec) == 0 || rec[0] == "" {
			continue
		}
		id, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("concept set %s row %d: %w", path, i+1, err)
		}
		set[id] = struct{}{}
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("concept set %s contains no concept ids", path)
	}
	return set, nil
}
