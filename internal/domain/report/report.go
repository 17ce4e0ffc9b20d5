// Package report computes the overlap analysis over the three cohort
// sets. Everything here is pure set algebra over immutable inputs; the
// report can be recomputed at any time from the extractor output files.
package report

import (
	"fmt"
	"strconv"

	"github.com/clinphen/audcohort/internal/platform/cohort"
)

// Input set names used throughout the report.
const (
	SetMedication = "medication"
	SetDiagnosis  = "diagnosis"
	SetNotes      = "notes"
)

type NamedSet struct {
	Name string
	Set  *cohort.Set
}

// Overlap is the intersection of the named input sets.
type Overlap struct {
	Names []string
	Set   *cohort.Set
}

// Report is the structured result of the overlap analysis.
type Report struct {
	Inputs      []NamedSet
	Union       *cohort.Set
	Full        *cohort.Set // intersection of all inputs
	Pairwise    []Overlap
	Exclusive   []NamedSet // each input minus all the others
	Definitions []NamedSet // candidate phenotype definitions
}

// Build runs the overlap analysis over the input sets. Inputs are never
// mutated.
func Build(inputs []NamedSet) *Report {
	r := &Report{Inputs: inputs}

	r.Union = cohort.New()
	for _, in := range inputs {
		r.Union = r.Union.Union(in.Set)
	}

	if len(inputs) > 0 {
		r.Full = inputs[0].Set.Clone()
		for _, in := range inputs[1:] {
			r.Full = r.Full.Intersect(in.Set)
		}
	} else {
		r.Full = cohort.New()
	}

	for i := 0; i < len(inputs); i++ {
		for j := i + 1; j < len(inputs); j++ {
			r.Pairwise = append(r.Pairwise, Overlap{
				Names: []string{inputs[i].Name, inputs[j].Name},
				Set:   inputs[i].Set.Intersect(inputs[j].Set),
			})
		}
	}

	for i, in := range inputs {
		rest := cohort.New()
		for j, other := range inputs {
			if j != i {
				rest = rest.Union(other.Set)
			}
		}
		r.Exclusive = append(r.Exclusive, NamedSet{
			Name: in.Name,
			Set:  in.Set.Difference(rest),
		})
	}

	return r
}

// BuildAUD runs the overlap analysis over the three AUD extractor
// cohorts and attaches the candidate phenotype definitions under
// comparison.
func BuildAUD(drug, diagnosis, notes *cohort.Set) *Report {
	r := Build([]NamedSet{
		{Name: SetMedication, Set: drug},
		{Name: SetDiagnosis, Set: diagnosis},
		{Name: SetNotes, Set: notes},
	})
	r.Definitions = []NamedSet{
		{Name: "diagnosis-only", Set: diagnosis.Clone()},
		{Name: "medication-only", Set: drug.Clone()},
		{Name: "notes-only", Set: notes.Clone()},
		{Name: "diagnosis-or-medication", Set: diagnosis.Union(drug)},
		{Name: "diagnosis-and-medication", Set: diagnosis.Intersect(drug)},
		{Name: "diagnosis-or-medication-or-notes", Set: diagnosis.Union(drug).Union(notes)},
		{Name: "all-three", Set: r.Full.Clone()},
	}
	return r
}

// SummaryRows renders the report as (definition, patient_count) rows:
// input sizes, the union, overlaps, exclusive remainders, then the
// candidate definitions.
func (r *Report) SummaryRows() [][]string {
	var rows [][]string
	add := func(name string, set *cohort.Set) {
		rows = append(rows, []string{name, strconv.Itoa(set.Len())})
	}

	for _, in := range r.Inputs {
		add(in.Name, in.Set)
	}
	add("union", r.Union)
	for _, p := range r.Pairwise {
		add(fmt.Sprintf("%s-and-%s", p.Names[0], p.Names[1]), p.Set)
	}
	add("intersection-all", r.Full)
	for _, ex := range r.Exclusive {
		add(ex.Name+"-exclusive", ex.Set)
	}
	for _, def := range r.Definitions {
		add("definition:"+def.Name, def.Set)
	}
	return rows
}
