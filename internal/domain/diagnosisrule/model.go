// Package diagnosisrule implements the ICD arm of the AUD phenotype:
// qualifying condition_occurrence records are split by the visit type
// of their visit_occurrence, and a patient is in the cohort with at
// least one inpatient or at least two outpatient qualifying diagnoses.
package diagnosisrule

import "strings"

// OMOP visit concept ids observed in the source warehouse. Anything
// else (including emergency-room 9203 and undefined 0) counts toward
// neither visit type.
const (
	visitConceptInpatient  = 9201
	visitConceptOutpatient = 9202
)

type VisitClass int

const (
	VisitUnclassified VisitClass = iota
	VisitInpatient
	VisitOutpatient
)

// ClassifyVisit maps a visit_concept_id onto the threshold rule's two
// buckets.
func ClassifyVisit(visitConceptID int64) VisitClass {
	switch visitConceptID {
	case visitConceptInpatient:
		return VisitInpatient
	case visitConceptOutpatient:
		return VisitOutpatient
	default:
		return VisitUnclassified
	}
}

// Occurrence is one qualifying diagnosis record joined to its visit.
// VisitConceptID is nil when the visit_occurrence_id resolves to no
// visit record.
type Occurrence struct {
	PersonID       int64
	SourceValue    string
	VisitID        *int64
	VisitConceptID *int64
}

// CodeSet holds normalized (dot-free) ICD codes.
type CodeSet map[string]struct{}

func (cs CodeSet) Contains(code string) bool {
	_, ok := cs[code]
	return ok
}

func (cs CodeSet) Codes() []string {
	codes := make([]string, 0, len(cs))
	for c := range cs {
		codes = append(codes, c)
	}
	return codes
}

// NormalizeSourceCode extracts the ICD code from an OMOP
// condition_source_value of the form "<vocab>^^<code>^...": the segment
// after the first "^^", trailing carets trimmed, dots removed. Values
// without a "^^" separator normalize to "" and never qualify.
func NormalizeSourceCode(sourceValue string) string {
	_, rest, ok := strings.Cut(sourceValue, "^^")
	if !ok {
		return ""
	}
	if i := strings.Index(rest, "^^"); i >= 0 {
		rest = rest[:i]
	}
	rest = strings.TrimRight(rest, "^")
	return strings.ReplaceAll(rest, ".", "")
}

// audICDCodes is the AUD diagnosis code list (ICD-9 alcohol dependence
// and abuse, ICD-10 F10.1x/F10.2x families).
var audICDCodes = []string{
	// ICD-9
	"303.0", "303.01", "303.02", "303.03", "303.00", "303", "303.9", "303.91", "303.92", "303.93", "303.90",
	"305.0", "305.01", "305.02", "305.03", "305.00",
	// ICD-10
	"F10.1", "F10.180", "F10.14", "F10.15", "F10.150", "F10.151", "F10.159", "F10.181", "F10.182", "F10.12",
	"F10.121", "F10.120", "F10.129", "F10.188", "F10.18", "F10.19", "F10.131", "F10.132", "F10.130", "F10.139",
	"F10.11", "F10.10", "F10.13", "F10.2", "F10.280", "F10.24", "F10.26", "F10.27", "F10.25", "F10.250",
	"F10.251", "F10.259", "F10.281", "F10.282", "F10.22", "F10.221", "F10.220", "F10.229", "F10.288", "F10.28",
	"F10.29", "F10.23", "F10.231", "F10.232", "F10.230", "F10.239", "F10.21", "F10.20",
}

// DefaultCodeSet returns the AUD ICD code set in normalized form.
func DefaultCodeSet() CodeSet {
	set := make(CodeSet, len(audICDCodes))
	for _, c := range audICDCodes {
		set[strings.ReplaceAll(c, ".", "")] = struct{}{}
	}
	return set
}
