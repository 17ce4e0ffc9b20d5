package diagnosisrule

import "context"

type OccurrenceRepository interface {
	// QualifyingOccurrences streams condition records whose normalized
	// source code is in codes, each left-joined to its visit record.
	// fn is called once per record; returning an error stops the scan.
	QualifyingOccurrences(ctx context.Context, codes CodeSet, fn func(Occurrence) error) error
}
