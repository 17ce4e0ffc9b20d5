package drugrule

import "context"

type ExposureRepository interface {
	// QualifyingCounts returns, per patient, the number of exposure
	// records whose drug_concept_id is in the concept set. Patients with
	// no qualifying exposure do not appear in the map.
	QualifyingCounts(ctx context.Context, concepts ConceptSet) (map[int64]int, error)
}
