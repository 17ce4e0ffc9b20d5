package diagnosisrule

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type occurrenceRepoPG struct{ pool *pgxpool.Pool }

func NewOccurrenceRepoPG(pool *pgxpool.Pool) OccurrenceRepository {
	return &occurrenceRepoPG{pool: pool}
}

// The SQL normalization mirrors NormalizeSourceCode: segment after
// "^^", trailing carets trimmed, dots removed.
func (r *occurrenceRepoPG) QualifyingOccurrences(ctx context.Context, codes CodeSet, fn func(Occurrence) error) error {
	rows, err := r.pool.Query(ctx, `
		SELECT co.person_id, co.condition_source_value, co.visit_occurrence_id, vo.visit_concept_id
		FROM condition_occurrence co
		LEFT JOIN visit_occurrence vo ON vo.visit_occurrence_id = co.visit_occurrence_id
		WHERE co.condition_source_value IS NOT NULL
		  AND REPLACE(RTRIM(SPLIT_PART(co.condition_source_value, '^^', 2), '^'), '.', '') = ANY($1)`,
		codes.Codes())
	if err != nil {
		return fmt.Errorf("scan condition_occurrence: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o Occurrence
		if err := rows.Scan(&o.PersonID, &o.SourceValue, &o.VisitID, &o.VisitConceptID); err != nil {
			return fmt.Errorf("scan condition row: %w", err)
		}
		if err := fn(o); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read condition rows: %w", err)
	}
	return nil
}
