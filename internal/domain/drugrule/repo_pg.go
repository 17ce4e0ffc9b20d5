package drugrule

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type exposureRepoPG struct{ pool *pgxpool.Pool }

func NewExposureRepoPG(pool *pgxpool.Pool) ExposureRepository {
	return &exposureRepoPG{pool: pool}
}

func (r *exposureRepoPG) QualifyingCounts(ctx context.Context, concepts ConceptSet) (map[int64]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT person_id, COUNT(*)
		FROM drug_exposure
		WHERE drug_concept_id = ANY($1)
		GROUP BY person_id`,
		concepts.IDs())
	if err != nil {
		return nil, fmt.Errorf("scan drug_exposure: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var personID int64
		var n int
		if err := rows.Scan(&personID, &n); err != nil {
			return nil, fmt.Errorf("scan exposure row: %w", err)
		}
		counts[personID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read drug_exposure rows: %w", err)
	}
	return counts, nil
}
