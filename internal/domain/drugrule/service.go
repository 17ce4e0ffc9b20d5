package drugrule

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/clinphen/audcohort/internal/platform/cohort"
	"github.com/clinphen/audcohort/internal/platform/results"
)

type Stats struct {
	Patients  int
	Exposures int
}

type Service struct {
	exposures ExposureRepository
	concepts  ConceptSet
	store     *results.Store
	logger    zerolog.Logger
}

func NewService(exposures ExposureRepository, concepts ConceptSet, store *results.Store, logger zerolog.Logger) *Service {
	return &Service{exposures: exposures, concepts: concepts, store: store, logger: logger}
}

// Run extracts the drug-rule cohort and writes it to the results area.
// Membership needs one qualifying exposure; the exposure total is kept
// only for the run summary.
func (s *Service) Run(ctx context.Context) (*cohort.Set, Stats, error) {
	counts, err := s.exposures.QualifyingCounts(ctx, s.concepts)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("drug rule: %w", err)
	}

	set := cohort.New()
	var stats Stats
	for personID, n := range counts {
		set.Add(personID)
		stats.Exposures += n
	}
	stats.Patients = set.Len()

	if err := s.store.WriteCohort(results.DrugCohortFile, set); err != nil {
		return nil, Stats{}, fmt.Errorf("drug rule: %w", err)
	}

	s.logger.Info().
		Int("concepts", len(s.concepts)).
		Int("qualifying_exposures", stats.Exposures).
		Int("patients", stats.Patients).
		Msg("drug-rule cohort written")
	return set, stats, nil
}
