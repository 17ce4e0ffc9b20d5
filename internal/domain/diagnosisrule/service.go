package diagnosisrule

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/clinphen/audcohort/internal/platform/cohort"
	"github.com/clinphen/audcohort/internal/platform/results"
)

// Membership thresholds from the diagnosis rule: at least one inpatient
// or at least two outpatient qualifying diagnoses.
const (
	minInpatient  = 1
	minOutpatient = 2
)

type visitCounts struct {
	inpatient  int
	outpatient int
}

type Stats struct {
	Occurrences        int
	Patients           int // patients with >=1 qualifying diagnosis
	CohortPatients     int // patients meeting the threshold rule
	OrphanVisits       int // qualifying diagnoses with no visit record
	UnclassifiedVisits int // visit types outside inpatient/outpatient
}

type Service struct {
	occurrences OccurrenceRepository
	codes       CodeSet
	store       *results.Store
	logger      zerolog.Logger
}

func NewService(occurrences OccurrenceRepository, codes CodeSet, store *results.Store, logger zerolog.Logger) *Service {
	return &Service{occurrences: occurrences, codes: codes, store: store, logger: logger}
}

// Run counts qualifying diagnoses per patient split by visit type,
// applies the threshold rule, and writes the cohort plus a per-patient
// counts table for audit. Orphan and unclassified visit references are
// counted as anomalies and qualify toward neither bucket.
func (s *Service) Run(ctx context.Context) (*cohort.Set, Stats, error) {
	counts := make(map[int64]*visitCounts)
	var stats Stats

	err := s.occurrences.QualifyingOccurrences(ctx, s.codes, func(o Occurrence) error {
		stats.Occurrences++
		vc, ok := counts[o.PersonID]
		if !ok {
			vc = &visitCounts{}
			counts[o.PersonID] = vc
		}
		if o.VisitConceptID == nil {
			stats.OrphanVisits++
			return nil
		}
		switch ClassifyVisit(*o.VisitConceptID) {
		case VisitInpatient:
			vc.inpatient++
		case VisitOutpatient:
			vc.outpatient++
		default:
			stats.UnclassifiedVisits++
		}
		return nil
	})
	if err != nil {
		return nil, Stats{}, fmt.Errorf("diagnosis rule: %w", err)
	}
	stats.Patients = len(counts)

	set := cohort.New()
	for personID, vc := range counts {
		if vc.inpatient >= minInpatient || vc.outpatient >= minOutpatient {
			set.Add(personID)
		}
	}
	stats.CohortPatients = set.Len()

	if err := s.store.WriteCohort(results.ICDCohortFile, set); err != nil {
		return nil, Stats{}, fmt.Errorf("diagnosis rule: %w", err)
	}
	if err := s.writeCounts(counts); err != nil {
		return nil, Stats{}, fmt.Errorf("diagnosis rule: %w", err)
	}

	s.logger.Info().
		Int("qualifying_occurrences", stats.Occurrences).
		Int("patients_with_diagnosis", stats.Patients).
		Int("cohort_patients", stats.CohortPatients).
		Int("orphan_visits", stats.OrphanVisits).
		Int("unclassified_visits", stats.UnclassifiedVisits).
		Msg("diagnosis-rule cohort written")
	return set, stats, nil
}

// writeCounts records every patient with a qualifying diagnosis, cohort
// member or not, so the threshold decision can be audited from the file.
func (s *Service) writeCounts(counts map[int64]*visitCounts) error {
	ids := make([]int64, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		vc := counts[id]
		rows = append(rows, []string{
			strconv.FormatInt(id, 10),
			strconv.Itoa(vc.inpatient),
			strconv.Itoa(vc.outpatient),
		})
	}
	return s.store.WriteTable(results.ICDCountsFile,
		[]string{"person_id", "inpatient_count", "outpatient_count"}, rows)
}
