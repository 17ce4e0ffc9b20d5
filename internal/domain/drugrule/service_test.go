package drugrule

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clinphen/audcohort/internal/platform/results"
)

// -- Mock Repository --

type mockExposureRepo struct {
	// exposures maps person id to drug concept ids, one entry per record.
	exposures map[int64][]int64
}

func (m *mockExposureRepo) QualifyingCounts(_ context.Context, concepts ConceptSet) (map[int64]int, error) {
	counts := make(map[int64]int)
	for personID, conceptIDs := range m.exposures {
		for _, c := range conceptIDs {
			if concepts.Contains(c) {
				counts[personID]++
			}
		}
	}
	return counts, nil
}

func newTestStore(t *testing.T) *results.Store {
	t.Helper()
	s, err := results.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRunSingleExposureQualifies(t *testing.T) {
	repo := &mockExposureRepo{exposures: map[int64][]int64{
		1: {100},           // one qualifying exposure
		2: {999},           // non-AUD concept only
		3: {100, 100, 200}, // several qualifying exposures
	}}
	concepts := ConceptSet{100: {}, 200: {}}
	store := newTestStore(t)
	svc := NewService(repo, concepts, store, zerolog.Nop())

	set, stats, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := set.IDs(); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("cohort = %v, want [1 3]", got)
	}
	if stats.Patients != 2 {
		t.Errorf("Patients = %d, want 2", stats.Patients)
	}
	if stats.Exposures != 4 {
		t.Errorf("Exposures = %d, want 4", stats.Exposures)
	}

	// The cohort file is readable back as the same set.
	got, err := store.ReadCohort(results.DrugCohortFile)
	if err != nil {
		t.Fatalf("ReadCohort: %v", err)
	}
	if !got.Equal(set) {
		t.Error("persisted cohort differs from returned cohort")
	}
}

func TestRunIdempotent(t *testing.T) {
	repo := &mockExposureRepo{exposures: map[int64][]int64{
		7: {100},
		8: {100},
	}}
	concepts := ConceptSet{100: {}}
	store := newTestStore(t)
	svc := NewService(repo, concepts, store, zerolog.Nop())

	if _, _, err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(store.Path(results.DrugCohortFile))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(store.Path(results.DrugCohortFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("rerun over unchanged source produced different bytes")
	}
}

func TestLoadConceptSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "concepts.csv")
	if err := os.WriteFile(path, []byte("concept_id,concept_name\n1714319,naltrexone\n714684,disulfiram\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	set, err := LoadConceptSet(path)
	if err != nil {
		t.Fatalf("LoadConceptSet: %v", err)
	}
	if len(set) != 2 || !set.Contains(1714319) || !set.Contains(714684) {
		t.Errorf("unexpected concept set: %v", set)
	}
}

func TestLoadConceptSetEmptyIsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "concepts.csv")
	if err := os.WriteFile(path, []byte("concept_id\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConceptSet(path); err == nil {
		t.Error("expected error for empty concept set")
	}
}
