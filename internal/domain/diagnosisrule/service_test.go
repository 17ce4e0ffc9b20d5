package diagnosisrule

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clinphen/audcohort/internal/platform/results"
)

// -- Mock Repository --

type mockOccurrenceRepo struct {
	occurrences []Occurrence
}

func (m *mockOccurrenceRepo) QualifyingOccurrences(_ context.Context, codes CodeSet, fn func(Occurrence) error) error {
	for _, o := range m.occurrences {
		if !codes.Contains(NormalizeSourceCode(o.SourceValue)) {
			continue
		}
		if err := fn(o); err != nil {
			return err
		}
	}
	return nil
}

func visitID(id int64) *int64      { return &id }
func visitConcept(id int64) *int64 { return &id }

func occ(person int64, source string, concept *int64) Occurrence {
	o := Occurrence{PersonID: person, SourceValue: source}
	if concept != nil {
		o.VisitID = visitID(1)
		o.VisitConceptID = concept
	}
	return o
}

func newTestStore(t *testing.T) *results.Store {
	t.Helper()
	s, err := results.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNormalizeSourceCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ICD10CM^^F10.20^^Alcohol dependence", "F1020"},
		{"ICD9CM^^303.90^", "30390"},
		{"ICD10CM^^F10.10", "F1010"},
		{"no separator", ""},
		{"ICD10CM^^", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeSourceCode(tt.in); got != tt.want {
			t.Errorf("NormalizeSourceCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClassifyVisit(t *testing.T) {
	if ClassifyVisit(9201) != VisitInpatient {
		t.Error("9201 should be inpatient")
	}
	if ClassifyVisit(9202) != VisitOutpatient {
		t.Error("9202 should be outpatient")
	}
	// Emergency-room and undefined visits count toward neither bucket.
	for _, id := range []int64{9203, 0, 262, 8717} {
		if ClassifyVisit(id) != VisitUnclassified {
			t.Errorf("%d should be unclassified", id)
		}
	}
}

func TestThresholdRule(t *testing.T) {
	codes := DefaultCodeSet()
	inpatient := visitConcept(9201)
	outpatient := visitConcept(9202)

	repo := &mockOccurrenceRepo{occurrences: []Occurrence{
		// patient 1: one inpatient -> included
		occ(1, "ICD10CM^^F10.20^", inpatient),
		// patient 2: one outpatient -> excluded (boundary)
		occ(2, "ICD10CM^^F10.20^", outpatient),
		// patient 3: two outpatient -> included (boundary)
		occ(3, "ICD10CM^^F10.10^", outpatient),
		occ(3, "ICD9CM^^303.90^", outpatient),
		// patient 4: orphan visit only -> excluded
		occ(4, "ICD10CM^^F10.20^", nil),
		// patient 5: non-AUD code, never seen by the rule
		occ(5, "ICD10CM^^E11.9^", inpatient),
	}}
	store := newTestStore(t)
	svc := NewService(repo, codes, store, zerolog.Nop())

	set, stats, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := set.IDs(); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("cohort = %v, want [1 3]", got)
	}
	if stats.Patients != 4 {
		t.Errorf("Patients = %d, want 4", stats.Patients)
	}
	if stats.CohortPatients != 2 {
		t.Errorf("CohortPatients = %d, want 2", stats.CohortPatients)
	}
	if stats.OrphanVisits != 1 {
		t.Errorf("OrphanVisits = %d, want 1", stats.OrphanVisits)
	}
}

func TestUnclassifiedVisitCountsTowardNeither(t *testing.T) {
	codes := DefaultCodeSet()
	er := visitConcept(9203)
	outpatient := visitConcept(9202)

	repo := &mockOccurrenceRepo{occurrences: []Occurrence{
		// Two ER visits plus one outpatient: still below both thresholds.
		occ(6, "ICD10CM^^F10.20^", er),
		occ(6, "ICD10CM^^F10.20^", er),
		occ(6, "ICD10CM^^F10.20^", outpatient),
	}}
	store := newTestStore(t)
	svc := NewService(repo, codes, store, zerolog.Nop())

	set, stats, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if set.Len() != 0 {
		t.Errorf("cohort = %v, want empty", set.IDs())
	}
	if stats.UnclassifiedVisits != 2 {
		t.Errorf("UnclassifiedVisits = %d, want 2", stats.UnclassifiedVisits)
	}
}

func TestRunWritesCountsAudit(t *testing.T) {
	codes := DefaultCodeSet()
	outpatient := visitConcept(9202)
	repo := &mockOccurrenceRepo{occurrences: []Occurrence{
		occ(2, "ICD10CM^^F10.20^", outpatient),
	}}
	store := newTestStore(t)
	svc := NewService(repo, codes, store, zerolog.Nop())
	if _, _, err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(store.Path(results.ICDCountsFile))
	if err != nil {
		t.Fatal(err)
	}
	want := "person_id,inpatient_count,outpatient_count\n2,0,1\n"
	if string(b) != want {
		t.Errorf("counts file = %q, want %q", string(b), want)
	}
}

func TestRunIdempotent(t *testing.T) {
	codes := DefaultCodeSet()
	inpatient := visitConcept(9201)
	repo := &mockOccurrenceRepo{occurrences: []Occurrence{
		occ(1, "ICD10CM^^F10.20^", inpatient),
		occ(9, "ICD9CM^^305.00^", inpatient),
	}}
	store := newTestStore(t)
	svc := NewService(repo, codes, store, zerolog.Nop())

	if _, _, err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(store.Path(results.ICDCohortFile))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(store.Path(results.ICDCohortFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("rerun over unchanged source produced different bytes")
	}
}
