// Package cohort provides the patient-id set type shared by the
// extractors and the overlap report. Sets are roaring bitmaps keyed by
// OMOP person_id, so intersections over warehouse-sized cohorts stay
// cheap.
package cohort

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Set is a set of person ids. The zero value is not usable; construct
// with New or FromIDs.
type Set struct {
	bm *roaring64.Bitmap
}

func New() *Set {
	return &Set{bm: roaring64.New()}
}

func FromIDs(ids ...int64) *Set {
	s := New()
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s *Set) Add(id int64) {
	s.bm.Add(uint64(id))
}

func (s *Set) Contains(id int64) bool {
	return s.bm.Contains(uint64(id))
}

func (s *Set) Len() int {
	return int(s.bm.GetCardinality())
}

// IDs returns the members in ascending order.
func (s *Set) IDs() []int64 {
	ids := make([]int64, 0, s.Len())
	it := s.bm.Iterator()
	for it.HasNext() {
		ids = append(ids, int64(it.Next()))
	}
	return ids
}

func (s *Set) Clone() *Set {
	return &Set{bm: s.bm.Clone()}
}

// Intersect returns s ∩ other without mutating either input.
func (s *Set) Intersect(other *Set) *Set {
	return &Set{bm: roaring64.And(s.bm, other.bm)}
}

// Union returns s ∪ other without mutating either input.
func (s *Set) Union(other *Set) *Set {
	return &Set{bm: roaring64.Or(s.bm, other.bm)}
}

// Difference returns s \ other without mutating either input.
func (s *Set) Difference(other *Set) *Set {
	return &Set{bm: roaring64.AndNot(s.bm, other.bm)}
}

// Equal reports whether both sets hold exactly the same ids.
func (s *Set) Equal(other *Set) bool {
	return s.bm.Equals(other.bm)
}
