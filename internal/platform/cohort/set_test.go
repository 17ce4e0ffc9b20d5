package cohort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetBasics(t *testing.T) {
	s := FromIDs(3, 1, 2, 2)
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Contains(2))
	assert.False(t, s.Contains(4))
	assert.Equal(t, []int64{1, 2, 3}, s.IDs())
}

func TestSetAlgebra(t *testing.T) {
	a := FromIDs(1, 2, 3, 4)
	b := FromIDs(3, 4, 5)

	assert.Equal(t, []int64{3, 4}, a.Intersect(b).IDs())
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, a.Union(b).IDs())
	assert.Equal(t, []int64{1, 2}, a.Difference(b).IDs())
	assert.Equal(t, []int64{5}, b.Difference(a).IDs())

	// Inputs are never mutated.
	assert.Equal(t, []int64{1, 2, 3, 4}, a.IDs())
	assert.Equal(t, []int64{3, 4, 5}, b.IDs())
}

func TestSetEqualAndClone(t *testing.T) {
	a := FromIDs(1, 2)
	b := a.Clone()
	require.True(t, a.Equal(b))

	b.Add(3)
	assert.False(t, a.Equal(b))
	assert.Equal(t, 2, a.Len())
}

func TestEmptySet(t *testing.T) {
	e := New()
	a := FromIDs(1)
	assert.Equal(t, 0, e.Len())
	assert.Equal(t, 0, e.Intersect(a).Len())
	assert.True(t, e.Union(a).Equal(a))
}
