package candidates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle(t *testing.T) {
	s := New(5)
	assert.Equal(t, Initialized, s.State())
	assert.Equal(t, []int32{0, 1, 2, 3, 4}, s.Indices())

	removed := s.Retain(func(i int32) bool { return i >= 2 })
	assert.Equal(t, 2, removed)
	assert.Equal(t, Narrowed, s.State())
	assert.Equal(t, []int32{2, 3, 4}, s.Indices())

	s.Retain(func(i int32) bool { return i == 3 })
	assert.Equal(t, Solved, s.State())

	s.Retain(func(i int32) bool { return false })
	assert.Equal(t, Empty, s.State())
	assert.Equal(t, 0, s.Len())

	s.Reset()
	assert.Equal(t, Initialized, s.State())
	assert.Equal(t, 5, s.Len())
}

func TestRetainIsMonotone(t *testing.T) {
	s := New(100)
	prev := map[int32]bool{}
	for _, i := range s.Indices() {
		prev[i] = true
	}
	filters := []func(int32) bool{
		func(i int32) bool { return i%2 == 0 },
		func(i int32) bool { return i%3 != 0 },
		func(i int32) bool { return i < 70 },
		func(i int32) bool { return true },
	}
	for _, f := range filters {
		s.Retain(f)
		assert.LessOrEqual(t, s.Len(), len(prev))
		next := map[int32]bool{}
		for _, i := range s.Indices() {
			assert.True(t, prev[i])
			next[i] = true
		}
		prev = next
	}
}

func TestRetainIdempotent(t *testing.T) {
	s := New(10)
	keep := func(i int32) bool { return i%4 == 1 }
	s.Retain(keep)
	before := append([]int32(nil), s.Indices()...)
	assert.Equal(t, 0, s.Retain(keep))
	assert.Equal(t, before, s.Indices())
}

func TestReplace(t *testing.T) {
	s := New(6)
	require.NoError(t, s.Replace([]int32{5, 1, 1, 3}))
	assert.Equal(t, []int32{1, 3, 5}, s.Indices())
	assert.Equal(t, Narrowed, s.State())
	assert.True(t, s.Contains(3))
	assert.False(t, s.Contains(2))
	assert.Equal(t, []bool{false, true, false, true, false, true}, s.Mask())

	assert.ErrorIs(t, s.Replace([]int32{6}), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.Replace([]int32{-1}), ErrIndexOutOfRange)

	require.NoError(t, s.Replace([]int32{0, 1, 2, 3, 4, 5}))
	assert.Equal(t, Initialized, s.State())
}
