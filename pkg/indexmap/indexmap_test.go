package indexmap

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viewflux/viewflux/pkg/change"
)

func isEven(v int) bool { return v%2 == 0 }

func filter[T any](values []T, pred func(T) bool) []T {
	result := []T{}
	for _, v := range values {
		if pred(v) {
			result = append(result, v)
		}
	}

	return result
}

func TestMembershipInsertRemove(t *testing.T) {
	t.Parallel()

	m := NewMembership()

	rank, ok := m.Insert(10)
	require.True(t, ok)
	assert.Equal(t, 0, rank)

	rank, ok = m.Insert(3)
	require.True(t, ok)
	assert.Equal(t, 0, rank)

	rank, ok = m.Insert(7)
	require.True(t, ok)
	assert.Equal(t, 1, rank)

	_, ok = m.Insert(7)
	assert.False(t, ok, "double insert is a no-op")

	assert.Equal(t, 3, m.Count())
	assert.Equal(t, []int{3, 7, 10}, m.Members())
	assert.Equal(t, 2, m.Rank(8))
	assert.Equal(t, 7, m.At(1))

	rank, ok = m.Remove(7)
	require.True(t, ok)
	assert.Equal(t, 1, rank)

	_, ok = m.Remove(7)
	assert.False(t, ok, "double remove is a no-op")
	assert.Equal(t, []int{3, 10}, m.Members())
}

func TestMembershipShift(t *testing.T) {
	t.Parallel()

	m := NewMembership()
	for _, index := range []int{1, 4, 6} {
		_, ok := m.Insert(index)
		require.True(t, ok)
	}

	m.Shift(4, 2)
	assert.Equal(t, []int{1, 6, 8}, m.Members())

	m.Shift(6, -3)
	assert.Equal(t, []int{1, 3, 5}, m.Members())

	m.Shift(0, 0)
	assert.Equal(t, []int{1, 3, 5}, m.Members())
}

func TestMappingScenarioEvenFilter(t *testing.T) {
	t.Parallel()

	src := []int{1, 2, 3, 4, 5}
	mapping := NewMapping(isEven, src)
	assert.Equal(t, 2, mapping.Count())

	in := change.NewArrayChange[int](5)
	in.Add(change.Insert(6, 5))

	out := mapping.Apply(in)
	require.Len(t, out.Ops(), 1)

	op := out.Ops()[0]
	assert.Equal(t, change.OpInsert, op.Kind)
	assert.Equal(t, 2, op.At)
	assert.Equal(t, []int{6}, op.New)

	assert.Equal(t, []int{2, 4, 6}, out.Apply([]int{2, 4}))
}

func TestMappingReplaceTransitions(t *testing.T) {
	t.Parallel()

	// Four-way case split of Replace at one index.
	tests := []struct {
		name    string
		src     []int
		at      int
		new     int
		wantOps int
	}{
		{"matching_to_matching", []int{2, 4}, 0, 6, 1},
		{"matching_to_nonmatching", []int{2, 4}, 0, 7, 1},
		{"nonmatching_to_matching", []int{1, 4}, 0, 6, 1},
		{"nonmatching_to_nonmatching", []int{1, 4}, 0, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mapping := NewMapping(isEven, tt.src)

			in := change.NewArrayChange[int](len(tt.src))
			in.Add(change.Replace(tt.src[tt.at], tt.at, tt.new))

			out := mapping.Apply(in)
			assert.Len(t, out.Ops(), tt.wantOps)

			after := in.Apply(tt.src)
			assert.Equal(t, filter(after, isEven), out.Apply(filter(tt.src, isEven)))
			assert.Equal(t, mapping.Count(), len(filter(after, isEven)))
		})
	}
}

func TestMappingRemoveShiftsTail(t *testing.T) {
	t.Parallel()

	src := []int{2, 1, 4, 3, 6}
	mapping := NewMapping(isEven, src)

	in := change.NewArrayChange[int](5)
	in.Add(change.Remove(2, 0))

	out := mapping.Apply(in)
	require.Len(t, out.Ops(), 1)
	assert.Equal(t, change.OpRemove, out.Ops()[0].Kind)
	assert.Equal(t, 0, out.Ops()[0].At)

	// The membership now reflects the shifted source: [1,4,3,6].
	assert.Equal(t, []int{1, 3}, mapping.membership.Members())
	assert.Equal(t, 4, mapping.SourceCount())
}

func TestMappingReplaceSlice(t *testing.T) {
	t.Parallel()

	src := []int{1, 2, 3, 4, 5, 6}
	mapping := NewMapping(isEven, src)

	in := change.NewArrayChange[int](6)
	in.Add(change.ReplaceSlice([]int{2, 3, 4}, 1, []int{8, 9}))

	out := mapping.Apply(in)

	after := in.Apply(src) // [1, 8, 9, 5, 6]
	assert.Equal(t, filter(after, isEven), out.Apply(filter(src, isEven)))
	assert.Equal(t, []int{1, 4}, mapping.membership.Members())
}

func TestMappingSourceToView(t *testing.T) {
	t.Parallel()

	mapping := NewMapping(isEven, []int{1, 2, 3, 4})

	pos, ok := mapping.SourceToView(1)
	require.True(t, ok)
	assert.Equal(t, 0, pos)

	_, ok = mapping.SourceToView(0)
	assert.False(t, ok)

	assert.Equal(t, 3, mapping.ViewToSource(1))
}

func TestMappingCountMismatchPanics(t *testing.T) {
	t.Parallel()

	mapping := NewMapping(isEven, []int{1, 2})

	in := change.NewArrayChange[int](3)
	in.Add(change.Insert(8, 0))

	assert.Panics(t, func() { mapping.Apply(in) })
}

func TestMappingEmptyChangeStaysEmpty(t *testing.T) {
	t.Parallel()

	mapping := NewMapping(isEven, []int{1, 2, 3})

	in := change.NewArrayChange[int](3)
	out := mapping.Apply(in)
	assert.True(t, out.IsEmpty())
	assert.Equal(t, 1, out.InitialCount())

	// A replace touching only filtered-out elements also folds to empty.
	in = change.NewArrayChange[int](3)
	in.Add(change.Replace(1, 0, 9))
	assert.True(t, mapping.Apply(in).IsEmpty())
}

// Filter fidelity: folding any script through the mapping and applying the
// result to the filtered snapshot matches filtering the post-edit source.
func TestMappingFilterFidelityRandomized(t *testing.T) {
	t.Parallel()

	const rounds = 300

	rng := rand.New(rand.NewSource(0x1d8a9)) //nolint:gosec // deterministic test data
	src := []int{}

	for i := range 30 {
		src = append(src, i)
	}

	mapping := NewMapping(isEven, src)

	for round := range rounds {
		in := change.NewArrayChange[int](len(src))

		for opCount := rng.Intn(4) + 1; opCount > 0; opCount-- {
			length := in.FinalCount()
			at := 0

			if length > 0 {
				at = rng.Intn(length + 1)
			}

			switch rng.Intn(3) {
			case 0:
				in.Add(change.Insert(rng.Intn(100), at))
			case 1:
				if at < length {
					current := in.Apply(src)
					in.Add(change.Remove(current[at], at))
				}
			default:
				if at < length {
					current := in.Apply(src)
					in.Add(change.Replace(current[at], at, rng.Intn(100)))
				}
			}
		}

		filteredBefore := filter(src, isEven)
		out := mapping.Apply(in)
		src = in.Apply(src)

		require.Equal(t, filter(src, isEven), out.Apply(filteredBefore), "round %d", round)
		require.Equal(t, len(src), mapping.SourceCount(), "round %d", round)
		require.Equal(t, len(filter(src, isEven)), mapping.Count(), "round %d", round)
	}
}

func TestMembershipHibernateBoot(t *testing.T) {
	t.Parallel()

	m := NewMembership()
	for index := range 500 {
		_, ok := m.Insert(index * 2)
		require.True(t, ok)
	}

	m.Allocator().Hibernate()
	m.Allocator().Boot()

	assert.Equal(t, 500, m.Count())
	assert.Equal(t, 13, m.Rank(26))
}
