package change

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpNormalization(t *testing.T) {
	t.Parallel()

	assert.Equal(t, OpInsert, ReplaceSlice(nil, 3, []int{7}).Kind)
	assert.Equal(t, OpRemove, ReplaceSlice([]int{7}, 3, nil).Kind)
	assert.Equal(t, OpReplace, ReplaceSlice([]int{7}, 3, []int{8}).Kind)
	assert.Equal(t, OpReplaceSlice, ReplaceSlice([]int{7, 8}, 3, []int{9}).Kind)
	assert.Equal(t, OpReplaceSlice, ReplaceSlice(nil, 3, []int{7, 8}).Kind)
}

func TestOpDelta(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, Insert(5, 0).Delta())
	assert.Equal(t, -1, Remove(5, 0).Delta())
	assert.Equal(t, 0, Replace(5, 0, 6).Delta())
	assert.Equal(t, -1, ReplaceSlice([]int{1, 2, 3}, 0, []int{4, 5}).Delta())
}

func TestApplySingleOps(t *testing.T) {
	t.Parallel()

	base := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name string
		op   Op[int]
		want []int
	}{
		{"insert_front", Insert(0, 0), []int{0, 1, 2, 3, 4, 5}},
		{"insert_end", Insert(6, 5), []int{1, 2, 3, 4, 5, 6}},
		{"remove_middle", Remove(3, 2), []int{1, 2, 4, 5}},
		{"replace", Replace(3, 2, 9), []int{1, 2, 9, 4, 5}},
		{"replace_slice_shrink", ReplaceSlice([]int{2, 3, 4}, 1, []int{9}), []int{1, 9, 5}},
		{"replace_slice_grow", ReplaceSlice([]int{3}, 2, []int{7, 8, 9}), []int{1, 2, 7, 8, 9, 4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewArrayChange(len(base), tt.op)
			assert.Equal(t, tt.want, c.Apply(base))
			assert.Equal(t, len(tt.want), c.FinalCount())
		})
	}
}

func TestIdentityOpsArePruned(t *testing.T) {
	t.Parallel()

	c := NewArrayChange(3, Replace(2, 1, 2))
	assert.True(t, c.IsEmpty())

	c = NewArrayChange(3, ReplaceSlice([]int{1, 2}, 0, []int{1, 2}))
	assert.True(t, c.IsEmpty())

	c = NewArrayChange(3, ReplaceSlice[int](nil, 1, nil))
	assert.True(t, c.IsEmpty())
}

func TestAddKeepsScriptOrdered(t *testing.T) {
	t.Parallel()

	// Inserting earlier ops shifts the later ones by the newcomer's delta.
	c := NewArrayChange[int](5)
	c.Add(Insert(9, 4))
	c.Add(Insert(8, 0))

	ops := c.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, 0, ops[0].At)
	assert.Equal(t, 5, ops[1].At)

	assert.Equal(t, []int{8, 1, 2, 3, 4, 9, 5}, c.Apply([]int{1, 2, 3, 4, 5}))
}

func TestAddCoalescesOverlap(t *testing.T) {
	t.Parallel()

	// Insert x at 2, then replace it: collapses to a single insert of y.
	c := NewArrayChange[string](3)
	c.Add(Insert("x", 2))
	c.Add(Replace("x", 2, "y"))

	ops := c.Ops()
	require.Len(t, ops, 1)
	assert.Equal(t, OpInsert, ops[0].Kind)
	assert.Equal(t, []string{"y"}, ops[0].New)

	// Insert then remove the same element cancels out completely.
	c = NewArrayChange[string](3)
	c.Add(Insert("x", 1))
	c.Add(Remove("x", 1))
	assert.True(t, c.IsEmpty())
}

func TestAddTouchingOpsStaySeparate(t *testing.T) {
	t.Parallel()

	// Adjacent (touching, non-overlapping) runs are not coalesced.
	c := NewArrayChange[int](4)
	c.Add(Replace(2, 1, 7))
	c.Add(Replace(3, 2, 8))

	assert.Len(t, c.Ops(), 2)
	assert.Equal(t, []int{1, 7, 8, 4}, c.Apply([]int{1, 2, 3, 4}))
}

func TestAddOverlapDisagreementPanics(t *testing.T) {
	t.Parallel()

	c := NewArrayChange[int](3)
	c.Add(Insert(7, 1))

	assert.Panics(t, func() {
		c.Add(Replace(8, 1, 9)) // The script says index 1 holds 7, not 8.
	})
}

func TestApplyValidation(t *testing.T) {
	t.Parallel()

	c := NewArrayChange(3, Remove(2, 1))

	assert.Panics(t, func() { c.Apply([]int{1, 2}) }, "count mismatch")
	assert.Panics(t, func() { c.Apply([]int{1, 9, 3}) }, "old element mismatch")

	out := NewArrayChange(2, Insert(9, 2))
	assert.Equal(t, []int{1, 2, 9}, out.Apply([]int{1, 2}))
}

func TestMergeCountMismatchPanics(t *testing.T) {
	t.Parallel()

	first := NewArrayChange(3, Insert(9, 0))
	second := NewArrayChange[int](3) // Should be 4 after the insert.

	assert.Panics(t, func() { first.Merge(second) })
}

func TestInvertRoundTrip(t *testing.T) {
	t.Parallel()

	base := []int{1, 2, 3, 4, 5}
	c := NewArrayChange[int](5)
	c.Add(Remove(2, 1))
	c.Add(Insert(9, 3))
	c.Add(ReplaceSlice([]int{4, 9}, 2, []int{6}))

	edited := c.Apply(base)
	restored := c.Invert().Apply(edited)
	assert.Equal(t, base, restored)
}

func TestWiden(t *testing.T) {
	t.Parallel()

	c := NewArrayChange(2, Remove("a", 0))
	widened := c.Widen(2, 4)

	assert.Equal(t, 4, widened.InitialCount())
	assert.Equal(t, []string{"x", "y", "b"}, widened.Apply([]string{"x", "y", "a", "b"}))
}

// applyOpToModel splices an op into a plain slice, independently of
// ArrayChange.Apply, for cross-checking.
func applyOpToModel(model []int, op Op[int]) []int {
	out := slices.Clone(model)

	return slices.Replace(out, op.At, op.At+len(op.Old), op.New...)
}

func randomOp(rng *rand.Rand, model []int) Op[int] {
	at := rng.Intn(len(model) + 1)
	delLen := 0

	if at < len(model) {
		delLen = rng.Intn(min(3, len(model)-at) + 1)
	}

	insLen := rng.Intn(3)
	old := slices.Clone(model[at : at+delLen])
	new := make([]int, insLen)

	for i := range new {
		new[i] = rng.Intn(1000)
	}

	return ReplaceSlice(old, at, new)
}

func buildRandomChange(rng *rand.Rand, model []int, opCount int) (ArrayChange[int], []int) {
	c := NewArrayChange[int](len(model))

	for range opCount {
		op := randomOp(rng, model)
		model = applyOpToModel(model, op)
		c.Add(op)
	}

	return c, model
}

func TestRandomizedApplyMergeInvert(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))

	for round := range 200 {
		initial := make([]int, rng.Intn(12))
		for i := range initial {
			initial[i] = rng.Intn(1000)
		}

		c1, mid := buildRandomChange(rng, initial, rng.Intn(6))
		c2, final := buildRandomChange(rng, mid, rng.Intn(6))
		c3, last := buildRandomChange(rng, final, rng.Intn(6))

		require.Equal(t, mid, c1.Apply(initial), "round %d: apply", round)
		require.Equal(t, initial, c1.Invert().Apply(mid), "round %d: invert", round)

		merged := c1.Merge(c2)
		require.Equal(t, final, merged.Apply(initial), "round %d: merge", round)

		left := merged.Merge(c3)
		right := c1.Merge(c2.Merge(c3))
		require.Equal(t, last, left.Apply(initial), "round %d: assoc left", round)
		require.Equal(t, last, right.Apply(initial), "round %d: assoc right", round)
	}
}

func BenchmarkAddAndMerge(b *testing.B) {
	rng := rand.New(rand.NewSource(7))
	model := make([]int, 1000)

	for i := range model {
		model[i] = i
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		c := NewArrayChange[int](len(model))
		cur := model

		for range 20 {
			op := randomOp(rng, cur)
			cur = applyOpToModel(cur, op)
			c.Add(op)
		}
	}
}
