package ostree //nolint:testpackage // tests require access to unexported fields (storage, root, size).

import (
	"math/rand"
	"slices"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Create a tree storing a set of integers.
func testNewIntSet() *Tree {
	return NewTree(NewAllocator())
}

func testAssert(tb testing.TB, condition bool, message string) {
	tb.Helper()
	assert.True(tb, condition, message)
}

func boolInsert(tree *Tree, item int) bool {
	status, _ := tree.Insert(Item{uint32(item), uint32(item)})

	return status
}

func TestEmpty(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	testAssert(t, tree.Len() == 0, "len!=0")
	testAssert(t, tree.Max().NegativeLimit(), "neglimit")
	testAssert(t, tree.Min().Limit(), "limit")
	testAssert(t, tree.FindGE(10).Limit(), "Not empty")
	testAssert(t, tree.FindLE(10).NegativeLimit(), "Not empty")
	testAssert(t, tree.Get(10) == nil, "Not empty")
	testAssert(t, tree.Limit().Equal(tree.Min()), "iter")
	assert.Equal(t, 0, tree.Rank(10))
	assert.Panics(t, func() { tree.At(0) })
}

func TestFindGE(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	testAssert(t, boolInsert(tree, 10), "Insert1")
	testAssert(t, !boolInsert(tree, 10), "Insert2")
	testAssert(t, tree.Len() == 1, "len==1")
	testAssert(t, tree.FindGE(10).Item().Key == 10, "FindGE 10")
	testAssert(t, tree.FindGE(11).Limit(), "FindGE 11")
	assert.Equal(t, uint32(10), tree.FindGE(9).Item().Key, "FindGE 10")
}

func TestFindLE(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	testAssert(t, boolInsert(tree, 10), "insert1")
	testAssert(t, tree.FindLE(10).Item().Key == 10, "FindLE 10")
	testAssert(t, tree.FindLE(11).Item().Key == 10, "FindLE 11")
	testAssert(t, tree.FindLE(9).NegativeLimit(), "FindLE 9")
}

func TestGet(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	testAssert(t, boolInsert(tree, 10), "insert1")
	assert.Equal(t, uint32(10), *tree.Get(10), "Get 10")
	testAssert(t, tree.Get(9) == nil, "Get 9")
	testAssert(t, tree.Get(11) == nil, "Get 11")
	assert.True(t, tree.Contains(10))
	assert.False(t, tree.Contains(11))
}

func TestDelete(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	testAssert(t, !tree.DeleteWithKey(10), "del")
	testAssert(t, tree.Len() == 0, "dellen")
	testAssert(t, boolInsert(tree, 10), "ins")
	testAssert(t, tree.DeleteWithKey(10), "del")
	testAssert(t, tree.Len() == 0, "dellen")

	// Deleting a missing key must leave its successor alone.
	testAssert(t, boolInsert(tree, 10), "ins")
	testAssert(t, !tree.DeleteWithKey(9), "del")
	testAssert(t, tree.Len() == 1, "dellen")
}

func TestRankAndAt(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	for _, key := range []int{50, 10, 30, 70, 20} {
		require.True(t, boolInsert(tree, key))
	}

	// Sorted order: 10, 20, 30, 50, 70.
	assert.Equal(t, 0, tree.Rank(10))
	assert.Equal(t, 2, tree.Rank(30))
	assert.Equal(t, 3, tree.Rank(40), "absent key ranks between neighbours")
	assert.Equal(t, 4, tree.Rank(70))
	assert.Equal(t, 5, tree.Rank(100))

	assert.Equal(t, uint32(10), tree.At(0).Item().Key)
	assert.Equal(t, uint32(30), tree.At(2).Item().Key)
	assert.Equal(t, uint32(70), tree.At(4).Item().Key)
	assert.Panics(t, func() { tree.At(5) })
	assert.Panics(t, func() { tree.At(-1) })

	for rank := range tree.Len() {
		assert.Equal(t, rank, tree.At(rank).Rank())
	}
}

// checkSubtreeSizes validates the size augmentation of every node.
func checkSubtreeSizes(t *testing.T, tree *Tree, nodeIdx uint32) uint32 {
	t.Helper()

	if nodeIdx == 0 {
		return 0
	}

	alloc := tree.storage()
	total := checkSubtreeSizes(t, tree, alloc[nodeIdx].left) +
		checkSubtreeSizes(t, tree, alloc[nodeIdx].right) + 1
	require.Equal(t, total, alloc[nodeIdx].size, "subtree size mismatch at node %d", nodeIdx)

	return total
}

func TestRandomized(t *testing.T) {
	t.Parallel()

	const (
		rounds = 5000
		keyMax = 1000
	)

	rng := rand.New(rand.NewSource(0x05f73e)) //nolint:gosec // deterministic test data
	tree := testNewIntSet()
	oracle := []uint32{}

	for round := range rounds {
		key := uint32(rng.Intn(keyMax))
		pos, present := slices.BinarySearch(oracle, key)

		if rng.Intn(2) == 0 {
			inserted, iter := tree.Insert(Item{key, key})
			assert.Equal(t, !present, inserted)

			if !present {
				oracle = slices.Insert(oracle, pos, key)
				assert.Equal(t, pos, iter.Rank())
			}
		} else {
			assert.Equal(t, present, tree.DeleteWithKey(key))

			if present {
				oracle = slices.Delete(oracle, pos, pos+1)
			}
		}

		require.Equal(t, len(oracle), tree.Len(), "round %d", round)

		if round%250 == 0 {
			checkSubtreeSizes(t, tree, tree.root)

			for rank, want := range oracle {
				require.Equal(t, want, tree.At(rank).Item().Key)
				require.Equal(t, rank, tree.Rank(want))
			}
		}
	}

	checkSubtreeSizes(t, tree, tree.root)

	got := make([]uint32, 0, tree.Len())
	for iter := tree.Min(); !iter.Limit(); iter = iter.Next() {
		got = append(got, iter.Item().Key)
	}

	assert.Equal(t, oracle, got)
	assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool { return got[i] < got[j] }))
}

func TestIteratorShift(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	for _, key := range []int{10, 20, 30, 40} {
		require.True(t, boolInsert(tree, key))
	}

	// Uniformly shift every key >= 20 up by 5; order is preserved.
	for iter := tree.FindGE(20); !iter.Limit(); iter = iter.Next() {
		iter.Item().Key += 5
	}

	assert.Equal(t, 1, tree.Rank(25))
	assert.Equal(t, uint32(25), tree.At(1).Item().Key)
	assert.Equal(t, uint32(45), tree.At(3).Item().Key)
	assert.Nil(t, tree.Get(20))
}

func TestErase(t *testing.T) {
	t.Parallel()

	tree := testNewIntSet()
	for key := range 100 {
		require.True(t, boolInsert(tree, key))
	}

	tree.Erase()
	assert.Equal(t, 0, tree.Len())
	assert.True(t, tree.Min().Limit())
	assert.Equal(t, 100, len(tree.Allocator().gaps))

	// The arena is reusable after Erase.
	require.True(t, boolInsert(tree, 7))
	assert.Equal(t, uint32(7), tree.At(0).Item().Key)
}

func TestAllocatorHibernateBoot(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator()
	tree := NewTree(alloc)

	for key := range 1000 {
		require.True(t, boolInsert(tree, key*2))
	}

	tree.DeleteWithKey(10)
	tree.DeleteWithKey(20)

	alloc.Hibernate()
	assert.True(t, alloc.Hibernated())
	assert.Panics(t, func() { alloc.Used() })
	assert.Panics(t, func() { alloc.Hibernate() })

	alloc.Boot()
	assert.False(t, alloc.Hibernated())

	checkSubtreeSizes(t, tree, tree.root)
	assert.Equal(t, 998, tree.Len())
	assert.Equal(t, uint32(0), tree.At(0).Item().Key)
	assert.Equal(t, uint32(30), tree.At(13).Item().Key)
	assert.Nil(t, tree.Get(10))
}

func TestAllocatorHibernateBootEmpty(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator()
	alloc.Hibernate()
	alloc.Boot()
	assert.Equal(t, 0, alloc.Size())
	assert.Equal(t, 0, alloc.Used())
}

func TestAllocatorHibernateBootThreshold(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator()
	tree := NewTree(alloc)
	require.True(t, boolInsert(tree, 7))

	alloc.HibernationThreshold = 100
	alloc.Hibernate()
	assert.Equal(t, 0, alloc.hibernatedStorageLen)
	alloc.Boot()
	assert.Equal(t, uint32(7), tree.At(0).Item().Key)

	alloc.HibernationThreshold = 0
	alloc.Hibernate()
	assert.True(t, alloc.Hibernated())
	alloc.Boot()
	assert.Equal(t, uint32(7), tree.At(0).Item().Key)
}

func TestAllocatorClone(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator()
	tree := NewTree(alloc)

	for _, key := range []int{5, 1, 9} {
		require.True(t, boolInsert(tree, key))
	}

	clone := alloc.Clone()
	cloneTree := NewTree(clone)
	cloneTree.root = tree.root
	cloneTree.minNode = tree.minNode
	cloneTree.maxNode = tree.maxNode
	cloneTree.count = tree.count

	require.True(t, boolInsert(tree, 3))
	assert.Equal(t, 3, cloneTree.Len())
	assert.Nil(t, cloneTree.Get(3))
	assert.Equal(t, uint32(5), cloneTree.At(1).Item().Key)
}

func TestCompressUInt32SliceRoundTrip(t *testing.T) {
	t.Parallel()

	data := make([]uint32, 1000)
	for i := range data {
		data[i] = uint32(i * 3)
	}

	compressed := CompressUInt32Slice(data)
	require.NotNil(t, compressed)
	assert.Less(t, len(compressed), len(data)*uint32ByteSize)

	restored := make([]uint32, len(data))
	DecompressUInt32Slice(compressed, restored)
	assert.Equal(t, data, restored)
}

func BenchmarkInsertDeleteRank(b *testing.B) {
	rng := rand.New(rand.NewSource(1)) //nolint:gosec // deterministic benchmark data
	tree := testNewIntSet()

	for range b.N {
		key := uint32(rng.Intn(100000))
		if !boolInsert(tree, int(key)) {
			tree.DeleteWithKey(key)
		}

		tree.Rank(key)
	}
}
