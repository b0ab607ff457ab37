// Package sortindex maintains the ordering structures behind sorted-array
// views over observable sets. Two variants exist: ValueIndex collapses
// elements with equal sort keys into one position with a multiplicity
// counter; IdentityIndex gives every element its own position, breaking key
// ties by insertion order and disambiguating removals by element identity.
package sortindex

import (
	"fmt"

	"github.com/tidwall/btree"
)

// btreeDegree is the fan-out of the underlying B-trees. The indices are
// single-threaded by contract, so locking is disabled.
const btreeDegree = 8

func newTree[T any](less func(a, b T) bool) *btree.BTreeG[T] {
	return btree.NewBTreeGOptions(less, btree.Options{NoLocks: true, Degree: btreeDegree})
}

// rankOf returns the number of entries strictly smaller than probe.
func rankOf[T any](tree *btree.BTreeG[T], less func(a, b T) bool, probe T) int {
	low, high := 0, tree.Len()

	for low < high {
		mid := (low + high) / 2

		entry, _ := tree.GetAt(mid)
		if less(entry, probe) {
			low = mid + 1
		} else {
			high = mid
		}
	}

	return low
}

type valueEntry[K any] struct {
	key   K
	count int
}

// ValueIndex is the value-keyed variant: elements projecting to an equal key
// collapse into one stored entry whose position is the key's rank.
type ValueIndex[K any] struct {
	tree *btree.BTreeG[valueEntry[K]]
	less func(a, b K) bool
}

// NewValueIndex creates an empty value-keyed index ordered by less.
func NewValueIndex[K any](less func(a, b K) bool) *ValueIndex[K] {
	return &ValueIndex[K]{
		tree: newTree(func(a, b valueEntry[K]) bool { return less(a.key, b.key) }),
		less: less,
	}
}

// Len returns the number of distinct keys.
func (index *ValueIndex[K]) Len() int {
	return index.tree.Len()
}

// Contains reports whether the key is present with multiplicity >= 1.
func (index *ValueIndex[K]) Contains(key K) bool {
	_, ok := index.tree.Get(valueEntry[K]{key: key})

	return ok
}

// Multiplicity returns how many elements collapse onto the key.
func (index *ValueIndex[K]) Multiplicity(key K) int {
	entry, ok := index.tree.Get(valueEntry[K]{key: key})
	if !ok {
		return 0
	}

	return entry.count
}

// Rank returns the number of distinct keys strictly smaller than key.
func (index *ValueIndex[K]) Rank(key K) int {
	return rankOf(index.tree, func(a, b valueEntry[K]) bool { return index.less(a.key, b.key) },
		valueEntry[K]{key: key})
}

// At returns the key at the given rank.
func (index *ValueIndex[K]) At(rank int) K {
	entry, ok := index.tree.GetAt(rank)
	if !ok {
		panic(fmt.Sprintf("sortindex: rank %d out of range for %d keys", rank, index.tree.Len()))
	}

	return entry.key
}

// Insert adds one occurrence of key. The second result is true only when
// the key is new; intermediate multiplicity increments are silent.
func (index *ValueIndex[K]) Insert(key K) (int, bool) {
	entry, ok := index.tree.Get(valueEntry[K]{key: key})
	if ok {
		entry.count++
		index.tree.Set(entry)

		return index.Rank(key), false
	}

	index.tree.Set(valueEntry[K]{key: key, count: 1})

	return index.Rank(key), true
}

// Remove drops one occurrence of key. The second result is true only when
// the multiplicity drops to zero and the key leaves the index. Removing an
// absent key is a consistency violation and fails fast.
func (index *ValueIndex[K]) Remove(key K) (int, bool) {
	entry, ok := index.tree.Get(valueEntry[K]{key: key})
	if !ok {
		panic(fmt.Sprintf("sortindex: removing absent key %v", key))
	}

	rank := index.Rank(key)

	if entry.count > 1 {
		entry.count--
		index.tree.Set(entry)

		return rank, false
	}

	index.tree.Delete(entry)

	return rank, true
}

// Keys returns all distinct keys in ascending order.
func (index *ValueIndex[K]) Keys() []K {
	result := make([]K, 0, index.tree.Len())
	index.tree.Scan(func(entry valueEntry[K]) bool {
		result = append(result, entry.key)

		return true
	})

	return result
}

type identityEntry[K, E any] struct {
	key  K
	seq  uint64
	elem E
}

// IdentityIndex is the identity-keyed variant: every element occupies its
// own position even under key ties, ordered by (key, insertion order).
type IdentityIndex[K any, E comparable] struct {
	tree    *btree.BTreeG[identityEntry[K, E]]
	less    func(a, b K) bool
	nextSeq uint64
}

// NewIdentityIndex creates an empty identity-keyed index ordered by less.
func NewIdentityIndex[K any, E comparable](less func(a, b K) bool) *IdentityIndex[K, E] {
	index := &IdentityIndex[K, E]{less: less}
	index.tree = newTree(index.entryLess)

	return index
}

func (index *IdentityIndex[K, E]) entryLess(a, b identityEntry[K, E]) bool {
	if index.less(a.key, b.key) {
		return true
	}

	if index.less(b.key, a.key) {
		return false
	}

	return a.seq < b.seq
}

// Len returns the number of stored elements.
func (index *IdentityIndex[K, E]) Len() int {
	return index.tree.Len()
}

// At returns the element at the given position in key order.
func (index *IdentityIndex[K, E]) At(rank int) E {
	entry, ok := index.tree.GetAt(rank)
	if !ok {
		panic(fmt.Sprintf("sortindex: rank %d out of range for %d elements", rank, index.tree.Len()))
	}

	return entry.elem
}

// Insert adds the element under key, after any existing elements with an
// equal key, and returns its position.
func (index *IdentityIndex[K, E]) Insert(key K, elem E) int {
	index.nextSeq++
	entry := identityEntry[K, E]{key: key, seq: index.nextSeq, elem: elem}
	index.tree.Set(entry)

	return rankOf(index.tree, index.entryLess, entry)
}

// Remove deletes the element stored under key, located by a stable scan of
// the key's equal-range matching by identity, and returns the position it
// held. Removing an element that is not present under the key fails fast.
func (index *IdentityIndex[K, E]) Remove(key K, elem E) int {
	var (
		found bool
		match identityEntry[K, E]
	)

	pivot := identityEntry[K, E]{key: key}
	index.tree.Ascend(pivot, func(entry identityEntry[K, E]) bool {
		if index.less(key, entry.key) {
			return false
		}

		if entry.elem == elem {
			found = true
			match = entry

			return false
		}

		return true
	})

	if !found {
		panic(fmt.Sprintf("sortindex: removing element %v absent under key %v", elem, key))
	}

	rank := rankOf(index.tree, index.entryLess, match)
	index.tree.Delete(match)

	return rank
}

// Elements returns all elements in key order.
func (index *IdentityIndex[K, E]) Elements() []E {
	result := make([]E, 0, index.tree.Len())
	index.tree.Scan(func(entry identityEntry[K, E]) bool {
		result = append(result, entry.elem)

		return true
	})

	return result
}
