package change

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// SetChange describes an edit to an unordered set: the elements removed and
// the elements inserted. An element never appears on both sides; the builder
// methods cancel opposing entries so that remove-then-insert (and the
// reverse) collapses to a no-op.
//
// The underlying sets are thread-unsafe on purpose: the engine is
// single-threaded by contract.
type SetChange[T comparable] struct {
	Removed  mapset.Set[T]
	Inserted mapset.Set[T]
}

// NewSetChange creates an empty set edit.
func NewSetChange[T comparable]() SetChange[T] {
	return SetChange[T]{
		Removed:  mapset.NewThreadUnsafeSet[T](),
		Inserted: mapset.NewThreadUnsafeSet[T](),
	}
}

// RemovedElements creates a set edit removing the given elements.
func RemovedElements[T comparable](elems ...T) SetChange[T] {
	c := NewSetChange[T]()
	for _, e := range elems {
		c.AddRemoved(e)
	}

	return c
}

// InsertedElements creates a set edit inserting the given elements.
func InsertedElements[T comparable](elems ...T) SetChange[T] {
	c := NewSetChange[T]()
	for _, e := range elems {
		c.AddInserted(e)
	}

	return c
}

// AddRemoved records the removal of e. A pending insertion of e cancels out.
func (c SetChange[T]) AddRemoved(e T) {
	if c.Inserted.Contains(e) {
		c.Inserted.Remove(e)

		return
	}

	c.Removed.Add(e)
}

// AddInserted records the insertion of e. A pending removal of e cancels out.
func (c SetChange[T]) AddInserted(e T) {
	if c.Removed.Contains(e) {
		c.Removed.Remove(e)

		return
	}

	c.Inserted.Add(e)
}

// IsEmpty reports whether the edit has no effect.
func (c SetChange[T]) IsEmpty() bool {
	return c.Removed.Cardinality() == 0 && c.Inserted.Cardinality() == 0
}

// Merge combines the edit with one that was applied immediately after it.
func (c SetChange[T]) Merge(next SetChange[T]) SetChange[T] {
	out := SetChange[T]{Removed: c.Removed.Clone(), Inserted: c.Inserted.Clone()}

	for _, e := range next.Removed.ToSlice() {
		out.AddRemoved(e)
	}

	for _, e := range next.Inserted.ToSlice() {
		out.AddInserted(e)
	}

	return out
}

// Invert produces the edit that undoes the receiver.
func (c SetChange[T]) Invert() SetChange[T] {
	return SetChange[T]{Removed: c.Inserted.Clone(), Inserted: c.Removed.Clone()}
}

// Apply mutates target in place. Every removed element must be present and
// no inserted element may already be a member.
func (c SetChange[T]) Apply(target mapset.Set[T]) {
	for _, e := range c.Removed.ToSlice() {
		if !target.Contains(e) {
			panic(fmt.Sprintf("change: removing %v which is not in the set", e))
		}

		target.Remove(e)
	}

	for _, e := range c.Inserted.ToSlice() {
		if target.Contains(e) {
			panic(fmt.Sprintf("change: inserting %v which is already in the set", e))
		}

		target.Add(e)
	}
}

// String formats the edit for diagnostics.
func (c SetChange[T]) String() string {
	return fmt.Sprintf("SetChange(removed: %v, inserted: %v)", c.Removed, c.Inserted)
}
