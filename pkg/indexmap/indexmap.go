// Package indexmap maintains the index correspondence between a source array
// and a filtered view of it. A Membership is an ordered set of source indices
// backed by an order-statistics tree; a Mapping folds source-array changes
// through a predicate and produces the equivalent change over the filtered
// view, updating the membership as it goes.
package indexmap

import (
	"fmt"

	"github.com/viewflux/viewflux/pkg/change"
	"github.com/viewflux/viewflux/pkg/ostree"
	"github.com/viewflux/viewflux/pkg/safeconv"
)

// Membership is an ordered set of source indices with O(log n) rank queries.
type Membership struct {
	tree *ostree.Tree
}

// NewMembership creates an empty membership over a fresh arena.
func NewMembership() *Membership {
	return &Membership{tree: ostree.NewTree(ostree.NewAllocator())}
}

// Allocator exposes the underlying arena, for hibernation control.
func (m *Membership) Allocator() *ostree.Allocator {
	return m.tree.Allocator()
}

// Count returns the number of member indices.
func (m *Membership) Count() int {
	return m.tree.Len()
}

// Contains reports whether the source index is a member.
func (m *Membership) Contains(index int) bool {
	return m.tree.Contains(safeconv.MustIntToUint32(index))
}

// Rank returns the number of members strictly below index.
func (m *Membership) Rank(index int) int {
	return m.tree.Rank(safeconv.MustIntToUint32(index))
}

// Insert adds a source index and returns its rank among the members.
// The second result is false when the index was already present.
func (m *Membership) Insert(index int) (int, bool) {
	key := safeconv.MustIntToUint32(index)

	inserted, iter := m.tree.Insert(ostree.Item{Key: key, Value: key})
	if !inserted {
		return 0, false
	}

	return iter.Rank(), true
}

// Remove deletes a source index and returns the rank it held.
// The second result is false when the index was not a member.
func (m *Membership) Remove(index int) (int, bool) {
	key := safeconv.MustIntToUint32(index)

	iter := m.tree.FindGE(key)
	if iter.Limit() || iter.Item().Key != key {
		return 0, false
	}

	rank := iter.Rank()
	m.tree.DeleteWithIterator(iter)

	return rank, true
}

// At returns the source index of the member with the given rank.
func (m *Membership) At(rank int) int {
	return safeconv.MustUint32ToInt(m.tree.At(rank).Item().Key)
}

// Shift adds delta to every member index >= from. The caller guarantees
// the shift is order-preserving, i.e. no member lands below `from`.
func (m *Membership) Shift(from, delta int) {
	if delta == 0 {
		return
	}

	for iter := m.tree.FindGE(safeconv.MustIntToUint32(from)); !iter.Limit(); iter = iter.Next() {
		item := iter.Item()
		item.Key = safeconv.MustIntToUint32(safeconv.MustUint32ToInt(item.Key) + delta)
		item.Value = item.Key
	}
}

// Members returns all member indices in ascending order.
func (m *Membership) Members() []int {
	result := make([]int, 0, m.tree.Len())
	for iter := m.tree.Min(); !iter.Limit(); iter = iter.Next() {
		result = append(result, safeconv.MustUint32ToInt(iter.Item().Key))
	}

	return result
}

// Erase drops all members, keeping the arena for reuse.
func (m *Membership) Erase() {
	m.tree.Erase()
}

// Mapping tracks which source elements pass a predicate and translates
// source-array changes into filtered-view changes.
type Mapping[T comparable] struct {
	pred        func(T) bool
	membership  *Membership
	sourceCount int
}

// NewMapping builds the mapping from a snapshot of the source array.
func NewMapping[T comparable](pred func(T) bool, snapshot []T) *Mapping[T] {
	mapping := &Mapping[T]{pred: pred, membership: NewMembership()}
	mapping.Rebuild(snapshot)

	return mapping
}

// Rebuild resets the mapping from a fresh snapshot of the source array.
func (mapping *Mapping[T]) Rebuild(snapshot []T) {
	mapping.membership.Erase()
	mapping.sourceCount = len(snapshot)

	for index, element := range snapshot {
		if mapping.pred(element) {
			mapping.membership.Insert(index)
		}
	}
}

// Allocator exposes the membership arena, for hibernation control.
func (mapping *Mapping[T]) Allocator() *ostree.Allocator {
	return mapping.membership.Allocator()
}

// Count returns the number of elements in the filtered view.
func (mapping *Mapping[T]) Count() int {
	return mapping.membership.Count()
}

// SourceCount returns the tracked length of the source array.
func (mapping *Mapping[T]) SourceCount() int {
	return mapping.sourceCount
}

// SourceToView translates a source index to its filtered-view position.
// The second result is false when the source element is filtered out.
func (mapping *Mapping[T]) SourceToView(index int) (int, bool) {
	if !mapping.membership.Contains(index) {
		return 0, false
	}

	return mapping.membership.Rank(index), true
}

// ViewToSource translates a filtered-view position to the source index.
func (mapping *Mapping[T]) ViewToSource(position int) int {
	return mapping.membership.At(position)
}

// Apply folds a source-array change into the mapping and returns the
// equivalent change over the filtered view.
func (mapping *Mapping[T]) Apply(in change.ArrayChange[T]) change.ArrayChange[T] {
	if in.InitialCount() != mapping.sourceCount {
		panic(fmt.Sprintf(
			"indexmap: change against %d elements applied to a mapping tracking %d",
			in.InitialCount(), mapping.sourceCount))
	}

	out := change.NewArrayChange[T](mapping.membership.Count())

	for _, op := range in.Ops() {
		at := op.At
		oldLen := len(op.Old)

		viewAt := mapping.membership.Rank(at)
		viewOld := make([]T, 0, oldLen)

		for offset, element := range op.Old {
			if _, removed := mapping.membership.Remove(at + offset); removed {
				viewOld = append(viewOld, element)
			}
		}

		mapping.membership.Shift(at+oldLen, op.Delta())

		viewNew := make([]T, 0, len(op.New))

		for offset, element := range op.New {
			if mapping.pred(element) {
				mapping.membership.Insert(at + offset)
				viewNew = append(viewNew, element)
			}
		}

		out.Add(change.ReplaceSlice(viewOld, viewAt, viewNew))
	}

	mapping.sourceCount += in.FinalCount() - in.InitialCount()

	return out
}
