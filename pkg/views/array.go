package views

import (
	"fmt"
	"slices"

	"github.com/viewflux/viewflux/pkg/change"
	"github.com/viewflux/viewflux/pkg/router"
)

// MutableArray is the root observable sequence: a plain slice plus an edit
// channel. Every mutation runs inside a transaction; single mutations open
// and close one implicitly, while Begin/End group several into one atomic
// notification.
type MutableArray[T comparable] struct {
	elements []T
	channel  *router.Router[change.ArrayChange[T]]
}

// NewMutableArray creates a mutable array with the given initial elements.
func NewMutableArray[T comparable](elements ...T) *MutableArray[T] {
	return &MutableArray[T]{
		elements: slices.Clone(elements),
		channel:  router.New[change.ArrayChange[T]](),
	}
}

// Count returns the number of elements.
func (array *MutableArray[T]) Count() int {
	return len(array.elements)
}

// At returns the element at the given index.
func (array *MutableArray[T]) At(index int) T {
	return array.elements[index]
}

// Slice returns a copy of the elements in [from, to).
func (array *MutableArray[T]) Slice(from, to int) []T {
	return slices.Clone(array.elements[from:to])
}

// Snapshot returns a copy of all elements.
func (array *MutableArray[T]) Snapshot() []T {
	return slices.Clone(array.elements)
}

// Subscribe registers an edit-channel listener.
func (array *MutableArray[T]) Subscribe(listener router.Listener[change.ArrayChange[T]]) router.Handle {
	return array.channel.Subscribe(listener)
}

// Unsubscribe removes an edit-channel listener.
func (array *MutableArray[T]) Unsubscribe(handle router.Handle) {
	array.channel.Unsubscribe(handle)
}

// Begin opens an explicit transaction grouping subsequent mutations into
// one atomic notification. Every Begin must be balanced by an End.
func (array *MutableArray[T]) Begin() {
	array.channel.Begin()
}

// End closes an explicit transaction.
func (array *MutableArray[T]) End() {
	array.channel.End()
}

// Insert places element at the given index.
func (array *MutableArray[T]) Insert(element T, at int) {
	array.mutate(change.Insert(element, at))
}

// Append places element after the last one.
func (array *MutableArray[T]) Append(element T) {
	array.mutate(change.Insert(element, len(array.elements)))
}

// RemoveAt deletes the element at the given index.
func (array *MutableArray[T]) RemoveAt(at int) {
	array.checkIndex(at)
	array.mutate(change.Remove(array.elements[at], at))
}

// SetAt replaces the element at the given index.
func (array *MutableArray[T]) SetAt(at int, element T) {
	array.checkIndex(at)
	array.mutate(change.Replace(array.elements[at], at, element))
}

// ReplaceRange replaces the elements in [from, to) with the given ones.
func (array *MutableArray[T]) ReplaceRange(from, to int, elements ...T) {
	if from < 0 || to < from || to > len(array.elements) {
		panic(fmt.Sprintf("views: range [%d, %d) out of bounds for %d elements", from, to, len(array.elements)))
	}

	array.mutate(change.ReplaceSlice(slices.Clone(array.elements[from:to]), from, elements))
}

// ApplyChange applies a whole edit script as one transaction.
func (array *MutableArray[T]) ApplyChange(c change.ArrayChange[T]) {
	array.elements = c.Apply(array.elements)
	array.notify(c)
}

func (array *MutableArray[T]) mutate(op change.Op[T]) {
	c := change.NewArrayChange[T](len(array.elements))
	c.Add(op)

	array.elements = c.Apply(array.elements)
	array.notify(c)
}

func (array *MutableArray[T]) notify(c change.ArrayChange[T]) {
	if array.channel.InTransaction() {
		array.channel.Send(c)

		return
	}

	array.channel.Begin()
	array.channel.Send(c)
	array.channel.End()
}

func (array *MutableArray[T]) checkIndex(at int) {
	if at < 0 || at >= len(array.elements) {
		panic(fmt.Sprintf("views: index %d out of bounds for %d elements", at, len(array.elements)))
	}
}
