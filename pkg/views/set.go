package views

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/viewflux/viewflux/pkg/change"
	"github.com/viewflux/viewflux/pkg/router"
)

// MutableSet is the root observable set. Mutations follow the same implicit
// or explicit transaction discipline as MutableArray.
type MutableSet[T comparable] struct {
	elements mapset.Set[T]
	channel  *router.Router[change.SetChange[T]]
}

// NewMutableSet creates a mutable set with the given initial elements.
func NewMutableSet[T comparable](elements ...T) *MutableSet[T] {
	return &MutableSet[T]{
		elements: mapset.NewThreadUnsafeSet(elements...),
		channel:  router.New[change.SetChange[T]](),
	}
}

// Count returns the number of elements.
func (set *MutableSet[T]) Count() int {
	return set.elements.Cardinality()
}

// Contains reports element membership.
func (set *MutableSet[T]) Contains(element T) bool {
	return set.elements.Contains(element)
}

// Snapshot returns all elements in unspecified order.
func (set *MutableSet[T]) Snapshot() []T {
	return set.elements.ToSlice()
}

// Subscribe registers an edit-channel listener.
func (set *MutableSet[T]) Subscribe(listener router.Listener[change.SetChange[T]]) router.Handle {
	return set.channel.Subscribe(listener)
}

// Unsubscribe removes an edit-channel listener.
func (set *MutableSet[T]) Unsubscribe(handle router.Handle) {
	set.channel.Unsubscribe(handle)
}

// Begin opens an explicit transaction.
func (set *MutableSet[T]) Begin() {
	set.channel.Begin()
}

// End closes an explicit transaction.
func (set *MutableSet[T]) End() {
	set.channel.End()
}

// Insert adds an element. Adding a present element is a no-op and emits
// nothing.
func (set *MutableSet[T]) Insert(element T) {
	if set.elements.Contains(element) {
		return
	}

	set.elements.Add(element)
	set.notify(change.InsertedElements(element))
}

// Remove deletes an element. Removing an absent element is a no-op and
// emits nothing.
func (set *MutableSet[T]) Remove(element T) {
	if !set.elements.Contains(element) {
		return
	}

	set.elements.Remove(element)
	set.notify(change.RemovedElements(element))
}

// ApplyChange applies a whole set edit as one transaction.
func (set *MutableSet[T]) ApplyChange(c change.SetChange[T]) {
	c.Apply(set.elements)
	set.notify(c)
}

func (set *MutableSet[T]) notify(c change.SetChange[T]) {
	if set.channel.InTransaction() {
		set.channel.Send(c)

		return
	}

	set.channel.Begin()
	set.channel.Send(c)
	set.channel.End()
}
