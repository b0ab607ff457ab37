// Package views wires the change algebra and the index structures into
// observable collections and derived views over them. A view exposes
// synchronous snapshot access plus an edit channel; derived views (filter,
// map, flatten, concat, distinct-union, sorted set) subscribe to their
// sources lazily, translate each upstream edit script into their own
// coordinate space and re-emit it, so chains of views stay consistent while
// only ever exchanging minimal edits.
package views

import (
	"github.com/viewflux/viewflux/pkg/change"
	"github.com/viewflux/viewflux/pkg/router"
)

// Array is an observable sequence. Snapshot access is synchronous and cheap;
// change information arrives exclusively through the edit channel.
type Array[T comparable] interface {
	Count() int
	At(index int) T
	Slice(from, to int) []T
	Snapshot() []T
	Subscribe(listener router.Listener[change.ArrayChange[T]]) router.Handle
	Unsubscribe(handle router.Handle)
}

// Set is an observable unordered collection of unique elements.
type Set[T comparable] interface {
	Count() int
	Contains(element T) bool
	Snapshot() []T
	Subscribe(listener router.Listener[change.SetChange[T]]) router.Handle
	Unsubscribe(handle router.Handle)
}
