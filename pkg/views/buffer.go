package views

import (
	"slices"

	"github.com/viewflux/viewflux/pkg/change"
	"github.com/viewflux/viewflux/pkg/router"
)

// BufferedView is an Array mirroring its source into a locally materialized
// copy. It coalesces every upstream transaction into at most one change
// event and answers snapshot queries from the copy in O(1) per element,
// which pays off when the source is an expensive view chain.
type BufferedView[T comparable] struct {
	source   Array[T]
	elements []T
	channel  *router.Router[change.ArrayChange[T]]
	upstream router.Handle
	active   bool
}

// Buffer derives a materialized observable array from the source.
func Buffer[T comparable](source Array[T]) *BufferedView[T] {
	view := &BufferedView[T]{source: source}
	view.channel = router.New(router.WithActivation[change.ArrayChange[T]](view.activate, view.deactivate))

	return view
}

func (view *BufferedView[T]) activate() {
	view.elements = view.source.Snapshot()
	view.upstream = view.source.Subscribe(view.onEvent)
	view.active = true
}

func (view *BufferedView[T]) deactivate() {
	view.source.Unsubscribe(view.upstream)
	view.elements = nil
	view.active = false
}

func (view *BufferedView[T]) onEvent(event router.Event[change.ArrayChange[T]]) {
	switch event.Kind {
	case router.KindBegin:
		view.channel.Begin()
	case router.KindChange:
		view.elements = event.Change.Apply(view.elements)
		view.channel.Send(event.Change)
	case router.KindEnd:
		view.channel.End()
	}
}

// Count returns the number of elements.
func (view *BufferedView[T]) Count() int {
	if view.active {
		return len(view.elements)
	}

	return view.source.Count()
}

// At returns the element at the given index.
func (view *BufferedView[T]) At(index int) T {
	if view.active {
		return view.elements[index]
	}

	return view.source.At(index)
}

// Slice returns a copy of the elements in [from, to).
func (view *BufferedView[T]) Slice(from, to int) []T {
	if view.active {
		return slices.Clone(view.elements[from:to])
	}

	return view.source.Slice(from, to)
}

// Snapshot returns a copy of all elements.
func (view *BufferedView[T]) Snapshot() []T {
	if view.active {
		return slices.Clone(view.elements)
	}

	return view.source.Snapshot()
}

// Subscribe registers an edit-channel listener.
func (view *BufferedView[T]) Subscribe(listener router.Listener[change.ArrayChange[T]]) router.Handle {
	return view.channel.Subscribe(listener)
}

// Unsubscribe removes an edit-channel listener.
func (view *BufferedView[T]) Unsubscribe(handle router.Handle) {
	view.channel.Unsubscribe(handle)
}
