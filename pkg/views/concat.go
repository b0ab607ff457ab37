package views

import (
	"github.com/viewflux/viewflux/pkg/change"
	"github.com/viewflux/viewflux/pkg/router"
)

// ConcatView is an Array presenting two source arrays back to back. Edits
// from either source are widened into the combined coordinate space; the
// offset of the second source is recomputed from live element counts on
// every edit, never cached.
type ConcatView[T comparable] struct {
	first, second Array[T]
	channel       *router.Router[change.ArrayChange[T]]
	firstHandle   router.Handle
	secondHandle  router.Handle
}

// Concat derives an observable array of first's elements followed by
// second's.
func Concat[T comparable](first, second Array[T]) *ConcatView[T] {
	view := &ConcatView[T]{first: first, second: second}
	view.channel = router.New(router.WithActivation[change.ArrayChange[T]](
		func() {
			view.firstHandle = first.Subscribe(view.onFirstEvent)
			view.secondHandle = second.Subscribe(view.onSecondEvent)
		},
		func() {
			first.Unsubscribe(view.firstHandle)
			second.Unsubscribe(view.secondHandle)
		},
	))

	return view
}

func (view *ConcatView[T]) onFirstEvent(event router.Event[change.ArrayChange[T]]) {
	switch event.Kind {
	case router.KindBegin:
		view.channel.Begin()
	case router.KindChange:
		c := event.Change
		view.channel.Send(c.Widen(0, c.InitialCount()+view.second.Count()))
	case router.KindEnd:
		view.channel.End()
	}
}

func (view *ConcatView[T]) onSecondEvent(event router.Event[change.ArrayChange[T]]) {
	switch event.Kind {
	case router.KindBegin:
		view.channel.Begin()
	case router.KindChange:
		c := event.Change
		offset := view.first.Count()
		view.channel.Send(c.Widen(offset, offset+c.InitialCount()))
	case router.KindEnd:
		view.channel.End()
	}
}

// Count returns the combined length.
func (view *ConcatView[T]) Count() int {
	return view.first.Count() + view.second.Count()
}

// At returns the element at the given combined position.
func (view *ConcatView[T]) At(index int) T {
	if index < view.first.Count() {
		return view.first.At(index)
	}

	return view.second.At(index - view.first.Count())
}

// Slice returns a copy of the combined elements in [from, to).
func (view *ConcatView[T]) Slice(from, to int) []T {
	return view.Snapshot()[from:to]
}

// Snapshot returns first's elements followed by second's.
func (view *ConcatView[T]) Snapshot() []T {
	return append(view.first.Snapshot(), view.second.Snapshot()...)
}

// Subscribe registers an edit-channel listener.
func (view *ConcatView[T]) Subscribe(listener router.Listener[change.ArrayChange[T]]) router.Handle {
	return view.channel.Subscribe(listener)
}

// Unsubscribe removes an edit-channel listener.
func (view *ConcatView[T]) Unsubscribe(handle router.Handle) {
	view.channel.Unsubscribe(handle)
}
