package views

import (
	"github.com/viewflux/viewflux/pkg/change"
	"github.com/viewflux/viewflux/pkg/indexmap"
	"github.com/viewflux/viewflux/pkg/router"
)

// FilterView is an Array holding the source elements that pass a predicate.
// While it has listeners it keeps an incremental index mapping in lockstep
// with the source; without listeners it detaches from the source, compresses
// the dormant index arena and answers snapshot queries by scanning.
type FilterView[T comparable] struct {
	source    Array[T]
	pred      func(T) bool
	mapping   *indexmap.Mapping[T]
	channel   *router.Router[change.ArrayChange[T]]
	upstream  router.Handle
	active    bool
	threshold int
}

// Filter derives an observable array of the source elements satisfying pred.
func Filter[T comparable](source Array[T], pred func(T) bool) *FilterView[T] {
	view := &FilterView[T]{source: source, pred: pred}
	view.channel = router.New(router.WithActivation[change.ArrayChange[T]](view.activate, view.deactivate))

	return view
}

func (view *FilterView[T]) activate() {
	if view.mapping == nil {
		view.mapping = indexmap.NewMapping(view.pred, view.source.Snapshot())
	} else {
		// The index went stale while detached; boot the arena and rescan.
		view.mapping.Allocator().Boot()
		view.mapping.Rebuild(view.source.Snapshot())
	}

	view.mapping.Allocator().HibernationThreshold = view.threshold
	view.upstream = view.source.Subscribe(view.onEvent)
	view.active = true
}

// SetHibernationThreshold sets the minimum arena node count below which the
// dormant index is kept uncompressed. Takes effect on the next detach.
func (view *FilterView[T]) SetHibernationThreshold(threshold int) {
	view.threshold = threshold
	if view.mapping != nil {
		view.mapping.Allocator().HibernationThreshold = threshold
	}
}

func (view *FilterView[T]) deactivate() {
	view.source.Unsubscribe(view.upstream)
	view.active = false
	view.mapping.Allocator().Hibernate()
}

func (view *FilterView[T]) onEvent(event router.Event[change.ArrayChange[T]]) {
	switch event.Kind {
	case router.KindBegin:
		view.channel.Begin()
	case router.KindChange:
		view.channel.Send(view.mapping.Apply(event.Change))
	case router.KindEnd:
		view.channel.End()
	}
}

// Count returns the number of matching elements.
func (view *FilterView[T]) Count() int {
	if view.active {
		return view.mapping.Count()
	}

	count := 0

	for _, element := range view.source.Snapshot() {
		if view.pred(element) {
			count++
		}
	}

	return count
}

// At returns the matching element at the given filtered position.
func (view *FilterView[T]) At(index int) T {
	if view.active {
		return view.source.At(view.mapping.ViewToSource(index))
	}

	return view.Snapshot()[index]
}

// Slice returns a copy of the matching elements in [from, to).
func (view *FilterView[T]) Slice(from, to int) []T {
	return view.Snapshot()[from:to]
}

// Snapshot returns all matching elements in source order.
func (view *FilterView[T]) Snapshot() []T {
	result := []T{}

	for _, element := range view.source.Snapshot() {
		if view.pred(element) {
			result = append(result, element)
		}
	}

	return result
}

// Subscribe registers an edit-channel listener. The first listener attaches
// the view to its source.
func (view *FilterView[T]) Subscribe(listener router.Listener[change.ArrayChange[T]]) router.Handle {
	return view.channel.Subscribe(listener)
}

// Unsubscribe removes an edit-channel listener. The last removal detaches
// the view from its source.
func (view *FilterView[T]) Unsubscribe(handle router.Handle) {
	view.channel.Unsubscribe(handle)
}
