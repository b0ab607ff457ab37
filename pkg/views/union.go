package views

import (
	"fmt"

	"github.com/viewflux/viewflux/pkg/change"
	"github.com/viewflux/viewflux/pkg/router"
)

// DistinctUnionView is a Set of the distinct elements of a source array.
// Duplicate array elements are reference-counted into one membership; only
// the 0 -> 1 and 1 -> 0 multiplicity transitions surface as set edits.
type DistinctUnionView[T comparable] struct {
	source   Array[T]
	counts   map[T]int
	channel  *router.Router[change.SetChange[T]]
	upstream router.Handle
	active   bool
}

// DistinctUnion derives an observable set from an observable array.
func DistinctUnion[T comparable](source Array[T]) *DistinctUnionView[T] {
	view := &DistinctUnionView[T]{source: source}
	view.channel = router.New(router.WithActivation[change.SetChange[T]](view.activate, view.deactivate))

	return view
}

func (view *DistinctUnionView[T]) activate() {
	view.counts = map[T]int{}
	for _, element := range view.source.Snapshot() {
		view.counts[element]++
	}

	view.upstream = view.source.Subscribe(view.onEvent)
	view.active = true
}

func (view *DistinctUnionView[T]) deactivate() {
	view.source.Unsubscribe(view.upstream)
	view.counts = nil
	view.active = false
}

func (view *DistinctUnionView[T]) onEvent(event router.Event[change.ArrayChange[T]]) {
	switch event.Kind {
	case router.KindBegin:
		view.channel.Begin()
	case router.KindChange:
		out := change.NewSetChange[T]()

		for _, op := range event.Change.Ops() {
			for _, element := range op.Old {
				if view.counts[element] == 0 {
					panic(fmt.Sprintf("views: distinct-union multiplicity underflow for %v", element))
				}

				view.counts[element]--
				if view.counts[element] == 0 {
					delete(view.counts, element)
					out.AddRemoved(element)
				}
			}

			for _, element := range op.New {
				view.counts[element]++
				if view.counts[element] == 1 {
					out.AddInserted(element)
				}
			}
		}

		view.channel.Send(out)
	case router.KindEnd:
		view.channel.End()
	}
}

// Count returns the number of distinct elements.
func (view *DistinctUnionView[T]) Count() int {
	if view.active {
		return len(view.counts)
	}

	return len(view.distinct())
}

// Contains reports whether the element occurs in the source at all.
func (view *DistinctUnionView[T]) Contains(element T) bool {
	if view.active {
		return view.counts[element] > 0
	}

	_, ok := view.distinct()[element]

	return ok
}

// Snapshot returns the distinct elements in unspecified order.
func (view *DistinctUnionView[T]) Snapshot() []T {
	var source map[T]int
	if view.active {
		source = view.counts
	} else {
		source = view.distinct()
	}

	result := make([]T, 0, len(source))
	for element := range source {
		result = append(result, element)
	}

	return result
}

func (view *DistinctUnionView[T]) distinct() map[T]int {
	counts := map[T]int{}
	for _, element := range view.source.Snapshot() {
		counts[element]++
	}

	return counts
}

// Subscribe registers an edit-channel listener.
func (view *DistinctUnionView[T]) Subscribe(listener router.Listener[change.SetChange[T]]) router.Handle {
	return view.channel.Subscribe(listener)
}

// Unsubscribe removes an edit-channel listener.
func (view *DistinctUnionView[T]) Unsubscribe(handle router.Handle) {
	view.channel.Unsubscribe(handle)
}
