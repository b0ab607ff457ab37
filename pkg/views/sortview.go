package views

import (
	"slices"

	"github.com/viewflux/viewflux/pkg/change"
	"github.com/viewflux/viewflux/pkg/router"
	"github.com/viewflux/viewflux/pkg/sortindex"
)

// SortedValuesView is an Array of the distinct sort keys of a set, in
// ascending order. Elements projecting to an equal key collapse into one
// position; intermediate multiplicity transitions emit nothing.
type SortedValuesView[T comparable, K comparable] struct {
	source   Set[T]
	key      func(T) K
	less     func(a, b K) bool
	index    *sortindex.ValueIndex[K]
	channel  *router.Router[change.ArrayChange[K]]
	upstream router.Handle
	active   bool
}

// SortValues derives a sorted observable array of the distinct keys
// projected from a set's elements.
func SortValues[T comparable, K comparable](source Set[T], key func(T) K, less func(a, b K) bool) *SortedValuesView[T, K] {
	view := &SortedValuesView[T, K]{source: source, key: key, less: less}
	view.channel = router.New(router.WithActivation[change.ArrayChange[K]](view.activate, view.deactivate))

	return view
}

func (view *SortedValuesView[T, K]) activate() {
	view.index = sortindex.NewValueIndex(view.less)
	for _, element := range view.source.Snapshot() {
		view.index.Insert(view.key(element))
	}

	view.upstream = view.source.Subscribe(view.onEvent)
	view.active = true
}

func (view *SortedValuesView[T, K]) deactivate() {
	view.source.Unsubscribe(view.upstream)
	view.index = nil
	view.active = false
}

func (view *SortedValuesView[T, K]) onEvent(event router.Event[change.SetChange[T]]) {
	switch event.Kind {
	case router.KindBegin:
		view.channel.Begin()
	case router.KindChange:
		out := change.NewArrayChange[K](view.index.Len())

		for _, element := range event.Change.Removed.ToSlice() {
			k := view.key(element)
			if rank, gone := view.index.Remove(k); gone {
				out.Add(change.Remove(k, rank))
			}
		}

		for _, element := range event.Change.Inserted.ToSlice() {
			k := view.key(element)
			if rank, isNew := view.index.Insert(k); isNew {
				out.Add(change.Insert(k, rank))
			}
		}

		view.channel.Send(out)
	case router.KindEnd:
		view.channel.End()
	}
}

// Count returns the number of distinct keys.
func (view *SortedValuesView[T, K]) Count() int {
	if view.active {
		return view.index.Len()
	}

	return len(view.Snapshot())
}

// At returns the key at the given position.
func (view *SortedValuesView[T, K]) At(index int) K {
	if view.active {
		return view.index.At(index)
	}

	return view.Snapshot()[index]
}

// Slice returns a copy of the keys in [from, to).
func (view *SortedValuesView[T, K]) Slice(from, to int) []K {
	return view.Snapshot()[from:to]
}

// Snapshot returns all distinct keys in ascending order.
func (view *SortedValuesView[T, K]) Snapshot() []K {
	if view.active {
		return view.index.Keys()
	}

	keys := make([]K, 0, view.source.Count())
	for _, element := range view.source.Snapshot() {
		keys = append(keys, view.key(element))
	}

	slices.SortFunc(keys, func(a, b K) int {
		switch {
		case view.less(a, b):
			return -1
		case view.less(b, a):
			return 1
		default:
			return 0
		}
	})

	return slices.Compact(keys)
}

// Subscribe registers an edit-channel listener.
func (view *SortedValuesView[T, K]) Subscribe(listener router.Listener[change.ArrayChange[K]]) router.Handle {
	return view.channel.Subscribe(listener)
}

// Unsubscribe removes an edit-channel listener.
func (view *SortedValuesView[T, K]) Unsubscribe(handle router.Handle) {
	view.channel.Unsubscribe(handle)
}

// SortedElementsView is an Array of a set's elements ordered by a sort key,
// with key ties broken by insertion order. Every element keeps its own
// position; a per-element key change is re-applied with Rekey.
type SortedElementsView[E comparable, K any] struct {
	source   Set[E]
	key      func(E) K
	less     func(a, b K) bool
	index    *sortindex.IdentityIndex[K, E]
	channel  *router.Router[change.ArrayChange[E]]
	upstream router.Handle
	active   bool
}

// SortElements derives a sorted observable array of a set's elements.
func SortElements[E comparable, K any](source Set[E], key func(E) K, less func(a, b K) bool) *SortedElementsView[E, K] {
	view := &SortedElementsView[E, K]{source: source, key: key, less: less}
	view.channel = router.New(router.WithActivation[change.ArrayChange[E]](view.activate, view.deactivate))

	return view
}

func (view *SortedElementsView[E, K]) activate() {
	view.index = sortindex.NewIdentityIndex[K, E](view.less)
	for _, element := range view.source.Snapshot() {
		view.index.Insert(view.key(element), element)
	}

	view.upstream = view.source.Subscribe(view.onEvent)
	view.active = true
}

func (view *SortedElementsView[E, K]) deactivate() {
	view.source.Unsubscribe(view.upstream)
	view.index = nil
	view.active = false
}

func (view *SortedElementsView[E, K]) onEvent(event router.Event[change.SetChange[E]]) {
	switch event.Kind {
	case router.KindBegin:
		view.channel.Begin()
	case router.KindChange:
		out := change.NewArrayChange[E](view.index.Len())

		for _, element := range event.Change.Removed.ToSlice() {
			rank := view.index.Remove(view.key(element), element)
			out.Add(change.Remove(element, rank))
		}

		for _, element := range event.Change.Inserted.ToSlice() {
			rank := view.index.Insert(view.key(element), element)
			out.Add(change.Insert(element, rank))
		}

		view.channel.Send(out)
	case router.KindEnd:
		view.channel.End()
	}
}

// Rekey re-sorts one element after its key changed from oldKey to newKey,
// as an atomic remove-then-reinsert emitted in one transaction. Only equal
// keys suppress the pair; a key change that happens to preserve the
// element's position still emits it. Without listeners there is no index to
// maintain and the call is a no-op.
func (view *SortedElementsView[E, K]) Rekey(element E, oldKey, newKey K) {
	if !view.active {
		return
	}

	if !view.less(oldKey, newKey) && !view.less(newKey, oldKey) {
		return
	}

	out := change.NewArrayChange[E](view.index.Len())

	rank := view.index.Remove(oldKey, element)
	out.Add(change.Remove(element, rank))

	newRank := view.index.Insert(newKey, element)
	out.Add(change.Insert(element, newRank))

	view.channel.Begin()
	view.channel.Send(out)
	view.channel.End()
}

// Count returns the number of elements.
func (view *SortedElementsView[E, K]) Count() int {
	if view.active {
		return view.index.Len()
	}

	return view.source.Count()
}

// At returns the element at the given position.
func (view *SortedElementsView[E, K]) At(index int) E {
	if view.active {
		return view.index.At(index)
	}

	return view.Snapshot()[index]
}

// Slice returns a copy of the elements in [from, to).
func (view *SortedElementsView[E, K]) Slice(from, to int) []E {
	return view.Snapshot()[from:to]
}

// Snapshot returns all elements in key order.
func (view *SortedElementsView[E, K]) Snapshot() []E {
	if view.active {
		return view.index.Elements()
	}

	elements := view.source.Snapshot()
	slices.SortStableFunc(elements, func(a, b E) int {
		switch {
		case view.less(view.key(a), view.key(b)):
			return -1
		case view.less(view.key(b), view.key(a)):
			return 1
		default:
			return 0
		}
	})

	return elements
}

// Subscribe registers an edit-channel listener.
func (view *SortedElementsView[E, K]) Subscribe(listener router.Listener[change.ArrayChange[E]]) router.Handle {
	return view.channel.Subscribe(listener)
}

// Unsubscribe removes an edit-channel listener.
func (view *SortedElementsView[E, K]) Unsubscribe(handle router.Handle) {
	view.channel.Unsubscribe(handle)
}
