package views

import (
	"github.com/viewflux/viewflux/pkg/change"
	"github.com/viewflux/viewflux/pkg/router"
	"github.com/viewflux/viewflux/pkg/segmap"
)

// segment is the per-inner-array bookkeeping of a FlattenView. The ordinal
// is kept current by the view when outer edits reshuffle segments.
type segment[T comparable, A Array[T]] struct {
	array   A
	handle  router.Handle
	ordinal int
}

// FlattenView is an Array presenting an array-of-observable-arrays as one
// flat sequence. A segment index map translates between flat positions and
// (segment, offset) pairs; outer edits splice whole segments, inner edits
// are widened by their segment's flat start offset.
type FlattenView[T comparable, A interface {
	Array[T]
	comparable
}] struct {
	outer    Array[A]
	segments []*segment[T, A]
	index    *segmap.Map
	channel  *router.Router[change.ArrayChange[T]]
	upstream router.Handle
	active   bool
}

// Flatten derives a flat observable array from an observable array of
// observable arrays.
func Flatten[T comparable, A interface {
	Array[T]
	comparable
}](outer Array[A]) *FlattenView[T, A] {
	view := &FlattenView[T, A]{outer: outer}
	view.channel = router.New(router.WithActivation[change.ArrayChange[T]](view.activate, view.deactivate))

	return view
}

func (view *FlattenView[T, A]) activate() {
	inners := view.outer.Snapshot()
	lengths := make([]int, len(inners))
	view.segments = make([]*segment[T, A], len(inners))

	for ordinal, inner := range inners {
		lengths[ordinal] = inner.Count()
		view.segments[ordinal] = view.attach(inner, ordinal)
	}

	view.index = segmap.New(lengths)
	view.upstream = view.outer.Subscribe(view.onOuterEvent)
	view.active = true
}

func (view *FlattenView[T, A]) deactivate() {
	view.outer.Unsubscribe(view.upstream)

	for _, seg := range view.segments {
		seg.array.Unsubscribe(seg.handle)
	}

	view.segments = nil
	view.index = nil
	view.active = false
}

func (view *FlattenView[T, A]) attach(inner A, ordinal int) *segment[T, A] {
	seg := &segment[T, A]{array: inner, ordinal: ordinal}
	seg.handle = inner.Subscribe(func(event router.Event[change.ArrayChange[T]]) {
		view.onInnerEvent(seg, event)
	})

	return seg
}

func (view *FlattenView[T, A]) onOuterEvent(event router.Event[change.ArrayChange[A]]) {
	switch event.Kind {
	case router.KindBegin:
		view.channel.Begin()
	case router.KindChange:
		view.channel.Send(view.applyOuter(event.Change))
	case router.KindEnd:
		view.channel.End()
	}
}

// applyOuter splices whole segments in and out, emitting one flat
// ReplaceSlice per outer operation.
func (view *FlattenView[T, A]) applyOuter(c change.ArrayChange[A]) change.ArrayChange[T] {
	out := change.NewArrayChange[T](view.index.TotalCount())

	for _, op := range c.Ops() {
		at := op.At
		removed := len(op.Old)

		flatAt := view.index.PostIndex(at)
		flatOld := []T{}

		for _, seg := range view.segments[at : at+removed] {
			flatOld = append(flatOld, seg.array.Snapshot()...)
			seg.array.Unsubscribe(seg.handle)
		}

		inserted := make([]*segment[T, A], len(op.New))
		lengths := make([]int, len(op.New))
		flatNew := []T{}

		for offset, inner := range op.New {
			inserted[offset] = view.attach(inner, at+offset)
			lengths[offset] = inner.Count()
			flatNew = append(flatNew, inner.Snapshot()...)
		}

		tail := view.segments[at+removed:]
		next := append([]*segment[T, A]{}, view.segments[:at]...)
		next = append(next, inserted...)
		view.segments = append(next, tail...)

		for ordinal := at + len(op.New); ordinal < len(view.segments); ordinal++ {
			view.segments[ordinal].ordinal = ordinal
		}

		view.index.ReplaceSegments(at, at+removed, lengths)

		out.Add(change.ReplaceSlice(flatOld, flatAt, flatNew))
	}

	return out
}

func (view *FlattenView[T, A]) onInnerEvent(seg *segment[T, A], event router.Event[change.ArrayChange[T]]) {
	switch event.Kind {
	case router.KindBegin:
		view.channel.Begin()
	case router.KindChange:
		c := event.Change
		widened := c.Widen(view.index.PostIndex(seg.ordinal), view.index.TotalCount())
		view.index.ResizeSegment(seg.ordinal, c.InitialCount(), c.FinalCount())
		view.channel.Send(widened)
	case router.KindEnd:
		view.channel.End()
	}
}

// Count returns the flattened length.
func (view *FlattenView[T, A]) Count() int {
	if view.active {
		return view.index.TotalCount()
	}

	count := 0
	for _, inner := range view.outer.Snapshot() {
		count += inner.Count()
	}

	return count
}

// At returns the element at the given flat position.
func (view *FlattenView[T, A]) At(index int) T {
	if view.active {
		ordinal, offset := view.index.PreIndex(index)

		return view.segments[ordinal].array.At(offset)
	}

	return view.Snapshot()[index]
}

// Slice returns a copy of the flat elements in [from, to).
func (view *FlattenView[T, A]) Slice(from, to int) []T {
	return view.Snapshot()[from:to]
}

// Snapshot returns the whole flattened sequence.
func (view *FlattenView[T, A]) Snapshot() []T {
	result := []T{}
	for _, inner := range view.outer.Snapshot() {
		result = append(result, inner.Snapshot()...)
	}

	return result
}

// Subscribe registers an edit-channel listener. The first listener attaches
// the view to the outer array and every inner array.
func (view *FlattenView[T, A]) Subscribe(listener router.Listener[change.ArrayChange[T]]) router.Handle {
	return view.channel.Subscribe(listener)
}

// Unsubscribe removes an edit-channel listener. The last removal detaches
// the view from all of its sources.
func (view *FlattenView[T, A]) Unsubscribe(handle router.Handle) {
	view.channel.Unsubscribe(handle)
}
