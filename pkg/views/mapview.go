package views

import (
	"slices"

	"github.com/viewflux/viewflux/pkg/change"
	"github.com/viewflux/viewflux/pkg/router"
)

func translate[T, U comparable](c change.ArrayChange[T], transform func(T) U) change.ArrayChange[U] {
	out := change.NewArrayChange[U](c.InitialCount())

	for _, op := range c.Ops() {
		out.Add(change.ReplaceSlice(mapSlice(op.Old, transform), op.At, mapSlice(op.New, transform)))
	}

	return out
}

func mapSlice[T, U comparable](elements []T, transform func(T) U) []U {
	if len(elements) == 0 {
		return nil
	}

	result := make([]U, len(elements))
	for i, element := range elements {
		result[i] = transform(element)
	}

	return result
}

// MappedView is an Array applying a pure transform to every source element.
// It keeps no state of its own: snapshot queries delegate to the source and
// edits are translated element-wise. A replace whose transformed old and new
// values coincide is pruned and never forwarded.
type MappedView[T, U comparable] struct {
	source    Array[T]
	transform func(T) U
	channel   *router.Router[change.ArrayChange[U]]
	upstream  router.Handle
}

// Map derives an observable array of transformed source elements.
func Map[T, U comparable](source Array[T], transform func(T) U) *MappedView[T, U] {
	view := &MappedView[T, U]{source: source, transform: transform}
	view.channel = router.New(router.WithActivation[change.ArrayChange[U]](
		func() { view.upstream = source.Subscribe(view.onEvent) },
		func() { source.Unsubscribe(view.upstream) },
	))

	return view
}

func (view *MappedView[T, U]) onEvent(event router.Event[change.ArrayChange[T]]) {
	switch event.Kind {
	case router.KindBegin:
		view.channel.Begin()
	case router.KindChange:
		view.channel.Send(translate(event.Change, view.transform))
	case router.KindEnd:
		view.channel.End()
	}
}

// Count returns the number of elements.
func (view *MappedView[T, U]) Count() int {
	return view.source.Count()
}

// At returns the transformed element at the given index.
func (view *MappedView[T, U]) At(index int) U {
	return view.transform(view.source.At(index))
}

// Slice returns transformed copies of the elements in [from, to).
func (view *MappedView[T, U]) Slice(from, to int) []U {
	return mapSlice(view.source.Slice(from, to), view.transform)
}

// Snapshot returns all transformed elements.
func (view *MappedView[T, U]) Snapshot() []U {
	return mapSlice(view.source.Snapshot(), view.transform)
}

// Subscribe registers an edit-channel listener.
func (view *MappedView[T, U]) Subscribe(listener router.Listener[change.ArrayChange[U]]) router.Handle {
	return view.channel.Subscribe(listener)
}

// Unsubscribe removes an edit-channel listener.
func (view *MappedView[T, U]) Unsubscribe(handle router.Handle) {
	view.channel.Unsubscribe(handle)
}

// FieldView is an Array of a per-element field. Unlike MappedView it caches
// the extracted values, so a field that changed out of band (not through a
// structural source edit) can be re-read and diffed with FieldChanged.
type FieldView[T, F comparable] struct {
	source   Array[T]
	field    func(T) F
	cache    []F
	channel  *router.Router[change.ArrayChange[F]]
	upstream router.Handle
	active   bool
}

// MapField derives an observable array of a field extracted from every
// source element.
func MapField[T, F comparable](source Array[T], field func(T) F) *FieldView[T, F] {
	view := &FieldView[T, F]{source: source, field: field}
	view.channel = router.New(router.WithActivation[change.ArrayChange[F]](view.activate, view.deactivate))

	return view
}

func (view *FieldView[T, F]) activate() {
	view.cache = mapSlice(view.source.Snapshot(), view.field)
	view.upstream = view.source.Subscribe(view.onEvent)
	view.active = true
}

func (view *FieldView[T, F]) deactivate() {
	view.source.Unsubscribe(view.upstream)
	view.cache = nil
	view.active = false
}

func (view *FieldView[T, F]) onEvent(event router.Event[change.ArrayChange[T]]) {
	switch event.Kind {
	case router.KindBegin:
		view.channel.Begin()
	case router.KindChange:
		translated := translate(event.Change, view.field)
		view.cache = translated.Apply(view.cache)
		view.channel.Send(translated)
	case router.KindEnd:
		view.channel.End()
	}
}

// FieldChanged re-reads the field of the element at the given index and, if
// it differs from the cached value, emits a Replace. Without listeners there
// is no cache to diff against and the call is a no-op.
func (view *FieldView[T, F]) FieldChanged(index int) {
	if !view.active {
		return
	}

	next := view.field(view.source.At(index))
	if next == view.cache[index] {
		return
	}

	c := change.NewArrayChange[F](len(view.cache))
	c.Add(change.Replace(view.cache[index], index, next))
	view.cache[index] = next

	view.channel.Begin()
	view.channel.Send(c)
	view.channel.End()
}

// Count returns the number of elements.
func (view *FieldView[T, F]) Count() int {
	return view.source.Count()
}

// At returns the field of the element at the given index.
func (view *FieldView[T, F]) At(index int) F {
	if view.active {
		return view.cache[index]
	}

	return view.field(view.source.At(index))
}

// Slice returns the fields of the elements in [from, to).
func (view *FieldView[T, F]) Slice(from, to int) []F {
	return view.Snapshot()[from:to]
}

// Snapshot returns the fields of all elements.
func (view *FieldView[T, F]) Snapshot() []F {
	if view.active {
		return slices.Clone(view.cache)
	}

	return mapSlice(view.source.Snapshot(), view.field)
}

// Subscribe registers an edit-channel listener.
func (view *FieldView[T, F]) Subscribe(listener router.Listener[change.ArrayChange[F]]) router.Handle {
	return view.channel.Subscribe(listener)
}

// Unsubscribe removes an edit-channel listener.
func (view *FieldView[T, F]) Unsubscribe(handle router.Handle) {
	view.channel.Unsubscribe(handle)
}
