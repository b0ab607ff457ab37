// Package router implements the transactional edit channel: a stream of
// begin / change / end events fanned out to registered listeners. Nested
// begins are reference-counted, changes inside one transaction are merged
// into a single pending edit (unless passthrough is requested), listeners
// joining mid-transaction get a synthetic begin and listeners leaving
// mid-transaction get a synthetic end. Activation is lazy: an upstream
// connection callback runs when the first listener registers and is
// reversed when the last one leaves.
//
// Delivery is single-threaded and non-reentrant by contract; violating the
// protocol (a change outside a transaction, an unbalanced end, re-entrant
// delivery) fails fast.
package router

import (
	"fmt"
	"slices"

	"github.com/viewflux/viewflux/pkg/change"
)

// EventKind discriminates the three edit-channel events.
type EventKind int

// Edit-channel event kinds.
const (
	KindBegin EventKind = iota
	KindChange
	KindEnd
)

// String implements fmt.Stringer.
func (kind EventKind) String() string {
	switch kind {
	case KindBegin:
		return "begin"
	case KindChange:
		return "change"
	case KindEnd:
		return "end"
	default:
		return fmt.Sprintf("EventKind(%d)", int(kind))
	}
}

// Event is one edit-channel event. Change is meaningful only for KindChange.
type Event[C change.Change[C]] struct {
	Kind   EventKind
	Change C
}

// Listener receives edit-channel events in subscription order.
type Listener[C change.Change[C]] func(Event[C])

// Handle identifies a subscription for later removal.
type Handle uint64

// Router is the transactional fan-out channel for one derived collection.
type Router[C change.Change[C]] struct {
	depth      int
	pending    C
	hasPending bool
	// passthrough forwards every change individually instead of merging.
	passthrough bool
	delivering  bool

	order     []Handle
	listeners map[Handle]Listener[C]
	next      Handle

	onActivate   func()
	onDeactivate func()
}

// Option configures a Router.
type Option[C change.Change[C]] func(*Router[C])

// WithPassthrough disables transaction buffering: every non-empty change is
// forwarded individually instead of being merged into one pending edit.
func WithPassthrough[C change.Change[C]]() Option[C] {
	return func(router *Router[C]) {
		router.passthrough = true
	}
}

// WithActivation installs lazy-activation callbacks: activate runs when the
// first listener subscribes, deactivate when the last one leaves.
func WithActivation[C change.Change[C]](activate, deactivate func()) Option[C] {
	return func(router *Router[C]) {
		router.onActivate = activate
		router.onDeactivate = deactivate
	}
}

// New creates an idle router with no listeners.
func New[C change.Change[C]](opts ...Option[C]) *Router[C] {
	router := &Router[C]{listeners: map[Handle]Listener[C]{}}
	for _, opt := range opts {
		opt(router)
	}

	return router
}

// InTransaction reports whether a transaction is open.
func (router *Router[C]) InTransaction() bool {
	return router.depth > 0
}

// ListenerCount returns the number of registered listeners.
func (router *Router[C]) ListenerCount() int {
	return len(router.listeners)
}

// Subscribe registers a listener. If a transaction is open, the listener
// immediately receives a synthetic begin so its bookkeeping matches the
// channel state. The first subscription triggers the activation callback
// before any event is delivered.
func (router *Router[C]) Subscribe(listener Listener[C]) Handle {
	router.next++
	handle := router.next
	router.order = append(router.order, handle)
	router.listeners[handle] = listener

	if len(router.listeners) == 1 && router.onActivate != nil {
		router.onActivate()
	}

	if router.depth > 0 {
		router.deliverTo(listener, Event[C]{Kind: KindBegin})
	}

	return handle
}

// Unsubscribe removes a listener. If a transaction is open, the listener
// receives a synthetic end just before removal. The last removal triggers
// the deactivation callback.
func (router *Router[C]) Unsubscribe(handle Handle) {
	listener, ok := router.listeners[handle]
	if !ok {
		panic(fmt.Sprintf("router: unsubscribing unknown handle %d", handle))
	}

	if router.depth > 0 {
		router.deliverTo(listener, Event[C]{Kind: KindEnd})
	}

	delete(router.listeners, handle)

	if idx := slices.Index(router.order, handle); idx >= 0 {
		router.order = slices.Delete(router.order, idx, idx+1)
	}

	if len(router.listeners) == 0 && router.onDeactivate != nil {
		router.onDeactivate()
	}
}

// Begin opens a transaction. Only the 0 -> 1 transition emits a begin
// downstream; nested begins are absorbed.
func (router *Router[C]) Begin() {
	router.checkNotDelivering()

	router.depth++

	if router.depth == 1 {
		router.broadcast(Event[C]{Kind: KindBegin})
	}
}

// Send delivers a change inside the open transaction. Empty changes are
// suppressed. A change outside a transaction is a protocol violation.
func (router *Router[C]) Send(c C) {
	router.checkNotDelivering()

	if router.depth == 0 {
		panic("router: change delivered outside a transaction")
	}

	if c.IsEmpty() {
		return
	}

	if router.passthrough {
		router.broadcast(Event[C]{Kind: KindChange, Change: c})

		return
	}

	if router.hasPending {
		router.pending = router.pending.Merge(c)
	} else {
		router.pending = c
		router.hasPending = true
	}
}

// End closes a transaction. Only the 1 -> 0 transition flushes the pending
// merged change (when non-empty) and emits an end downstream.
func (router *Router[C]) End() {
	router.checkNotDelivering()

	if router.depth == 0 {
		panic("router: unbalanced end")
	}

	router.depth--
	if router.depth > 0 {
		return
	}

	if router.hasPending {
		pending := router.pending

		var zero C

		router.pending = zero
		router.hasPending = false

		if !pending.IsEmpty() {
			router.broadcast(Event[C]{Kind: KindChange, Change: pending})
		}
	}

	router.broadcast(Event[C]{Kind: KindEnd})
}

func (router *Router[C]) broadcast(event Event[C]) {
	// Snapshot, so listeners may subscribe/unsubscribe during delivery.
	handles := slices.Clone(router.order)
	for _, handle := range handles {
		if listener, ok := router.listeners[handle]; ok {
			router.deliverTo(listener, event)
		}
	}
}

func (router *Router[C]) deliverTo(listener Listener[C], event Event[C]) {
	prev := router.delivering
	router.delivering = true

	defer func() { router.delivering = prev }()

	listener(event)
}

// checkNotDelivering rejects a listener callback feeding a new edit back
// into the same channel before the current delivery completes.
func (router *Router[C]) checkNotDelivering() {
	if router.delivering {
		panic("router: re-entrant edit during delivery")
	}
}
