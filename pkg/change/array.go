package change

import (
	"fmt"
	"slices"
)

// OpKind identifies the shape of a single array edit operation.
type OpKind uint8

// Operation kinds, from most to least specific.
const (
	OpInsert OpKind = iota
	OpRemove
	OpReplace
	OpReplaceSlice
)

// String returns the lowercase name of the operation kind.
func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpRemove:
		return "remove"
	case OpReplace:
		return "replace"
	case OpReplaceSlice:
		return "replace-slice"
	default:
		return fmt.Sprintf("OpKind(%d)", uint8(k))
	}
}

// Op is a single edit operation on an array: the contiguous run Old starting
// at index At is replaced with New. Insert, Remove and Replace are the
// specific shapes where one or both runs have length zero or one.
//
// Within a script, At is expressed relative to the array state after all
// strictly-earlier operations of the same script have been applied.
type Op[T comparable] struct {
	Kind OpKind
	At   int
	Old  []T
	New  []T
}

// Insert creates an operation inserting elem at index at.
func Insert[T comparable](elem T, at int) Op[T] {
	return Op[T]{Kind: OpInsert, At: at, New: []T{elem}}
}

// Remove creates an operation removing elem at index at.
func Remove[T comparable](elem T, at int) Op[T] {
	return Op[T]{Kind: OpRemove, At: at, Old: []T{elem}}
}

// Replace creates an operation replacing old at index at with new.
func Replace[T comparable](old T, at int, new T) Op[T] {
	return Op[T]{Kind: OpReplace, At: at, Old: []T{old}, New: []T{new}}
}

// ReplaceSlice creates an operation replacing the run old at index at with
// new. The result is normalized to the most specific kind.
func ReplaceSlice[T comparable](old []T, at int, new []T) Op[T] {
	op := Op[T]{Kind: OpReplaceSlice, At: at, Old: old, New: new}
	op.normalize()

	return op
}

func (op *Op[T]) normalize() {
	switch {
	case len(op.Old) == 0 && len(op.New) == 1:
		op.Kind = OpInsert
	case len(op.Old) == 1 && len(op.New) == 0:
		op.Kind = OpRemove
	case len(op.Old) == 1 && len(op.New) == 1:
		op.Kind = OpReplace
	default:
		op.Kind = OpReplaceSlice
	}
}

// Delta is the length change the operation causes: +1 for Insert, -1 for
// Remove, 0 for Replace, len(New)-len(Old) for ReplaceSlice.
func (op Op[T]) Delta() int {
	return len(op.New) - len(op.Old)
}

// IsIdentity reports whether the operation replaces a run with an equal run.
func (op Op[T]) IsIdentity() bool {
	return slices.Equal(op.Old, op.New)
}

// Inverse returns the operation that undoes op, expressed at the same index.
func (op Op[T]) Inverse() Op[T] {
	return ReplaceSlice(slices.Clone(op.New), op.At, slices.Clone(op.Old))
}

// String formats the operation for diagnostics.
func (op Op[T]) String() string {
	switch op.Kind {
	case OpInsert:
		return fmt.Sprintf("insert(%v, at: %d)", op.New[0], op.At)
	case OpRemove:
		return fmt.Sprintf("remove(%v, at: %d)", op.Old[0], op.At)
	case OpReplace:
		return fmt.Sprintf("replace(%v, at: %d, with: %v)", op.Old[0], op.At, op.New[0])
	default:
		return fmt.Sprintf("replaceSlice(%v, at: %d, with: %v)", op.Old, op.At, op.New)
	}
}

// ArrayChange is an edit script over an array: an initial element count plus
// an ordered list of operations. Operations are kept ordered by
// non-decreasing position, each expressed in the coordinate space produced
// by the operations before it. Identity operations are pruned on entry, so
// IsEmpty is simply "no operations".
//
// The zero value is not usable; construct with NewArrayChange.
type ArrayChange[T comparable] struct {
	initialCount int
	ops          []Op[T]
}

// NewArrayChange creates an edit script over an array of initialCount
// elements and adds the given operations in order.
func NewArrayChange[T comparable](initialCount int, ops ...Op[T]) ArrayChange[T] {
	if initialCount < 0 {
		panic(fmt.Sprintf("change: negative initial count %d", initialCount))
	}

	c := ArrayChange[T]{initialCount: initialCount}
	for _, op := range ops {
		c.Add(op)
	}

	return c
}

// InitialCount returns the array length the script applies to.
func (c ArrayChange[T]) InitialCount() int {
	return c.initialCount
}

// FinalCount returns the array length after applying the script.
func (c ArrayChange[T]) FinalCount() int {
	count := c.initialCount
	for _, op := range c.ops {
		count += op.Delta()
	}

	return count
}

// IsEmpty reports whether the script has no effect.
func (c ArrayChange[T]) IsEmpty() bool {
	return len(c.ops) == 0
}

// Ops returns a copy of the script's operations in application order.
func (c ArrayChange[T]) Ops() []Op[T] {
	return slices.Clone(c.ops)
}

// Add inserts an operation into the script. The operation must be expressed
// in the coordinate space of the array after the entire current script.
// Add re-sorts the operation into place, shifting later operations by its
// delta, and coalesces genuinely overlapping runs into one ReplaceSlice.
// Runs that merely touch are kept as separate operations.
func (c *ArrayChange[T]) Add(op Op[T]) {
	if op.At < 0 {
		panic(fmt.Sprintf("change: operation at negative index %d", op.At))
	}

	if op.IsIdentity() {
		return
	}

	for pos := len(c.ops) - 1; pos >= 0; pos-- {
		prev := c.ops[pos]

		switch {
		case op.At >= prev.At+len(prev.New):
			// Strictly after prev's output run: the script order is settled.
			c.ops = slices.Insert(c.ops, pos+1, op)

			return
		case op.At+len(op.Old) <= prev.At:
			// Strictly before prev: prev moves by op's delta and the walk continues.
			c.ops[pos].At += op.Delta()
		default:
			// Overlap: collapse both into one run expressed before prev.
			op = coalesce(prev, op)
			c.ops = slices.Delete(c.ops, pos, pos+1)

			if op.IsIdentity() {
				return
			}
		}
	}

	c.ops = slices.Insert(c.ops, 0, op)
}

// coalesce combines prev with a later overlapping op into a single
// ReplaceSlice expressed in the coordinate space before prev. The old side
// is taken from the state before prev, the new side from the state after op.
func coalesce[T comparable](prev, op Op[T]) Op[T] {
	a, m := prev.At, len(prev.New)
	b, p := op.At, len(op.Old)

	start := min(a, b)

	var prefix, suffix []T
	if b < a {
		prefix = op.Old[:a-b]
	}

	if b+p > a+m {
		suffix = op.Old[a+m-b:]
	}

	// The overlap of op's old run with prev's new run must agree; anything
	// else means the script and the operation describe different arrays.
	overlapLo := max(a, b)
	overlapHi := min(a+m, b+p)

	if !slices.Equal(op.Old[overlapLo-b:overlapHi-b], prev.New[overlapLo-a:overlapHi-a]) {
		panic(fmt.Sprintf("change: overlapping operation %v disagrees with prior %v", op, prev))
	}

	combinedOld := concat3(prefix, prev.Old, suffix)

	// Window content after prev but before op, then apply op inside it.
	window := concat3(prefix, prev.New, suffix)
	lo := b - start
	combinedNew := concat3(window[:lo], op.New, window[lo+p:])

	return ReplaceSlice(combinedOld, start, combinedNew)
}

// concat3 concatenates three runs into a freshly allocated slice, so that
// coalesced operations never alias their inputs.
func concat3[T comparable](a, b, c []T) []T {
	out := make([]T, 0, len(a)+len(b)+len(c))
	out = append(out, a...)
	out = append(out, b...)

	return append(out, c...)
}

// Apply executes the script against arr, returning the edited array. The
// array must have exactly InitialCount elements and every operation's old
// run must match the array content at that point of the script.
func (c ArrayChange[T]) Apply(arr []T) []T {
	if len(arr) != c.initialCount {
		panic(fmt.Sprintf("change: applying script for %d elements to array of %d",
			c.initialCount, len(arr)))
	}

	out := slices.Clone(arr)

	for _, op := range c.ops {
		if op.At+len(op.Old) > len(out) {
			panic(fmt.Sprintf("change: %v out of bounds for array of %d", op, len(out)))
		}

		if !slices.Equal(out[op.At:op.At+len(op.Old)], op.Old) {
			panic(fmt.Sprintf("change: %v does not match array content %v", op, out[op.At:op.At+len(op.Old)]))
		}

		out = slices.Replace(out, op.At, op.At+len(op.Old), op.New...)
	}

	return out
}

// Merge combines the script with one that was applied immediately after it,
// producing a single equivalent script. The next script's initial count must
// equal the receiver's final count.
func (c ArrayChange[T]) Merge(next ArrayChange[T]) ArrayChange[T] {
	if next.initialCount != c.FinalCount() {
		panic(fmt.Sprintf("change: merging script over %d elements after script producing %d",
			next.initialCount, c.FinalCount()))
	}

	out := ArrayChange[T]{initialCount: c.initialCount, ops: slices.Clone(c.ops)}
	for _, op := range next.ops {
		out.Add(op)
	}

	return out
}

// Invert produces the script that undoes the receiver. Its initial count is
// the receiver's final count.
func (c ArrayChange[T]) Invert() ArrayChange[T] {
	out := ArrayChange[T]{initialCount: c.FinalCount()}
	for i := len(c.ops) - 1; i >= 0; i-- {
		out.Add(c.ops[i].Inverse())
	}

	return out
}

// Widen re-expresses the script in the coordinate space of a larger array
// that contains the original as a contiguous run starting at offset.
// totalInitialCount is the initial length of the larger array.
func (c ArrayChange[T]) Widen(offset, totalInitialCount int) ArrayChange[T] {
	if offset < 0 || offset+c.initialCount > totalInitialCount {
		panic(fmt.Sprintf("change: widening script over %d elements at offset %d into %d",
			c.initialCount, offset, totalInitialCount))
	}

	ops := make([]Op[T], len(c.ops))

	for i, op := range c.ops {
		op.At += offset
		ops[i] = op
	}

	return ArrayChange[T]{initialCount: totalInitialCount, ops: ops}
}

// String formats the script for diagnostics.
func (c ArrayChange[T]) String() string {
	return fmt.Sprintf("ArrayChange(initial: %d, ops: %v)", c.initialCount, c.ops)
}
