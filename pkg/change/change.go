// Package change defines the edit-script algebra for observable collections:
// ordered edit scripts over arrays and removed/inserted descriptors over sets,
// with apply, merge and invert operations.
//
// Malformed scripts (out-of-bounds indices, count mismatches, disagreeing
// overlaps) are programmer errors and panic at the point of detection.
package change

// Change is the algebra every edit kind implements. A collection change can
// be merged with a consecutive change over the same collection, inverted to
// produce the undoing change, and asked whether it has any effect at all.
type Change[C any] interface {
	// Merge combines the receiver with a change that happened immediately
	// after it, producing the composite change.
	Merge(next C) C

	// Invert produces the change that undoes the receiver.
	Invert() C

	// IsEmpty reports whether applying the change is a no-op.
	IsEmpty() bool
}
