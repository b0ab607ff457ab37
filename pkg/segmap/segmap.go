// Package segmap tracks the correspondence between an array-of-arrays and its
// flattened form. Each inner array is a segment; the map answers "which
// segment and offset does flat position p fall into" (pre-index) and "at what
// flat position does segment s start" (post-index), and stays consistent
// through segment insertion, removal and resizing.
//
// The structure is an implicit treap keyed by segment ordinal, with subtree
// segment counts and length sums as aggregates, so both translations and all
// structural edits are O(log n).
package segmap

import (
	"fmt"
	"math/rand"
)

// segNode is a single segment of the given length. Ordinal is implicit
// (count of segments in the left subtree).
type segNode struct {
	left, right *segNode
	length      int
	count       int
	lengthSum   int
	priority    uint32
}

func (n *segNode) recalc() {
	n.count = 1
	n.lengthSum = n.length

	if n.left != nil {
		n.count += n.left.count
		n.lengthSum += n.left.lengthSum
	}

	if n.right != nil {
		n.count += n.right.count
		n.lengthSum += n.right.lengthSum
	}
}

func nodeCount(n *segNode) int {
	if n == nil {
		return 0
	}

	return n.count
}

func nodeLengthSum(n *segNode) int {
	if n == nil {
		return 0
	}

	return n.lengthSum
}

// Map is the segment index map. The zero value is not usable; construct
// with New.
type Map struct {
	root *segNode
	rng  *rand.Rand
}

// New creates a map over the given initial segment lengths.
func New(counts []int) *Map {
	//nolint:gosec // treap priorities need no cryptographic randomness.
	sm := &Map{rng: rand.New(rand.NewSource(int64(len(counts)) + 1))}
	sm.root = sm.build(counts)

	return sm
}

func (sm *Map) build(counts []int) *segNode {
	if len(counts) == 0 {
		return nil
	}

	mid := len(counts) / 2
	n := sm.newNode(counts[mid])
	n.left = sm.build(counts[:mid])
	n.right = sm.build(counts[mid+1:])
	n.recalc()

	return n
}

func (sm *Map) newNode(length int) *segNode {
	if length < 0 {
		panic(fmt.Sprintf("segmap: negative segment length %d", length))
	}

	return &segNode{length: length, count: 1, lengthSum: length, priority: sm.rng.Uint32()}
}

func (sm *Map) merge(l, r *segNode) *segNode {
	if l == nil {
		return r
	}

	if r == nil {
		return l
	}

	if l.priority >= r.priority {
		l.right = sm.merge(l.right, r)
		l.recalc()

		return l
	}

	r.left = sm.merge(l, r.left)
	r.recalc()

	return r
}

// splitByOrdinal splits so left holds the first n segments, right the rest.
func (sm *Map) splitByOrdinal(root *segNode, n int) (*segNode, *segNode) {
	if root == nil {
		return nil, nil
	}

	leftCount := nodeCount(root.left)

	if n <= leftCount {
		l, r := sm.splitByOrdinal(root.left, n)
		root.left = r
		root.recalc()

		return l, root
	}

	l, r := sm.splitByOrdinal(root.right, n-leftCount-1)
	root.right = l
	root.recalc()

	return root, r
}

// SegmentCount returns the number of segments.
func (sm *Map) SegmentCount() int {
	return nodeCount(sm.root)
}

// TotalCount returns the flattened length, i.e. the sum of all segment lengths.
func (sm *Map) TotalCount() int {
	return nodeLengthSum(sm.root)
}

// SegmentLength returns the length of the segment at the given ordinal.
func (sm *Map) SegmentLength(at int) int {
	sm.checkOrdinal(at)

	n := sm.root
	for {
		leftCount := nodeCount(n.left)

		switch {
		case at < leftCount:
			n = n.left
		case at == leftCount:
			return n.length
		default:
			at -= leftCount + 1
			n = n.right
		}
	}
}

// PreIndex translates a flat position to (segment ordinal, offset within
// segment). An exact boundary resolves to the start of the following
// segment, so zero-length segments are skipped over. Panics when post is
// outside [0, TotalCount).
func (sm *Map) PreIndex(post int) (int, int) {
	if post < 0 || post >= sm.TotalCount() {
		panic(fmt.Sprintf("segmap: post-index %d out of range [0, %d)", post, sm.TotalCount()))
	}

	n := sm.root
	segment := 0

	for {
		leftSum := nodeLengthSum(n.left)

		if post < leftSum {
			n = n.left

			continue
		}

		post -= leftSum
		segment += nodeCount(n.left)

		if post < n.length {
			return segment, post
		}

		post -= n.length
		segment++
		n = n.right
	}
}

// PostIndex returns the flat position at which the given segment starts.
// The ordinal may equal SegmentCount(), yielding the total flattened length
// (the sentinel trailing boundary).
func (sm *Map) PostIndex(segment int) int {
	if segment < 0 || segment > sm.SegmentCount() {
		panic(fmt.Sprintf("segmap: segment %d out of range [0, %d]", segment, sm.SegmentCount()))
	}

	if segment == sm.SegmentCount() {
		return sm.TotalCount()
	}

	n := sm.root
	post := 0

	for {
		leftCount := nodeCount(n.left)

		switch {
		case segment < leftCount:
			n = n.left
		case segment == leftCount:
			return post + nodeLengthSum(n.left)
		default:
			post += nodeLengthSum(n.left) + n.length
			segment -= leftCount + 1
			n = n.right
		}
	}
}

// AppendSegment adds a segment of the given length after the last one.
func (sm *Map) AppendSegment(count int) {
	sm.root = sm.merge(sm.root, sm.newNode(count))
}

// ReplaceSegments replaces segments [from, to) with new segments of the
// given lengths. The number of inserted segments may differ from the number
// removed.
func (sm *Map) ReplaceSegments(from, to int, counts []int) {
	if from < 0 || to < from || to > sm.SegmentCount() {
		panic(fmt.Sprintf("segmap: segment range [%d, %d) out of range [0, %d]", from, to, sm.SegmentCount()))
	}

	left, rest := sm.splitByOrdinal(sm.root, from)
	_, right := sm.splitByOrdinal(rest, to-from)

	sm.root = sm.merge(left, sm.merge(sm.build(counts), right))
}

// ResizeSegment changes the length of the segment at the given ordinal.
// The old length is validated against the stored one; a mismatch means the
// caller's bookkeeping diverged and is a fail-fast error.
func (sm *Map) ResizeSegment(at, oldCount, newCount int) {
	sm.checkOrdinal(at)

	if newCount < 0 {
		panic(fmt.Sprintf("segmap: negative segment length %d", newCount))
	}

	sm.resize(sm.root, at, oldCount, newCount)
}

func (sm *Map) resize(n *segNode, at, oldCount, newCount int) {
	leftCount := nodeCount(n.left)

	switch {
	case at < leftCount:
		sm.resize(n.left, at, oldCount, newCount)
	case at == leftCount:
		if n.length != oldCount {
			panic(fmt.Sprintf("segmap: segment %d has length %d, not %d", at, n.length, oldCount))
		}

		n.length = newCount
	default:
		sm.resize(n.right, at-leftCount-1, oldCount, newCount)
	}

	n.recalc()
}

// SegmentLengths returns all segment lengths in order.
func (sm *Map) SegmentLengths() []int {
	result := make([]int, 0, sm.SegmentCount())

	var walk func(*segNode)
	walk = func(n *segNode) {
		if n == nil {
			return
		}

		walk(n.left)
		result = append(result, n.length)
		walk(n.right)
	}
	walk(sm.root)

	return result
}

func (sm *Map) checkOrdinal(at int) {
	if at < 0 || at >= sm.SegmentCount() {
		panic(fmt.Sprintf("segmap: segment %d out of range [0, %d)", at, sm.SegmentCount()))
	}
}
