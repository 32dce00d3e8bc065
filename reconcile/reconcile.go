// Package reconcile implements the child-list diffing algorithm: matching
// a parent's previously-committed children against a new list of virtual
// nodes by slot id, preserving instance identity across frames. It works
// one parent's child list at a time and keys on slot id plus
// compatibility.
package reconcile

import (
	"fmt"

	"github.com/bubblytree/tuicore/registry"
	"github.com/bubblytree/tuicore/vnode"
)

// PrevChild is one child of the previously-committed tree, as the caller
// already knows it: its slot id, the VNode that produced it, and its
// instance id.
type PrevChild struct {
	SlotID     string
	Node       vnode.Node
	InstanceID registry.InstanceID
}

// Status tags a result entry as either carrying forward an existing
// instance or requiring a fresh one.
type Status int

const (
	Reused Status = iota
	New
)

// ResultChild is one entry of the new ordered child list.
type ResultChild struct {
	SlotID     string
	Node       vnode.Node
	InstanceID registry.InstanceID
	Status     Status
}

// Result is the reconciler's full output for one parent's child list.
type Result struct {
	Children  []ResultChild
	Reused    map[registry.InstanceID]bool
	Allocated map[registry.InstanceID]bool
	Unmounted map[registry.InstanceID]bool
}

// DuplicateKeyError is a fatal structural error: two
// sibling children under the same parent sharing a keyed slot id.
type DuplicateKeyError struct {
	Parent    registry.InstanceID
	Key       string
	IndexA    int
	IndexB    int
	inPrev    bool
}

func (e *DuplicateKeyError) Error() string {
	side := "next"
	if e.inPrev {
		side = "prev"
	}
	return fmt.Sprintf("duplicate key %q under parent %d in %s children (indices %d and %d)",
		e.Key, e.Parent, side, e.IndexA, e.IndexB)
}

// SlotID computes the slot id for a child at childIndex: "k:<key>"
// when the node carries an explicit key, else "i:<index>".
func SlotID(n vnode.Node, childIndex int) string {
	if n.HasKey() {
		return "k:" + n.Key
	}
	return fmt.Sprintf("i:%d", childIndex)
}

// compatible reports whether a prev VNode may be reused to back a next
// VNode: same Kind, and if either carries a composite-widget marker, the
// markers must match exactly. A non-composite node whose kind is outside
// the closed kind set never matches, so it is always freshly allocated.
func compatible(prev, next vnode.Node) bool {
	if prev.Kind != next.Kind {
		return false
	}
	if prev.IsComposite() || next.IsComposite() {
		return prev.Composite == next.Composite
	}
	return vnode.Validate(vnode.Node{Kind: next.Kind}) == nil
}

// Allocator mints InstanceIDs for freshly matched children.
type Allocator interface {
	Allocate() registry.InstanceID
}

// Reconcile matches prev against next for a single parent and produces the
// disjoint reuse/create/unmount sets. parent identifies
// the parent instance only for error attribution on DuplicateKeyError.
func Reconcile(parent registry.InstanceID, prev []PrevChild, next []vnode.Node, alloc Allocator) (*Result, error) {
	if err := checkDuplicates(parent, prev, next); err != nil {
		return nil, err
	}

	anyKeyed := false
	for _, p := range prev {
		if len(p.SlotID) > 1 && p.SlotID[0] == 'k' {
			anyKeyed = true
			break
		}
	}
	for i, n := range next {
		if n.HasKey() {
			anyKeyed = true
			break
		}
		_ = i
	}

	if !anyKeyed {
		return reconcileFastPath(prev, next, alloc)
	}
	return reconcileKeyedPath(prev, next, alloc)
}

func checkDuplicates(parent registry.InstanceID, prev []PrevChild, next []vnode.Node) error {
	seenPrev := make(map[string]int, len(prev))
	for i, p := range prev {
		if p.SlotID[0] != 'k' {
			continue
		}
		if j, dup := seenPrev[p.SlotID]; dup {
			return &DuplicateKeyError{Parent: parent, Key: p.SlotID[2:], IndexA: j, IndexB: i, inPrev: true}
		}
		seenPrev[p.SlotID] = i
	}

	seenNext := make(map[string]int, len(next))
	for i, n := range next {
		id := SlotID(n, i)
		if id[0] != 'k' {
			continue
		}
		if j, dup := seenNext[id]; dup {
			return &DuplicateKeyError{Parent: parent, Key: id[2:], IndexA: j, IndexB: i}
		}
		seenNext[id] = i
	}
	return nil
}

// reconcileFastPath is the unkeyed fast path: match purely
// by index, unmount surplus previous entries, allocate surplus new ones.
func reconcileFastPath(prev []PrevChild, next []vnode.Node, alloc Allocator) (*Result, error) {
	res := newResult()
	n := len(prev)
	if len(next) < n {
		n = len(next)
	}

	for i := 0; i < n; i++ {
		slotID := SlotID(next[i], i)
		if compatible(prev[i].Node, next[i]) {
			res.Children = append(res.Children, ResultChild{
				SlotID: slotID, Node: next[i], InstanceID: prev[i].InstanceID, Status: Reused,
			})
			res.Reused[prev[i].InstanceID] = true
			continue
		}
		id := alloc.Allocate()
		res.Children = append(res.Children, ResultChild{SlotID: slotID, Node: next[i], InstanceID: id, Status: New})
		res.Allocated[id] = true
		res.Unmounted[prev[i].InstanceID] = true
	}

	for i := n; i < len(prev); i++ {
		res.Unmounted[prev[i].InstanceID] = true
	}
	for i := n; i < len(next); i++ {
		id := alloc.Allocate()
		res.Children = append(res.Children, ResultChild{SlotID: SlotID(next[i], i), Node: next[i], InstanceID: id, Status: New})
		res.Allocated[id] = true
	}

	return res, nil
}

// reconcileKeyedPath is the keyed path: build a map from
// prev slot id to prev index, then for each new child attempt to reuse the
// same slot id when unused and compatible.
func reconcileKeyedPath(prev []PrevChild, next []vnode.Node, alloc Allocator) (*Result, error) {
	res := newResult()

	prevBySlot := make(map[string]int, len(prev))
	for i, p := range prev {
		prevBySlot[p.SlotID] = i
	}
	claimed := make(map[string]bool, len(prev))

	for i, n := range next {
		slotID := SlotID(n, i)
		if pi, ok := prevBySlot[slotID]; ok && !claimed[slotID] && compatible(prev[pi].Node, n) {
			claimed[slotID] = true
			res.Children = append(res.Children, ResultChild{
				SlotID: slotID, Node: n, InstanceID: prev[pi].InstanceID, Status: Reused,
			})
			res.Reused[prev[pi].InstanceID] = true
			continue
		}
		id := alloc.Allocate()
		res.Children = append(res.Children, ResultChild{SlotID: slotID, Node: n, InstanceID: id, Status: New})
		res.Allocated[id] = true
	}

	for slotID, pi := range prevBySlot {
		if !claimed[slotID] {
			res.Unmounted[prev[pi].InstanceID] = true
		}
	}

	return res, nil
}

func newResult() *Result {
	return &Result{
		Reused:    make(map[registry.InstanceID]bool),
		Allocated: make(map[registry.InstanceID]bool),
		Unmounted: make(map[registry.InstanceID]bool),
	}
}
