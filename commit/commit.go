// Package commit ties vnode, registry and reconcile together into the
// per-frame walk: reconcile each parent's children against what was
// committed last frame, expand composite widgets by running their render
// function under a registry.Render, queue and flush effects in commit
// order, and garbage-collect instances that fell out of the tree.
package commit

import (
	"fmt"
	"time"

	"github.com/bubblytree/tuicore/diag"
	"github.com/bubblytree/tuicore/reconcile"
	"github.com/bubblytree/tuicore/registry"
	"github.com/bubblytree/tuicore/vnode"
)

// rootParent is the synthetic parent id used to reconcile the single root
// node passed to Run. No real Instance is ever allocated for it.
const rootParent registry.InstanceID = 0

// ComponentFunc is a composite widget's render function: given a handle for
// issuing hook calls, its props, and its unexpanded children, it returns the
// single VNode it rendered to: a primitive or further-composite subtree.
type ComponentFunc func(r *registry.Render, props vnode.Props, children []vnode.Node) vnode.Node

// UnknownCompositeError is returned when a committed node names a composite
// key that was never registered.
type UnknownCompositeError struct {
	Key vnode.CompositeKey
}

func (e *UnknownCompositeError) Error() string {
	return fmt.Sprintf("commit: no component registered for composite key %q", e.Key)
}

// CommittedNode is one node of the expanded, instance-backed tree Run
// produces. Composite nodes are transparent wrappers: their single
// Children entry is the node they rendered to, already recursively
// expanded.
type CommittedNode struct {
	InstanceID registry.InstanceID
	Node       vnode.Node
	Children   []CommittedNode
}

// Frame is the result of one Run.
type Frame struct {
	Root CommittedNode
	Live map[registry.InstanceID]bool
}

type pendingEffect struct {
	inst *registry.Instance
	idx  int
}

// Commit owns cross-frame reconciliation state: each parent instance's
// previously-committed children, and the registered composite render
// functions.
type Commit struct {
	reg        *registry.Registry
	alloc      *registry.IDAllocator
	metrics    *diag.Metrics
	components map[vnode.CompositeKey]ComponentFunc

	childrenByParent map[registry.InstanceID][]reconcile.PrevChild

	pendingCleanups []func()
	pendingEffects  []pendingEffect
	live            map[registry.InstanceID]bool
}

// New creates a Commit driver over reg, minting instance ids from alloc and
// reporting timings/counters to metrics (nil is accepted, per diag.Metrics'
// nil-receiver-safe observers).
func New(reg *registry.Registry, alloc *registry.IDAllocator, metrics *diag.Metrics) *Commit {
	return &Commit{
		reg:              reg,
		alloc:            alloc,
		metrics:          metrics,
		components:       make(map[vnode.CompositeKey]ComponentFunc),
		childrenByParent: make(map[registry.InstanceID][]reconcile.PrevChild),
	}
}

// Register associates a composite key with the function that expands it.
func (c *Commit) Register(key vnode.CompositeKey, fn ComponentFunc) {
	c.components[key] = fn
}

// Run reconciles root against the tree committed on the previous call,
// expanding composites, flushing queued cleanups and effects in commit
// order, and garbage-collecting any instance that is no longer reachable.
func (c *Commit) Run(root vnode.Node) (*Frame, error) {
	start := time.Now()
	if err := vnode.Validate(root); err != nil {
		return nil, err
	}

	c.pendingCleanups = c.pendingCleanups[:0]
	c.pendingEffects = c.pendingEffects[:0]
	c.live = make(map[registry.InstanceID]bool)

	committed, err := c.commitChildren(rootParent, []vnode.Node{root})
	if err != nil {
		return nil, err
	}

	for _, cleanup := range c.pendingCleanups {
		fn := cleanup
		diag.GuardVoid("effect-cleanup", fn)
	}
	for _, pe := range c.pendingEffects {
		pe.inst.RunPendingEffect(pe.idx)
	}

	c.reg.GC(c.live)
	c.metrics.ObserveCommit(time.Since(start))

	return &Frame{Root: committed[0], Live: c.live}, nil
}

// commitChildren reconciles nextNodes against parent's previously-committed
// children, creating, expanding and recursing into each, and unmounting
// whatever the reconciler decided is no longer present.
func (c *Commit) commitChildren(parent registry.InstanceID, nextNodes []vnode.Node) ([]CommittedNode, error) {
	prev := c.childrenByParent[parent]
	result, err := reconcile.Reconcile(parent, prev, nextNodes, c.alloc)
	if err != nil {
		return nil, err
	}
	c.metrics.ObserveReconcile(len(result.Reused), len(result.Allocated), len(result.Unmounted))

	for id := range result.Unmounted {
		c.unmountSubtree(id)
	}

	committed := make([]CommittedNode, 0, len(result.Children))
	nextPrev := make([]reconcile.PrevChild, 0, len(result.Children))

	for _, rc := range result.Children {
		node := rc.Node
		instID := rc.InstanceID

		if result.Allocated[instID] {
			if _, err := c.reg.Create(instID, node.Composite); err != nil {
				return nil, err
			}
		}
		c.live[instID] = true

		cn, err := c.commitNode(instID, node)
		if err != nil {
			return nil, err
		}
		committed = append(committed, cn)
		nextPrev = append(nextPrev, reconcile.PrevChild{SlotID: rc.SlotID, Node: node, InstanceID: instID})
	}

	c.childrenByParent[parent] = nextPrev
	return committed, nil
}

// commitNode expands instID if node is composite, then recurses into its
// children (the expansion's single child for a composite, or node's own
// children for a primitive).
func (c *Commit) commitNode(instID registry.InstanceID, node vnode.Node) (CommittedNode, error) {
	if node.IsComposite() {
		fn, ok := c.components[node.Composite]
		if !ok {
			return CommittedNode{}, &UnknownCompositeError{Key: node.Composite}
		}

		r, ok := c.reg.BeginRender(instID)
		if !ok {
			return CommittedNode{}, fmt.Errorf("commit: instance %d vanished mid-render", instID)
		}
		expanded := fn(r, node.Props, node.Children)
		cleanups, effects, err := r.End()
		if err != nil {
			return CommittedNode{}, err
		}
		c.pendingCleanups = append(c.pendingCleanups, cleanups...)
		for _, idx := range effects {
			c.pendingEffects = append(c.pendingEffects, pendingEffect{inst: instMustGet(c.reg, instID), idx: idx})
		}

		sub, err := c.commitChildren(instID, []vnode.Node{expanded})
		if err != nil {
			return CommittedNode{}, err
		}
		return CommittedNode{InstanceID: instID, Node: node, Children: sub}, nil
	}

	children, err := c.commitChildren(instID, node.Children)
	if err != nil {
		return CommittedNode{}, err
	}
	return CommittedNode{InstanceID: instID, Node: node, Children: children}, nil
}

func instMustGet(reg *registry.Registry, id registry.InstanceID) *registry.Instance {
	inst, _ := reg.Get(id)
	return inst
}

// unmountSubtree recursively tears down id and every descendant recorded
// under it, removing them from childrenByParent so a later Run never
// revisits them.
func (c *Commit) unmountSubtree(id registry.InstanceID) {
	for _, child := range c.childrenByParent[id] {
		c.unmountSubtree(child.InstanceID)
	}
	delete(c.childrenByParent, id)
	c.reg.Delete(id)
}
