// Package registry owns per-widget instance state: the hook slots, the
// generation counter that invalidates stale closures, and the effect and
// cleanup queues a commit flushes after it lands. Nothing outside this
// package ever mutates an Instance's hook slots directly; every hook is
// called through a Render handle obtained from BeginRender.
package registry

import (
	"sync"

	"github.com/bubblytree/tuicore/vnode"
)

// InstanceID is the stable integer identity of a runtime instance, handed
// out by an IDAllocator and never reused within a session once unmounted.
type InstanceID uint64

// IDAllocator hands out monotonically increasing InstanceIDs.
type IDAllocator struct {
	mu   sync.Mutex
	next InstanceID
}

// Allocate returns a fresh, never-before-issued InstanceID.
func (a *IDAllocator) Allocate() InstanceID {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	return a.next
}

// HookKind tags the variant stored in a hook slot.
type HookKind int

const (
	HookState HookKind = iota
	HookRef
	HookEffect
	HookMemo
	HookCallback
)

func (k HookKind) String() string {
	switch k {
	case HookState:
		return "state"
	case HookRef:
		return "ref"
	case HookEffect:
		return "effect"
	case HookMemo:
		return "memo"
	case HookCallback:
		return "callback"
	default:
		return "unknown"
	}
}

// effectRecord is the per-slot payload for a HookEffect:
// "the last dependency vector, the current cleanup function, the next
// effect callback to run, and a pending flag."
type effectRecord struct {
	lastDeps []interface{}
	cleanup  func()
	next     func() func()
	pending  bool
}

// memoRecord backs HookMemo and HookCallback slots.
type memoRecord struct {
	deps  []interface{}
	value interface{}
}

// hookSlot is one entry in an instance's ordered hooks vector.
type hookSlot struct {
	kind     HookKind
	state    interface{}
	ref      interface{}
	effect   *effectRecord
	memoized *memoRecord
}

// Instance is the per-widget composite-instance state: the
// ordered hooks vector, generation counter, needsRender flag, pending
// effect/cleanup queues, selector snapshots, and expected hook count.
type Instance struct {
	mu sync.Mutex

	id         InstanceID
	widgetKey  vnode.CompositeKey
	hooks      []hookSlot
	generation uint64

	needsRender bool

	// expectedHookCount is -1 until the first successful render fixes it.
	expectedHookCount int

	selectorSnapshots map[string]interface{}

	// Populated during an in-flight render; consumed by End.
	hookIndex       int
	pendingEffects  []int
	pendingCleanups []func()
	renderErr       error
}

// ID returns the instance's stable identity.
func (inst *Instance) ID() InstanceID { return inst.id }

// WidgetKey returns the composite-widget marker this instance was created
// with, or "" if it is not a composite instance.
func (inst *Instance) WidgetKey() vnode.CompositeKey { return inst.widgetKey }

// Generation returns the current generation counter. Hook setters capture
// this at closure-creation time and silently no-op if it has since moved.
func (inst *Instance) Generation() uint64 {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.generation
}

// NeedsRender reports whether a setter has requested a re-render since the
// last successful commit.
func (inst *Instance) NeedsRender() bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.needsRender
}
