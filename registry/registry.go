package registry

import (
	"sync"

	"github.com/bubblytree/tuicore/diag"
	"github.com/bubblytree/tuicore/vnode"
)

// Registry is the exclusive owner of all Instance state for one runtime.
// No external collaborator mutates an Instance directly; everything else
// holds instance ids, not instances.
type Registry struct {
	mu        sync.RWMutex
	instances map[InstanceID]*Instance
	Metrics   *diag.Metrics
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{instances: make(map[InstanceID]*Instance)}
}

// Get returns the instance for id, if one exists.
func (r *Registry) Get(id InstanceID) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[id]
	return inst, ok
}

// Create registers a new, empty Instance under id. It fails if id is
// already present.
func (r *Registry) Create(id InstanceID, widgetKey vnode.CompositeKey) (*Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.instances[id]; exists {
		return nil, ErrInstanceExists(id)
	}
	inst := &Instance{
		id:                id,
		widgetKey:         widgetKey,
		expectedHookCount: -1,
	}
	r.instances[id] = inst
	return inst, nil
}

// Delete removes id from the registry, running its pending cleanups in
// reverse declaration order (swallowing errors via diag.Guard) and bumping
// its generation first so any closures already in flight observe the bump
// before their cleanup runs.
func (r *Registry) Delete(id InstanceID) {
	r.mu.Lock()
	inst, ok := r.instances[id]
	if ok {
		delete(r.instances, id)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	inst.mu.Lock()
	inst.generation++
	cleanups := make([]func(), 0, len(inst.hooks))
	for i := len(inst.hooks) - 1; i >= 0; i-- {
		if inst.hooks[i].kind == HookEffect && inst.hooks[i].effect != nil && inst.hooks[i].effect.cleanup != nil {
			cleanups = append(cleanups, inst.hooks[i].effect.cleanup)
		}
	}
	inst.mu.Unlock()

	for _, cleanup := range cleanups {
		fn := cleanup
		diag.GuardVoid("unmount-cleanup", fn)
	}
}

// Invalidate marks id as needing a re-render on the next frame.
func (r *Registry) Invalidate(id InstanceID) {
	r.mu.RLock()
	inst, ok := r.instances[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	inst.mu.Lock()
	inst.needsRender = true
	inst.mu.Unlock()
}

// ClearNeedsRender resets the needsRender flag after a commit has
// observed and acted on it.
func (r *Registry) ClearNeedsRender(id InstanceID) {
	r.mu.RLock()
	inst, ok := r.instances[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	inst.mu.Lock()
	inst.needsRender = false
	inst.mu.Unlock()
}

// IncrementGeneration bumps id's generation counter, invalidating any hook
// closures captured before the bump.
func (r *Registry) IncrementGeneration(id InstanceID) {
	r.mu.RLock()
	inst, ok := r.instances[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	inst.mu.Lock()
	inst.generation++
	inst.mu.Unlock()
}

// GetAppStateSelections returns the external-state-store selector
// snapshots last observed by id.
func (r *Registry) GetAppStateSelections(id InstanceID) map[string]interface{} {
	r.mu.RLock()
	inst, ok := r.instances[id]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.selectorSnapshots
}

// SetAppStateSelections stores snapshots for id.
func (r *Registry) SetAppStateSelections(id InstanceID, snapshots map[string]interface{}) {
	r.mu.RLock()
	inst, ok := r.instances[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	inst.mu.Lock()
	inst.selectorSnapshots = snapshots
	inst.mu.Unlock()
}

// GC deletes every registered instance whose id is absent from live,
// running its teardown exactly as Delete would. This is the post-commit
// garbage-collection pass runs after every commit.
func (r *Registry) GC(live map[InstanceID]bool) {
	r.mu.RLock()
	dead := make([]InstanceID, 0)
	for id := range r.instances {
		if !live[id] {
			dead = append(dead, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range dead {
		r.Delete(id)
	}
}

// Len reports how many instances are currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}
