package registry

import "reflect"

// Render is the handle returned by BeginRender. Every hook call during
// one render goes through it; the handle also enforces hook order and
// count, since this package has no language-level coroutine to lean on.
type Render struct {
	reg  *Registry
	inst *Instance
	gen  uint64
}

// BeginRender starts a render pass for id: resets the hook cursor and the
// per-render pending queues.
func (r *Registry) BeginRender(id InstanceID) (*Render, bool) {
	inst, ok := r.Get(id)
	if !ok {
		return nil, false
	}
	inst.mu.Lock()
	inst.hookIndex = 0
	inst.pendingEffects = inst.pendingEffects[:0]
	inst.pendingCleanups = inst.pendingCleanups[:0]
	inst.renderErr = nil
	gen := inst.generation
	inst.mu.Unlock()
	return &Render{reg: r, inst: inst, gen: gen}, true
}

// PendingEffect is one effect ready to run in the post-commit flush.
type PendingEffect struct {
	Run func() func() // returns the new cleanup, if any
}

// End finalizes the render: it enforces the hook-count invariant (the
// hook index at end of render equals the expected count fixed by the
// first successful render) and returns the cleanups queued during this
// render plus the effects that must run after commit.
func (r *Render) End() (cleanups []func(), effects []int, err error) {
	inst := r.inst
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.renderErr != nil {
		return nil, nil, inst.renderErr
	}

	if inst.expectedHookCount < 0 {
		inst.expectedHookCount = inst.hookIndex
	} else if inst.hookIndex != inst.expectedHookCount {
		return nil, nil, &HookCountMismatchError{Instance: inst.id, Want: inst.expectedHookCount, Got: inst.hookIndex}
	}

	return inst.pendingCleanups, inst.pendingEffects, nil
}

// slot returns the slot at the current cursor, allocating one of kind if
// this is the first time this instance has reached this index. It reports
// a sticky render error (and leaves renderErr set) on order/count
// violations, matching the drawlist builder's sticky-error idiom.
func (r *Render) slot(kind HookKind) (*hookSlot, int, bool) {
	inst := r.inst
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.renderErr != nil {
		return nil, -1, false
	}

	idx := inst.hookIndex
	inst.hookIndex++

	if inst.expectedHookCount >= 0 && idx >= inst.expectedHookCount {
		inst.renderErr = &HookCountMismatchError{Instance: inst.id, Want: inst.expectedHookCount, Got: idx + 1}
		return nil, -1, false
	}

	if idx < len(inst.hooks) {
		if inst.hooks[idx].kind != kind {
			inst.renderErr = &HookOrderMismatchError{Instance: inst.id, Slot: idx, Want: inst.hooks[idx].kind, Got: kind}
			return nil, -1, false
		}
		return &inst.hooks[idx], idx, true
	}

	inst.hooks = append(inst.hooks, hookSlot{kind: kind})
	return &inst.hooks[idx], idx, true
}

// SetState is the setter returned by UseState. It accepts either a value
// of T or a func(T) T transformer.
type SetState[T any] func(next interface{})

// UseState allocates a state slot on first encounter and returns the
// stored value and its setter on every encounter thereafter.
func UseState[T any](r *Render, initial func() T) (T, SetState[T]) {
	slot, idx, ok := r.slot(HookState)
	if !ok {
		var zero T
		return zero, func(interface{}) {}
	}
	if slot.state == nil {
		slot.state = initial()
	}
	current, _ := slot.state.(T)

	inst := r.inst
	gen := r.gen
	reg := r.reg
	setter := func(next interface{}) {
		inst.mu.Lock()
		if inst.generation != gen {
			inst.mu.Unlock()
			return
		}
		old := inst.hooks[idx].state
		var newVal T
		if fn, isFn := next.(func(T) T); isFn {
			oldT, _ := old.(T)
			newVal = fn(oldT)
		} else {
			newVal, _ = next.(T)
		}
		changed := !reflect.DeepEqual(old, newVal)
		inst.hooks[idx].state = newVal
		inst.mu.Unlock()
		if changed {
			reg.Invalidate(inst.id)
		}
	}
	return current, SetState[T](setter)
}

// RefCell is the stable-identity cell returned by UseRef.
type RefCell[T any] struct {
	Current T
}

// UseRef allocates a mutable cell on first encounter whose pointer
// identity is stable across renders.
func UseRef[T any](r *Render, initial T) *RefCell[T] {
	slot, _, ok := r.slot(HookRef)
	if !ok {
		return &RefCell[T]{Current: initial}
	}
	if slot.ref == nil {
		slot.ref = &RefCell[T]{Current: initial}
	}
	cell, _ := slot.ref.(*RefCell[T])
	return cell
}

func depsEqual(a, b []interface{}) bool {
	if a == nil || b == nil {
		// A nil dependency array means "always pending"; it
		// is never considered equal to anything, including another nil.
		return false
	}
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// UseEffect schedules effect for the post-commit flush when deps is nil,
// absent from a prior render, or changed since the prior render, or when
// the previous flush had not yet run it.
func UseEffect(r *Render, effect func() func(), deps []interface{}) {
	slot, idx, ok := r.slot(HookEffect)
	if !ok {
		return
	}
	if slot.effect == nil {
		slot.effect = &effectRecord{lastDeps: deps, next: effect, pending: true}
		r.inst.pendingEffects = append(r.inst.pendingEffects, idx)
		return
	}

	rec := slot.effect
	changed := !depsEqual(deps, rec.lastDeps) || rec.pending
	if !changed {
		return
	}
	if rec.cleanup != nil {
		r.inst.pendingCleanups = append(r.inst.pendingCleanups, rec.cleanup)
	}
	rec.lastDeps = deps
	rec.next = effect
	rec.pending = true
	r.inst.pendingEffects = append(r.inst.pendingEffects, idx)
}

// RunPendingEffect executes the effect queued at slot idx and records its
// returned cleanup, clearing the pending flag. Call this from the
// post-commit flush, after all queued cleanups have run.
func (inst *Instance) RunPendingEffect(idx int) {
	inst.mu.Lock()
	if idx < 0 || idx >= len(inst.hooks) || inst.hooks[idx].kind != HookEffect {
		inst.mu.Unlock()
		return
	}
	rec := inst.hooks[idx].effect
	next := rec.next
	inst.mu.Unlock()

	if next == nil {
		return
	}
	cleanup := next()

	inst.mu.Lock()
	rec.cleanup = cleanup
	rec.pending = false
	inst.mu.Unlock()
}

// UseMemo returns factory's cached result, recomputing only on first
// encounter or when deps changed.
func UseMemo[T any](r *Render, factory func() T, deps []interface{}) T {
	slot, _, ok := r.slot(HookMemo)
	if !ok {
		var zero T
		return zero
	}
	if slot.memoized == nil || !depsEqual(deps, slot.memoized.deps) {
		slot.memoized = &memoRecord{deps: deps, value: factory()}
	}
	v, _ := slot.memoized.value.(T)
	return v
}

// UseCallback returns the fn stored by an earlier render when deps have
// not changed since then, and stores and returns the newly supplied fn
// otherwise, preserving identity
// across renders the same way UseMemo preserves a computed value.
func UseCallback[T any](r *Render, fn T, deps []interface{}) T {
	slot, _, ok := r.slot(HookCallback)
	if !ok {
		var zero T
		return zero
	}
	if slot.memoized == nil || !depsEqual(deps, slot.memoized.deps) {
		slot.memoized = &memoRecord{deps: deps, value: fn}
	}
	v, _ := slot.memoized.value.(T)
	return v
}
