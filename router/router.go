// Package router maps backend input events to focus transitions, input
// edits, and widget actions over the metadata bundle the collector
// produced for the committed tree. It owns the focus model (zones, traps,
// per-zone focus memory), per-widget ephemeral state (scroll offsets,
// focused rows, undo history), and the cancellation discipline for every
// async operation it schedules.
package router

import (
	"github.com/bubblytree/tuicore/backend"
	"github.com/bubblytree/tuicore/diag"
	"github.com/bubblytree/tuicore/metadata"
	"github.com/bubblytree/tuicore/vnode"
)

// Action is one routed outcome the application loop consumes after a
// dispatch: a button press, a list selection, an input edit, a value
// change. Callbacks declared in widget props fire in addition to (not
// instead of) the returned actions.
type Action struct {
	ID    string
	Kind  string
	Value interface{}
	Index int
}

// Action kinds.
const (
	ActionPress   = "press"
	ActionSelect  = "select"
	ActionToggle  = "toggle"
	ActionInput   = "input"
	ActionChange  = "change"
	ActionScroll  = "scroll"
	ActionExpand  = "expand"
	ActionDismiss = "dismiss"
)

// Hooks are the router's outward edges. Raw is the backend's raw-write
// capability for OSC52 clipboard escapes (nil disables copy/cut export);
// Invalidate marks a widget id for re-render after an async completion;
// NowMs supplies event-independent time for undo debouncing.
type Hooks struct {
	Raw        backend.RawWriter
	Invalidate func(id string)
	NowMs      func() int64

	// Go runs an async task off the dispatch stack. Defaults to a plain
	// goroutine; deterministic tests substitute an inline runner.
	Go func(fn func())
}

// Router holds focus and per-widget routing state across frames. It is
// single-threaded like the rest of the runtime; only async completions
// (tree loads, debounced validators) touch it from goroutines, and those
// re-enter through generation-checked closures.
type Router struct {
	hooks  Hooks
	keys   keyMap
	bundle metadata.Bundle

	focused    string
	zoneMemory map[string]string // zone id -> last focused id inside it
	activeTrap string
	trapReturn map[string]string // trap id -> focus to restore on deactivation

	state   map[string]*widgetState
	hitTest func(x, y int) string
}

// New creates a Router. All Hooks fields may be zero; missing hooks
// degrade the matching feature (no clipboard export, no async
// invalidation) without disabling routing.
func New(hooks Hooks) *Router {
	if hooks.NowMs == nil {
		hooks.NowMs = func() int64 { return 0 }
	}
	if hooks.Go == nil {
		hooks.Go = func(fn func()) { go fn() }
	}
	return &Router{
		hooks:      hooks,
		keys:       defaultKeyMap,
		zoneMemory: make(map[string]string),
		trapReturn: make(map[string]string),
		state:      make(map[string]*widgetState),
	}
}

// SetHitTest installs the frame's mouse hit-tester (cell coordinates to
// widget id). The runtime refreshes it whenever layout runs.
func (r *Router) SetHitTest(fn func(x, y int) string) {
	r.hitTest = fn
}

// Focused returns the currently focused widget id, or "".
func (r *Router) Focused() string { return r.focused }

// Dispatch routes one event against the current frame's bundle and
// returns the actions it produced. Dispatching the same event twice when
// focus and value are already at the target yields no actions and no
// state change.
func (r *Router) Dispatch(ev backend.Event, bundle metadata.Bundle) []Action {
	r.bundle = bundle
	r.prune()
	r.syncTraps()

	switch e := ev.(type) {
	case backend.KeyEvent:
		return r.dispatchKey(e)
	case backend.TextEvent:
		return r.dispatchText(e)
	case backend.PasteEvent:
		return r.dispatchPaste(e)
	case backend.MouseEvent:
		return r.dispatchMouse(e)
	}
	return nil
}

func (r *Router) dispatchKey(ev backend.KeyEvent) []Action {
	if ev.Action == backend.KeyUp {
		return nil
	}

	switch {
	case matches(ev, r.keys.Next):
		r.moveFocus(1)
		return nil
	case matches(ev, r.keys.Prev):
		r.moveFocus(-1)
		return nil
	}

	if wm, ok := r.bundle.Widgets[r.focused]; ok {
		if acts, handled := r.routeWidgetKey(ev, wm); handled {
			return acts
		}
	}

	return r.routeZoneKey(ev)
}

func (r *Router) dispatchText(ev backend.TextEvent) []Action {
	if meta, ok := r.bundle.InputMeta[r.focused]; ok {
		return r.routeInputText(ev, meta)
	}
	// Space doubles as toggle/activate for non-input widgets.
	if ev.Codepoint == ' ' {
		if wm, ok := r.bundle.Widgets[r.focused]; ok {
			key := backend.KeyEvent{TimeMs: ev.TimeMs, Key: "space"}
			if acts, handled := r.routeWidgetKey(key, wm); handled {
				return acts
			}
		}
	}
	return nil
}

func (r *Router) dispatchPaste(ev backend.PasteEvent) []Action {
	if meta, ok := r.bundle.InputMeta[r.focused]; ok {
		return r.routeInputPaste(ev, meta)
	}
	return nil
}

func (r *Router) dispatchMouse(ev backend.MouseEvent) []Action {
	target := r.focused
	if r.hitTest != nil {
		if id := r.hitTest(ev.X, ev.Y); id != "" {
			target = id
		}
	}

	switch ev.Kind {
	case backend.MouseWheel:
		if wm, ok := r.bundle.Widgets[target]; ok {
			return r.routeWheel(ev, wm)
		}
	case backend.MouseDown:
		if target == "" || !r.bundle.Enabled[target] {
			return nil
		}
		r.setFocus(target)
		ws := r.widget(target)
		ws.lastClicked = target
		if r.bundle.Pressable[target] {
			wm := r.bundle.Widgets[target]
			callVoid(wm.Props, "onPress")
			return []Action{{ID: target, Kind: ActionPress}}
		}
	}
	return nil
}

// focusOrder returns the id sequence Tab cycles through: the active
// trap's internal list when a trap is pinned, else the global preorder
// list, both filtered to enabled ids.
func (r *Router) focusOrder() []string {
	var ids []string
	if r.activeTrap != "" {
		if trap, ok := r.bundle.Traps[r.activeTrap]; ok {
			ids = trap.FocusableIDs
		}
	}
	if ids == nil {
		ids = r.bundle.FocusableIDs
	}
	out := ids[:0:0]
	for _, id := range ids {
		if r.bundle.Enabled[id] && r.tabbable(id) {
			out = append(out, id)
		}
	}
	return out
}

// tabbable excludes widgets that are focus targets for arrows only.
// Disabled and read-only sliders are skipped by Tab traversal.
func (r *Router) tabbable(id string) bool {
	wm, ok := r.bundle.Widgets[id]
	if !ok {
		return true
	}
	if wm.Kind == vnode.KindSlider && boolProp(wm.Props, "readOnly") {
		return false
	}
	return true
}

func (r *Router) moveFocus(dir int) {
	order := r.focusOrder()
	if len(order) == 0 {
		return
	}
	idx := indexOf(order, r.focused)
	var target string
	if idx < 0 {
		if dir > 0 {
			target = order[0]
		} else {
			target = order[len(order)-1]
		}
	} else {
		target = order[(idx+dir+len(order))%len(order)]
	}
	// Re-entering a zone restores the id last focused inside it.
	if zid, zone, ok := r.zoneOf(target); ok {
		if cur, _, curOK := r.zoneOf(r.focused); !curOK || cur != zid {
			if last, ok := r.zoneMemory[zid]; ok && last != "" && r.bundle.Enabled[last] && indexOf(zone.FocusableIDs, last) >= 0 {
				target = last
			}
		}
	}
	r.setFocus(target)
}

// zoneOf finds the innermost zone whose direct focusable list contains
// id. Attribution in the bundle guarantees at most one match.
func (r *Router) zoneOf(id string) (string, metadata.ZoneInfo, bool) {
	if id == "" {
		return "", metadata.ZoneInfo{}, false
	}
	for zid, zone := range r.bundle.Zones {
		if indexOf(zone.FocusableIDs, id) >= 0 {
			return zid, zone, true
		}
	}
	return "", metadata.ZoneInfo{}, false
}

// setFocus commits a focus transition, running the source zone's onExit
// before the commit and the target zone's onEnter after it. Both
// callbacks are guarded; a panic in either never blocks the transition.
func (r *Router) setFocus(target string) {
	if target == r.focused {
		return
	}
	oldZone, oldInfo, hadOld := r.zoneOf(r.focused)
	newZone, newInfo, hasNew := r.zoneOf(target)

	if hadOld && oldZone != newZone {
		callVoid(oldInfo.Props, "onExit")
	}
	if r.focused != "" {
		if hadOld {
			r.zoneMemory[oldZone] = r.focused
		}
		if meta, ok := r.bundle.InputMeta[r.focused]; ok {
			callVoid(meta.Props, "onBlur")
		}
	}

	r.focused = target

	if hasNew {
		r.zoneMemory[newZone] = target
		if oldZone != newZone {
			callVoid(newInfo.Props, "onEnter")
		}
	}
}

// routeZoneKey applies zone navigation for arrow and home/end keys when
// the focused widget did not consume them.
func (r *Router) routeZoneKey(ev backend.KeyEvent) []Action {
	_, zone, ok := r.zoneOf(r.focused)
	if !ok {
		return nil
	}
	nav := stringProp(zone.Props, "navigation", "linear")
	if nav == "none" {
		return nil
	}

	ids := zone.FocusableIDs
	idx := indexOf(ids, r.focused)
	if idx < 0 {
		return nil
	}
	wrap := boolProp(zone.Props, "wrapAround")
	columns := intProp(zone.Props, "columns", 1)

	step := 0
	switch {
	case matches(ev, r.keys.Up):
		if nav == "grid" {
			step = -columns
		} else {
			step = -1
		}
	case matches(ev, r.keys.Down):
		if nav == "grid" {
			step = columns
		} else {
			step = 1
		}
	case matches(ev, r.keys.Left):
		step = -1
	case matches(ev, r.keys.Right):
		step = 1
	case matches(ev, r.keys.Home), matches(ev, r.keys.End):
		target := ids[0]
		if matches(ev, r.keys.End) {
			target = ids[len(ids)-1]
		}
		r.setFocus(target)
		// Tab strips and pagination activate the control they jump to.
		if stringProp(zone.Props, "role", "") == "tabs" && r.bundle.Pressable[target] {
			wm := r.bundle.Widgets[target]
			callVoid(wm.Props, "onPress")
			return []Action{{ID: target, Kind: ActionPress}}
		}
		return nil
	default:
		return nil
	}

	next := idx + step
	if next < 0 || next >= len(ids) {
		if !wrap {
			return nil
		}
		next = (next + len(ids)) % len(ids)
	}
	r.setFocus(ids[next])
	return nil
}

// syncTraps reconciles trap activation with the current bundle: the
// first trap whose active prop is true pins focus; a trap that was
// active and no longer is restores focus to returnFocusTo, else to the
// id focused before activation.
func (r *Router) syncTraps() {
	if r.activeTrap != "" {
		trap, present := r.bundle.Traps[r.activeTrap]
		if !present || !boolProp(trap.Props, "active") {
			restore := stringProp(trap.Props, "returnFocusTo", "")
			if restore == "" {
				restore = r.trapReturn[r.activeTrap]
			}
			delete(r.trapReturn, r.activeTrap)
			r.activeTrap = ""
			if restore != "" && r.bundle.Enabled[restore] {
				r.setFocus(restore)
			}
		}
		if r.activeTrap != "" {
			return
		}
	}
	for tid, trap := range r.bundle.Traps {
		if !boolProp(trap.Props, "active") {
			continue
		}
		r.activeTrap = tid
		r.trapReturn[tid] = r.focused
		initial := stringProp(trap.Props, "initialFocus", "")
		if initial == "" || !r.bundle.Enabled[initial] {
			if len(trap.FocusableIDs) > 0 {
				initial = trap.FocusableIDs[0]
			}
		}
		if initial != "" && indexOf(trap.FocusableIDs, r.focused) < 0 {
			r.setFocus(initial)
		}
		return
	}
}

// prune drops per-widget state whose owning id left the committed tree
// and bumps its generation so in-flight async completions are dropped.
func (r *Router) prune() {
	for id, ws := range r.state {
		if _, ok := r.bundle.Widgets[id]; ok {
			continue
		}
		if _, ok := r.bundle.InputMeta[id]; ok {
			continue
		}
		ws.gen++
		if ws.debounce != nil {
			ws.debounce.Cancel()
		}
		delete(r.state, id)
	}
	if r.focused != "" && !r.bundle.Enabled[r.focused] {
		if _, ok := r.bundle.Widgets[r.focused]; !ok {
			r.focused = ""
		}
	}
}

func (r *Router) widget(id string) *widgetState {
	ws, ok := r.state[id]
	if !ok {
		ws = newWidgetState()
		r.state[id] = ws
	}
	return ws
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// Prop accessors mirror vnode's: widgets interpret their own keys, the
// router only reads the ones the routing contract names.

func intProp(p vnode.Props, key string, def int) int {
	if v, ok := p[key].(int); ok {
		return v
	}
	return def
}

func stringProp(p vnode.Props, key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

func boolProp(p vnode.Props, key string) bool {
	v, ok := p[key].(bool)
	return ok && v
}

// callVoid invokes a no-arg callback prop through the diagnostic guard;
// user panics are swallowed and reported, never propagated.
func callVoid(p vnode.Props, key string) {
	if fn, ok := p[key].(func()); ok && fn != nil {
		diag.GuardVoid(key, fn)
	}
}
