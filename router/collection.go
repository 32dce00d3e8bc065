package router

import (
	"github.com/bubblytree/tuicore/backend"
	"github.com/bubblytree/tuicore/diag"
	"github.com/bubblytree/tuicore/metadata"
	"github.com/bubblytree/tuicore/vnode"
)

// wheelStep is the fixed row count one wheel notch scrolls a list.
const wheelStep = 3

// routeWidgetKey dispatches a key to the focused widget's own handler.
// handled is false when the widget has no claim on the key, letting zone
// navigation take it.
func (r *Router) routeWidgetKey(ev backend.KeyEvent, wm metadata.WidgetMeta) ([]Action, bool) {
	switch wm.Kind {
	case vnode.KindInput:
		if meta, ok := r.bundle.InputMeta[wm.ID]; ok {
			return r.routeInputKey(ev, meta)
		}
		return nil, false
	case vnode.KindButton:
		if matches(ev, r.keys.Activate, r.keys.Toggle) {
			callVoid(wm.Props, "onPress")
			return []Action{{ID: wm.ID, Kind: ActionPress}}, true
		}
		return nil, false
	case vnode.KindLink:
		if matches(ev, r.keys.Activate, r.keys.Toggle) {
			callVoid(wm.Props, "onPress")
			return []Action{{ID: wm.ID, Kind: ActionPress}}, true
		}
		return nil, false
	case vnode.KindCheckbox:
		if matches(ev, r.keys.Activate, r.keys.Toggle) {
			next := !boolProp(wm.Props, "checked")
			callChangeBool(wm.Props, next)
			return []Action{{ID: wm.ID, Kind: ActionToggle, Value: next}}, true
		}
		return nil, false
	case vnode.KindRadioGroup:
		return r.routeRadio(ev, wm)
	case vnode.KindSlider:
		return r.routeSlider(ev, wm)
	case vnode.KindVirtualList, vnode.KindTable:
		return r.routeList(ev, wm)
	case vnode.KindTree:
		return r.routeTree(ev, wm)
	case vnode.KindDropdown, vnode.KindSelect:
		return r.routeDropdown(ev, wm)
	}
	return nil, false
}

// itemsOf normalizes the "items" prop: either []string or []interface{}.
func itemsOf(p vnode.Props) []interface{} {
	switch v := p["items"].(type) {
	case []interface{}:
		return v
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	}
	return nil
}

func (r *Router) routeList(ev backend.KeyEvent, wm metadata.WidgetMeta) ([]Action, bool) {
	items := itemsOf(wm.Props)
	if len(items) == 0 {
		return nil, false
	}
	ws := r.widget(wm.ID)
	ws.row = clamp(ws.row, 0, len(items)-1)
	itemHeight := intProp(wm.Props, "itemHeight", 1)
	if itemHeight < 1 {
		itemHeight = 1
	}
	page := intProp(wm.Props, "height", 10) / itemHeight
	if page < 1 {
		page = 1
	}

	prevRow, prevTop := ws.row, ws.top
	switch {
	case matches(ev, r.keys.Down):
		ws.row++
	case matches(ev, r.keys.Up):
		ws.row--
	case matches(ev, r.keys.PageDown):
		ws.row += page
	case matches(ev, r.keys.PageUp):
		ws.row -= page
	case matches(ev, r.keys.Home):
		ws.row = 0
	case matches(ev, r.keys.End):
		ws.row = len(items) - 1
	case matches(ev, r.keys.Activate):
		item := items[ws.row]
		callSelect(wm.Props, item, ws.row)
		return []Action{{ID: wm.ID, Kind: ActionSelect, Value: item, Index: ws.row}}, true
	case matches(ev, r.keys.Toggle):
		if !boolProp(wm.Props, "multiSelect") {
			return nil, false
		}
		set := ws.selectedSet()
		set[ws.row] = !set[ws.row]
		return []Action{{ID: wm.ID, Kind: ActionToggle, Value: set[ws.row], Index: ws.row}}, true
	case matches(ev, r.keys.SelectAll):
		if !boolProp(wm.Props, "multiSelect") {
			return nil, false
		}
		set := ws.selectedSet()
		for i := range items {
			set[i] = true
		}
		return []Action{{ID: wm.ID, Kind: ActionSelect, Value: len(items), Index: -1}}, true
	default:
		return nil, false
	}

	ws.row = clamp(ws.row, 0, len(items)-1)
	// Keep the focused row inside [top, top+page).
	if ws.row < ws.top {
		ws.top = ws.row
	}
	if ws.row >= ws.top+page {
		ws.top = ws.row - page + 1
	}
	ws.top = clamp(ws.top, 0, maxInt(0, len(items)-page))

	if ws.row == prevRow && ws.top == prevTop {
		return nil, true
	}
	if ws.top != prevTop {
		last := minInt(ws.top+page-1, len(items)-1)
		callScroll(wm.Props, ws.top, ws.top, last)
		return []Action{{ID: wm.ID, Kind: ActionScroll, Value: ws.top, Index: ws.row}}, true
	}
	return nil, true
}

func (r *Router) routeWheel(ev backend.MouseEvent, wm metadata.WidgetMeta) []Action {
	if wm.Kind != vnode.KindVirtualList && wm.Kind != vnode.KindTable {
		return nil
	}
	items := itemsOf(wm.Props)
	if len(items) == 0 {
		return nil
	}
	ws := r.widget(wm.ID)
	itemHeight := intProp(wm.Props, "itemHeight", 1)
	if itemHeight < 1 {
		itemHeight = 1
	}
	page := intProp(wm.Props, "height", 10) / itemHeight
	if page < 1 {
		page = 1
	}

	prevTop := ws.top
	ws.top = clamp(ws.top+ev.WheelY*wheelStep, 0, maxInt(0, len(items)-page))
	if ws.top == prevTop {
		return nil
	}
	last := minInt(ws.top+page-1, len(items)-1)
	callScroll(wm.Props, ws.top, ws.top, last)
	return []Action{{ID: wm.ID, Kind: ActionScroll, Value: ws.top, Index: ws.row}}
}

// TreeNode is one node of a tree widget's "nodes" prop. HasChildren marks
// a collapsed node whose children load lazily through "loadChildren".
type TreeNode struct {
	ID          string
	Label       string
	Children    []TreeNode
	HasChildren bool
}

// visibleTree flattens the tree in display order, honoring the expansion
// set and any lazily loaded children cached in ws.loaded.
func visibleTree(nodes []TreeNode, ws *widgetState, depth int, out []treeRow) []treeRow {
	for _, n := range nodes {
		out = append(out, treeRow{node: n, depth: depth})
		if ws.expandedSet()[n.ID] {
			children := n.Children
			if len(children) == 0 && ws.loaded != nil {
				children = ws.loaded[n.ID]
			}
			out = visibleTree(children, ws, depth+1, out)
		}
	}
	return out
}

type treeRow struct {
	node  TreeNode
	depth int
}

func (r *Router) routeTree(ev backend.KeyEvent, wm metadata.WidgetMeta) ([]Action, bool) {
	nodes, _ := wm.Props["nodes"].([]TreeNode)
	if len(nodes) == 0 {
		return nil, false
	}
	ws := r.widget(wm.ID)
	rows := visibleTree(nodes, ws, 0, nil)
	ws.row = clamp(ws.row, 0, len(rows)-1)
	cur := rows[ws.row]

	switch {
	case matches(ev, r.keys.Down):
		ws.row = clamp(ws.row+1, 0, len(rows)-1)
		return nil, true
	case matches(ev, r.keys.Up):
		ws.row = clamp(ws.row-1, 0, len(rows)-1)
		return nil, true
	case matches(ev, r.keys.Right):
		expandable := len(cur.node.Children) > 0 || cur.node.HasChildren
		if expandable && !ws.expandedSet()[cur.node.ID] {
			ws.expandedSet()[cur.node.ID] = true
			if len(cur.node.Children) == 0 && cur.node.HasChildren {
				r.loadTreeChildren(wm, ws, cur.node.ID)
			}
			return []Action{{ID: wm.ID, Kind: ActionExpand, Value: cur.node.ID, Index: ws.row}}, true
		}
		// Already expanded (or a leaf): descend.
		ws.row = clamp(ws.row+1, 0, len(rows)-1)
		return nil, true
	case matches(ev, r.keys.Left):
		if ws.expandedSet()[cur.node.ID] {
			delete(ws.expandedSet(), cur.node.ID)
			return nil, true
		}
		// Ascend to the nearest shallower row above.
		for i := ws.row - 1; i >= 0; i-- {
			if rows[i].depth < cur.depth {
				ws.row = i
				break
			}
		}
		return nil, true
	case matches(ev, r.keys.Activate):
		callSelect(wm.Props, cur.node.ID, ws.row)
		return []Action{{ID: wm.ID, Kind: ActionSelect, Value: cur.node.ID, Index: ws.row}}, true
	}
	return nil, false
}

// loadTreeChildren runs the widget's lazy loader off the dispatch stack.
// The completion re-enters through a generation check: a load finishing
// after the tree unmounted (or its state was pruned) touches nothing and
// invokes no callback.
func (r *Router) loadTreeChildren(wm metadata.WidgetMeta, ws *widgetState, nodeID string) {
	load, ok := wm.Props["loadChildren"].(func(id string) ([]TreeNode, error))
	if !ok || load == nil {
		return
	}
	if ws.loading == nil {
		ws.loading = make(map[string]bool)
	}
	if ws.loading[nodeID] {
		return
	}
	ws.loading[nodeID] = true
	gen := ws.gen
	widgetID := wm.ID

	r.hooks.Go(func() {
		var children []TreeNode
		var err error
		diag.Guard("loadChildren", func() error {
			children, err = load(nodeID)
			return err
		})

		cur, live := r.state[widgetID]
		if !live || cur.gen != gen {
			return
		}
		delete(cur.loading, nodeID)
		if err != nil {
			return
		}
		if cur.loaded == nil {
			cur.loaded = make(map[string][]TreeNode)
		}
		cur.loaded[nodeID] = children
		if r.hooks.Invalidate != nil {
			r.hooks.Invalidate(widgetID)
		}
	})
}

// DropdownItem is one entry of a dropdown's "items" prop.
type DropdownItem struct {
	Label    string
	Disabled bool
	Divider  bool
}

func dropdownItems(p vnode.Props) []DropdownItem {
	switch v := p["items"].(type) {
	case []DropdownItem:
		return v
	case []string:
		out := make([]DropdownItem, len(v))
		for i, s := range v {
			out[i] = DropdownItem{Label: s}
		}
		return out
	}
	return nil
}

func (r *Router) routeDropdown(ev backend.KeyEvent, wm metadata.WidgetMeta) ([]Action, bool) {
	items := dropdownItems(wm.Props)
	selectable := make([]int, 0, len(items))
	for i, it := range items {
		if !it.Divider && !it.Disabled {
			selectable = append(selectable, i)
		}
	}

	if len(selectable) == 0 {
		if matches(ev, r.keys.Dismiss) {
			callVoid(wm.Props, "onClose")
			return []Action{{ID: wm.ID, Kind: ActionDismiss}}, true
		}
		return nil, false
	}

	ws := r.widget(wm.ID)
	pos := indexOfInt(selectable, ws.sel)
	if pos < 0 {
		pos = 0
		ws.sel = selectable[0]
	}

	switch {
	case matches(ev, r.keys.Down):
		ws.sel = selectable[(pos+1)%len(selectable)]
		return nil, true
	case matches(ev, r.keys.Up):
		ws.sel = selectable[(pos-1+len(selectable))%len(selectable)]
		return nil, true
	case matches(ev, r.keys.Activate, r.keys.Toggle):
		item := items[ws.sel]
		callSelect(wm.Props, item.Label, ws.sel)
		callVoid(wm.Props, "onClose")
		return []Action{
			{ID: wm.ID, Kind: ActionSelect, Value: item.Label, Index: ws.sel},
			{ID: wm.ID, Kind: ActionDismiss},
		}, true
	case matches(ev, r.keys.Dismiss):
		callVoid(wm.Props, "onClose")
		return []Action{{ID: wm.ID, Kind: ActionDismiss}}, true
	}
	return nil, false
}

func (r *Router) routeSlider(ev backend.KeyEvent, wm metadata.WidgetMeta) ([]Action, bool) {
	if boolProp(wm.Props, "readOnly") {
		return nil, false
	}
	value := intProp(wm.Props, "value", 0)
	min := intProp(wm.Props, "min", 0)
	max := intProp(wm.Props, "max", 100)
	step := intProp(wm.Props, "step", 1)
	if step < 1 {
		step = 1
	}
	page := intProp(wm.Props, "page", step*10)

	next := value
	switch {
	case matches(ev, r.keys.Right), matches(ev, r.keys.Up):
		next = value + step
	case matches(ev, r.keys.Left), matches(ev, r.keys.Down):
		next = value - step
	case matches(ev, r.keys.PageUp):
		next = value + page
	case matches(ev, r.keys.PageDown):
		next = value - page
	case matches(ev, r.keys.Home):
		next = min
	case matches(ev, r.keys.End):
		next = max
	default:
		return nil, false
	}

	next = clamp(next, min, max)
	if next == value {
		return nil, true
	}
	callChangeInt(wm.Props, next)
	return []Action{{ID: wm.ID, Kind: ActionChange, Value: next}}, true
}

func (r *Router) routeRadio(ev backend.KeyEvent, wm metadata.WidgetMeta) ([]Action, bool) {
	options, _ := wm.Props["options"].([]string)
	if len(options) == 0 {
		return nil, false
	}
	current := stringProp(wm.Props, "value", "")
	idx := indexOf(options, current)

	switch {
	case matches(ev, r.keys.Down), matches(ev, r.keys.Right):
		idx = (idx + 1) % len(options)
	case matches(ev, r.keys.Up), matches(ev, r.keys.Left):
		idx = (idx - 1 + len(options)) % len(options)
	default:
		return nil, false
	}

	next := options[idx]
	if next == current {
		return nil, true
	}
	callChangeString(wm.Props, next)
	return []Action{{ID: wm.ID, Kind: ActionChange, Value: next}}, true
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func indexOfInt(xs []int, x int) int {
	for i, v := range xs {
		if v == x {
			return i
		}
	}
	return -1
}

// Typed callback bridges. Widget props carry plain funcs; the router
// accepts the shapes the widget kinds document and guards every call.

func callSelect(p vnode.Props, item interface{}, idx int) {
	switch fn := p["onSelect"].(type) {
	case func(interface{}, int):
		diag.GuardVoid("onSelect", func() { fn(item, idx) })
	case func(string, int):
		if s, ok := item.(string); ok {
			diag.GuardVoid("onSelect", func() { fn(s, idx) })
		}
	}
}

func callScroll(p vnode.Props, top, first, last int) {
	if fn, ok := p["onScroll"].(func(top, first, last int)); ok && fn != nil {
		diag.GuardVoid("onScroll", func() { fn(top, first, last) })
	}
}

func callChangeInt(p vnode.Props, v int) {
	if fn, ok := p["onChange"].(func(int)); ok && fn != nil {
		diag.GuardVoid("onChange", func() { fn(v) })
	}
}

func callChangeBool(p vnode.Props, v bool) {
	if fn, ok := p["onChange"].(func(bool)); ok && fn != nil {
		diag.GuardVoid("onChange", func() { fn(v) })
	}
}

func callChangeString(p vnode.Props, v string) {
	if fn, ok := p["onChange"].(func(string)); ok && fn != nil {
		diag.GuardVoid("onChange", func() { fn(v) })
	}
}
