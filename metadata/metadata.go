// Package metadata implements the widget metadata collector: a single
// depth-first preorder walk of a committed tree that produces the
// focusable-id order, the enabled/pressable/input-meta maps, and the
// zone/trap attribution the router needs. Its pooling discipline mirrors
// the drawlist builder's reset/reuse idiom: working maps persist across
// frames, only the returned bundle is freshly frozen.
package metadata

import (
	"github.com/bubblytree/tuicore/commit"
	"github.com/bubblytree/tuicore/diag"
	"github.com/bubblytree/tuicore/vnode"
)

// focusableKinds is the closed set of kinds that can ever appear in
// FocusableIDs, a zone's or trap's local list.
var focusableKinds = map[vnode.Kind]bool{
	vnode.KindButton:      true,
	vnode.KindInput:       true,
	vnode.KindSlider:      true,
	vnode.KindSelect:      true,
	vnode.KindCheckbox:    true,
	vnode.KindRadioGroup:  true,
	vnode.KindLink:        true,
	vnode.KindVirtualList: true,
	vnode.KindTable:       true,
	vnode.KindTree:        true,
	vnode.KindDropdown:    true,
}

// interactiveKinds is the superset the enabled map is computed over: every
// focusable kind, plus modal widgets, which are interactive but are never
// themselves a Tab target.
var interactiveKinds = map[vnode.Kind]bool{
	vnode.KindModal: true,
}

func init() {
	for k := range focusableKinds {
		interactiveKinds[k] = true
	}
}

// InputMeta is the per-input snapshot the router's input editor consumes:
// the widget's id and its raw props, so the router can read value/cursor/
// selection/multiline without this package knowing their shape.
type InputMeta struct {
	ID    string
	Props vnode.Props
}

// WidgetMeta is the generic per-widget snapshot recorded for every
// interactive kind carrying an id. The router dispatches on Kind and reads
// widget-specific props (items, step, onSelect, ...) without this package
// knowing their shape.
type WidgetMeta struct {
	ID    string
	Kind  vnode.Kind
	Props vnode.Props
}

// ZoneInfo is one focusZone's direct focusable ids (not the ids of any
// zone or trap nested inside it), plus the zone node's own props, so the
// router can read "navigation"/"columns"/"wrapAround" without this package
// knowing their shape.
type ZoneInfo struct {
	ID           string
	FocusableIDs []string
	Props        vnode.Props
}

// TrapInfo is one focusTrap's direct focusable ids, by the same
// innermost-container attribution rule as ZoneInfo.
type TrapInfo struct {
	ID           string
	FocusableIDs []string
	Props        vnode.Props
}

// Bundle is the collector's frozen per-frame output.
type Bundle struct {
	FocusableIDs      []string
	Enabled           map[string]bool
	Pressable         map[string]bool
	InputMeta         map[string]InputMeta
	Widgets           map[string]WidgetMeta
	Zones             map[string]ZoneInfo
	Traps             map[string]TrapInfo
	HasRoutingWidgets bool
}

type containerKind int

const (
	containerZone containerKind = iota
	containerTrap
)

type openContainer struct {
	kind      containerKind
	id        string
	props     vnode.Props
	focusable []string
}

// Collector holds the pooled working state: its maps, sets and arrays
// persist across calls to Collect and are cleared, not reallocated, at
// the start of each pass.
type Collector struct {
	focusable []string
	enabled   map[string]bool
	pressable map[string]bool
	inputMeta map[string]InputMeta
	widgets   map[string]WidgetMeta
	zones     map[string]ZoneInfo
	traps     map[string]TrapInfo
	stack     []*openContainer

	hasRouting bool
	metrics    *diag.Metrics
}

// New creates a Collector. metrics may be nil.
func New(metrics *diag.Metrics) *Collector {
	return &Collector{
		enabled:   make(map[string]bool),
		pressable: make(map[string]bool),
		inputMeta: make(map[string]InputMeta),
		widgets:   make(map[string]WidgetMeta),
		zones:     make(map[string]ZoneInfo),
		traps:     make(map[string]TrapInfo),
		metrics:   metrics,
	}
}

// Collect runs one depth-first preorder pass over root and returns a fresh,
// independently owned Bundle. The collector's own pooled state is reused
// on the next call; only the returned bundle is safe to retain.
func (c *Collector) Collect(root commit.CommittedNode) Bundle {
	c.focusable = c.focusable[:0]
	for k := range c.enabled {
		delete(c.enabled, k)
	}
	for k := range c.pressable {
		delete(c.pressable, k)
	}
	for k := range c.inputMeta {
		delete(c.inputMeta, k)
	}
	for k := range c.widgets {
		delete(c.widgets, k)
	}
	for k := range c.zones {
		delete(c.zones, k)
	}
	for k := range c.traps {
		delete(c.traps, k)
	}
	c.stack = c.stack[:0]
	c.hasRouting = false

	c.walk(root)

	c.metrics.ObserveMetadataPass()

	return Bundle{
		FocusableIDs:      append([]string(nil), c.focusable...),
		Enabled:           copyBoolMap(c.enabled),
		Pressable:         copyBoolMap(c.pressable),
		InputMeta:         copyInputMetaMap(c.inputMeta),
		Widgets:           copyWidgetMap(c.widgets),
		Zones:             copyZoneMap(c.zones),
		Traps:             copyTrapMap(c.traps),
		HasRoutingWidgets: c.hasRouting,
	}
}

func (c *Collector) walk(n commit.CommittedNode) {
	node := n.Node

	// Composite wrapper nodes carry no semantic kind of their own; their
	// single child is the tree that actually matters.
	if node.IsComposite() {
		for _, child := range n.Children {
			c.walk(child)
		}
		return
	}

	if vnode.RequiresRouting(node.Kind) {
		c.hasRouting = true
	}

	id, hasID := node.ID()
	isOpener := node.Kind == vnode.KindFocusZone || node.Kind == vnode.KindFocusTrap

	if isOpener && hasID {
		kind := containerZone
		if node.Kind == vnode.KindFocusTrap {
			kind = containerTrap
		}
		c.stack = append(c.stack, &openContainer{kind: kind, id: id, props: node.Props})
	}

	if hasID && interactiveKinds[node.Kind] {
		enabled := c.isEnabled(node)
		c.enabled[id] = enabled

		if node.Kind == vnode.KindButton && enabled {
			c.pressable[id] = true
		}
		if node.Kind == vnode.KindInput {
			c.inputMeta[id] = InputMeta{ID: id, Props: node.Props}
		}
		c.widgets[id] = WidgetMeta{ID: id, Kind: node.Kind, Props: node.Props}

		if focusableKinds[node.Kind] && enabled {
			c.focusable = append(c.focusable, id)
			if len(c.stack) > 0 {
				top := c.stack[len(c.stack)-1]
				top.focusable = append(top.focusable, id)
			}
		}
	}

	for _, child := range n.Children {
		c.walk(child)
	}

	if isOpener && hasID {
		top := c.stack[len(c.stack)-1]
		c.stack = c.stack[:len(c.stack)-1]
		ids := append([]string(nil), top.focusable...)
		if top.kind == containerZone {
			c.zones[top.id] = ZoneInfo{ID: top.id, FocusableIDs: ids, Props: top.props}
		} else {
			c.traps[top.id] = TrapInfo{ID: top.id, FocusableIDs: ids, Props: top.props}
		}
	}
}

// isEnabled: a widget is enabled unless its disabled prop is exactly
// true; modal widgets additionally require open to be exactly true.
func (c *Collector) isEnabled(node vnode.Node) bool {
	if node.Disabled() {
		return false
	}
	if node.Kind == vnode.KindModal {
		return node.Open()
	}
	return true
}

func copyBoolMap(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyInputMetaMap(m map[string]InputMeta) map[string]InputMeta {
	out := make(map[string]InputMeta, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyWidgetMap(m map[string]WidgetMeta) map[string]WidgetMeta {
	out := make(map[string]WidgetMeta, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyZoneMap(m map[string]ZoneInfo) map[string]ZoneInfo {
	out := make(map[string]ZoneInfo, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyTrapMap(m map[string]TrapInfo) map[string]TrapInfo {
	out := make(map[string]TrapInfo, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
