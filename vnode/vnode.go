// Package vnode defines the immutable virtual-node tree that a view
// function produces each frame. It is the input to reconciliation and
// carries no runtime identity of its own; that is the job of the
// instance registry.
package vnode

// Kind is the closed tag of a VNode. Dispatch over Kind is by switch, not
// by interface method sets; new kinds are never added by consumers of this
// package.
type Kind string

const (
	// Structural kinds.
	KindRow    Kind = "row"
	KindColumn Kind = "column"
	KindBox    Kind = "box"
	KindSpacer Kind = "spacer"
	KindLayers Kind = "layers"

	// Textual kinds.
	KindText     Kind = "text"
	KindRichText Kind = "richText"

	// Interactive kinds.
	KindButton     Kind = "button"
	KindInput      Kind = "input"
	KindSlider     Kind = "slider"
	KindSelect     Kind = "select"
	KindCheckbox   Kind = "checkbox"
	KindRadioGroup Kind = "radioGroup"
	KindLink       Kind = "link"

	// Collection kinds.
	KindVirtualList Kind = "virtualList"
	KindTable       Kind = "table"
	KindTree        Kind = "tree"

	// Modal kinds.
	KindModal         Kind = "modal"
	KindDropdown      Kind = "dropdown"
	KindLayer         Kind = "layer"
	KindToastContainer Kind = "toastContainer"

	// Focus kinds.
	KindFocusZone Kind = "focusZone"
	KindFocusTrap Kind = "focusTrap"

	// Ornamental kinds.
	KindIcon     Kind = "icon"
	KindChart    Kind = "chart"
	KindProgress Kind = "progress"
	KindCanvas   Kind = "canvas"
	KindImage    Kind = "image"
)

// structuralKinds, interactiveKinds etc. are not exposed; routing-affecting
// membership is expressed directly by RequiresRouting below since that is
// the only cross-cutting question the rest of the module asks about kinds.

// routingKinds is the set of kinds whose presence in a tree requires the
// metadata collector and event router to engage.
var routingKinds = map[Kind]bool{
	KindButton:      true,
	KindInput:       true,
	KindSlider:      true,
	KindSelect:      true,
	KindCheckbox:    true,
	KindRadioGroup:  true,
	KindLink:        true,
	KindVirtualList: true,
	KindTable:       true,
	KindTree:        true,
	KindModal:       true,
	KindDropdown:    true,
	KindToastContainer: true,
	KindFocusZone:   true,
	KindFocusTrap:   true,
}

// RequiresRouting reports whether kind is one of the kinds that forces the
// renderer to run the metadata collector and keep the router engaged.
func RequiresRouting(kind Kind) bool {
	return routingKinds[kind]
}

// validKinds backs Validate; it is the closed kind set.
var validKinds = map[Kind]bool{
	KindRow: true, KindColumn: true, KindBox: true, KindSpacer: true, KindLayers: true,
	KindText: true, KindRichText: true,
	KindButton: true, KindInput: true, KindSlider: true, KindSelect: true,
	KindCheckbox: true, KindRadioGroup: true, KindLink: true,
	KindVirtualList: true, KindTable: true, KindTree: true,
	KindModal: true, KindDropdown: true, KindLayer: true, KindToastContainer: true,
	KindFocusZone: true, KindFocusTrap: true,
	KindIcon: true, KindChart: true, KindProgress: true, KindCanvas: true, KindImage: true,
}

// Props is an opaque per-widget property record. Widgets interpret their
// own keys; the core only ever reads the handful of keys it needs
// (Disabled, Open, ID, Key) via the typed accessors below.
type Props map[string]interface{}

// CompositeKey identifies a user-defined component instance. Two VNodes
// with differing composite keys are never reconciliation-compatible even
// if they share a Kind.
type CompositeKey string

// Node is an immutable virtual node produced by a view function.
type Node struct {
	Kind     Kind
	Props    Props
	Children []Node
	Key      string // reconciliation key; empty means unkeyed.

	// Composite is non-empty when this node is a user-defined component
	// instance; it participates in reconciliation compatibility checks.
	Composite CompositeKey
}

// HasKey reports whether n carries an explicit reconciliation key.
func (n Node) HasKey() bool {
	return n.Key != ""
}

// IsComposite reports whether n is a composite-widget marker node.
func (n Node) IsComposite() bool {
	return n.Composite != ""
}

// ID returns the widget's string id prop, if any. Most interactive,
// focusable, and zone/trap kinds carry one under the "id" key.
func (n Node) ID() (string, bool) {
	v, ok := n.Props["id"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Disabled reports the collector's enabled rule: a widget is disabled
// only when its "disabled" prop is exactly the boolean true.
func (n Node) Disabled() bool {
	v, ok := n.Props["disabled"]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// Open reports the "open" prop used by modal widgets' enabled rule.
func (n Node) Open() bool {
	v, ok := n.Props["open"]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}
