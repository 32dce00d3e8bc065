// Package layout computes a per-node (x, y, w, h) box for a committed
// VNode tree against a viewport, the deterministic reference
// implementation the drawlist renderer depends on. The gap/justify
// distribution math below follows the usual flexbox formulation,
// retargeted from joining rendered strings
// to assigning integer cell rectangles.
package layout

import (
	"strings"
	"unicode/utf8"

	"github.com/bubblytree/tuicore/commit"
	"github.com/bubblytree/tuicore/registry"
	"github.com/bubblytree/tuicore/vnode"
)

// Rect is one node's resolved box in viewport cell coordinates.
type Rect struct {
	X, Y, W, H int
}

// Compute assigns every node in root a Rect, honoring flex direction,
// padding, gap, justify and align. It is a pure function of its inputs:
// identical root and viewport always produce identical output.
func Compute(root commit.CommittedNode, cols, rows int) map[registry.InstanceID]Rect {
	out := make(map[registry.InstanceID]Rect)
	assign(root, fitLeaf(root, Rect{X: 0, Y: 0, W: cols, H: rows}), out)
	return out
}

// fitLeaf shrinks rect to n's natural size when n is a leaf (a
// non-composite node with no children), so a leaf placed directly in the
// viewport or in a box keeps its measured size instead of filling it.
func fitLeaf(n commit.CommittedNode, rect Rect) Rect {
	if len(n.Children) == 0 && !n.Node.IsComposite() {
		w, h := measureNatural(n)
		rect.W, rect.H = min(rect.W, w), min(rect.H, h)
	}
	return rect
}

func intProp(p vnode.Props, key string, def int) int {
	if v, ok := p[key]; ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return def
}

func stringProp(p vnode.Props, key, def string) string {
	if v, ok := p[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

func boolProp(p vnode.Props, key string) bool {
	b, _ := p[key].(bool)
	return b
}

// defaultSize gives a leaf widget kind a deterministic fallback size when
// neither a "width" nor "height" prop is supplied.
func defaultSize(kind vnode.Kind, props vnode.Props) (w, h int) {
	switch kind {
	case vnode.KindButton:
		if label, ok := props["label"].(string); ok {
			return len(label) + 4, 1
		}
		return 10, 1
	case vnode.KindLink:
		if label, ok := props["label"].(string); ok {
			return len(label), 1
		}
		return 10, 1
	case vnode.KindCheckbox:
		return 3, 1
	case vnode.KindIcon:
		return 1, 1
	case vnode.KindProgress:
		return 20, 1
	case vnode.KindInput, vnode.KindSlider, vnode.KindSelect, vnode.KindRadioGroup:
		return 20, 1
	case vnode.KindVirtualList, vnode.KindTable, vnode.KindTree, vnode.KindDropdown:
		return 20, 5
	case vnode.KindModal:
		return 40, 10
	case vnode.KindChart, vnode.KindCanvas, vnode.KindImage:
		return 20, 10
	default:
		return 10, 1
	}
}

func measureNatural(n commit.CommittedNode) (w, h int) {
	node := n.Node

	if node.IsComposite() {
		if len(n.Children) > 0 {
			return measureNatural(n.Children[0])
		}
		return 0, 0
	}

	switch node.Kind {
	case vnode.KindText, vnode.KindRichText:
		text, _ := node.Props["value"].(string)
		lines := strings.Split(text, "\n")
		maxW := 0
		for _, l := range lines {
			if w := utf8.RuneCountInString(l); w > maxW {
				maxW = w
			}
		}
		return maxW, len(lines)

	case vnode.KindSpacer:
		if boolProp(node.Props, "flex") {
			return 0, 0
		}
		size := intProp(node.Props, "size", 1)
		return size, size

	case vnode.KindRow:
		gap := intProp(node.Props, "gap", 0)
		totalW, maxH := 0, 0
		for i, c := range n.Children {
			cw, ch := measureNatural(c)
			totalW += cw
			if i > 0 {
				totalW += gap
			}
			if ch > maxH {
				maxH = ch
			}
		}
		pad := intProp(node.Props, "padding", 0)
		return totalW + 2*pad, maxH + 2*pad

	case vnode.KindColumn, vnode.KindFocusZone, vnode.KindFocusTrap, vnode.KindLayer, vnode.KindToastContainer:
		gap := intProp(node.Props, "gap", 0)
		totalH, maxW := 0, 0
		for i, c := range n.Children {
			cw, ch := measureNatural(c)
			totalH += ch
			if i > 0 {
				totalH += gap
			}
			if cw > maxW {
				maxW = cw
			}
		}
		pad := intProp(node.Props, "padding", 0)
		return maxW + 2*pad, totalH + 2*pad

	case vnode.KindBox:
		pad := intProp(node.Props, "padding", 0)
		var cw, ch int
		if len(n.Children) > 0 {
			cw, ch = measureNatural(n.Children[0])
		}
		cw = intProp(node.Props, "width", cw)
		ch = intProp(node.Props, "height", ch)
		return cw + 2*pad, ch + 2*pad

	case vnode.KindLayers:
		maxW, maxH := 0, 0
		for _, c := range n.Children {
			cw, ch := measureNatural(c)
			if cw > maxW {
				maxW = cw
			}
			if ch > maxH {
				maxH = ch
			}
		}
		return maxW, maxH

	default:
		dw, dh := defaultSize(node.Kind, node.Props)
		return intProp(node.Props, "width", dw), intProp(node.Props, "height", dh)
	}
}

func assign(n commit.CommittedNode, rect Rect, out map[registry.InstanceID]Rect) {
	out[n.InstanceID] = rect
	node := n.Node

	if node.IsComposite() {
		if len(n.Children) > 0 {
			assign(n.Children[0], rect, out)
		}
		return
	}

	switch node.Kind {
	case vnode.KindBox:
		pad := intProp(node.Props, "padding", 0)
		inner := shrink(rect, pad)
		if len(n.Children) > 0 {
			assign(n.Children[0], fitLeaf(n.Children[0], inner), out)
		}
	case vnode.KindRow:
		assignRow(n, rect, out)
	case vnode.KindColumn, vnode.KindFocusZone, vnode.KindFocusTrap, vnode.KindLayer, vnode.KindToastContainer:
		assignColumn(n, rect, out)
	case vnode.KindLayers:
		for _, c := range n.Children {
			assign(c, rect, out)
		}
	default:
		for _, c := range n.Children {
			assign(c, rect, out)
		}
	}
}

func shrink(r Rect, pad int) Rect {
	w := r.W - 2*pad
	h := r.H - 2*pad
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return Rect{X: r.X + pad, Y: r.Y + pad, W: w, H: h}
}

func assignRow(n commit.CommittedNode, rect Rect, out map[registry.InstanceID]Rect) {
	pad := intProp(n.Node.Props, "padding", 0)
	inner := shrink(rect, pad)
	gap := intProp(n.Node.Props, "gap", 0)
	justify := stringProp(n.Node.Props, "justify", "start")
	align := stringProp(n.Node.Props, "align", "start")

	children := n.Children
	natW := make([]int, len(children))
	natH := make([]int, len(children))
	totalNatural := 0
	for i, c := range children {
		w, h := measureNatural(c)
		natW[i], natH[i] = w, h
		totalNatural += w
	}

	remaining := inner.W - totalNatural - gap*maxi(0, len(children)-1)
	if remaining < 0 {
		remaining = 0
	}
	gaps, startPad := distribute(len(children), remaining, justify, gap)

	x := inner.X + startPad
	for i, c := range children {
		w := natW[i]
		h := natH[i]
		y := inner.Y
		switch align {
		case "center":
			y = inner.Y + (inner.H-natH[i])/2
		case "end":
			y = inner.Y + (inner.H - natH[i])
		case "stretch":
			h = inner.H
		}
		assign(c, Rect{X: x, Y: y, W: w, H: h}, out)
		x += w
		if i < len(gaps) {
			x += gaps[i]
		}
	}
}

func assignColumn(n commit.CommittedNode, rect Rect, out map[registry.InstanceID]Rect) {
	pad := intProp(n.Node.Props, "padding", 0)
	inner := shrink(rect, pad)
	gap := intProp(n.Node.Props, "gap", 0)
	justify := stringProp(n.Node.Props, "justify", "start")
	align := stringProp(n.Node.Props, "align", "start")

	children := n.Children
	natW := make([]int, len(children))
	natH := make([]int, len(children))
	totalNatural := 0
	for i, c := range children {
		w, h := measureNatural(c)
		natW[i], natH[i] = w, h
		totalNatural += h
	}

	remaining := inner.H - totalNatural - gap*maxi(0, len(children)-1)
	if remaining < 0 {
		remaining = 0
	}
	gaps, startPad := distribute(len(children), remaining, justify, gap)

	y := inner.Y + startPad
	for i, c := range children {
		w := natW[i]
		h := natH[i]
		x := inner.X
		switch align {
		case "center":
			x = inner.X + (inner.W-natW[i])/2
		case "end":
			x = inner.X + (inner.W - natW[i])
		case "stretch":
			w = inner.W
		}
		assign(c, Rect{X: x, Y: y, W: w, H: h}, out)
		y += h
		if i < len(gaps) {
			y += gaps[i]
		}
	}
}

func maxi(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// distribute computes the gap sizes between n siblings and the leading
// offset before the first one, given remaining unclaimed main-axis space
// and a justify mode, as integer cell offsets.
func distribute(n, remaining int, justify string, gap int) (gaps []int, startPad int) {
	if n == 0 {
		return nil, 0
	}
	gaps = make([]int, n-1)
	for i := range gaps {
		gaps[i] = gap
	}

	switch justify {
	case "end":
		return gaps, remaining
	case "center":
		return gaps, remaining / 2
	case "space-between":
		if n <= 1 {
			return gaps, 0
		}
		extra := remaining / (n - 1)
		rem := remaining % (n - 1)
		for i := range gaps {
			gaps[i] += extra
			if i < rem {
				gaps[i]++
			}
		}
		return gaps, 0
	case "space-around":
		unit := remaining / (n * 2)
		if n > 1 {
			inner := remaining - 2*unit
			extra := inner / (n - 1)
			for i := range gaps {
				gaps[i] += extra
			}
		}
		return gaps, unit
	case "space-evenly":
		slots := n + 1
		slotSize := remaining / slots
		rem := remaining % slots
		start := slotSize
		if rem > 0 {
			start++
			rem--
		}
		for i := range gaps {
			gaps[i] += slotSize
			if rem > 0 {
				gaps[i]++
				rem--
			}
		}
		return gaps, start
	default: // start
		return gaps, 0
	}
}
