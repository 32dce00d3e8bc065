// Package render turns one committed VNode tree into a drawlist frame.
// It keeps a shadow framebuffer mirroring the last submitted frame and
// decides per frame between a full repaint and a damage-bounded partial
// update; the tuicore_damage_cell_ratio metric in diag.Metrics records
// the damaged-cell ratio that decision is made from.
package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bubblytree/tuicore/commit"
	"github.com/bubblytree/tuicore/diag"
	"github.com/bubblytree/tuicore/drawlist"
	"github.com/bubblytree/tuicore/inputedit"
	"github.com/bubblytree/tuicore/layout"
	"github.com/bubblytree/tuicore/metadata"
	"github.com/bubblytree/tuicore/registry"
	"github.com/bubblytree/tuicore/vnode"
)

// Mode is the render strategy chosen for one frame.
type Mode int

const (
	// ModeAuto lets Renderer pick Full or Partial from the measured damage
	// ratio against FullRepaintThreshold.
	ModeAuto Mode = iota
	ModeFull
	ModePartial
)

// Options configures a Renderer for the lifetime of one viewport.
type Options struct {
	Cols, Rows int
	Builder    drawlist.Options
	Mode       Mode
	// FullRepaintThreshold is the damaged/total cell ratio above which an
	// auto-mode frame is repainted in full rather than as a damage patch.
	// Zero selects the default of 0.5.
	FullRepaintThreshold float64
}

type cellState struct {
	r          rune
	fg, bg     string
	attrs      uint8
	underline  drawlist.UnderlineStyle
}

// CursorInfo is the resolved cursor placement for one frame, or the zero
// value with Visible false when no input is focused.
type CursorInfo struct {
	Visible  bool
	Row, Col int
}

// Result is one rendered frame.
type Result struct {
	Drawlist drawlist.Result
	Bundle   metadata.Bundle
	Rects    map[registry.InstanceID]layout.Rect
	Mode     Mode
	Cursor   CursorInfo
}

// Renderer holds the shadow framebuffer and builder state across frames.
// It is not safe for concurrent use; the runtime owns exactly one per
// viewport.
type Renderer struct {
	opts      Options
	metrics   *diag.Metrics
	collector *metadata.Collector
	builder   *drawlist.Builder

	shadow    []cellState
	hasShadow bool
}

// New creates a Renderer for a viewport of opts.Cols x opts.Rows cells.
func New(opts Options, metrics *diag.Metrics) *Renderer {
	if opts.FullRepaintThreshold == 0 {
		opts.FullRepaintThreshold = 0.5
	}
	return &Renderer{
		opts:      opts,
		metrics:   metrics,
		collector: metadata.New(metrics),
		builder:   drawlist.New(opts.Builder, metrics),
	}
}

func (r *Renderer) idx(x, y int) int { return y*r.opts.Cols + x }

// Render reconciles frame.Root against the previous frame's shadow
// framebuffer and produces a drawlist. On error the shadow framebuffer is
// left untouched, so a failed frame never corrupts
// the next frame's damage computation.
func (r *Renderer) Render(frame commit.Frame) (Result, error) {
	rects := layout.Compute(frame.Root, r.opts.Cols, r.opts.Rows)
	bundle := r.collector.Collect(frame.Root)

	next := make([]cellState, r.opts.Cols*r.opts.Rows)
	paint(frame.Root, rects, next, r.opts.Cols, r.opts.Rows)

	mode := r.opts.Mode
	damageMinX, damageMinY := r.opts.Cols, r.opts.Rows
	damageMaxX, damageMaxY := -1, -1
	damaged := 0

	if !r.hasShadow {
		mode = ModeFull
		damageMinX, damageMinY, damageMaxX, damageMaxY = 0, 0, r.opts.Cols-1, r.opts.Rows-1
		damaged = len(next)
	} else {
		for y := 0; y < r.opts.Rows; y++ {
			for x := 0; x < r.opts.Cols; x++ {
				i := r.idx(x, y)
				if next[i] != r.shadow[i] {
					damaged++
					if x < damageMinX {
						damageMinX = x
					}
					if y < damageMinY {
						damageMinY = y
					}
					if x > damageMaxX {
						damageMaxX = x
					}
					if y > damageMaxY {
						damageMaxY = y
					}
				}
			}
		}
		if mode == ModeAuto {
			ratio := float64(damaged) / float64(len(next))
			if ratio > r.opts.FullRepaintThreshold {
				mode = ModeFull
			} else {
				mode = ModePartial
			}
		}
	}

	r.metrics.ObserveDamageRatio(damaged, len(next))

	r.builder.Reset()

	if damaged > 0 {
		switch mode {
		case ModeFull:
			r.builder.ClearTo(r.opts.Cols, r.opts.Rows, nil)
			paintRuns(r.builder, next, 0, 0, r.opts.Cols-1, r.opts.Rows-1, r.opts.Cols)
		default: // ModePartial
			w := damageMaxX - damageMinX + 1
			h := damageMaxY - damageMinY + 1
			r.builder.PushClip(damageMinX, damageMinY, w, h)
			r.builder.FillRect(damageMinX, damageMinY, w, h, nil)
			paintRuns(r.builder, next, damageMinX, damageMinY, damageMaxX, damageMaxY, r.opts.Cols)
			r.builder.PopClip()
		}
	}

	idIndex := make(map[string]registry.InstanceID)
	indexIDs(frame.Root, idIndex)
	cursor := resolveCursor(bundle, rects, idIndex)
	if cursor.Visible && r.opts.Builder.Version >= 2 {
		r.builder.SetCursor(drawlist.CursorState{Row: cursor.Row, Col: cursor.Col})
	} else if r.opts.Builder.Version >= 2 {
		r.builder.HideCursor()
	}

	built, err := r.builder.Build()
	if err != nil {
		return Result{}, err
	}

	r.shadow = next
	r.hasShadow = true

	return Result{
		Drawlist: built,
		Bundle:   bundle,
		Rects:    rects,
		Mode:     mode,
		Cursor:   cursor,
	}, nil
}

// resolveCursor finds the single focused input, if any, and maps its
// "cursor" prop (a UTF-16 offset into its value) to the viewport column
// of the grapheme cluster it sits on.
func resolveCursor(bundle metadata.Bundle, rects map[registry.InstanceID]layout.Rect, idIndex map[string]registry.InstanceID) CursorInfo {
	for _, meta := range bundle.InputMeta {
		focused, _ := meta.Props["focused"].(bool)
		if !focused {
			continue
		}
		offset := 0
		if v, ok := meta.Props["cursor"].(int); ok {
			offset = v
		}
		value, _ := meta.Props["value"].(string)
		instID, ok := idIndex[meta.ID]
		if !ok {
			continue
		}
		rect, ok := rects[instID]
		if !ok {
			continue
		}
		return CursorInfo{Visible: true, Row: rect.Y, Col: rect.X + inputedit.VisualCol(value, offset)}
	}
	return CursorInfo{}
}

// indexIDs records every node's widget-level string id against its
// runtime InstanceID, so cursor placement can join metadata's id-keyed
// InputMeta back onto layout's InstanceID-keyed rects.
func indexIDs(n commit.CommittedNode, out map[string]registry.InstanceID) {
	if id, ok := n.Node.ID(); ok {
		out[id] = n.InstanceID
	}
	for _, c := range n.Children {
		indexIDs(c, out)
	}
}

func paint(n commit.CommittedNode, rects map[registry.InstanceID]layout.Rect, grid []cellState, cols, rows int) {
	node := n.Node
	if node.IsComposite() {
		for _, c := range n.Children {
			paint(c, rects, grid, cols, rows)
		}
		return
	}

	rect := rects[n.InstanceID]

	switch node.Kind {
	case vnode.KindBox:
		if bg, ok := node.Props["background"].(string); ok {
			fillRect(grid, rect, cols, rows, "", bg, 0, drawlist.UnderlineNone)
		}
	case vnode.KindText, vnode.KindRichText:
		text, _ := node.Props["value"].(string)
		fg, _ := node.Props["color"].(string)
		bg, _ := node.Props["background"].(string)
		var attrs uint8
		if b, _ := node.Props["bold"].(bool); b {
			attrs |= drawlist.AttrBold
		}
		for i, line := range strings.Split(text, "\n") {
			writeRow(grid, rect.X, rect.Y+i, line, cols, rows, fg, bg, attrs, drawlist.UnderlineNone)
		}
	default:
		if label, ok := node.Props["label"].(string); ok && len(n.Children) == 0 {
			fg, _ := node.Props["color"].(string)
			writeRow(grid, rect.X, rect.Y, label, cols, rows, fg, "", 0, drawlist.UnderlineNone)
		}
	}

	for _, c := range n.Children {
		paint(c, rects, grid, cols, rows)
	}
}

func fillRect(grid []cellState, rect layout.Rect, cols, rows int, fg, bg string, attrs uint8, ul drawlist.UnderlineStyle) {
	for y := rect.Y; y < rect.Y+rect.H && y < rows; y++ {
		if y < 0 {
			continue
		}
		for x := rect.X; x < rect.X+rect.W && x < cols; x++ {
			if x < 0 {
				continue
			}
			grid[y*cols+x] = cellState{r: ' ', fg: fg, bg: bg, attrs: attrs, underline: ul}
		}
	}
}

func writeRow(grid []cellState, x, y int, text string, cols, rows int, fg, bg string, attrs uint8, ul drawlist.UnderlineStyle) {
	if y < 0 || y >= rows {
		return
	}
	for _, ch := range text {
		if x < 0 || x >= cols {
			x++
			continue
		}
		grid[y*cols+x] = cellState{r: ch, fg: fg, bg: bg, attrs: attrs, underline: ul}
		x++
	}
}

// paintRuns emits the text for each maximal horizontal run of non-empty
// cells within [minX,maxX] x [minY,maxY]. The run's styled segments are
// packed into one text-run blob and emitted as a single DrawTextRun;
// when the builder declines the blob, one DrawText per segment is
// emitted instead.
func paintRuns(b *drawlist.Builder, grid []cellState, minX, minY, maxX, maxY, cols int) {
	for y := minY; y <= maxY; y++ {
		x := minX
		for x <= maxX {
			if grid[y*cols+x].r == 0 {
				x++
				continue
			}
			runStart := x
			var segs []drawlist.TextRunSegment
			for x <= maxX && grid[y*cols+x].r != 0 {
				c := grid[y*cols+x]
				var sb strings.Builder
				for x <= maxX && grid[y*cols+x].r != 0 && sameStyle(grid[y*cols+x], c) {
					sb.WriteRune(grid[y*cols+x].r)
					x++
				}
				segs = append(segs, drawlist.TextRunSegment{Text: sb.String(), Style: styleOf(c)})
			}
			if idx, ok := b.AddTextRunBlob(segs); ok {
				b.DrawTextRun(runStart, y, idx)
				continue
			}
			segX := runStart
			for _, seg := range segs {
				b.DrawText(segX, y, seg.Text, seg.Style)
				segX += len([]rune(seg.Text))
			}
		}
	}
}

func sameStyle(a, b cellState) bool {
	return a.fg == b.fg && a.bg == b.bg && a.attrs == b.attrs && a.underline == b.underline
}

func styleOf(c cellState) *drawlist.Style {
	if c.fg == "" && c.bg == "" && c.attrs == 0 && c.underline == drawlist.UnderlineNone {
		return nil
	}
	return &drawlist.Style{
		Foreground: lipgloss.Color(c.fg),
		Background: lipgloss.Color(c.bg),
		Attrs:      c.attrs,
		Underline:  c.underline,
	}
}
