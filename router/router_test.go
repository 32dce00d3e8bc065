package router_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bubblytree/tuicore/backend"
	"github.com/bubblytree/tuicore/commit"
	"github.com/bubblytree/tuicore/metadata"
	"github.com/bubblytree/tuicore/router"
	"github.com/bubblytree/tuicore/vnode"
)

func leaf(kind vnode.Kind, props vnode.Props) commit.CommittedNode {
	return commit.CommittedNode{Node: vnode.Node{Kind: kind, Props: props}}
}

func withChildren(kind vnode.Kind, props vnode.Props, children ...commit.CommittedNode) commit.CommittedNode {
	return commit.CommittedNode{Node: vnode.Node{Kind: kind, Props: props}, Children: children}
}

func collect(t *testing.T, root commit.CommittedNode) metadata.Bundle {
	t.Helper()
	return metadata.New(nil).Collect(root)
}

func keyEv(name string, mods backend.Mod) backend.KeyEvent {
	return backend.KeyEvent{Key: name, Mods: mods}
}

type captureRaw struct {
	writes [][]byte
}

func (c *captureRaw) RawWrite(p []byte) { c.writes = append(c.writes, append([]byte(nil), p...)) }

func inlineHooks(raw backend.RawWriter) router.Hooks {
	return router.Hooks{Raw: raw, Go: func(fn func()) { fn() }}
}

func TestTabTabEnterPressesSecondButton(t *testing.T) {
	var pressed []string
	bundle := collect(t, withChildren(vnode.KindRow, nil,
		leaf(vnode.KindButton, vnode.Props{"id": "a", "onPress": func() { pressed = append(pressed, "a") }}),
		leaf(vnode.KindButton, vnode.Props{"id": "b", "onPress": func() { pressed = append(pressed, "b") }}),
	))

	r := router.New(inlineHooks(nil))
	r.Dispatch(keyEv("tab", 0), bundle)
	assert.Equal(t, "a", r.Focused())
	r.Dispatch(keyEv("tab", 0), bundle)
	assert.Equal(t, "b", r.Focused())

	acts := r.Dispatch(keyEv("enter", 0), bundle)
	require.Len(t, acts, 1)
	assert.Equal(t, router.Action{ID: "b", Kind: router.ActionPress}, acts[0])
	assert.Equal(t, []string{"b"}, pressed)
}

func TestCutExportsSelectionOverOSC52(t *testing.T) {
	bundle := collect(t, leaf(vnode.KindInput, vnode.Props{"id": "q", "value": "hello world"}))
	raw := &captureRaw{}
	r := router.New(inlineHooks(raw))

	r.Dispatch(keyEv("tab", 0), bundle)
	require.Equal(t, "q", r.Focused())

	r.Dispatch(keyEv("left", backend.ModCtrl|backend.ModShift), bundle)
	acts := r.Dispatch(keyEv("x", backend.ModCtrl), bundle)

	require.Len(t, acts, 1)
	assert.Equal(t, router.ActionInput, acts[0].Kind)
	assert.Equal(t, "hello ", acts[0].Value)

	st, ok := r.InputCursor("q")
	require.True(t, ok)
	assert.Equal(t, "hello ", st.Value)
	assert.Equal(t, 6, st.Cursor)

	require.Len(t, raw.writes, 1)
	wantB64 := base64.StdEncoding.EncodeToString([]byte("world"))
	assert.Contains(t, string(raw.writes[0]), wantB64)
}

func TestVirtualListDownEnterSelectsSecondItem(t *testing.T) {
	var gotItem string
	var gotIdx int
	bundle := collect(t, leaf(vnode.KindVirtualList, vnode.Props{
		"id": "v", "items": []string{"a", "b", "c"}, "itemHeight": 1, "height": 3,
		"onSelect": func(item string, idx int) { gotItem, gotIdx = item, idx },
	}))

	r := router.New(inlineHooks(nil))
	r.Dispatch(keyEv("tab", 0), bundle)
	r.Dispatch(keyEv("down", 0), bundle)
	acts := r.Dispatch(keyEv("enter", 0), bundle)

	require.Len(t, acts, 1)
	assert.Equal(t, router.Action{ID: "v", Kind: router.ActionSelect, Value: "b", Index: 1}, acts[0])
	assert.Equal(t, "b", gotItem)
	assert.Equal(t, 1, gotIdx)
}

func TestToastActionsCycleAndFireOnce(t *testing.T) {
	count := 0
	bundle := collect(t, withChildren(vnode.KindToastContainer, vnode.Props{"id": "toasts"},
		leaf(vnode.KindButton, vnode.Props{"id": "retry", "onPress": func() { count++ }}),
		leaf(vnode.KindButton, vnode.Props{"id": "dismiss"}),
	))

	r := router.New(inlineHooks(nil))
	r.Dispatch(keyEv("tab", 0), bundle)
	assert.Equal(t, "retry", r.Focused())
	r.Dispatch(keyEv("tab", 0), bundle)
	assert.Equal(t, "dismiss", r.Focused())
	r.Dispatch(keyEv("tab", 0), bundle)
	assert.Equal(t, "retry", r.Focused(), "tab wraps")

	acts := r.Dispatch(keyEv("enter", 0), bundle)
	require.Len(t, acts, 1)
	assert.Equal(t, 1, count)
}

func TestZoneArrowNavigationAndMemory(t *testing.T) {
	var entered, exited int
	zone := withChildren(vnode.KindFocusZone, vnode.Props{
		"id": "z", "navigation": "linear",
		"onEnter": func() { entered++ }, "onExit": func() { exited++ },
	},
		leaf(vnode.KindButton, vnode.Props{"id": "z1"}),
		leaf(vnode.KindButton, vnode.Props{"id": "z2"}),
	)
	bundle := collect(t, withChildren(vnode.KindColumn, nil,
		zone,
		leaf(vnode.KindButton, vnode.Props{"id": "out"}),
	))

	r := router.New(inlineHooks(nil))
	r.Dispatch(keyEv("tab", 0), bundle)
	assert.Equal(t, "z1", r.Focused())
	assert.Equal(t, 1, entered)

	r.Dispatch(keyEv("down", 0), bundle)
	assert.Equal(t, "z2", r.Focused())
	assert.Equal(t, 1, entered, "moves within the zone do not re-enter")

	r.Dispatch(keyEv("tab", 0), bundle)
	assert.Equal(t, "out", r.Focused())
	assert.Equal(t, 1, exited)

	r.Dispatch(keyEv("shift+tab", 0), bundle)
	assert.Equal(t, "z2", r.Focused(), "returning restores the zone's last focused id")
	assert.Equal(t, 2, entered)
}

func TestGridZoneArrowsStepByColumns(t *testing.T) {
	zone := withChildren(vnode.KindFocusZone, vnode.Props{"id": "g", "navigation": "grid", "columns": 2},
		leaf(vnode.KindButton, vnode.Props{"id": "c0"}),
		leaf(vnode.KindButton, vnode.Props{"id": "c1"}),
		leaf(vnode.KindButton, vnode.Props{"id": "c2"}),
		leaf(vnode.KindButton, vnode.Props{"id": "c3"}),
	)
	bundle := collect(t, zone)

	r := router.New(inlineHooks(nil))
	r.Dispatch(keyEv("tab", 0), bundle)
	assert.Equal(t, "c0", r.Focused())
	r.Dispatch(keyEv("down", 0), bundle)
	assert.Equal(t, "c2", r.Focused())
	r.Dispatch(keyEv("right", 0), bundle)
	assert.Equal(t, "c3", r.Focused())
	r.Dispatch(keyEv("up", 0), bundle)
	assert.Equal(t, "c1", r.Focused())
	r.Dispatch(keyEv("up", 0), bundle)
	assert.Equal(t, "c1", r.Focused(), "no wrap unless configured")
}

func TestFocusTrapPinsTabAndRestoresOnDeactivation(t *testing.T) {
	trapOn := func(active bool) metadata.Bundle {
		return collect(t, withChildren(vnode.KindColumn, nil,
			leaf(vnode.KindButton, vnode.Props{"id": "outside"}),
			withChildren(vnode.KindFocusTrap, vnode.Props{"id": "dlg", "active": active},
				leaf(vnode.KindButton, vnode.Props{"id": "ok"}),
				leaf(vnode.KindButton, vnode.Props{"id": "cancel"}),
			),
		))
	}

	r := router.New(inlineHooks(nil))
	off := trapOn(false)
	r.Dispatch(keyEv("tab", 0), off)
	require.Equal(t, "outside", r.Focused())

	on := trapOn(true)
	r.Dispatch(keyEv("tab", 0), on)
	assert.Equal(t, "cancel", r.Focused(), "trap captured focus at ok, then tab advanced")
	r.Dispatch(keyEv("tab", 0), on)
	assert.Equal(t, "ok", r.Focused(), "tab wraps within the trap")

	r.Dispatch(keyEv("f1", 0), trapOn(false))
	assert.Equal(t, "outside", r.Focused(), "deactivation restores the focus held before activation")
}

func TestRouterIdempotenceAtBoundary(t *testing.T) {
	bundle := collect(t, leaf(vnode.KindVirtualList, vnode.Props{
		"id": "v", "items": []string{"a", "b"}, "height": 2,
	}))
	r := router.New(inlineHooks(nil))
	r.Dispatch(keyEv("tab", 0), bundle)
	r.Dispatch(keyEv("up", 0), bundle)

	first := r.Dispatch(keyEv("up", 0), bundle)
	second := r.Dispatch(keyEv("up", 0), bundle)
	assert.Empty(t, first)
	assert.Empty(t, second)
}

func TestSliderArrowsClampAndStep(t *testing.T) {
	var got int
	mk := func(value int) metadata.Bundle {
		return collect(t, leaf(vnode.KindSlider, vnode.Props{
			"id": "s", "value": value, "min": 0, "max": 10, "step": 2,
			"onChange": func(v int) { got = v },
		}))
	}

	r := router.New(inlineHooks(nil))
	r.Dispatch(keyEv("tab", 0), mk(8))
	acts := r.Dispatch(keyEv("right", 0), mk(8))
	require.Len(t, acts, 1)
	assert.Equal(t, 10, acts[0].Value)
	assert.Equal(t, 10, got)

	acts = r.Dispatch(keyEv("right", 0), mk(10))
	assert.Empty(t, acts, "clamped at max yields no action")

	acts = r.Dispatch(keyEv("home", 0), mk(10))
	require.Len(t, acts, 1)
	assert.Equal(t, 0, acts[0].Value)
}

func TestDropdownSkipsDividersAndDisabled(t *testing.T) {
	closed := false
	bundle := collect(t, leaf(vnode.KindDropdown, vnode.Props{
		"id": "d", "open": true,
		"items": []router.DropdownItem{
			{Label: "copy"},
			{Divider: true},
			{Label: "paste", Disabled: true},
			{Label: "delete"},
		},
		"onClose": func() { closed = true },
	}))

	r := router.New(inlineHooks(nil))
	r.Dispatch(keyEv("tab", 0), bundle)
	r.Dispatch(keyEv("down", 0), bundle)
	acts := r.Dispatch(keyEv("enter", 0), bundle)

	require.Len(t, acts, 2)
	assert.Equal(t, "delete", acts[0].Value)
	assert.Equal(t, 3, acts[0].Index)
	assert.Equal(t, router.ActionDismiss, acts[1].Kind)
	assert.True(t, closed)
}

func TestDropdownWithNoSelectableRoutesOnlyEscape(t *testing.T) {
	bundle := collect(t, leaf(vnode.KindDropdown, vnode.Props{
		"id": "d", "open": true,
		"items": []router.DropdownItem{{Divider: true}, {Label: "x", Disabled: true}},
	}))

	r := router.New(inlineHooks(nil))
	r.Dispatch(keyEv("tab", 0), bundle)
	assert.Empty(t, r.Dispatch(keyEv("enter", 0), bundle))
	acts := r.Dispatch(keyEv("esc", 0), bundle)
	require.Len(t, acts, 1)
	assert.Equal(t, router.ActionDismiss, acts[0].Kind)
}

func TestTreeExpandCollapseAndLazyLoad(t *testing.T) {
	invalidated := []string{}
	loaded := []string{}
	nodes := []router.TreeNode{
		{ID: "root", Label: "root", HasChildren: true},
		{ID: "leafy", Label: "leafy"},
	}
	load := func(id string) ([]router.TreeNode, error) {
		loaded = append(loaded, id)
		return []router.TreeNode{{ID: "child", Label: "child"}}, nil
	}
	bundle := collect(t, leaf(vnode.KindTree, vnode.Props{
		"id": "t", "nodes": nodes, "loadChildren": load,
	}))

	hooks := inlineHooks(nil)
	hooks.Invalidate = func(id string) { invalidated = append(invalidated, id) }
	r := router.New(hooks)

	r.Dispatch(keyEv("tab", 0), bundle)
	acts := r.Dispatch(keyEv("right", 0), bundle)
	require.Len(t, acts, 1)
	assert.Equal(t, router.ActionExpand, acts[0].Kind)
	assert.Equal(t, []string{"root"}, loaded)
	assert.Equal(t, []string{"t"}, invalidated)

	// The loaded child is now visible; down reaches it.
	r.Dispatch(keyEv("down", 0), bundle)
	acts = r.Dispatch(keyEv("enter", 0), bundle)
	require.Len(t, acts, 1)
	assert.Equal(t, "child", acts[0].Value)

	// Left on the child ascends; left on the expanded root collapses.
	r.Dispatch(keyEv("left", 0), bundle)
	acts = r.Dispatch(keyEv("enter", 0), bundle)
	assert.Equal(t, "root", acts[0].Value)
	r.Dispatch(keyEv("left", 0), bundle)
	acts = r.Dispatch(keyEv("down", 0), bundle)
	assert.Empty(t, acts)
	acts = r.Dispatch(keyEv("enter", 0), bundle)
	assert.Equal(t, "leafy", acts[0].Value, "collapse hid the child row")
}

func TestTreeLoadAfterPruneInvokesNothing(t *testing.T) {
	invalidated := 0
	var completion func()
	nodes := []router.TreeNode{{ID: "n", Label: "n", HasChildren: true}}
	load := func(string) ([]router.TreeNode, error) {
		return []router.TreeNode{{ID: "c", Label: "c"}}, nil
	}
	withTree := collect(t, leaf(vnode.KindTree, vnode.Props{"id": "t", "nodes": nodes, "loadChildren": load}))
	withoutTree := collect(t, leaf(vnode.KindBox, nil))

	hooks := router.Hooks{
		Invalidate: func(string) { invalidated++ },
		Go:         func(fn func()) { completion = fn },
	}
	r := router.New(hooks)
	r.Dispatch(keyEv("tab", 0), withTree)
	r.Dispatch(keyEv("right", 0), withTree)
	require.NotNil(t, completion, "load scheduled but not yet run")

	// The tree unmounts before the load completes.
	r.Dispatch(keyEv("tab", 0), withoutTree)
	completion()
	assert.Zero(t, invalidated, "post-unmount completion must not invalidate")
}

func TestCheckboxAndRadioRouting(t *testing.T) {
	var checked bool
	var radio string
	bundle := collect(t, withChildren(vnode.KindColumn, nil,
		leaf(vnode.KindCheckbox, vnode.Props{"id": "cb", "checked": false, "onChange": func(v bool) { checked = v }}),
		leaf(vnode.KindRadioGroup, vnode.Props{"id": "rg", "options": []string{"x", "y"}, "value": "x", "onChange": func(v string) { radio = v }}),
	))

	r := router.New(inlineHooks(nil))
	r.Dispatch(keyEv("tab", 0), bundle)
	acts := r.Dispatch(keyEv("enter", 0), bundle)
	require.Len(t, acts, 1)
	assert.Equal(t, true, acts[0].Value)
	assert.True(t, checked)

	r.Dispatch(keyEv("tab", 0), bundle)
	acts = r.Dispatch(keyEv("down", 0), bundle)
	require.Len(t, acts, 1)
	assert.Equal(t, "y", acts[0].Value)
	assert.Equal(t, "y", radio)
}

func TestWheelScrollEmitsOnScroll(t *testing.T) {
	var top, first, last int
	items := make([]string, 20)
	for i := range items {
		items[i] = strings.Repeat("x", i+1)
	}
	bundle := collect(t, leaf(vnode.KindVirtualList, vnode.Props{
		"id": "v", "items": items, "height": 5,
		"onScroll": func(t, f, l int) { top, first, last = t, f, l },
	}))

	r := router.New(inlineHooks(nil))
	r.Dispatch(keyEv("tab", 0), bundle)
	acts := r.Dispatch(backend.MouseEvent{Kind: backend.MouseWheel, WheelY: 1}, bundle)
	require.Len(t, acts, 1)
	assert.Equal(t, router.ActionScroll, acts[0].Kind)
	assert.Equal(t, 3, top)
	assert.Equal(t, 3, first)
	assert.Equal(t, 7, last)
}

func TestUndoGroupsRapidTypingAndControlledChangeInvalidates(t *testing.T) {
	now := int64(0)
	hooks := inlineHooks(nil)
	hooks.NowMs = func() int64 { return now }
	r := router.New(hooks)

	mk := func(value string) metadata.Bundle {
		return collect(t, leaf(vnode.KindInput, vnode.Props{"id": "q", "value": value}))
	}

	// The app echoes each routed edit back as the next controlled value.
	r.Dispatch(keyEv("tab", 0), mk(""))
	r.Dispatch(backend.TextEvent{Codepoint: 'a'}, mk(""))
	now += 10
	r.Dispatch(backend.TextEvent{Codepoint: 'b'}, mk("a"))
	now += 10
	r.Dispatch(backend.TextEvent{Codepoint: 'c'}, mk("ab"))

	acts := r.Dispatch(keyEv("z", backend.ModCtrl), mk("abc"))
	require.Len(t, acts, 1)
	assert.Equal(t, "", acts[0].Value, "rapid typing grouped into one undo entry")

	// Redo restores the grouped edit.
	acts = r.Dispatch(keyEv("y", backend.ModCtrl), mk(""))
	require.Len(t, acts, 1)
	assert.Equal(t, "abc", acts[0].Value)

	// An external controlled change invalidates history: undo is a no-op.
	external := mk("reset externally")
	acts = r.Dispatch(keyEv("z", backend.ModCtrl), external)
	assert.Empty(t, acts, "undo must not resurrect stale text")
}

func TestUndoSeparateEntriesOutsideDebounceWindow(t *testing.T) {
	now := int64(0)
	hooks := inlineHooks(nil)
	hooks.NowMs = func() int64 { return now }
	r := router.New(hooks)

	mk := func(value string) metadata.Bundle {
		return collect(t, leaf(vnode.KindInput, vnode.Props{"id": "q", "value": value}))
	}
	r.Dispatch(keyEv("tab", 0), mk(""))
	r.Dispatch(backend.TextEvent{Codepoint: 'a'}, mk(""))
	now += 2000
	r.Dispatch(backend.TextEvent{Codepoint: 'b'}, mk("a"))

	acts := r.Dispatch(keyEv("z", backend.ModCtrl), mk("ab"))
	require.Len(t, acts, 1)
	assert.Equal(t, "a", acts[0].Value)
	acts = r.Dispatch(keyEv("z", backend.ModCtrl), mk("a"))
	require.Len(t, acts, 1)
	assert.Equal(t, "", acts[0].Value)
}

func TestPasteStripsNewlinesIntoInput(t *testing.T) {
	bundle := collect(t, leaf(vnode.KindInput, vnode.Props{"id": "q", "value": ""}))
	r := router.New(inlineHooks(nil))
	r.Dispatch(keyEv("tab", 0), bundle)
	acts := r.Dispatch(backend.PasteEvent{Bytes: []byte("one\r\ntwo")}, bundle)
	require.Len(t, acts, 1)
	assert.Equal(t, "onetwo", acts[0].Value)
}

func TestMouseDownFocusesAndPressesViaHitTest(t *testing.T) {
	bundle := collect(t, withChildren(vnode.KindRow, nil,
		leaf(vnode.KindButton, vnode.Props{"id": "a"}),
		leaf(vnode.KindButton, vnode.Props{"id": "b"}),
	))
	r := router.New(inlineHooks(nil))
	r.SetHitTest(func(x, y int) string {
		if x >= 10 {
			return "b"
		}
		return "a"
	})

	acts := r.Dispatch(backend.MouseEvent{X: 12, Y: 0, Kind: backend.MouseDown}, bundle)
	require.Len(t, acts, 1)
	assert.Equal(t, "b", acts[0].ID)
	assert.Equal(t, "b", r.Focused())
}

func TestGuardSwallowsPanickingCallbacks(t *testing.T) {
	bundle := collect(t, leaf(vnode.KindButton, vnode.Props{
		"id": "a", "onPress": func() { panic("user code") },
	}))
	r := router.New(inlineHooks(nil))
	r.Dispatch(keyEv("tab", 0), bundle)
	assert.NotPanics(t, func() {
		acts := r.Dispatch(keyEv("enter", 0), bundle)
		assert.Len(t, acts, 1, "action still reported after the handler panicked")
	})
}
