package router

import "github.com/bubblytree/tuicore/inputedit"

// widgetState is the router's per-widget ephemeral state: everything
// keyed by widget id that must survive frames but is not application
// state (the app owns values; the router owns where the user is inside
// them). Cleared wholesale when the owning id leaves the committed tree.
type widgetState struct {
	// gen invalidates async completions scheduled while this state was
	// live; prune bumps it before deleting the entry.
	gen uint64

	input *inputState

	row         int
	top         int
	selected    map[int]bool
	expanded    map[string]bool
	loaded      map[string][]TreeNode
	loading     map[string]bool
	sel         int
	lastClicked string

	debounce *Debouncer
}

func newWidgetState() *widgetState {
	return &widgetState{}
}

func (ws *widgetState) selectedSet() map[int]bool {
	if ws.selected == nil {
		ws.selected = make(map[int]bool)
	}
	return ws.selected
}

func (ws *widgetState) expandedSet() map[string]bool {
	if ws.expanded == nil {
		ws.expanded = make(map[string]bool)
	}
	return ws.expanded
}

type undoEntry struct {
	value  string
	cursor int
}

// inputState tracks one input widget's cursor, selection, and undo
// history against its controlled value. lastProps remembers the prop
// value last observed so an external controlled-value change (one the
// router's own edit did not produce) can invalidate stale undo history.
type inputState struct {
	st        inputedit.State
	lastProps string
	synced    bool

	undo       []undoEntry
	redo       []undoEntry
	lastEditMs int64
}
