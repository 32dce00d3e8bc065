package router

import (
	"github.com/aymanbagabas/go-osc52/v2"

	"github.com/bubblytree/tuicore/backend"
	"github.com/bubblytree/tuicore/diag"
	"github.com/bubblytree/tuicore/inputedit"
	"github.com/bubblytree/tuicore/metadata"
)

// undoDebounceMs groups rapid consecutive edits into one undo entry.
const undoDebounceMs = 500

// syncInput reconciles the router's input state with the widget's
// controlled value. A prop value that matches neither the last observed
// prop nor the router's own last edit is an external change: it resets
// value, cursor and undo history so undo cannot resurrect stale text.
func (r *Router) syncInput(id string, meta metadata.InputMeta) *inputState {
	ws := r.widget(id)
	if ws.input == nil {
		ws.input = &inputState{}
	}
	in := ws.input
	pv := stringProp(meta.Props, "value", "")

	if !in.synced {
		in.st = inputedit.State{ID: id, Value: pv}
		in.st.Cursor = intProp(meta.Props, "cursor", -1)
		if in.st.Cursor < 0 {
			in.st = inputedit.End(in.st, false)
		}
		in.st = inputedit.Normalize(in.st)
		in.lastProps = pv
		in.synced = true
		return in
	}

	if pv != in.lastProps {
		if pv == in.st.Value {
			// The app echoed our own edit back; history stays valid.
			in.lastProps = pv
		} else {
			in.st = inputedit.Normalize(inputedit.State{ID: id, Value: pv, Cursor: in.st.Cursor})
			in.lastProps = pv
			in.undo = in.undo[:0]
			in.redo = in.redo[:0]
		}
	}
	return in
}

// commitEdit records undo history for one value change, emits the input
// action, and fires onInput. Edits within the debounce window extend the
// previous undo entry instead of pushing a new one.
func (r *Router) commitEdit(in *inputState, meta metadata.InputMeta, prev inputedit.State, typing bool) []Action {
	now := r.hooks.NowMs()
	if !typing || len(in.undo) == 0 || now-in.lastEditMs > undoDebounceMs {
		in.undo = append(in.undo, undoEntry{value: prev.Value, cursor: prev.Cursor})
	}
	in.lastEditMs = now
	in.redo = in.redo[:0]
	in.lastProps = in.st.Value

	callInput(meta.Props, in.st.Value)
	return []Action{{ID: meta.ID, Kind: ActionInput, Value: in.st.Value}}
}

// exportClipboard writes the OSC52 copy escape for text through the
// backend's raw-write hook. At most one write per copy/cut operation.
func (r *Router) exportClipboard(text string) {
	if r.hooks.Raw == nil || text == "" {
		return
	}
	seq := osc52.New(text)
	r.hooks.Raw.RawWrite([]byte(seq.String()))
}

func (r *Router) routeInputKey(ev backend.KeyEvent, meta metadata.InputMeta) ([]Action, bool) {
	in := r.syncInput(meta.ID, meta)
	prev := in.st
	ctrl := ev.Mods&backend.ModCtrl != 0
	shift := ev.Mods&backend.ModShift != 0

	switch ev.Key {
	case "left":
		in.st = inputedit.MoveLeft(in.st, ctrl, shift)
		return nil, true
	case "right":
		in.st = inputedit.MoveRight(in.st, ctrl, shift)
		return nil, true
	case "home":
		in.st = inputedit.Home(in.st, shift)
		return nil, true
	case "end":
		in.st = inputedit.End(in.st, shift)
		return nil, true
	case "backspace":
		st, changed := inputedit.Backspace(in.st)
		in.st = st
		if !changed {
			return nil, true
		}
		return r.commitEdit(in, meta, prev, true), true
	case "delete":
		st, changed := inputedit.Delete(in.st)
		in.st = st
		if !changed {
			return nil, true
		}
		return r.commitEdit(in, meta, prev, true), true
	case "a":
		if ctrl {
			in.st = inputedit.SelectAll(in.st)
			return nil, true
		}
	case "c":
		if ctrl {
			text := inputedit.SelectedText(in.st)
			if text == "" {
				text = in.st.Value
			}
			r.exportClipboard(text)
			return nil, true
		}
	case "x":
		if ctrl {
			text := inputedit.SelectedText(in.st)
			if text == "" {
				text = in.st.Value
			}
			r.exportClipboard(text)
			st, changed := inputedit.DeleteSelection(in.st)
			in.st = st
			if !changed {
				return nil, true
			}
			return r.commitEdit(in, meta, prev, false), true
		}
	case "z":
		if ctrl {
			return r.undoEdit(in, meta), true
		}
	case "y":
		if ctrl {
			return r.redoEdit(in, meta), true
		}
	}
	return nil, false
}

func (r *Router) undoEdit(in *inputState, meta metadata.InputMeta) []Action {
	if len(in.undo) == 0 {
		return nil
	}
	entry := in.undo[len(in.undo)-1]
	in.undo = in.undo[:len(in.undo)-1]
	in.redo = append(in.redo, undoEntry{value: in.st.Value, cursor: in.st.Cursor})
	in.st = inputedit.Normalize(inputedit.State{ID: meta.ID, Value: entry.value, Cursor: entry.cursor})
	in.lastProps = in.st.Value
	in.lastEditMs = 0
	callInput(meta.Props, in.st.Value)
	return []Action{{ID: meta.ID, Kind: ActionInput, Value: in.st.Value}}
}

func (r *Router) redoEdit(in *inputState, meta metadata.InputMeta) []Action {
	if len(in.redo) == 0 {
		return nil
	}
	entry := in.redo[len(in.redo)-1]
	in.redo = in.redo[:len(in.redo)-1]
	in.undo = append(in.undo, undoEntry{value: in.st.Value, cursor: in.st.Cursor})
	in.st = inputedit.Normalize(inputedit.State{ID: meta.ID, Value: entry.value, Cursor: entry.cursor})
	in.lastProps = in.st.Value
	in.lastEditMs = 0
	callInput(meta.Props, in.st.Value)
	return []Action{{ID: meta.ID, Kind: ActionInput, Value: in.st.Value}}
}

func (r *Router) routeInputText(ev backend.TextEvent, meta metadata.InputMeta) []Action {
	in := r.syncInput(meta.ID, meta)
	prev := in.st
	multiline := boolProp(meta.Props, "multiline")
	st, changed := inputedit.HandleRune(in.st, ev.Codepoint, multiline)
	in.st = st
	if !changed {
		return nil
	}
	r.scheduleValidate(meta, in.st.Value)
	return r.commitEdit(in, meta, prev, true)
}

func (r *Router) routeInputPaste(ev backend.PasteEvent, meta metadata.InputMeta) []Action {
	in := r.syncInput(meta.ID, meta)
	prev := in.st
	st, changed := inputedit.Paste(in.st, ev.Bytes)
	in.st = st
	if !changed {
		return nil
	}
	r.scheduleValidate(meta, in.st.Value)
	return r.commitEdit(in, meta, prev, false)
}

// InputCursor exposes the focused input's editing state so the renderer
// can place SET_CURSOR, and tests can observe cursor motion. ok is false
// when id has no live input state.
func (r *Router) InputCursor(id string) (inputedit.State, bool) {
	ws, ok := r.state[id]
	if !ok || ws.input == nil || !ws.input.synced {
		return inputedit.State{}, false
	}
	return ws.input.st, true
}

// scheduleValidate runs the widget's debounced async validator, if any.
// The completion closure checks the widget generation so a validation
// finishing after unmount touches nothing.
func (r *Router) scheduleValidate(meta metadata.InputMeta, value string) {
	fn, ok := meta.Props["validate"].(func(string))
	if !ok || fn == nil {
		return
	}
	ws := r.widget(meta.ID)
	if ws.debounce == nil {
		ws.debounce = NewDebouncer(debounceDefaultDelay)
	}
	gen := ws.gen
	id := meta.ID
	ws.debounce.Trigger(func() {
		cur, live := r.state[id]
		if !live || cur.gen != gen {
			return
		}
		diag.GuardVoid("validate", func() { fn(value) })
	})
}

func callInput(p map[string]interface{}, value string) {
	if fn, ok := p["onInput"].(func(string)); ok && fn != nil {
		diag.GuardVoid("onInput", func() { fn(value) })
	}
}
