package backend

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// DecodeTea converts one bubbletea message into the envelope's event
// union. It is the supported concrete encoding for hosts that poll input
// through a bubbletea program; the runtime itself never runs one.
// Messages with no event equivalent (commands, ticks) return ok == false.
func DecodeTea(msg tea.Msg, timeMs int64) (Event, bool) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		return ResizeEvent{TimeMs: timeMs, Cols: m.Width, Rows: m.Height}, true
	case tea.KeyMsg:
		return decodeTeaKey(m, timeMs), true
	case tea.MouseMsg:
		return decodeTeaMouse(tea.MouseEvent(m), timeMs), true
	}
	return nil, false
}

func decodeTeaKey(m tea.KeyMsg, timeMs int64) Event {
	if m.Paste {
		return PasteEvent{TimeMs: timeMs, Bytes: []byte(string(m.Runes))}
	}
	if m.Type == tea.KeyRunes && !m.Alt && len(m.Runes) == 1 {
		return TextEvent{TimeMs: timeMs, Codepoint: m.Runes[0]}
	}
	if m.Type == tea.KeySpace && !m.Alt {
		return TextEvent{TimeMs: timeMs, Codepoint: ' '}
	}

	name := m.String()
	var mods Mod
	for {
		switch {
		case strings.HasPrefix(name, "ctrl+"):
			mods |= ModCtrl
			name = name[len("ctrl+"):]
		case strings.HasPrefix(name, "alt+"):
			mods |= ModAlt
			name = name[len("alt+"):]
		case strings.HasPrefix(name, "shift+"):
			mods |= ModShift
			name = name[len("shift+"):]
		default:
			return KeyEvent{TimeMs: timeMs, Key: name, Mods: mods, Action: KeyDown}
		}
	}
}

func decodeTeaMouse(m tea.MouseEvent, timeMs int64) Event {
	ev := MouseEvent{TimeMs: timeMs, X: m.X, Y: m.Y}
	if m.Shift {
		ev.Mods |= ModShift
	}
	if m.Alt {
		ev.Mods |= ModAlt
	}
	if m.Ctrl {
		ev.Mods |= ModCtrl
	}

	switch m.Button {
	case tea.MouseButtonWheelUp:
		ev.Kind = MouseWheel
		ev.WheelY = -1
		return ev
	case tea.MouseButtonWheelDown:
		ev.Kind = MouseWheel
		ev.WheelY = 1
		return ev
	case tea.MouseButtonWheelLeft:
		ev.Kind = MouseWheel
		ev.WheelX = -1
		return ev
	case tea.MouseButtonWheelRight:
		ev.Kind = MouseWheel
		ev.WheelX = 1
		return ev
	}

	switch m.Action {
	case tea.MouseActionPress:
		ev.Kind = MouseDown
		ev.Buttons = byte(m.Button)
	case tea.MouseActionRelease:
		ev.Kind = MouseUp
	default:
		ev.Kind = MouseMove
	}
	return ev
}
