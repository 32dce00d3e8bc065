package router

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/bubblytree/tuicore/backend"
)

// keyMap declares the router's navigation bindings the same way widget
// keymaps are declared throughout the charm ecosystem: one key.Binding
// per logical action, matched by canonical key-name string.
type keyMap struct {
	Next      key.Binding
	Prev      key.Binding
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	Home      key.Binding
	End       key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Activate  key.Binding
	Toggle    key.Binding
	Dismiss   key.Binding
	SelectAll key.Binding
}

var defaultKeyMap = keyMap{
	Next:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next")),
	Prev:      key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous")),
	Up:        key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
	Down:      key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),
	Left:      key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "left")),
	Right:     key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "right")),
	Home:      key.NewBinding(key.WithKeys("home"), key.WithHelp("home", "first")),
	End:       key.NewBinding(key.WithKeys("end"), key.WithHelp("end", "last")),
	PageUp:    key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
	PageDown:  key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
	Activate:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "activate")),
	Toggle:    key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "toggle")),
	Dismiss:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss")),
	SelectAll: key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "select all")),
}

// matches reports whether ev's canonical name is declared by any of the
// given bindings. The name comparison uses the same "ctrl+shift+left"
// rendering bubbletea produces, so bindings copied from charm widget
// keymaps work unchanged.
func matches(ev backend.KeyEvent, bindings ...key.Binding) bool {
	s := ev.String()
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		for _, k := range b.Keys() {
			if k == s {
				return true
			}
		}
	}
	return false
}
