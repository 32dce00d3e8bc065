package backend

import "strings"

// Event kind codes, fixed by the wire envelope.
const (
	kindResize uint16 = 0
	kindKey    uint16 = 1
	kindText   uint16 = 2
	kindPaste  uint16 = 3
	kindMouse  uint16 = 4
)

// Event is the closed union of input events a backend produces. The
// variants are the five structs below; no other type satisfies it.
type Event interface {
	When() int64
	kind() uint16
}

// Mod is the modifier bitfield attached to key and mouse events.
type Mod uint8

const (
	ModShift Mod = 1 << iota
	ModAlt
	ModCtrl
)

// KeyAction distinguishes press, release and auto-repeat.
type KeyAction uint8

const (
	KeyDown KeyAction = iota
	KeyUp
	KeyRepeat
)

// KeyEvent is a non-text key press. Key is the canonical lowercase key
// name ("tab", "left", "enter", "a"); modifiers live in Mods, never in
// the name.
type KeyEvent struct {
	TimeMs int64
	Key    string
	Mods   Mod
	Action KeyAction
}

func (e KeyEvent) When() int64  { return e.TimeMs }
func (e KeyEvent) kind() uint16 { return kindKey }

// String renders the event in "ctrl+shift+left" form, the same shape
// bubbletea's KeyMsg.String produces and bubbles key.Binding declares.
func (e KeyEvent) String() string {
	var sb strings.Builder
	if e.Mods&ModCtrl != 0 {
		sb.WriteString("ctrl+")
	}
	if e.Mods&ModAlt != 0 {
		sb.WriteString("alt+")
	}
	if e.Mods&ModShift != 0 {
		sb.WriteString("shift+")
	}
	sb.WriteString(e.Key)
	return sb.String()
}

// TextEvent is one typed Unicode scalar.
type TextEvent struct {
	TimeMs    int64
	Codepoint rune
}

func (e TextEvent) When() int64  { return e.TimeMs }
func (e TextEvent) kind() uint16 { return kindText }

// PasteEvent carries raw UTF-8 bytes from a bracketed paste.
type PasteEvent struct {
	TimeMs int64
	Bytes  []byte
}

func (e PasteEvent) When() int64  { return e.TimeMs }
func (e PasteEvent) kind() uint16 { return kindPaste }

// MouseKind is the mouse event subtype.
type MouseKind uint8

const (
	MouseMove MouseKind = iota
	MouseDown
	MouseUp
	MouseWheel
)

// MouseEvent is one pointer event in cell coordinates.
type MouseEvent struct {
	TimeMs  int64
	X, Y    int
	Kind    MouseKind
	Buttons uint8
	Mods    Mod
	WheelX  int
	WheelY  int
}

func (e MouseEvent) When() int64  { return e.TimeMs }
func (e MouseEvent) kind() uint16 { return kindMouse }

// ResizeEvent reports a new viewport size in cells.
type ResizeEvent struct {
	TimeMs int64
	Cols   int
	Rows   int
}

func (e ResizeEvent) When() int64  { return e.TimeMs }
func (e ResizeEvent) kind() uint16 { return kindResize }
