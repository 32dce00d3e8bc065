// Package inputedit is the grapheme-aware text editing core consumed by
// the event router for input and code-editor widgets. Every operation is a
// pure function from an editing State to a new State; the router owns undo
// history, debouncing, and callback dispatch on top of it.
//
// Cursor and selection offsets are UTF-16 code units, clamped to grapheme
// cluster boundaries per UAX #29. Both grapheme and word segmentation
// come from uniseg; this package never inspects codepoint classes for
// segmentation itself.
package inputedit

import (
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// Span is a half-open selection range [Start, End) in UTF-16 code units.
// Start < End always; a collapsed selection is represented by a nil *Span,
// never by a zero-width Span.
type Span struct {
	Start, End int
}

// State is one input widget's editing state. Value is the authoritative
// text; Cursor is a UTF-16 offset on a grapheme boundary; Selection is nil
// when nothing is selected.
type State struct {
	ID        string
	Value     string
	Cursor    int
	Selection *Span
}

func u16RuneLen(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}

func u16Len(s string) int {
	n := 0
	for _, r := range s {
		n += u16RuneLen(r)
	}
	return n
}

// byteOffset maps a UTF-16 offset into s to a byte offset, clamping past
// the end.
func byteOffset(s string, u16off int) int {
	off := 0
	for i, r := range s {
		if off >= u16off {
			return i
		}
		off += u16RuneLen(r)
	}
	return len(s)
}

type cluster struct {
	start, end int // UTF-16 offsets
	text       string
}

// clusters segments s into grapheme clusters with UTF-16 offsets.
func clusters(s string) []cluster {
	var out []cluster
	off := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		text := g.Str()
		n := 0
		for _, r := range g.Runes() {
			n += u16RuneLen(r)
		}
		out = append(out, cluster{start: off, end: off + n, text: text})
		off += n
	}
	return out
}

type wordSeg struct {
	start, end int // UTF-16 offsets
	text       string
}

// wordSegments splits s into UAX #29 word segments with UTF-16 offsets.
// Underscore-joined identifiers come back as single segments (WB13a/b),
// whitespace runs as their own segments.
func wordSegments(s string) []wordSeg {
	var out []wordSeg
	state := -1
	off := 0
	rest := s
	for len(rest) > 0 {
		var word string
		word, rest, state = uniseg.FirstWordInString(rest, state)
		n := u16Len(word)
		out = append(out, wordSeg{start: off, end: off + n, text: word})
		off += n
	}
	return out
}

func isSpaceSeg(text string) bool {
	return strings.TrimSpace(text) == ""
}

// Normalize clamps st.Cursor and st.Selection to grapheme-cluster
// boundaries within st.Value. It is idempotent: Normalize(Normalize(st))
// equals Normalize(st). Out-of-range offsets clamp to the nearest end;
// offsets inside a cluster snap to the cluster's start.
func Normalize(st State) State {
	st.Cursor = snap(st.Value, st.Cursor)
	if st.Selection != nil {
		start := snap(st.Value, st.Selection.Start)
		end := snap(st.Value, st.Selection.End)
		if start > end {
			start, end = end, start
		}
		st.Selection = span(start, end)
	}
	return st
}

// snap returns the largest grapheme boundary <= off, clamped to [0, len].
func snap(s string, off int) int {
	if off <= 0 {
		return 0
	}
	total := u16Len(s)
	if off >= total {
		return total
	}
	best := 0
	for _, c := range clusters(s) {
		if c.start > off {
			break
		}
		best = c.start
		if c.end <= off {
			best = c.end
		}
	}
	return best
}

// span returns a Span for [start, end), or nil when the range is empty.
// This is the single place the "selection is nil iff start == end"
// invariant is enforced.
func span(start, end int) *Span {
	if start == end {
		return nil
	}
	return &Span{Start: start, End: end}
}

// anchor returns the stationary end of the selection when extending from
// the current cursor, or the cursor itself when nothing is selected.
func anchor(st State) int {
	if st.Selection == nil {
		return st.Cursor
	}
	if st.Selection.Start == st.Cursor {
		return st.Selection.End
	}
	return st.Selection.Start
}

func withCursor(st State, cursor int, extend bool) State {
	a := anchor(st)
	st.Cursor = cursor
	if extend {
		lo, hi := a, cursor
		if lo > hi {
			lo, hi = hi, lo
		}
		st.Selection = span(lo, hi)
	} else {
		st.Selection = nil
	}
	return st
}

// prevBoundary returns the grapheme boundary immediately before off.
func prevBoundary(s string, off int) int {
	prev := 0
	for _, c := range clusters(s) {
		if c.end >= off {
			return c.start
		}
		prev = c.end
	}
	return prev
}

// nextBoundary returns the grapheme boundary immediately after off.
func nextBoundary(s string, off int) int {
	for _, c := range clusters(s) {
		if c.start >= off {
			return c.end
		}
		if c.end > off {
			return c.end
		}
	}
	return u16Len(s)
}

// wordLeft skips whitespace segments, then lands on the start of the
// word segment left of off.
func wordLeft(s string, off int) int {
	segs := wordSegments(s)
	i := len(segs) - 1
	for i >= 0 && segs[i].start >= off {
		i--
	}
	for i >= 0 && isSpaceSeg(segs[i].text) {
		i--
	}
	if i < 0 {
		return 0
	}
	return segs[i].start
}

// wordRight steps past the word segment under off, skips whitespace, and
// lands on the start of the next word segment.
func wordRight(s string, off int) int {
	segs := wordSegments(s)
	i := 0
	for i < len(segs) && segs[i].end <= off {
		i++
	}
	if i < len(segs) && !isSpaceSeg(segs[i].text) {
		i++
	}
	for i < len(segs) && isSpaceSeg(segs[i].text) {
		i++
	}
	if i >= len(segs) {
		return u16Len(s)
	}
	return segs[i].start
}

// MoveLeft moves the cursor one grapheme cluster (or one word with word
// set) to the left. Without extend, a collapsing move on an existing
// selection lands on the selection's left edge.
func MoveLeft(st State, word, extend bool) State {
	st = Normalize(st)
	if !extend && st.Selection != nil && !word {
		return withCursor(st, st.Selection.Start, false)
	}
	target := prevBoundary(st.Value, st.Cursor)
	if word {
		target = wordLeft(st.Value, st.Cursor)
	}
	return withCursor(st, target, extend)
}

// MoveRight mirrors MoveLeft.
func MoveRight(st State, word, extend bool) State {
	st = Normalize(st)
	if !extend && st.Selection != nil && !word {
		return withCursor(st, st.Selection.End, false)
	}
	target := nextBoundary(st.Value, st.Cursor)
	if word {
		target = wordRight(st.Value, st.Cursor)
	}
	return withCursor(st, target, extend)
}

// Home moves the cursor to offset 0.
func Home(st State, extend bool) State {
	return withCursor(Normalize(st), 0, extend)
}

// End moves the cursor past the last cluster.
func End(st State, extend bool) State {
	st = Normalize(st)
	return withCursor(st, u16Len(st.Value), extend)
}

// SelectAll selects the whole value with the cursor at the end.
func SelectAll(st State) State {
	st = Normalize(st)
	total := u16Len(st.Value)
	st.Cursor = total
	st.Selection = span(0, total)
	return st
}

// SelectedText returns the selected substring, or "" when nothing is
// selected.
func SelectedText(st State) string {
	st = Normalize(st)
	if st.Selection == nil {
		return ""
	}
	return st.Value[byteOffset(st.Value, st.Selection.Start):byteOffset(st.Value, st.Selection.End)]
}

// deleteRange removes [start, end) and places the cursor at start.
func deleteRange(st State, start, end int) State {
	b0 := byteOffset(st.Value, start)
	b1 := byteOffset(st.Value, end)
	st.Value = st.Value[:b0] + st.Value[b1:]
	st.Cursor = start
	st.Selection = nil
	return st
}

// DeleteSelection removes the selected range. The second return reports
// whether the value changed.
func DeleteSelection(st State) (State, bool) {
	st = Normalize(st)
	if st.Selection == nil {
		return st, false
	}
	return deleteRange(st, st.Selection.Start, st.Selection.End), true
}

// Backspace deletes the selection, or the cluster before the cursor.
func Backspace(st State) (State, bool) {
	st = Normalize(st)
	if st.Selection != nil {
		return deleteRange(st, st.Selection.Start, st.Selection.End), true
	}
	if st.Cursor == 0 {
		return st, false
	}
	return deleteRange(st, prevBoundary(st.Value, st.Cursor), st.Cursor), true
}

// Delete deletes the selection, or the cluster after the cursor.
func Delete(st State) (State, bool) {
	st = Normalize(st)
	if st.Selection != nil {
		return deleteRange(st, st.Selection.Start, st.Selection.End), true
	}
	total := u16Len(st.Value)
	if st.Cursor >= total {
		return st, false
	}
	return deleteRange(st, st.Cursor, nextBoundary(st.Value, st.Cursor)), true
}

// InsertText replaces the selection (or inserts at the cursor) with text
// and advances the cursor past it.
func InsertText(st State, text string) (State, bool) {
	st = Normalize(st)
	if text == "" {
		return st, false
	}
	if st.Selection != nil {
		st = deleteRange(st, st.Selection.Start, st.Selection.End)
	}
	b := byteOffset(st.Value, st.Cursor)
	st.Value = st.Value[:b] + text + st.Value[b:]
	st.Cursor += u16Len(text)
	st.Selection = nil
	return st, true
}

// HandleRune routes one text event. A scalar of LF or CR is ignored for
// single-line inputs; textarea widgets pass multiline to accept LF.
func HandleRune(st State, r rune, multiline bool) (State, bool) {
	if r == '\n' || r == '\r' {
		if !multiline {
			return Normalize(st), false
		}
		return InsertText(st, "\n")
	}
	return InsertText(st, string(r))
}

// Paste decodes data as UTF-8 (replacement character on malformed bytes),
// strips CR and LF, and inserts the result at the cursor or over the
// selection.
func Paste(st State, data []byte) (State, bool) {
	text := strings.ToValidUTF8(string(data), string(utf8.RuneError))
	text = strings.NewReplacer("\r", "", "\n", "").Replace(text)
	return InsertText(st, text)
}

// VisualCol returns the terminal column of the cursor within value: the
// summed display width of every cluster left of it. This is what the
// renderer's SET_CURSOR consumer needs, distinct from the UTF-16 offset.
func VisualCol(value string, cursor int) int {
	cursor = snap(value, cursor)
	col := 0
	for _, c := range clusters(value) {
		if c.end > cursor {
			break
		}
		col += runewidth.StringWidth(c.text)
	}
	return col
}
