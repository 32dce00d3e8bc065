// Package drawlist implements the binary drawlist builder: a versioned,
// little-endian, capacity-bounded encoder for draw commands, interned
// strings, and opaque blobs. The Style type reuses lipgloss.Color, which
// is itself just a string color value and fits naturally into this
// package's string table.
package drawlist

import (
	"encoding/binary"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/bubblytree/tuicore/diag"
)

const (
	magic      uint32 = 0x43495554 // "TUIC" little-endian
	headerSize        = 64
)

// Opcodes.
const (
	opClear       uint16 = 1
	opFillRect    uint16 = 2
	opDrawText    uint16 = 3
	opDrawTextRun uint16 = 4
	opPushClip    uint16 = 5
	opPopClip     uint16 = 6
	opSetCursor   uint16 = 7
	opDrawCanvas  uint16 = 8 // v4+
	opDrawImage   uint16 = 9 // v5+
)

const flagClearTo uint16 = 1 << 0
const flagCursorVisible uint16 = 1 << 0
const flagHasStyle uint16 = 1 << 1

// UnderlineStyle enumerates §6's underline codes.
type UnderlineStyle uint8

const (
	UnderlineNone UnderlineStyle = iota
	UnderlineStraight
	UnderlineDouble
	UnderlineCurly
	UnderlineDotted
	UnderlineDashed
)

// Style attribute bits.
const (
	AttrBold          uint8 = 1 << 0
	AttrItalic        uint8 = 1 << 1
	AttrUnderline     uint8 = 1 << 2
	AttrInverse       uint8 = 1 << 3
	AttrDim           uint8 = 1 << 4
	AttrStrikethrough uint8 = 1 << 5
	AttrOverline      uint8 = 1 << 6
	AttrBlink         uint8 = 1 << 7
)

// Style is the drawlist's cell-styling record. Foreground/Background are
// lipgloss.Color values, so styles convert directly for hosts that still
// render through lipgloss.
type Style struct {
	Foreground lipgloss.Color
	Background lipgloss.Color
	Attrs      uint8
	Underline  UnderlineStyle
}

// Blitter codes (§6).
const (
	BlitterAuto      uint32 = 0
	BlitterBraille   uint32 = 2
	BlitterSextant   uint32 = 3
	BlitterQuadrant  uint32 = 4
	BlitterHalfblock uint32 = 5
	BlitterASCII     uint32 = 6
)

// Image format/protocol/fit codes (§6).
const (
	ImageFormatRGBA uint32 = 0
	ImageFormatPNG  uint32 = 1

	ImageProtocolAuto   uint32 = 0
	ImageProtocolKitty  uint32 = 1
	ImageProtocolSixel  uint32 = 2
	ImageProtocolIterm2 uint32 = 3

	ImageFitFill    uint32 = 0
	ImageFitContain uint32 = 1
	ImageFitCover   uint32 = 2
)

// CursorState is the payload of SetCursor.
type CursorState struct {
	Row, Col int
	Shape    uint32
}

// TextRunSegment is one styled run handed to AddTextRunBlob.
type TextRunSegment struct {
	Text  string
	Style *Style
}

// Caps bounds the builder's output. A zero value in any field means
// "unbounded" for that dimension.
type Caps struct {
	MaxDrawlistBytes int
	MaxCmdCount      int
	MaxBlobBytes     int
	MaxBlobs         int
	MaxStringBytes   int
	MaxStrings       int
}

// Options configures a Builder.
type Options struct {
	Version           int // 3, 4, or 5
	Caps              Caps
	ValidateParams    bool
	ReuseOutputBuffer bool
	StringCacheCap    int

	// DisableTextRuns makes AddTextRunBlob always decline, forcing the
	// renderer's per-segment DrawText fallback. Deterministic tests use
	// it to keep command streams free of blob indices.
	DisableTextRuns bool
}

// BadParamsError is the encoder's fatal structural error: a value out of
// range or an unsupported version/command combination.
type BadParamsError struct {
	Op     string
	Reason string
}

func (e *BadParamsError) Error() string {
	return fmt.Sprintf("drawlist: bad params in %s: %s", e.Op, e.Reason)
}

// TooLargeError reports a configured encoder cap being exceeded.
type TooLargeError struct {
	Cap    string
	Limit  int
	Actual int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("drawlist: %s cap exceeded: %d > %d", e.Cap, e.Actual, e.Limit)
}

// Result is one successfully built frame.
type Result struct {
	Bytes   []byte
	FrameID uuid.UUID
}

// Builder accumulates one frame's commands, strings and blobs. It is not
// safe for concurrent use; the runtime owns exactly one per frame.
type Builder struct {
	opts    Options
	metrics *diag.Metrics

	cmds     []byte
	cmdCount int
	clipDepth int

	strings     map[string]int
	stringOrder []string

	blobs [][]byte

	activeLink int // interned-string-index + 1; 0 means "no link"

	err     error
	reuseOut []byte
}

// New creates a Builder for one frame.
func New(opts Options, metrics *diag.Metrics) *Builder {
	return &Builder{
		opts:    opts,
		metrics: metrics,
		strings: make(map[string]int),
	}
}

// Reset clears all accumulated state, including any sticky error, so the
// Builder can be reused for the next frame.
func (b *Builder) Reset() {
	b.cmds = b.cmds[:0]
	b.cmdCount = 0
	b.clipDepth = 0
	b.strings = make(map[string]int)
	b.stringOrder = b.stringOrder[:0]
	b.blobs = b.blobs[:0]
	b.activeLink = 0
	b.err = nil
}

func (b *Builder) fail(op, reason string) {
	if b.err == nil {
		b.err = &BadParamsError{Op: op, Reason: reason}
	}
}

func (b *Builder) checkCmdCount(op string) bool {
	if b.err != nil {
		return false
	}
	if b.opts.Caps.MaxCmdCount > 0 && b.cmdCount >= b.opts.Caps.MaxCmdCount {
		b.metrics.ObserveCapRejection("cmdCount")
		b.err = &TooLargeError{Cap: "maxCmdCount", Limit: b.opts.Caps.MaxCmdCount, Actual: b.cmdCount + 1}
		return false
	}
	return true
}

func validI32(op string, v int, b *Builder) bool {
	if v > 1<<31-1 || v < -(1<<31) {
		b.fail(op, "value out of signed 32-bit range")
		return false
	}
	return true
}

func validDim(op string, v int, b *Builder) bool {
	if b.opts.ValidateParams && (v < 0 || v > 0xFFFF) {
		b.fail(op, "dimension does not fit in u16")
		return false
	}
	return true
}

func (b *Builder) internString(s string) int {
	if idx, ok := b.strings[s]; ok {
		return idx
	}
	if b.opts.Caps.MaxStrings > 0 && len(b.stringOrder) >= b.opts.Caps.MaxStrings {
		b.metrics.ObserveCapRejection("strings")
		b.err = &TooLargeError{Cap: "maxStrings", Limit: b.opts.Caps.MaxStrings, Actual: len(b.stringOrder) + 1}
		return -1
	}
	totalBytes := 0
	for _, existing := range b.stringOrder {
		totalBytes += len(existing)
	}
	if b.opts.Caps.MaxStringBytes > 0 && totalBytes+len(s) > b.opts.Caps.MaxStringBytes {
		b.metrics.ObserveCapRejection("stringBytes")
		b.err = &TooLargeError{Cap: "maxStringBytes", Limit: b.opts.Caps.MaxStringBytes, Actual: totalBytes + len(s)}
		return -1
	}
	idx := len(b.stringOrder)
	b.stringOrder = append(b.stringOrder, s)
	b.strings[s] = idx
	return idx
}

// writeCommand appends a command record: opcode, flags, size, then
// payload (already 4-byte aligned by construction of every payload
// encoder in this file).
func (b *Builder) writeCommand(op uint16, flags uint16, payload []byte) {
	size := uint32(8 + len(payload))
	var hdr [8]byte
	binary.LittleEndian.PutUint16(hdr[0:2], op)
	binary.LittleEndian.PutUint16(hdr[2:4], flags)
	binary.LittleEndian.PutUint32(hdr[4:8], size)
	b.cmds = append(b.cmds, hdr[:]...)
	b.cmds = append(b.cmds, payload...)
	b.cmdCount++
}

func putI32(buf []byte, off int, v int) { binary.LittleEndian.PutUint32(buf[off:off+4], uint32(int32(v))) }
func putU32(buf []byte, off int, v uint32) { binary.LittleEndian.PutUint32(buf[off:off+4], v) }

// encodeStyle writes a 12-byte style record: fg string index+1 (u32, 0 =
// unset), bg string index+1 (u32, 0 = unset), attrs|underline packed into
// one u32 (attrs in the low byte, underline in the next byte).
func (b *Builder) encodeStyle(st *Style) [12]byte {
	var out [12]byte
	if st == nil {
		return out
	}
	if st.Foreground != "" {
		idx := b.internString(string(st.Foreground))
		if idx >= 0 {
			putU32(out[0:4], 0, uint32(idx)+1)
		}
	}
	if st.Background != "" {
		idx := b.internString(string(st.Background))
		if idx >= 0 {
			putU32(out[4:8], 0, uint32(idx)+1)
		}
	}
	packed := uint32(st.Attrs) | uint32(st.Underline)<<8
	putU32(out[8:12], 0, packed)
	return out
}

// Clear emits a bare CLEAR with no explicit style (viewport cleared to the
// renderer's default background).
func (b *Builder) Clear() {
	if !b.checkCmdCount("clear") {
		return
	}
	b.writeCommand(opClear, 0, nil)
}

// ClearTo emits a CLEAR sized to (cols, rows) with an optional style.
func (b *Builder) ClearTo(cols, rows int, style *Style) {
	if !b.checkCmdCount("clearTo") {
		return
	}
	if !validDim("clearTo", cols, b) || !validDim("clearTo", rows, b) {
		return
	}
	payload := make([]byte, 8+12)
	putU32(payload, 0, uint32(cols))
	putU32(payload, 4, uint32(rows))
	styleBytes := b.encodeStyle(style)
	copy(payload[8:], styleBytes[:])
	if b.err != nil {
		return
	}
	b.writeCommand(opClear, flagClearTo, payload)
}

// FillRect emits a FILL_RECT over (x, y, w, h) with an optional style.
func (b *Builder) FillRect(x, y, w, h int, style *Style) {
	if !b.checkCmdCount("fillRect") {
		return
	}
	if !validI32("fillRect", x, b) || !validI32("fillRect", y, b) {
		return
	}
	if !validDim("fillRect", w, b) || !validDim("fillRect", h, b) {
		return
	}
	flags := uint16(0)
	var styleBytes [12]byte
	if style != nil {
		flags = flagHasStyle
		styleBytes = b.encodeStyle(style)
	}
	if b.err != nil {
		return
	}
	size := 16
	if flags&flagHasStyle != 0 {
		size += 12
	}
	payload := make([]byte, size)
	putI32(payload, 0, x)
	putI32(payload, 4, y)
	putU32(payload, 8, uint32(w))
	putU32(payload, 12, uint32(h))
	if flags&flagHasStyle != 0 {
		copy(payload[16:], styleBytes[:])
	}
	b.writeCommand(opFillRect, flags, payload)
}

// DrawText emits a DRAW_TEXT at (x, y) with an interned string and
// optional style, tagged with whatever link is currently active.
func (b *Builder) DrawText(x, y int, text string, style *Style) {
	if !b.checkCmdCount("drawText") {
		return
	}
	if !validI32("drawText", x, b) || !validI32("drawText", y, b) {
		return
	}
	strIdx := b.internString(text)
	if b.err != nil || strIdx < 0 {
		return
	}
	flags := uint16(0)
	var styleBytes [12]byte
	if style != nil {
		flags = flagHasStyle
		styleBytes = b.encodeStyle(style)
	}
	if b.err != nil {
		return
	}
	size := 16
	if flags&flagHasStyle != 0 {
		size += 12
	}
	payload := make([]byte, size)
	putI32(payload, 0, x)
	putI32(payload, 4, y)
	putU32(payload, 8, uint32(strIdx))
	putU32(payload, 12, uint32(b.activeLink))
	if flags&flagHasStyle != 0 {
		copy(payload[16:], styleBytes[:])
	}
	b.writeCommand(opDrawText, flags, payload)
}

// PushClip emits PUSH_CLIP over (x, y, w, h).
func (b *Builder) PushClip(x, y, w, h int) {
	if !b.checkCmdCount("pushClip") {
		return
	}
	if !validI32("pushClip", x, b) || !validI32("pushClip", y, b) {
		return
	}
	if !validDim("pushClip", w, b) || !validDim("pushClip", h, b) {
		return
	}
	payload := make([]byte, 16)
	putI32(payload, 0, x)
	putI32(payload, 4, y)
	putU32(payload, 8, uint32(w))
	putU32(payload, 12, uint32(h))
	b.writeCommand(opPushClip, 0, payload)
	b.clipDepth++
}

// PopClip emits POP_CLIP, failing with BadParams if there is no open clip.
func (b *Builder) PopClip() {
	if !b.checkCmdCount("popClip") {
		return
	}
	if b.clipDepth == 0 {
		b.fail("popClip", "no open clip to pop")
		return
	}
	b.writeCommand(opPopClip, 0, nil)
	b.clipDepth--
}

// AddBlob interns raw bytes into the blob table, returning its index, or
// false if a blob or blob-byte cap rejects it.
func (b *Builder) AddBlob(data []byte) (int, bool) {
	if b.err != nil {
		return 0, false
	}
	if b.opts.Caps.MaxBlobs > 0 && len(b.blobs) >= b.opts.Caps.MaxBlobs {
		b.metrics.ObserveCapRejection("blobs")
		return 0, false
	}
	total := 0
	for _, existing := range b.blobs {
		total += len(existing)
	}
	if b.opts.Caps.MaxBlobBytes > 0 && total+len(data) > b.opts.Caps.MaxBlobBytes {
		b.metrics.ObserveCapRejection("blobBytes")
		return 0, false
	}
	idx := len(b.blobs)
	b.blobs = append(b.blobs, append([]byte(nil), data...))
	return idx, true
}

// AddTextRunBlob encodes segments into a single blob (style-tagged spans
// of UTF-8 bytes) and interns it, returning its index, or false if the
// renderer should fall back to individual DrawText calls.
func (b *Builder) AddTextRunBlob(segments []TextRunSegment) (int, bool) {
	if b.err != nil || b.opts.DisableTextRuns || len(segments) == 0 {
		return 0, false
	}
	var data []byte
	for _, seg := range segments {
		styleBytes := b.encodeStyle(seg.Style)
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(seg.Text)))
		data = append(data, lenBuf[:]...)
		data = append(data, styleBytes[:]...)
		data = append(data, []byte(seg.Text)...)
	}
	return b.AddBlob(data)
}

// DrawTextRun emits DRAW_TEXT_RUN at (x, y) referencing blobIndex.
func (b *Builder) DrawTextRun(x, y, blobIndex int) {
	if !b.checkCmdCount("drawTextRun") {
		return
	}
	if !validI32("drawTextRun", x, b) || !validI32("drawTextRun", y, b) {
		return
	}
	if blobIndex < 0 || blobIndex >= len(b.blobs) {
		b.fail("drawTextRun", "blobIndex does not refer to a valid blob")
		return
	}
	payload := make([]byte, 12)
	putI32(payload, 0, x)
	putI32(payload, 4, y)
	putU32(payload, 8, uint32(blobIndex))
	b.writeCommand(opDrawTextRun, 0, payload)
}

// SetCursor emits SET_CURSOR reflecting a visible cursor at state.
func (b *Builder) SetCursor(state CursorState) {
	if !b.checkCmdCount("setCursor") {
		return
	}
	payload := make([]byte, 12)
	putI32(payload, 0, state.Row)
	putI32(payload, 4, state.Col)
	putU32(payload, 8, state.Shape)
	b.writeCommand(opSetCursor, flagCursorVisible, payload)
}

// HideCursor emits SET_CURSOR with the visible flag cleared.
func (b *Builder) HideCursor() {
	if !b.checkCmdCount("hideCursor") {
		return
	}
	b.writeCommand(opSetCursor, 0, make([]byte, 12))
}

// SetLink updates the active hyperlink applied to subsequent DrawText
// calls. A nil uri clears the active link.
func (b *Builder) SetLink(uri *string, id string) {
	if b.err != nil {
		return
	}
	if b.opts.Version < 3 {
		b.fail("setLink", "requires version >= 3")
		return
	}
	if uri == nil {
		b.activeLink = 0
		return
	}
	idx := b.internString(*uri)
	if b.err != nil || idx < 0 {
		return
	}
	b.activeLink = idx + 1
}

// DrawCanvas emits DRAW_CANVAS (requires version >= 4). pxW/pxH of 0 are
// inferred from the blitter's subcell resolution, falling back to the
// blob length.
func (b *Builder) DrawCanvas(cols, rows int, blitter uint32, blobIndex, pxW, pxH int) {
	if !b.checkCmdCount("drawCanvas") {
		return
	}
	if b.opts.Version < 4 {
		b.fail("drawCanvas", "requires version >= 4")
		return
	}
	if blobIndex < 0 || blobIndex >= len(b.blobs) {
		b.fail("drawCanvas", "blobIndex does not refer to a valid blob")
		return
	}
	if pxW == 0 || pxH == 0 {
		if subW, subH, ok := blitterSubcell(blitter); ok {
			if pxW == 0 {
				pxW = cols * subW
			}
			if pxH == 0 {
				pxH = rows * subH
			}
		} else {
			// No fixed subcell resolution: treat the blob as RGBA rows of
			// cols pixels.
			if pxW == 0 {
				pxW = cols
			}
			if pxH == 0 && cols > 0 {
				pxH = len(b.blobs[blobIndex]) / 4 / cols
			}
		}
	}
	payload := make([]byte, 24)
	putI32(payload, 0, cols)
	putI32(payload, 4, rows)
	putU32(payload, 8, blitter)
	putU32(payload, 12, uint32(blobIndex))
	putU32(payload, 16, uint32(pxW))
	putU32(payload, 20, uint32(pxH))
	b.writeCommand(opDrawCanvas, 0, payload)
}

// blitterSubcell reports the blitter's subcell resolution per terminal
// cell; ok is false for blitters with no fixed mapping (auto).
func blitterSubcell(blitter uint32) (w, h int, ok bool) {
	switch blitter {
	case BlitterBraille:
		return 2, 4, true
	case BlitterSextant:
		return 2, 3, true
	case BlitterQuadrant:
		return 2, 2, true
	case BlitterHalfblock:
		return 1, 2, true
	case BlitterASCII:
		return 1, 1, true
	default:
		return 0, 0, false
	}
}

// DrawImage emits DRAW_IMAGE (requires version >= 5). RGBA images may omit
// pxW or pxH, inferred from the blob length; PNG images require both.
func (b *Builder) DrawImage(x, y int, format, protocol uint32, zLayer int, fit uint32, blobIndex int, imageID string, pxW, pxH int) {
	if !b.checkCmdCount("drawImage") {
		return
	}
	if b.opts.Version < 5 {
		b.fail("drawImage", "requires version >= 5")
		return
	}
	if blobIndex < 0 || blobIndex >= len(b.blobs) {
		b.fail("drawImage", "blobIndex does not refer to a valid blob")
		return
	}
	if zLayer < -1 || zLayer > 1 {
		b.fail("drawImage", "zLayer out of {-1,0,1}")
		return
	}

	if format == ImageFormatRGBA {
		blobLen := len(b.blobs[blobIndex])
		if pxW == 0 && pxH > 0 {
			pxW = blobLen / 4 / pxH
		} else if pxH == 0 && pxW > 0 {
			pxH = blobLen / 4 / pxW
		}
		if pxW*pxH*4 != blobLen {
			b.fail("drawImage", "rgba blob length does not match pxW*pxH*4")
			return
		}
	} else if format == ImageFormatPNG {
		if pxW == 0 || pxH == 0 {
			b.fail("drawImage", "png images require explicit pixel dimensions")
			return
		}
	}

	imgIdx := b.internString(imageID)
	if b.err != nil || imgIdx < 0 {
		return
	}

	payload := make([]byte, 40)
	putI32(payload, 0, x)
	putI32(payload, 4, y)
	putU32(payload, 8, format)
	putU32(payload, 12, protocol)
	putI32(payload, 16, zLayer)
	putU32(payload, 20, fit)
	putU32(payload, 24, uint32(blobIndex))
	putU32(payload, 28, uint32(pxW))
	putU32(payload, 32, uint32(pxH))
	putU32(payload, 36, uint32(imgIdx))
	b.writeCommand(opDrawImage, 0, payload)
}

func align4(n int) int { return (n + 3) &^ 3 }

// Build lays out the final buffer as
// [header(64) | commands | strings-span | strings-bytes | blobs-span | blobs-bytes]
// and returns it along with a fresh correlation id.
func (b *Builder) Build() (Result, error) {
	if b.err != nil {
		return Result{}, b.err
	}
	if b.clipDepth != 0 {
		return Result{}, &BadParamsError{Op: "build", Reason: "unbalanced pushClip/popClip"}
	}

	stringsSpanBytes := align4(len(b.stringOrder) * 8)
	var stringBytesBuf []byte
	stringSpans := make([]byte, stringsSpanBytes)
	offset := 0
	for i, s := range b.stringOrder {
		putU32(stringSpans, i*8, uint32(offset))
		putU32(stringSpans, i*8+4, uint32(len(s)))
		stringBytesBuf = append(stringBytesBuf, []byte(s)...)
		offset += len(s)
	}
	stringBytesLen := align4(len(stringBytesBuf))
	stringBytesBuf = append(stringBytesBuf, make([]byte, stringBytesLen-len(stringBytesBuf))...)

	blobsSpanBytes := align4(len(b.blobs) * 8)
	blobSpans := make([]byte, blobsSpanBytes)
	var blobBytesBuf []byte
	offset = 0
	for i, blob := range b.blobs {
		putU32(blobSpans, i*8, uint32(offset))
		putU32(blobSpans, i*8+4, uint32(len(blob)))
		blobBytesBuf = append(blobBytesBuf, blob...)
		offset += len(blob)
	}
	blobBytesLen := align4(len(blobBytesBuf))
	blobBytesBuf = append(blobBytesBuf, make([]byte, blobBytesLen-len(blobBytesBuf))...)

	cmdBytes := align4(len(b.cmds))
	cmdPadded := append(append([]byte(nil), b.cmds...), make([]byte, cmdBytes-len(b.cmds))...)

	cmdOffset := headerSize
	stringsSpanOffset := cmdOffset + cmdBytes
	stringsBytesOffset := stringsSpanOffset + stringsSpanBytes
	blobsSpanOffset := stringsBytesOffset + len(stringBytesBuf)
	blobsBytesOffset := blobsSpanOffset + blobsSpanBytes
	total := blobsBytesOffset + len(blobBytesBuf)

	if b.opts.Caps.MaxDrawlistBytes > 0 && total > b.opts.Caps.MaxDrawlistBytes {
		b.metrics.ObserveCapRejection("drawlistBytes")
		b.err = &TooLargeError{Cap: "maxDrawlistBytes", Limit: b.opts.Caps.MaxDrawlistBytes, Actual: total}
		return Result{}, b.err
	}

	out := make([]byte, total)
	putU32(out, 0, magic)
	putU32(out, 4, uint32(b.opts.Version))
	putU32(out, 8, uint32(headerSize))
	putU32(out, 12, uint32(total))
	putU32(out, 16, uint32(cmdOffset))
	putU32(out, 20, uint32(cmdBytes))
	putU32(out, 24, uint32(b.cmdCount))
	putU32(out, 28, uint32(stringsSpanOffset))
	putU32(out, 32, uint32(len(b.stringOrder)))
	putU32(out, 36, uint32(stringsBytesOffset))
	putU32(out, 40, uint32(len(stringBytesBuf)))
	putU32(out, 44, uint32(blobsSpanOffset))
	putU32(out, 48, uint32(len(b.blobs)))
	putU32(out, 52, uint32(blobsBytesOffset))
	putU32(out, 56, uint32(len(blobBytesBuf)))
	// [60..64) reserved, left zero.

	copy(out[cmdOffset:], cmdPadded)
	copy(out[stringsSpanOffset:], stringSpans)
	copy(out[stringsBytesOffset:], stringBytesBuf)
	copy(out[blobsSpanOffset:], blobSpans)
	copy(out[blobsBytesOffset:], blobBytesBuf)

	b.metrics.ObserveDrawlistBytes(total)

	frameID := uuid.New()

	if b.opts.ReuseOutputBuffer {
		if cap(b.reuseOut) < len(out) {
			b.reuseOut = make([]byte, len(out))
		}
		b.reuseOut = b.reuseOut[:len(out)]
		copy(b.reuseOut, out)
		return Result{Bytes: b.reuseOut, FrameID: frameID}, nil
	}
	return Result{Bytes: out, FrameID: frameID}, nil
}
