package drawlist_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bubblytree/tuicore/drawlist"
)

func newBuilder(opts drawlist.Options) *drawlist.Builder {
	if opts.Version == 0 {
		opts.Version = 3
	}
	return drawlist.New(opts, nil)
}

func header(t *testing.T, b []byte) (version, totalSize, cmdCount, stringCount, blobCount uint32) {
	require.GreaterOrEqual(t, len(b), 64)
	require.Equal(t, uint32(0x43495554), binary.LittleEndian.Uint32(b[0:4]), "magic mismatch")
	version = binary.LittleEndian.Uint32(b[4:8])
	totalSize = binary.LittleEndian.Uint32(b[12:16])
	cmdCount = binary.LittleEndian.Uint32(b[24:28])
	stringCount = binary.LittleEndian.Uint32(b[32:36])
	blobCount = binary.LittleEndian.Uint32(b[48:52])
	return
}

func TestBuildEmptyFrameProducesHeaderOnlyOutput(t *testing.T) {
	b := newBuilder(drawlist.Options{})
	res, err := b.Build()
	require.NoError(t, err)

	_, total, cmds, strs, blobs := header(t, res.Bytes)
	assert.Equal(t, uint32(len(res.Bytes)), total)
	assert.Equal(t, uint32(0), cmds)
	assert.Equal(t, uint32(0), strs)
	assert.Equal(t, uint32(0), blobs)
	assert.NotEqual(t, res.FrameID.String(), "00000000-0000-0000-0000-000000000000")
}

func TestBuildCountsEachEmittedCommand(t *testing.T) {
	b := newBuilder(drawlist.Options{})
	b.Clear()
	b.FillRect(0, 0, 10, 1, nil)
	b.DrawText(0, 0, "hello", nil)

	res, err := b.Build()
	require.NoError(t, err)
	_, _, cmds, _, _ := header(t, res.Bytes)
	assert.Equal(t, uint32(3), cmds)
}

func TestDrawTextInternsDuplicateStringsOnce(t *testing.T) {
	b := newBuilder(drawlist.Options{})
	b.DrawText(0, 0, "same", nil)
	b.DrawText(1, 1, "same", nil)
	b.DrawText(2, 2, "different", nil)

	res, err := b.Build()
	require.NoError(t, err)
	_, _, _, strs, _ := header(t, res.Bytes)
	assert.Equal(t, uint32(2), strs)
}

func TestPopClipWithoutMatchingPushIsBadParams(t *testing.T) {
	b := newBuilder(drawlist.Options{})
	b.PopClip()

	_, err := b.Build()
	require.Error(t, err)
	var bp *drawlist.BadParamsError
	assert.ErrorAs(t, err, &bp)
}

func TestUnbalancedPushClipFailsAtBuild(t *testing.T) {
	b := newBuilder(drawlist.Options{})
	b.PushClip(0, 0, 5, 5)

	_, err := b.Build()
	require.Error(t, err)
	var bp *drawlist.BadParamsError
	assert.ErrorAs(t, err, &bp)
}

func TestBuilderErrorIsStickyAcrossFurtherCalls(t *testing.T) {
	b := newBuilder(drawlist.Options{})
	b.PopClip()
	b.Clear()
	b.FillRect(0, 0, 1, 1, nil)

	_, err := b.Build()
	require.Error(t, err)
}

func TestResetClearsStickyErrorAndAccumulatedState(t *testing.T) {
	b := newBuilder(drawlist.Options{})
	b.PopClip()
	require.Error(t, func() error { _, err := b.Build(); return err }())

	b.Reset()
	b.Clear()
	res, err := b.Build()
	require.NoError(t, err)
	_, _, cmds, _, _ := header(t, res.Bytes)
	assert.Equal(t, uint32(1), cmds)
}

func TestDrawCanvasBelowVersion4IsRejected(t *testing.T) {
	b := newBuilder(drawlist.Options{Version: 3})
	idx, ok := b.AddBlob([]byte{1, 2, 3, 4})
	require.True(t, ok)
	b.DrawCanvas(1, 1, drawlist.BlitterHalfblock, idx, 0, 0)

	_, err := b.Build()
	require.Error(t, err)
}

// canvasPixelDims parses the sole DRAW_CANVAS command in b and returns
// its encoded pxW/pxH fields.
func canvasPixelDims(t *testing.T, b []byte) (pxW, pxH uint32) {
	t.Helper()
	cmdOff := binary.LittleEndian.Uint32(b[16:20])
	payload := b[cmdOff+8:]
	return binary.LittleEndian.Uint32(payload[16:20]), binary.LittleEndian.Uint32(payload[20:24])
}

func TestDrawCanvasInfersPixelDimensionsFromBlitter(t *testing.T) {
	cases := []struct {
		name     string
		blitter  uint32
		pxW, pxH uint32
	}{
		// halfblock: 1x2 subcells per terminal cell; braille: 2x4.
		{"halfblock", drawlist.BlitterHalfblock, 4, 6},
		{"braille", drawlist.BlitterBraille, 8, 12},
		{"ascii", drawlist.BlitterASCII, 4, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := newBuilder(drawlist.Options{Version: 4})
			idx, ok := b.AddBlob(make([]byte, 64))
			require.True(t, ok)
			b.DrawCanvas(4, 3, tc.blitter, idx, 0, 0)

			res, err := b.Build()
			require.NoError(t, err)
			pxW, pxH := canvasPixelDims(t, res.Bytes)
			assert.Equal(t, tc.pxW, pxW)
			assert.Equal(t, tc.pxH, pxH)
		})
	}
}

func TestDrawCanvasAutoBlitterInfersFromBlobLength(t *testing.T) {
	b := newBuilder(drawlist.Options{Version: 4})
	// 64 RGBA bytes over 4 columns: 64/4/4 = 4 pixel rows.
	idx, ok := b.AddBlob(make([]byte, 64))
	require.True(t, ok)
	b.DrawCanvas(4, 2, drawlist.BlitterAuto, idx, 0, 0)

	res, err := b.Build()
	require.NoError(t, err)
	pxW, pxH := canvasPixelDims(t, res.Bytes)
	assert.Equal(t, uint32(4), pxW)
	assert.Equal(t, uint32(4), pxH)
}

func TestDrawImageBelowVersion5IsRejected(t *testing.T) {
	b := newBuilder(drawlist.Options{Version: 4})
	idx, ok := b.AddBlob(make([]byte, 16))
	require.True(t, ok)
	b.DrawImage(0, 0, drawlist.ImageFormatRGBA, drawlist.ImageProtocolAuto, 0, drawlist.ImageFitFill, idx, "img1", 2, 2)

	_, err := b.Build()
	require.Error(t, err)
}

func TestDrawImageRGBAInfersMissingDimensionFromBlobLength(t *testing.T) {
	b := newBuilder(drawlist.Options{Version: 5})
	idx, ok := b.AddBlob(make([]byte, 4*2*3)) // 2 wide, 3 tall, 4 bytes/px
	require.True(t, ok)
	b.DrawImage(0, 0, drawlist.ImageFormatRGBA, drawlist.ImageProtocolAuto, 0, drawlist.ImageFitFill, idx, "img1", 2, 0)

	_, err := b.Build()
	require.NoError(t, err)
}

func TestDrawImageRGBAMismatchedBlobLengthIsBadParams(t *testing.T) {
	b := newBuilder(drawlist.Options{Version: 5})
	idx, ok := b.AddBlob(make([]byte, 10))
	require.True(t, ok)
	b.DrawImage(0, 0, drawlist.ImageFormatRGBA, drawlist.ImageProtocolAuto, 0, drawlist.ImageFitFill, idx, "img1", 2, 2)

	_, err := b.Build()
	require.Error(t, err)
}

func TestDrawImagePNGRequiresExplicitDimensions(t *testing.T) {
	b := newBuilder(drawlist.Options{Version: 5})
	idx, ok := b.AddBlob([]byte{0x89, 'P', 'N', 'G'})
	require.True(t, ok)
	b.DrawImage(0, 0, drawlist.ImageFormatPNG, drawlist.ImageProtocolAuto, 0, drawlist.ImageFitFill, idx, "img1", 0, 0)

	_, err := b.Build()
	require.Error(t, err)
}

func TestSetLinkBelowVersion3IsRejected(t *testing.T) {
	b := newBuilder(drawlist.Options{Version: 2})
	uri := "https://example.com"
	b.SetLink(&uri, "link1")

	_, err := b.Build()
	require.Error(t, err)
}

func TestMaxCmdCountCapProducesTooLarge(t *testing.T) {
	b := newBuilder(drawlist.Options{Caps: drawlist.Caps{MaxCmdCount: 2}})
	b.Clear()
	b.Clear()
	b.Clear()

	_, err := b.Build()
	require.Error(t, err)
	var tl *drawlist.TooLargeError
	require.ErrorAs(t, err, &tl)
	assert.Equal(t, "maxCmdCount", tl.Cap)
}

func TestMaxDrawlistBytesCapProducesTooLarge(t *testing.T) {
	b := newBuilder(drawlist.Options{Caps: drawlist.Caps{MaxDrawlistBytes: 64}})
	b.DrawText(0, 0, "this string alone should push the frame past sixty-four bytes", nil)

	_, err := b.Build()
	require.Error(t, err)
	var tl *drawlist.TooLargeError
	require.ErrorAs(t, err, &tl)
	assert.Equal(t, "maxDrawlistBytes", tl.Cap)
}

func TestAddTextRunBlobEncodesEachSegmentLength(t *testing.T) {
	b := newBuilder(drawlist.Options{})
	idx, ok := b.AddTextRunBlob([]drawlist.TextRunSegment{
		{Text: "hi", Style: &drawlist.Style{Attrs: drawlist.AttrBold}},
		{Text: "there"},
	})
	require.True(t, ok)
	b.DrawTextRun(0, 0, idx)

	res, err := b.Build()
	require.NoError(t, err)
	_, _, cmds, _, blobs := header(t, res.Bytes)
	assert.Equal(t, uint32(1), cmds)
	assert.Equal(t, uint32(1), blobs)

	// Each segment is [u32 text length][12 style bytes][text].
	blob := res.Bytes[binary.LittleEndian.Uint32(res.Bytes[52:56]):]
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(blob[0:4]))
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(blob[18:22]))
}

func TestAddTextRunBlobDeclinesWhenTextRunsDisabled(t *testing.T) {
	b := newBuilder(drawlist.Options{DisableTextRuns: true})
	_, ok := b.AddTextRunBlob([]drawlist.TextRunSegment{{Text: "hi"}})
	assert.False(t, ok)

	res, err := b.Build()
	require.NoError(t, err)
	_, _, _, _, blobs := header(t, res.Bytes)
	assert.Equal(t, uint32(0), blobs, "declining must not intern a blob")
}

func TestDrawTextRunWithUnknownBlobIndexIsBadParams(t *testing.T) {
	b := newBuilder(drawlist.Options{})
	b.DrawTextRun(0, 0, 7)

	_, err := b.Build()
	require.Error(t, err)
}

func TestReuseOutputBufferReturnsSameUnderlyingSliceAcrossBuilds(t *testing.T) {
	b := newBuilder(drawlist.Options{ReuseOutputBuffer: true})
	b.Clear()
	res1, err := b.Build()
	require.NoError(t, err)
	ptr1 := &res1.Bytes[0]

	b.Reset()
	b.Clear()
	res2, err := b.Build()
	require.NoError(t, err)
	ptr2 := &res2.Bytes[0]

	assert.Same(t, ptr1, ptr2)
}

func TestStyleForegroundIsInternedIntoStringTable(t *testing.T) {
	b := newBuilder(drawlist.Options{})
	b.FillRect(0, 0, 1, 1, &drawlist.Style{Foreground: "205"})

	res, err := b.Build()
	require.NoError(t, err)
	_, _, _, strs, _ := header(t, res.Bytes)
	assert.Equal(t, uint32(1), strs)
}

func TestEachCommandRecordIsFourByteAligned(t *testing.T) {
	b := newBuilder(drawlist.Options{})
	b.Clear()
	b.DrawText(0, 0, "odd", nil) // the string itself lives in the string table, not the cmd stream
	b.PushClip(0, 0, 1, 1)
	b.PopClip()

	res, err := b.Build()
	require.NoError(t, err)
	cmdBytes := binary.LittleEndian.Uint32(res.Bytes[20:24])
	assert.Equal(t, uint32(0), cmdBytes%4)
}
