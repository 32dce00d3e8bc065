package backend

import (
	"encoding/binary"
	"fmt"
)

// The event envelope is a length-prefixed little-endian batch: a u32
// event count followed by one record per event. Each record shares the
// drawlist's prefix shape, [u16 kind][u16 reserved][u32 size], with size
// the total record length in bytes, a multiple of 4.

const recordHeader = 8

func align4(n int) int { return (n + 3) &^ 3 }

// EncodeBatch serializes events into one envelope.
func EncodeBatch(events []Event) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, uint32(len(events)))
	for _, ev := range events {
		payload := encodePayload(ev)
		size := recordHeader + align4(len(payload))
		rec := make([]byte, size)
		binary.LittleEndian.PutUint16(rec[0:2], ev.kind())
		binary.LittleEndian.PutUint32(rec[4:8], uint32(size))
		copy(rec[recordHeader:], payload)
		out = append(out, rec...)
	}
	return out
}

func encodePayload(ev Event) []byte {
	switch e := ev.(type) {
	case ResizeEvent:
		p := make([]byte, 16)
		binary.LittleEndian.PutUint64(p[0:8], uint64(e.TimeMs))
		binary.LittleEndian.PutUint32(p[8:12], uint32(e.Cols))
		binary.LittleEndian.PutUint32(p[12:16], uint32(e.Rows))
		return p
	case KeyEvent:
		key := []byte(e.Key)
		p := make([]byte, 12+len(key))
		binary.LittleEndian.PutUint64(p[0:8], uint64(e.TimeMs))
		p[8] = byte(e.Mods)
		p[9] = byte(e.Action)
		binary.LittleEndian.PutUint16(p[10:12], uint16(len(key)))
		copy(p[12:], key)
		return p
	case TextEvent:
		p := make([]byte, 12)
		binary.LittleEndian.PutUint64(p[0:8], uint64(e.TimeMs))
		binary.LittleEndian.PutUint32(p[8:12], uint32(e.Codepoint))
		return p
	case PasteEvent:
		p := make([]byte, 12+len(e.Bytes))
		binary.LittleEndian.PutUint64(p[0:8], uint64(e.TimeMs))
		binary.LittleEndian.PutUint32(p[8:12], uint32(len(e.Bytes)))
		copy(p[12:], e.Bytes)
		return p
	case MouseEvent:
		p := make([]byte, 28)
		binary.LittleEndian.PutUint64(p[0:8], uint64(e.TimeMs))
		binary.LittleEndian.PutUint32(p[8:12], uint32(int32(e.X)))
		binary.LittleEndian.PutUint32(p[12:16], uint32(int32(e.Y)))
		p[16] = byte(e.Kind)
		p[17] = e.Buttons
		p[18] = byte(e.Mods)
		binary.LittleEndian.PutUint32(p[20:24], uint32(int32(e.WheelX)))
		binary.LittleEndian.PutUint32(p[24:28], uint32(int32(e.WheelY)))
		return p
	}
	return nil
}

// DecodeBatch parses one envelope back into events. Unknown kinds are an
// error: the kind set is closed and versioned with the envelope itself.
func DecodeBatch(data []byte) ([]Event, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("event batch: short header (%d bytes)", len(data))
	}
	count := int(binary.LittleEndian.Uint32(data[0:4]))
	off := 4
	events := make([]Event, 0, count)
	for i := 0; i < count; i++ {
		if off+recordHeader > len(data) {
			return nil, fmt.Errorf("event batch: record %d truncated at offset %d", i, off)
		}
		kind := binary.LittleEndian.Uint16(data[off : off+2])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		if size < recordHeader || size%4 != 0 || off+size > len(data) {
			return nil, fmt.Errorf("event batch: record %d has bad size %d", i, size)
		}
		ev, err := decodePayload(kind, data[off+recordHeader:off+size])
		if err != nil {
			return nil, fmt.Errorf("event batch: record %d: %w", i, err)
		}
		events = append(events, ev)
		off += size
	}
	return events, nil
}

func decodePayload(kind uint16, p []byte) (Event, error) {
	switch kind {
	case kindResize:
		if len(p) < 16 {
			return nil, fmt.Errorf("resize payload too short")
		}
		return ResizeEvent{
			TimeMs: int64(binary.LittleEndian.Uint64(p[0:8])),
			Cols:   int(binary.LittleEndian.Uint32(p[8:12])),
			Rows:   int(binary.LittleEndian.Uint32(p[12:16])),
		}, nil
	case kindKey:
		if len(p) < 12 {
			return nil, fmt.Errorf("key payload too short")
		}
		n := int(binary.LittleEndian.Uint16(p[10:12]))
		if 12+n > len(p) {
			return nil, fmt.Errorf("key name truncated")
		}
		return KeyEvent{
			TimeMs: int64(binary.LittleEndian.Uint64(p[0:8])),
			Mods:   Mod(p[8]),
			Action: KeyAction(p[9]),
			Key:    string(p[12 : 12+n]),
		}, nil
	case kindText:
		if len(p) < 12 {
			return nil, fmt.Errorf("text payload too short")
		}
		return TextEvent{
			TimeMs:    int64(binary.LittleEndian.Uint64(p[0:8])),
			Codepoint: rune(binary.LittleEndian.Uint32(p[8:12])),
		}, nil
	case kindPaste:
		if len(p) < 12 {
			return nil, fmt.Errorf("paste payload too short")
		}
		n := int(binary.LittleEndian.Uint32(p[8:12]))
		if 12+n > len(p) {
			return nil, fmt.Errorf("paste bytes truncated")
		}
		return PasteEvent{
			TimeMs: int64(binary.LittleEndian.Uint64(p[0:8])),
			Bytes:  append([]byte(nil), p[12:12+n]...),
		}, nil
	case kindMouse:
		if len(p) < 28 {
			return nil, fmt.Errorf("mouse payload too short")
		}
		return MouseEvent{
			TimeMs:  int64(binary.LittleEndian.Uint64(p[0:8])),
			X:       int(int32(binary.LittleEndian.Uint32(p[8:12]))),
			Y:       int(int32(binary.LittleEndian.Uint32(p[12:16]))),
			Kind:    MouseKind(p[16]),
			Buttons: p[17],
			Mods:    Mod(p[18]),
			WheelX:  int(int32(binary.LittleEndian.Uint32(p[20:24]))),
			WheelY:  int(int32(binary.LittleEndian.Uint32(p[24:28]))),
		}, nil
	}
	return nil, fmt.Errorf("unknown event kind %d", kind)
}
