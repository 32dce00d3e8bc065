// Package backend specifies the contract between the runtime and the host
// rendering engine: the interface the runtime drives, the capability
// surface it probes, and the unified input-event envelope it consumes.
// The runtime never performs terminal I/O itself; every byte in and out
// crosses this boundary.
package backend

// Caps advertises what the host engine can consume. DrawlistVersion gates
// which commands the renderer may emit (cursor commands need v2+, canvas
// v4+, images v5+).
type Caps struct {
	DrawlistVersion int
	Cursor          bool
	OSC52           bool
}

// Backend is the host rendering engine as seen by the runtime. Start,
// Stop and Dispose bracket the engine's lifetime; RequestFrame submits
// one built drawlist; PollEvents drains the pending input batch.
type Backend interface {
	Start() error
	Stop() error
	Dispose() error
	RequestFrame(frame []byte) error
	PollEvents() ([]Event, error)
	PostUserEvent(ev Event)
	Caps() Caps
}

// RawWriter is the optional capability marker a backend attaches when it
// can pass arbitrary escape bytes straight through to the terminal. The
// router uses it for OSC52 clipboard writes; the runtime guarantees at
// most one invocation per copy/cut operation.
type RawWriter interface {
	RawWrite(p []byte)
}
