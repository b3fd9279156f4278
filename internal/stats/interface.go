package stats

import "time"

// Recorder persists closed rate windows.
type Recorder interface {
	Record(w *Window) error
	Close() error
}

// Repository defines the interface for window storage
type Repository interface {
	Record(w *Window) error
	Windows() ([]Window, error)
	Close() error
}

// Window is one closed one-second accounting interval.
type Window struct {
	Start           int64
	ClosedBy        int32
	PolarityPackets uint32
	FrameEvents     uint32
	RecordedAt      time.Time
}
