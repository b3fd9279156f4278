// Package ratewindow counts polarity packets and frame events over fixed
// one-second windows of device time.
package ratewindow

// Width is the length of one window in device timestamp ticks (microseconds).
const Width = 1_000_000

// Summary is the tally of one closed window.
type Summary struct {
	Start           int64
	PolarityPackets uint32
	FrameEvents     uint32
}

// Window accumulates counts for the window starting at Start. The zero value
// is a window starting at timestamp 0.
type Window struct {
	start           int64
	polarityPackets uint32
	frameEvents     uint32
}

// New returns a window starting at start.
func New(start int64) *Window {
	return &Window{start: start}
}

// Observe probes the window boundary with ts. When ts lies beyond the end of
// the current window, the window is closed and its summary returned, the
// counters reset and the start advanced by exactly one Width. At most one
// window closes per call, so a gap spanning several windows is reported as a
// single window.
func (w *Window) Observe(ts int32) (Summary, bool) {
	if int64(ts) <= w.start+Width {
		return Summary{}, false
	}

	s := Summary{
		Start:           w.start,
		PolarityPackets: w.polarityPackets,
		FrameEvents:     w.frameEvents,
	}
	w.polarityPackets = 0
	w.frameEvents = 0
	w.start += Width

	return s, true
}

func (w *Window) CountPolarityPacket() {
	w.polarityPackets++
}

func (w *Window) CountFrameEvent() {
	w.frameEvents++
}

func (w *Window) Start() int64 {
	return w.start
}

// Current returns the counts accumulated so far without closing the window.
func (w *Window) Current() Summary {
	return Summary{
		Start:           w.start,
		PolarityPackets: w.polarityPackets,
		FrameEvents:     w.frameEvents,
	}
}
