// Package demux routes the packets of a container to the rate window and
// the per-kind sinks.
package demux

import (
	"codeberg.org/mutker/daviscap/internal/errors"
	"codeberg.org/mutker/daviscap/internal/event"
	"codeberg.org/mutker/daviscap/internal/logger"
	"codeberg.org/mutker/daviscap/internal/ratewindow"
)

// EventWriter receives polarity records.
type EventWriter interface {
	AppendRaw(e *event.PolarityEvent) error
}

// FrameWriter receives frames.
type FrameWriter interface {
	AppendFrame(ts int32, grid event.PixelGrid) error
}

// SummaryFunc is called with every closed rate window and the timestamp
// that closed it.
type SummaryFunc func(s ratewindow.Summary, ts int32)

// Counts tallies what the demuxer has routed.
type Counts struct {
	PolarityPackets uint64
	PolarityEvents  uint64
	FrameEvents     uint64
	FramesWritten   uint64
	Skipped         uint64
}

type Demuxer struct {
	window    *ratewindow.Window
	events    EventWriter
	frames    FrameWriter
	progress  *logger.Progress
	onSummary SummaryFunc
	counts    Counts
}

type Option func(*Demuxer)

// WithFrames persists frames to w. Without it frames are only counted.
func WithFrames(w FrameWriter) Option {
	return func(d *Demuxer) {
		d.frames = w
	}
}

// WithProgress reports each polarity packet's first timestamp on p.
func WithProgress(p *logger.Progress) Option {
	return func(d *Demuxer) {
		d.progress = p
	}
}

// WithSummary registers fn for closed rate windows.
func WithSummary(fn SummaryFunc) Option {
	return func(d *Demuxer) {
		d.onSummary = fn
	}
}

// WithWindow replaces the default window starting at timestamp 0.
func WithWindow(w *ratewindow.Window) Option {
	return func(d *Demuxer) {
		d.window = w
	}
}

func New(events EventWriter, opts ...Option) *Demuxer {
	d := &Demuxer{
		window: ratewindow.New(0),
		events: events,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Process dispatches every present slot of c in order. It stops at the first
// write error.
func (d *Demuxer) Process(c *event.Container) error {
	for i := 0; i < c.Len(); i++ {
		p := c.Packet(i)
		if p == nil {
			continue
		}
		if err := d.Dispatch(p); err != nil {
			return err
		}
	}
	return nil
}

// Dispatch routes a single packet by its kind. Kinds other than polarity and
// frame are ignored.
func (d *Demuxer) Dispatch(p event.Packet) error {
	switch p.Kind() {
	case event.KindPolarity:
		pp, ok := p.(*event.PolarityPacket)
		if !ok {
			d.skip(p)
			return nil
		}
		return d.polarity(pp)
	case event.KindFrame:
		fp, ok := p.(*event.FramePacket)
		if !ok {
			d.skip(p)
			return nil
		}
		return d.frame(fp)
	default:
		d.counts.Skipped++
		return nil
	}
}

func (d *Demuxer) skip(p event.Packet) {
	d.counts.Skipped++
	logger.Debug().
		Str("kind", p.Kind().String()).
		Msgf("Skipping packet of unexpected type %T", p)
}

func (d *Demuxer) polarity(p *event.PolarityPacket) error {
	if len(p.Events) == 0 {
		return nil
	}

	ts := p.Events[0].Timestamp()
	if s, closed := d.window.Observe(ts); closed {
		d.report(s, ts)
	}
	d.window.CountPolarityPacket()
	d.counts.PolarityPackets++
	d.progress.Timestamp(ts)

	for i := range p.Events {
		if err := d.events.AppendRaw(&p.Events[i]); err != nil {
			return errors.New().Wrap(errors.ErrDemux, err)
		}
		d.counts.PolarityEvents++
	}
	return nil
}

func (d *Demuxer) frame(p *event.FramePacket) error {
	for i := range p.Events {
		e := &p.Events[i]
		d.window.CountFrameEvent()
		d.counts.FrameEvents++

		if d.frames == nil {
			continue
		}
		if err := d.frames.AppendFrame(e.Timestamp, e); err != nil {
			return errors.New().Wrap(errors.ErrDemux, err)
		}
		d.counts.FramesWritten++
	}
	return nil
}

func (d *Demuxer) report(s ratewindow.Summary, ts int32) {
	d.progress.Break()
	logger.Info().
		Int32("timestamp", ts).
		Int64("window_start", s.Start).
		Uint32("packet_rate", s.PolarityPackets).
		Uint32("frame_rate", s.FrameEvents).
		Msgf("packet rate: %d Hz   frame rate: %d Hz", s.PolarityPackets, s.FrameEvents)

	if d.onSummary != nil {
		d.onSummary(s, ts)
	}
}

// Counts returns the running totals.
func (d *Demuxer) Counts() Counts {
	return d.counts
}

// Window returns the rate window the demuxer feeds.
func (d *Demuxer) Window() *ratewindow.Window {
	return d.window
}
