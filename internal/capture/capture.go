// Package capture drives the acquisition loop: fetch a container from the
// device, demultiplex it into the sinks, repeat until shutdown.
package capture

import (
	"codeberg.org/mutker/daviscap/internal/demux"
	"codeberg.org/mutker/daviscap/internal/errors"
	"codeberg.org/mutker/daviscap/internal/event"
	"codeberg.org/mutker/daviscap/internal/logger"
	"codeberg.org/mutker/daviscap/internal/shutdown"
	"codeberg.org/mutker/daviscap/internal/sink"
)

// Device delivers packet containers from a started camera.
type Device interface {
	// Fetch blocks until a container is ready. A nil container with a nil
	// error means nothing was ready; the caller polls again.
	Fetch() (*event.Container, error)
	// Stop ends data delivery.
	Stop() error
}

// Totals summarizes a finished run.
type Totals struct {
	demux.Counts
	Containers  uint64
	EmptyFetch  uint64
	EventBytes  int64
	FrameBytes  int64
	FramesSaved bool
}

type Loop struct {
	device   Device
	signal   *shutdown.Signal
	events   *sink.EventSink
	frames   *sink.FrameSink
	demux    *demux.Demuxer
	totals   Totals
	finished bool
}

type Option func(*options)

type options struct {
	progress  *logger.Progress
	onSummary demux.SummaryFunc
}

// WithProgress shows the latest polarity timestamp on p.
func WithProgress(p *logger.Progress) Option {
	return func(o *options) {
		o.progress = p
	}
}

// WithSummary registers fn for every closed rate window.
func WithSummary(fn demux.SummaryFunc) Option {
	return func(o *options) {
		o.onSummary = fn
	}
}

// New builds a loop over a started device. frames may be nil, in which case
// frame events are counted but not written. The loop takes ownership of both
// sinks and of stopping the device.
func New(dev Device, sig *shutdown.Signal, events *sink.EventSink, frames *sink.FrameSink, opts ...Option) *Loop {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	demuxOpts := []demux.Option{
		demux.WithProgress(o.progress),
		demux.WithSummary(o.onSummary),
	}
	if frames != nil {
		demuxOpts = append(demuxOpts, demux.WithFrames(frames))
	}

	return &Loop{
		device: dev,
		signal: sig,
		events: events,
		frames: frames,
		demux:  demux.New(events, demuxOpts...),
		totals: Totals{FramesSaved: frames != nil},
	}
}

// Run polls the device until the shutdown signal is observed or a fetch or
// write fails. Whatever the outcome, the sinks are flushed and closed and the
// device is stopped before Run returns.
func (l *Loop) Run() (totals Totals, err error) {
	if l.finished {
		return l.totals, errors.New().WithMessage(errors.ErrCaptureLoop, "capture loop already finished")
	}

	defer func() {
		if finishErr := l.finish(); finishErr != nil {
			err = errors.Join(err, finishErr)
		}
		totals = l.Totals()
	}()

	logger.Debug().Bool("frames", l.frames != nil).Msg("Capture loop started")

	for !l.signal.Triggered() {
		c, fetchErr := l.device.Fetch()
		if fetchErr != nil {
			return l.totals, errors.New().Wrap(errors.ErrDeviceFetch, fetchErr)
		}
		if c == nil {
			l.totals.EmptyFetch++
			continue
		}

		l.totals.Containers++
		procErr := l.demux.Process(c)
		c.Release()
		if procErr != nil {
			return l.totals, errors.New().Wrap(errors.ErrCaptureLoop, procErr)
		}
	}

	logger.Debug().Uint64("containers", l.totals.Containers).Msg("Shutdown observed, draining capture loop")

	return l.totals, nil
}

// finish closes the event sink, the frame sink, then stops the device.
func (l *Loop) finish() error {
	if l.finished {
		return nil
	}
	l.finished = true

	var errs []error
	if err := l.events.Close(); err != nil {
		errs = append(errs, err)
	}
	if l.frames != nil {
		if err := l.frames.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := l.device.Stop(); err != nil {
		errs = append(errs, errors.New().Wrap(errors.ErrDeviceStop, err))
	}

	return errors.Join(errs...)
}

// Totals returns the counts gathered so far.
func (l *Loop) Totals() Totals {
	t := l.totals
	t.Counts = l.demux.Counts()
	t.EventBytes = l.events.Written()
	if l.frames != nil {
		t.FrameBytes = l.frames.Written()
	}
	return t
}
