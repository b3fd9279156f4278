package device

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"sync"

	"codeberg.org/mutker/daviscap/internal/errors"
	"codeberg.org/mutker/daviscap/internal/event"
	"codeberg.org/mutker/daviscap/internal/logger"
	"codeberg.org/mutker/daviscap/internal/sink"
)

const containerSlots = int(event.KindFrame) + 1

// Replay plays back an events file and an optional frames file, both in the
// capture output format, as if they came from a live camera. Polarity
// records are grouped into packets of PacketSize; frames are delivered with
// the first container whose last polarity timestamp reaches them.
type Replay struct {
	eventsFile *os.File
	framesFile *os.File
	events     *bufio.Reader
	frames     *bufio.Reader
	packetSize int

	pool    sync.Pool
	pending *event.FrameEvent

	eventsDone   bool
	framesDone   bool
	onDisconnect func()
	disconnected bool
	stopped      bool
}

// Open starts the device described by cfg. onDisconnect runs once when the
// device stops delivering data on its own.
func Open(cfg Config, onDisconnect func()) (*Replay, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(errors.ErrDeviceOpen, err)
	}

	r := &Replay{
		packetSize:   cfg.PacketSize,
		onDisconnect: onDisconnect,
		framesDone:   true,
	}
	r.pool.New = func() any {
		buf := make([]event.PolarityEvent, 0, r.packetSize)
		return &buf
	}

	f, err := os.Open(cfg.ReplayEvents)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrDeviceOpen, err)
	}
	r.eventsFile = f
	r.events = bufio.NewReaderSize(f, cfg.PacketSize*event.PolaritySize)

	if cfg.ReplayFrames != "" {
		f, err := os.Open(cfg.ReplayFrames)
		if err != nil {
			r.eventsFile.Close()
			return nil, errFactory.Wrap(errors.ErrDeviceOpen, err)
		}
		r.framesFile = f
		r.frames = bufio.NewReaderSize(f, sink.FrameBlockSize)
		r.framesDone = false
	}

	logger.Info().
		Str("driver", DriverReplay).
		Str("events", cfg.ReplayEvents).
		Str("frames", cfg.ReplayFrames).
		Int("packet_size", cfg.PacketSize).
		Int("dvs_x", sink.FrameWidth).
		Int("dvs_y", sink.FrameHeight).
		Msg("Device opened")

	return r, nil
}

// Fetch returns the next container, or nil once both files are exhausted.
func (r *Replay) Fetch() (*event.Container, error) {
	errFactory := errors.New()

	if r.stopped {
		return nil, errFactory.New(ErrStopped)
	}

	buf := r.pool.Get().(*[]event.PolarityEvent)
	events, err := r.readEvents((*buf)[:0])
	if err != nil {
		r.pool.Put(buf)
		return nil, errFactory.Wrap(ErrReadFailed, err)
	}

	limit, bounded := int32(0), false
	if len(events) > 0 {
		limit, bounded = events[len(events)-1].Timestamp(), !r.eventsDone
	}
	frames, err := r.readFrames(limit, bounded)
	if err != nil {
		r.pool.Put(buf)
		return nil, errFactory.Wrap(ErrReadFailed, err)
	}

	if len(events) == 0 && len(frames) == 0 {
		r.pool.Put(buf)
		if r.eventsDone && r.framesDone {
			r.disconnect()
		}
		return nil, nil
	}

	c := event.NewContainer(containerSlots, func() {
		*buf = events[:0]
		r.pool.Put(buf)
	})
	if len(events) > 0 {
		c.Put(&event.PolarityPacket{Events: events})
	}
	if len(frames) > 0 {
		c.Put(&event.FramePacket{Events: frames})
	}
	return c, nil
}

func (r *Replay) readEvents(events []event.PolarityEvent) ([]event.PolarityEvent, error) {
	for len(events) < r.packetSize && !r.eventsDone {
		var e event.PolarityEvent
		if _, err := io.ReadFull(r.events, e[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				r.eventsDone = true
				break
			}
			return events, err
		}
		events = append(events, e)
	}
	return events, nil
}

// readFrames collects frames up to limit when bounded, otherwise whatever is
// left, at most maxFramesPerContainer either way.
func (r *Replay) readFrames(limit int32, bounded bool) ([]event.FrameEvent, error) {
	var frames []event.FrameEvent
	for len(frames) < maxFramesPerContainer {
		if r.pending == nil {
			f, err := r.readFrame()
			if err != nil {
				return frames, err
			}
			if f == nil {
				break
			}
			r.pending = f
		}
		if bounded && r.pending.Timestamp > limit {
			break
		}
		frames = append(frames, *r.pending)
		r.pending = nil
	}
	return frames, nil
}

func (r *Replay) readFrame() (*event.FrameEvent, error) {
	if r.framesDone {
		return nil, nil
	}

	block := make([]byte, sink.FrameBlockSize)
	if _, err := io.ReadFull(r.frames, block); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			r.framesDone = true
			return nil, nil
		}
		return nil, err
	}

	f := &event.FrameEvent{
		Timestamp: int32(binary.LittleEndian.Uint32(block[0:4])),
		SizeX:     sink.FrameWidth,
		SizeY:     sink.FrameHeight,
		Pixels:    make([]uint16, sink.FrameWidth*sink.FrameHeight),
	}
	for i := range f.Pixels {
		f.Pixels[i] = binary.LittleEndian.Uint16(block[4+2*i:])
	}
	return f, nil
}

func (r *Replay) disconnect() {
	if r.disconnected {
		return
	}
	r.disconnected = true
	logger.Info().Msg("Replay exhausted, device disconnected")
	if r.onDisconnect != nil {
		r.onDisconnect()
	}
}

// Stop ends data delivery and closes the replay files.
func (r *Replay) Stop() error {
	if r.stopped {
		return nil
	}
	r.stopped = true

	var errs []error
	if err := r.eventsFile.Close(); err != nil {
		errs = append(errs, err)
	}
	if r.framesFile != nil {
		if err := r.framesFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.New().Wrap(errors.ErrDeviceStop, errors.Join(errs...))
	}

	logger.Debug().Msg("Device data delivery stopped")
	return nil
}
