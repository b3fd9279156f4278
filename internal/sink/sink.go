// Package sink appends capture records to binary output files.
package sink

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"codeberg.org/mutker/daviscap/internal/errors"
	"codeberg.org/mutker/daviscap/internal/event"
)

const (
	// FrameWidth and FrameHeight are the persisted frame grid dimensions.
	FrameWidth  = 240
	FrameHeight = 180

	// FrameBlockSize is the size of one persisted frame: timestamp then samples.
	FrameBlockSize = 4 + 2*FrameWidth*FrameHeight

	defaultFilePerm = 0o644
	bufferSize      = 64 * 1024
)

// writer is the buffered, close-once core shared by both sinks.
type writer struct {
	name    string
	file    io.WriteCloser
	buf     *bufio.Writer
	written int64
	closed  bool
}

func newWriter(name string, w io.WriteCloser) writer {
	return writer{
		name: name,
		file: w,
		buf:  bufio.NewWriterSize(w, bufferSize),
	}
}

func (w *writer) write(p []byte) error {
	if w.closed {
		return errors.New().WithData(errors.ErrSinkWrite, w.name+": sink closed")
	}
	n, err := w.buf.Write(p)
	w.written += int64(n)
	if err != nil {
		return errors.New().Wrap(errors.ErrSinkWrite, err)
	}
	return nil
}

// close flushes buffered records and closes the file. Later calls are no-ops.
func (w *writer) close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	errFactory := errors.New()
	flushErr := w.buf.Flush()
	closeErr := w.file.Close()
	if flushErr != nil {
		return errFactory.Wrap(errors.ErrSinkWrite, flushErr)
	}
	if closeErr != nil {
		return errFactory.Wrap(errors.ErrSinkClose, closeErr)
	}
	return nil
}

func create(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, defaultFilePerm)
	if err != nil {
		return nil, errors.New().WithData(errors.ErrSinkOpen, struct {
			Path  string
			Error string
		}{
			Path:  path,
			Error: err.Error(),
		})
	}
	return f, nil
}

// EventSink persists polarity records byte for byte.
type EventSink struct {
	writer
}

// NewEventSink wraps w. The sink owns w and closes it on Close.
func NewEventSink(w io.WriteCloser) *EventSink {
	return &EventSink{writer: newWriter("events", w)}
}

// CreateEventSink truncates or creates the file at path.
func CreateEventSink(path string) (*EventSink, error) {
	f, err := create(path)
	if err != nil {
		return nil, err
	}
	return NewEventSink(f), nil
}

// AppendRaw writes the record's eight bytes unchanged.
func (s *EventSink) AppendRaw(e *event.PolarityEvent) error {
	return s.write(e[:])
}

// Written returns the number of bytes accepted so far.
func (s *EventSink) Written() int64 {
	return s.written
}

func (s *EventSink) Close() error {
	return s.close()
}

// FrameSink persists frames as a timestamp followed by a fixed
// FrameWidth x FrameHeight grid of little-endian samples.
type FrameSink struct {
	writer
	block []byte
}

// NewFrameSink wraps w. The sink owns w and closes it on Close.
func NewFrameSink(w io.WriteCloser) *FrameSink {
	return &FrameSink{
		writer: newWriter("frames", w),
		block:  make([]byte, FrameBlockSize),
	}
}

// CreateFrameSink truncates or creates the file at path.
func CreateFrameSink(path string) (*FrameSink, error) {
	f, err := create(path)
	if err != nil {
		return nil, err
	}
	return NewFrameSink(f), nil
}

// AppendFrame writes ts and the grid sampled row by row, y outer and x inner.
func (s *FrameSink) AppendFrame(ts int32, grid event.PixelGrid) error {
	b := s.block
	binary.LittleEndian.PutUint32(b[0:4], uint32(ts))
	i := 4
	for y := 0; y < FrameHeight; y++ {
		for x := 0; x < FrameWidth; x++ {
			binary.LittleEndian.PutUint16(b[i:i+2], grid.Pixel(x, y))
			i += 2
		}
	}
	return s.write(b)
}

// Written returns the number of bytes accepted so far.
func (s *FrameSink) Written() int64 {
	return s.written
}

func (s *FrameSink) Close() error {
	return s.close()
}
