package sink_test

import (
	"bytes"
	"encoding/binary"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/daviscap/internal/errors"
	"codeberg.org/mutker/daviscap/internal/event"
	"codeberg.org/mutker/daviscap/internal/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFile struct {
	bytes.Buffer
	closes   int
	writeErr error
}

func (f *fakeFile) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return f.Buffer.Write(p)
}

func (f *fakeFile) Close() error {
	f.closes++
	return nil
}

type coordGrid struct{}

func (coordGrid) Pixel(x, y int) uint16 {
	return uint16(y*sink.FrameWidth + x)
}

func TestEventSinkForwardsRawBytes(t *testing.T) {
	f := &fakeFile{}
	s := sink.NewEventSink(f)

	a := event.NewPolarityEvent(100, 1, 2, true)
	b := event.NewPolarityEvent(150, 3, 4, false)
	require.NoError(t, s.AppendRaw(&a))
	require.NoError(t, s.AppendRaw(&b))
	assert.Equal(t, int64(16), s.Written())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, f.closes)
	assert.Equal(t, append(a[:], b[:]...), f.Bytes())
}

func TestEventSinkWriteAfterClose(t *testing.T) {
	s := sink.NewEventSink(&fakeFile{})
	require.NoError(t, s.Close())

	e := event.NewPolarityEvent(1, 0, 0, true)
	err := s.AppendRaw(&e)
	assert.True(t, errors.HasCode(err, errors.ErrSinkWrite))
}

func TestEventSinkWriteFailureSurfacesOnFlush(t *testing.T) {
	f := &fakeFile{writeErr: stderrors.New("disk full")}
	s := sink.NewEventSink(f)

	e := event.NewPolarityEvent(1, 0, 0, true)
	require.NoError(t, s.AppendRaw(&e))

	err := s.Close()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrSinkWrite))
	assert.Equal(t, 1, f.closes)
}

func TestFrameSinkBlockLayout(t *testing.T) {
	f := &fakeFile{}
	s := sink.NewFrameSink(f)

	require.NoError(t, s.AppendFrame(-42, coordGrid{}))
	require.NoError(t, s.AppendFrame(200, &event.FrameEvent{}))
	require.NoError(t, s.Close())

	out := f.Bytes()
	require.Len(t, out, 2*sink.FrameBlockSize)
	assert.Equal(t, 86404, sink.FrameBlockSize)

	first := out[:sink.FrameBlockSize]
	assert.Equal(t, int32(-42), int32(binary.LittleEndian.Uint32(first[0:4])))
	for _, xy := range [][2]int{{0, 0}, {239, 0}, {0, 1}, {120, 90}, {239, 179}} {
		off := 4 + 2*(xy[1]*sink.FrameWidth+xy[0])
		got := binary.LittleEndian.Uint16(first[off : off+2])
		assert.Equal(t, coordGrid{}.Pixel(xy[0], xy[1]), got, "pixel %v", xy)
	}

	second := out[sink.FrameBlockSize:]
	assert.Equal(t, int32(200), int32(binary.LittleEndian.Uint32(second[0:4])))
	assert.Equal(t, make([]byte, sink.FrameBlockSize-4), second[4:])
}

func TestCreateSinksTruncate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.bin")
	require.NoError(t, os.WriteFile(path, []byte("stale data"), 0o600))

	s, err := sink.CreateEventSink(path)
	require.NoError(t, err)
	e := event.NewPolarityEvent(9, 9, 9, true)
	require.NoError(t, s.AppendRaw(&e))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, e[:], data)
}

func TestCreateSinkMissingDirectory(t *testing.T) {
	_, err := sink.CreateFrameSink(filepath.Join(t.TempDir(), "missing", "frames.bin"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrSinkOpen, errors.CodeOf(err))
}
