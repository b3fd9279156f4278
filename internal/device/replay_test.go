package device_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/daviscap/internal/capture"
	"codeberg.org/mutker/daviscap/internal/device"
	"codeberg.org/mutker/daviscap/internal/errors"
	"codeberg.org/mutker/daviscap/internal/event"
	"codeberg.org/mutker/daviscap/internal/shutdown"
	"codeberg.org/mutker/daviscap/internal/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gradient struct{ base uint16 }

func (g gradient) Pixel(x, y int) uint16 {
	return g.base + uint16(x+y)
}

func writeRecording(t *testing.T, dir string, eventTimestamps, frameTimestamps []int32) (string, string) {
	t.Helper()

	eventsPath := filepath.Join(dir, "events.bin")
	events, err := sink.CreateEventSink(eventsPath)
	require.NoError(t, err)
	for i, ts := range eventTimestamps {
		e := event.NewPolarityEvent(ts, uint16(i%240), uint16(i%180), i%2 == 0)
		require.NoError(t, events.AppendRaw(&e))
	}
	require.NoError(t, events.Close())

	if frameTimestamps == nil {
		return eventsPath, ""
	}

	framesPath := filepath.Join(dir, "frames.bin")
	frames, err := sink.CreateFrameSink(framesPath)
	require.NoError(t, err)
	for i, ts := range frameTimestamps {
		require.NoError(t, frames.AppendFrame(ts, gradient{base: uint16(i)}))
	}
	require.NoError(t, frames.Close())

	return eventsPath, framesPath
}

func TestConfigValidate(t *testing.T) {
	cfg := device.DefaultConfig()
	assert.True(t, errors.HasCode(cfg.Validate(), device.ErrMissingSource))

	cfg.ReplayEvents = "events.bin"
	assert.NoError(t, cfg.Validate())

	cfg.PacketSize = 0
	assert.True(t, errors.HasCode(cfg.Validate(), errors.ErrInvalidConfig))

	cfg = device.Config{Driver: "davis240c", PacketSize: 1}
	assert.True(t, errors.HasCode(cfg.Validate(), device.ErrUnsupportedDriver))
}

func TestOpenMissingFile(t *testing.T) {
	cfg := device.DefaultConfig()
	cfg.ReplayEvents = filepath.Join(t.TempDir(), "absent.bin")

	_, err := device.Open(cfg, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrDeviceOpen, errors.CodeOf(err))
}

func TestReplayPacketsAndFrames(t *testing.T) {
	eventsPath, framesPath := writeRecording(t, t.TempDir(),
		[]int32{10, 20, 30, 40, 50},
		[]int32{15, 45, 90})

	disconnects := 0
	dev, err := device.Open(device.Config{
		Driver:       device.DriverReplay,
		ReplayEvents: eventsPath,
		ReplayFrames: framesPath,
		PacketSize:   2,
	}, func() { disconnects++ })
	require.NoError(t, err)

	type fetched struct {
		polarity []int32
		frames   []int32
	}
	var got []fetched
	for i := 0; i < 10 && disconnects == 0; i++ {
		c, err := dev.Fetch()
		require.NoError(t, err)
		if c == nil {
			continue
		}
		var f fetched
		if p, ok := c.Packet(int(event.KindPolarity)).(*event.PolarityPacket); ok {
			for i := range p.Events {
				f.polarity = append(f.polarity, p.Events[i].Timestamp())
			}
		}
		if p, ok := c.Packet(int(event.KindFrame)).(*event.FramePacket); ok {
			for _, fe := range p.Events {
				f.frames = append(f.frames, fe.Timestamp)
			}
		}
		c.Release()
		got = append(got, f)
	}

	assert.Equal(t, []fetched{
		{polarity: []int32{10, 20}, frames: []int32{15}},
		{polarity: []int32{30, 40}},
		{polarity: []int32{50}, frames: []int32{45, 90}},
	}, got)
	assert.Equal(t, 1, disconnects)

	c, err := dev.Fetch()
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Equal(t, 1, disconnects)

	require.NoError(t, dev.Stop())
	require.NoError(t, dev.Stop())
	_, err = dev.Fetch()
	assert.True(t, errors.HasCode(err, device.ErrStopped))
}

func TestReplayIgnoresTrailingPartialRecord(t *testing.T) {
	dir := t.TempDir()
	eventsPath, _ := writeRecording(t, dir, []int32{1, 2, 3}, nil)

	f, err := os.OpenFile(eventsPath, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	dev, err := device.Open(device.Config{Driver: device.DriverReplay, ReplayEvents: eventsPath, PacketSize: 8}, nil)
	require.NoError(t, err)
	defer dev.Stop()

	c, err := dev.Fetch()
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 3, c.Packet(int(event.KindPolarity)).Len())
	assert.Nil(t, c.Packet(int(event.KindFrame)))
}

func TestReplayThroughCaptureReproducesFiles(t *testing.T) {
	src := t.TempDir()
	var timestamps []int32
	for ts := int32(0); ts < 2500000; ts += 2500 {
		timestamps = append(timestamps, ts)
	}
	eventsPath, framesPath := writeRecording(t, src, timestamps, []int32{0, 40000, 1200000, 2400000})

	sig := shutdown.New()
	dev, err := device.Open(device.Config{
		Driver:       device.DriverReplay,
		ReplayEvents: eventsPath,
		ReplayFrames: framesPath,
		PacketSize:   64,
	}, sig.Trigger)
	require.NoError(t, err)

	dst := t.TempDir()
	outEvents, err := sink.CreateEventSink(filepath.Join(dst, "events.bin"))
	require.NoError(t, err)
	outFrames, err := sink.CreateFrameSink(filepath.Join(dst, "frames.bin"))
	require.NoError(t, err)

	totals, err := capture.New(dev, sig, outEvents, outFrames).Run()
	require.NoError(t, err)
	assert.Equal(t, uint64(len(timestamps)), totals.PolarityEvents)
	assert.Equal(t, uint64(4), totals.FramesWritten)

	for _, name := range []string{"events.bin", "frames.bin"} {
		want, err := os.ReadFile(filepath.Join(src, name))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(dst, name))
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}
