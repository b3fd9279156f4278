package demux_test

import (
	stderrors "errors"
	"testing"

	"codeberg.org/mutker/daviscap/internal/demux"
	"codeberg.org/mutker/daviscap/internal/errors"
	"codeberg.org/mutker/daviscap/internal/event"
	"codeberg.org/mutker/daviscap/internal/ratewindow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEvents struct {
	records []event.PolarityEvent
	err     error
}

func (r *recordingEvents) AppendRaw(e *event.PolarityEvent) error {
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, *e)
	return nil
}

type recordingFrames struct {
	timestamps []int32
}

func (r *recordingFrames) AppendFrame(ts int32, _ event.PixelGrid) error {
	r.timestamps = append(r.timestamps, ts)
	return nil
}

type summary struct {
	s  ratewindow.Summary
	ts int32
}

func polarityPacket(timestamps ...int32) *event.PolarityPacket {
	p := &event.PolarityPacket{}
	for i, ts := range timestamps {
		p.Events = append(p.Events, event.NewPolarityEvent(ts, uint16(i), uint16(i), i%2 == 0))
	}
	return p
}

func framePacket(timestamps ...int32) *event.FramePacket {
	p := &event.FramePacket{}
	for _, ts := range timestamps {
		p.Events = append(p.Events, event.FrameEvent{Timestamp: ts, SizeX: 240, SizeY: 180})
	}
	return p
}

func TestPolarityRecordsInOrder(t *testing.T) {
	events := &recordingEvents{}
	d := demux.New(events)

	pkt := polarityPacket(100, 150, 175)
	require.NoError(t, d.Dispatch(pkt))

	assert.Equal(t, pkt.Events, events.records)
	assert.Equal(t, demux.Counts{PolarityPackets: 1, PolarityEvents: 3}, d.Counts())
	assert.Equal(t, uint32(1), d.Window().Current().PolarityPackets)
}

func TestEmptyPolarityPacketLeavesWindowAlone(t *testing.T) {
	var got []summary
	d := demux.New(&recordingEvents{}, demux.WithSummary(func(s ratewindow.Summary, ts int32) {
		got = append(got, summary{s, ts})
	}))

	require.NoError(t, d.Dispatch(&event.PolarityPacket{}))

	assert.Empty(t, got)
	assert.Equal(t, ratewindow.Summary{}, d.Window().Current())
	assert.Equal(t, demux.Counts{}, d.Counts())
}

func TestWindowSummaryUsesFirstEventTimestamp(t *testing.T) {
	var got []summary
	d := demux.New(&recordingEvents{}, demux.WithSummary(func(s ratewindow.Summary, ts int32) {
		got = append(got, summary{s, ts})
	}))

	require.NoError(t, d.Dispatch(polarityPacket(0, 10)))
	require.NoError(t, d.Dispatch(framePacket(400000, 450000)))
	require.NoError(t, d.Dispatch(polarityPacket(500000, 2000000)))
	assert.Empty(t, got, "only the first event of a packet probes the window")

	require.NoError(t, d.Dispatch(polarityPacket(1000001)))
	require.Len(t, got, 1)
	assert.Equal(t, summary{
		s:  ratewindow.Summary{Start: 0, PolarityPackets: 2, FrameEvents: 2},
		ts: 1000001,
	}, got[0])
	assert.Equal(t, ratewindow.Summary{Start: 1000000, PolarityPackets: 1}, d.Window().Current())
}

func TestFramesCountedWithoutSink(t *testing.T) {
	d := demux.New(&recordingEvents{})

	require.NoError(t, d.Dispatch(framePacket(200, 300)))

	assert.Equal(t, demux.Counts{FrameEvents: 2}, d.Counts())
	assert.Equal(t, uint32(2), d.Window().Current().FrameEvents)
}

func TestFramesWrittenWithSink(t *testing.T) {
	frames := &recordingFrames{}
	d := demux.New(&recordingEvents{}, demux.WithFrames(frames))

	require.NoError(t, d.Dispatch(framePacket(200, 300)))

	assert.Equal(t, []int32{200, 300}, frames.timestamps)
	assert.Equal(t, uint64(2), d.Counts().FramesWritten)
}

func TestOtherKindsIgnored(t *testing.T) {
	events := &recordingEvents{}
	d := demux.New(events)

	require.NoError(t, d.Dispatch(&event.OtherPacket{Type: event.KindSpecial, Count: 4}))
	require.NoError(t, d.Dispatch(&event.OtherPacket{Type: event.KindIMU6, Count: 4}))
	// Declared polarity, but the payload is not polarity data.
	require.NoError(t, d.Dispatch(&event.OtherPacket{Type: event.KindPolarity, Count: 4}))

	assert.Empty(t, events.records)
	assert.Equal(t, uint64(3), d.Counts().Skipped)
	assert.Equal(t, ratewindow.Summary{}, d.Window().Current())
}

func TestProcessSkipsAbsentSlots(t *testing.T) {
	events := &recordingEvents{}
	frames := &recordingFrames{}
	d := demux.New(events, demux.WithFrames(frames))

	c := event.NewContainer(5, nil)
	c.Put(polarityPacket(100, 150))
	c.Put(framePacket(120))

	require.NoError(t, d.Process(c))
	assert.Len(t, events.records, 2)
	assert.Equal(t, []int32{120}, frames.timestamps)
}

func TestWriteErrorStopsProcessing(t *testing.T) {
	cause := stderrors.New("short write")
	events := &recordingEvents{err: cause}
	frames := &recordingFrames{}
	d := demux.New(events, demux.WithFrames(frames))

	c := event.NewContainer(3, nil)
	c.Put(polarityPacket(1, 2))
	c.Put(framePacket(3))

	err := d.Process(c)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.True(t, errors.HasCode(err, errors.ErrDemux))
	assert.Empty(t, frames.timestamps)
}
