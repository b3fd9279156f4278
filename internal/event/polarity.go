package event

import "encoding/binary"

// PolaritySize is the on-wire size of one polarity record.
const PolaritySize = 8

const (
	polarityValidBit = 1 << 0
	polarityBit      = 1 << 1
	polarityYShift   = 2
	polarityYMask    = 0x7FFF
	polarityXShift   = 17
	polarityXMask    = 0x7FFF
)

// PolarityEvent is one raw polarity record as delivered by the driver:
// a little-endian data word (valid, polarity, y, x) followed by a
// little-endian signed timestamp in microseconds.
type PolarityEvent [PolaritySize]byte

// NewPolarityEvent packs a record in the driver layout.
func NewPolarityEvent(ts int32, x, y uint16, polarity bool) PolarityEvent {
	data := uint32(polarityValidBit)
	if polarity {
		data |= polarityBit
	}
	data |= (uint32(y) & polarityYMask) << polarityYShift
	data |= (uint32(x) & polarityXMask) << polarityXShift

	var e PolarityEvent
	binary.LittleEndian.PutUint32(e[0:4], data)
	binary.LittleEndian.PutUint32(e[4:8], uint32(ts))
	return e
}

func (e *PolarityEvent) data() uint32 {
	return binary.LittleEndian.Uint32(e[0:4])
}

func (e *PolarityEvent) Timestamp() int32 {
	return int32(binary.LittleEndian.Uint32(e[4:8]))
}

func (e *PolarityEvent) X() uint16 {
	return uint16((e.data() >> polarityXShift) & polarityXMask)
}

func (e *PolarityEvent) Y() uint16 {
	return uint16((e.data() >> polarityYShift) & polarityYMask)
}

// Polarity reports an ON (brightness increase) event.
func (e *PolarityEvent) Polarity() bool {
	return e.data()&polarityBit != 0
}

func (e *PolarityEvent) Valid() bool {
	return e.data()&polarityValidBit != 0
}
