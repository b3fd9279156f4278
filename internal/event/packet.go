package event

// Packet is a batch of events of a single kind.
type Packet interface {
	Kind() Kind
	Len() int
}

// PolarityPacket carries polarity records in arrival order.
type PolarityPacket struct {
	Events []PolarityEvent
}

func (*PolarityPacket) Kind() Kind { return KindPolarity }

func (p *PolarityPacket) Len() int { return len(p.Events) }

// FramePacket carries frame events in arrival order.
type FramePacket struct {
	Events []FrameEvent
}

func (*FramePacket) Kind() Kind { return KindFrame }

func (p *FramePacket) Len() int { return len(p.Events) }

// OtherPacket stands in for any kind the capture does not persist.
type OtherPacket struct {
	Type  Kind
	Count int
}

func (p *OtherPacket) Kind() Kind { return p.Type }

func (p *OtherPacket) Len() int { return p.Count }
