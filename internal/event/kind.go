package event

import "strconv"

// Kind identifies the type of events a packet carries. The numeric values
// match the device driver's event type enumeration, which is also the slot
// index the driver uses inside a container.
type Kind int16

const (
	KindSpecial  Kind = 0
	KindPolarity Kind = 1
	KindFrame    Kind = 2
	KindIMU6     Kind = 3
	KindIMU9     Kind = 4
)

func (k Kind) String() string {
	switch k {
	case KindSpecial:
		return "special"
	case KindPolarity:
		return "polarity"
	case KindFrame:
		return "frame"
	case KindIMU6:
		return "imu6"
	case KindIMU9:
		return "imu9"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}
