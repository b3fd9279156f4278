package device

import "codeberg.org/mutker/daviscap/internal/errors"

const (
	DriverReplay = "replay"

	defaultPacketSize     = 4096
	maxFramesPerContainer = 16
)

type Config struct {
	Driver       string
	ReplayEvents string
	ReplayFrames string
	PacketSize   int
}

func DefaultConfig() Config {
	return Config{
		Driver:     DriverReplay,
		PacketSize: defaultPacketSize,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	switch c.Driver {
	case DriverReplay:
		if c.ReplayEvents == "" {
			return errFactory.WithMessage(ErrMissingSource, "replay driver needs an events file")
		}
	default:
		return errFactory.WithData(ErrUnsupportedDriver, c.Driver)
	}

	if c.PacketSize <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value int
		}{
			Field: "packet_size",
			Value: c.PacketSize,
		})
	}
	return nil
}
