package event

// FrameEvent is one intensity image with its capture timestamp. Pixels are
// stored row-major, SizeX samples per row.
type FrameEvent struct {
	Timestamp int32
	SizeX     int
	SizeY     int
	Pixels    []uint16
}

// PixelGrid is anything that can be sampled by coordinate.
type PixelGrid interface {
	Pixel(x, y int) uint16
}

// Pixel returns the sample at (x, y), or 0 outside the reported dimensions.
func (f *FrameEvent) Pixel(x, y int) uint16 {
	if x < 0 || y < 0 || x >= f.SizeX || y >= f.SizeY {
		return 0
	}
	i := y*f.SizeX + x
	if i >= len(f.Pixels) {
		return 0
	}
	return f.Pixels[i]
}
