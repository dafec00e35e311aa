// Package vision turns camera frames into a lane centre estimate.
//
// A Frame is binarised by a HueFilter into a Mask, and an Estimator searches a
// thin horizontal band of that mask for the centreline of two parallel lane
// rails.
package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrInvalidFrame is returned when a pixel buffer does not have the shape the
// filter expects.
var ErrInvalidFrame = errors.New("invalid frame")

// Frame is a packed, row-major pixel buffer in BGR channel order.
type Frame struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// NewFrame allocates a zeroed (black) three channel frame.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:    width,
		Height:   height,
		Channels: 3,
		Pix:      make([]uint8, width*height*3),
	}
}

// FrameFromImage copies a decoded image into a BGR frame. Alpha is dropped
// without premultiplying.
func FrameFromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			f.Pix[i] = c.B
			f.Pix[i+1] = c.G
			f.Pix[i+2] = c.R
			i += 3
		}
	}
	return f
}

// Validate checks the frame is a non-empty three channel buffer whose length
// matches its dimensions.
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrInvalidFrame)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}
	if f.Channels != 3 {
		return fmt.Errorf("%w: %d channels, want 3", ErrInvalidFrame, f.Channels)
	}
	if want := f.Width * f.Height * f.Channels; len(f.Pix) != want {
		return fmt.Errorf("%w: buffer holds %d bytes, want %d", ErrInvalidFrame, len(f.Pix), want)
	}
	return nil
}

// SetBGR writes one pixel. Out of range coordinates are ignored.
func (f *Frame) SetBGR(x, y int, b, g, r uint8) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	i := (y*f.Width + x) * f.Channels
	f.Pix[i] = b
	f.Pix[i+1] = g
	f.Pix[i+2] = r
}

// BGR returns the channels of the pixel at (x, y).
func (f *Frame) BGR(x, y int) (b, g, r uint8) {
	i := (y*f.Width + x) * f.Channels
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Mask is a single channel buffer whose elements are 0 or 255.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// At returns the mask value at (x, y).
func (m *Mask) At(x, y int) uint8 {
	return m.Pix[y*m.Width+x]
}

// Row returns row y of the mask. The slice aliases the mask buffer.
func (m *Mask) Row(y int) []uint8 {
	return m.Pix[y*m.Width : (y+1)*m.Width]
}
