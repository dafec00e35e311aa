package vision

import "fmt"

// HueFilter keeps pixels whose hue lies in [Low, High].
type HueFilter struct {
	Low  uint8
	High uint8
}

// Filter binarises the frame. Hues outside [Low, High] become 0 and any other
// non-zero hue becomes 255. A hue of exactly zero is never kept, even when Low
// is zero. Hue is the 8-bit OpenCV hue, degrees/2.
func (hf HueFilter) Filter(f *Frame) (*Mask, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("hue filter: %w", err)
	}
	pix, err := hueMask(f, hf.Low, hf.High)
	if err != nil {
		return nil, fmt.Errorf("hue filter: %w", err)
	}
	return &Mask{Width: f.Width, Height: f.Height, Pix: pix}, nil
}
