//go:build purego

package vision

// OpenCV stores 8-bit hue as degrees/2, so the hue wheel spans [0, 180).
const hueRange = 180

const hsvShift = 12

// hueDivTable[d] is round((180 << 12) / (6 * d)), the fixed point reciprocal
// used by the 8-bit BGR to HSV conversion.
var hueDivTable = func() [256]int {
	var t [256]int
	for d := 1; d < len(t); d++ {
		t[d] = int(float64(hueRange<<hsvShift)/(6*float64(d)) + 0.5)
	}
	return t
}()

// Hue returns the 8-bit hue of a BGR pixel using the same fixed point
// arithmetic as OpenCV's COLOR_BGR2HSV, so masks match frame for frame.
func Hue(b, g, r uint8) uint8 {
	bi, gi, ri := int(b), int(g), int(r)
	v := max(bi, gi, ri)
	diff := v - min(bi, gi, ri)

	var h int
	switch {
	case v == ri:
		h = gi - bi
	case v == gi:
		h = bi - ri + 2*diff
	default:
		h = ri - gi + 4*diff
	}
	h = (h*hueDivTable[diff] + (1 << (hsvShift - 1))) >> hsvShift
	if h < 0 {
		h += hueRange
	}
	return uint8(h)
}

func hueMask(f *Frame, low, high uint8) ([]uint8, error) {
	pix := make([]uint8, f.Width*f.Height)
	for i := range pix {
		p := f.Pix[i*3 : i*3+3]
		h := Hue(p[0], p[1], p[2])
		if h < low || h > high || h == 0 {
			continue
		}
		pix[i] = 255
	}
	return pix, nil
}
