//go:build !purego

package vision

import (
	"fmt"

	"gocv.io/x/gocv"
)

// hueMask thresholds the frame's HSV hue channel with OpenCV. Saturation and
// value are unconstrained; the lower bound is lifted to 1 so zero hue (grey,
// black and pure red) never passes.
func hueMask(f *Frame, low, high uint8) ([]uint8, error) {
	src, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap frame: %w", err)
	}
	defer src.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(src, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	lower := gocv.NewScalar(float64(max(low, 1)), 0, 0, 0)
	upper := gocv.NewScalar(float64(high), 255, 255, 0)
	gocv.InRangeWithScalar(hsv, lower, upper, &mask)

	// ToBytes copies out of the Mat, which is freed on return.
	return mask.ToBytes(), nil
}
