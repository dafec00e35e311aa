package vision

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// BandHalfHeight is the number of rows taken above and below the detect line.
// The scan band is always 2*BandHalfHeight rows tall.
const BandHalfHeight = 2

// Candidate is a hypothesised lane centre column and the mask coverage found
// under its two rails.
type Candidate struct {
	Center int
	Score  int
}

// Estimate is the result of one search over a mask.
type Estimate struct {
	Candidate
	// Offset is Center relative to the horizontal centre of the frame.
	Offset int
}

// Estimator locates the lane centreline by sliding a pair of rails, 2*DetectDist
// apart, across a thin band of the mask and keeping the position with the most
// lane-coloured pixels under the rails.
type Estimator struct {
	DetectLine int
	DetectDist int
	HalfWidth  int
}

// Estimate searches offsets in [-HalfWidth, HalfWidth) in increasing order.
//
// Only a strict improvement replaces the best candidate and the running best
// starts at -1, so the first offset evaluated wins every tie. With no lane
// pixels in the band every score is 0 and the result is always -HalfWidth,
// a hard steer to one side. That bias is kept as-is; callers that want a
// centred fallback must detect Score == 0 themselves.
func (e Estimator) Estimate(m *Mask) Estimate {
	if e.DetectLine < BandHalfHeight || e.DetectLine+BandHalfHeight > m.Height {
		panic(fmt.Sprintf("vision: detect line %d outside mask of height %d", e.DetectLine, m.Height))
	}

	cols := e.bandColumnSums(m)
	center := m.Width / 2

	best := Candidate{Score: -1}
	for dist := -e.HalfWidth; dist < e.HalfWidth; dist++ {
		c := center + dist
		score := columnScore(cols, c-e.DetectDist) + columnScore(cols, c+e.DetectDist)
		if score > best.Score {
			best = Candidate{Center: c, Score: score}
		}
	}
	return Estimate{Candidate: best, Offset: best.Center - center}
}

// bandColumnSums sums each column over the rows of the scan band.
func (e Estimator) bandColumnSums(m *Mask) []float64 {
	sums := make([]float64, m.Width)
	row := make([]float64, m.Width)
	for y := e.DetectLine - BandHalfHeight; y < e.DetectLine+BandHalfHeight; y++ {
		for x, v := range m.Row(y) {
			row[x] = float64(v)
		}
		floats.Add(sums, row)
	}
	return sums
}

func columnScore(cols []float64, col int) int {
	if col < 0 || col >= len(cols) {
		return 0
	}
	return int(cols[col])
}
