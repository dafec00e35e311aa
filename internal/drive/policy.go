package drive

import (
	"fmt"
	"math"

	"github.com/banshee-data/lane.driver/internal/config"
	"github.com/banshee-data/lane.driver/internal/vision"
)

// Policy maps a lane offset in pixels to a steering angle and a fixed speed.
type Policy struct {
	Center        int     // horizontal centre of the frame, in pixels
	Gain          float64 // applied to the offset normalised by Center
	Speed         float64
	SteeringLimit float64 // radians, symmetric
}

// Decide returns a full command for the given offset. The steering angle is
// offset/Center*Gain clamped to [-SteeringLimit, SteeringLimit].
func (p Policy) Decide(offset int) Command {
	steering := float64(offset) / float64(p.Center) * p.Gain
	steering = clamp(steering, -p.SteeringLimit, p.SteeringLimit)
	return Command{Speed: Float(p.Speed), Steering: Float(steering)}
}

func clamp(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, value))
}

// Decision is everything one tick of a Pipeline produced.
type Decision struct {
	Estimate vision.Estimate
	Command  Command
}

// Pipeline computes the command for one frame. Implementations may return a
// partial command.
type Pipeline interface {
	Decide(f *vision.Frame) (Decision, error)
}

// LanePipeline chains the hue filter, lane estimator and policy.
type LanePipeline struct {
	Width     int
	Height    int
	Filter    vision.HueFilter
	Estimator vision.Estimator
	Policy    Policy
}

// NewLanePipeline builds a pipeline from the effective configuration. The
// configuration is assumed to have passed Validate.
func NewLanePipeline(cfg *config.DriverConfig) *LanePipeline {
	return &LanePipeline{
		Width:  cfg.GetFrameWidth(),
		Height: cfg.GetFrameHeight(),
		Filter: vision.HueFilter{
			Low:  uint8(cfg.GetHueLow()),
			High: uint8(cfg.GetHueHigh()),
		},
		Estimator: vision.Estimator{
			DetectLine: cfg.GetDetectLine(),
			DetectDist: cfg.GetDetectDist(),
			HalfWidth:  cfg.GetSearchHalfWidth(),
		},
		Policy: Policy{
			Center:        cfg.GetFrameWidth() / 2,
			Gain:          cfg.GetSteeringGain(),
			Speed:         cfg.GetSpeed(),
			SteeringLimit: cfg.GetSteeringLimit(),
		},
	}
}

// Decide runs the frame through the filter, estimator and policy.
func (p *LanePipeline) Decide(f *vision.Frame) (Decision, error) {
	if err := f.Validate(); err != nil {
		return Decision{}, err
	}
	if f.Width != p.Width || f.Height != p.Height {
		return Decision{}, fmt.Errorf("%w: frame is %dx%d, want %dx%d",
			vision.ErrInvalidFrame, f.Width, f.Height, p.Width, p.Height)
	}

	mask, err := p.Filter.Filter(f)
	if err != nil {
		return Decision{}, err
	}
	est := p.Estimator.Estimate(mask)
	return Decision{Estimate: est, Command: p.Policy.Decide(est.Offset)}, nil
}
