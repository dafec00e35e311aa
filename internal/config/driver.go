package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical driver defaults file.
const DefaultConfigPath = "config/driver.defaults.json"

// DriverConfig holds the geometry and policy constants of the lane driver.
// Every field is optional; the Get* methods fall back to the reference
// scenario (a 320x240 camera, yellow rails 260px apart, 0.2 speed).
type DriverConfig struct {
	// Frame geometry
	FrameWidth  *int `json:"frame_width,omitempty"`
	FrameHeight *int `json:"frame_height,omitempty"`

	// Lane search
	DetectLine      *int `json:"detect_line,omitempty"`
	DetectDist      *int `json:"detect_dist,omitempty"`
	SearchHalfWidth *int `json:"search_half_width,omitempty"`

	// Hue band, in OpenCV 8-bit hue units [0, 180)
	HueLow  *int `json:"hue_low,omitempty"`
	HueHigh *int `json:"hue_high,omitempty"`

	// Command policy
	SteeringGain  *float64 `json:"steering_gain,omitempty"`
	Speed         *float64 `json:"speed,omitempty"`
	SteeringLimit *float64 `json:"steering_limit,omitempty"` // radians
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyDriverConfig returns a DriverConfig with all fields unset.
func EmptyDriverConfig() *DriverConfig {
	return &DriverConfig{}
}

// DefaultDriverConfig returns a DriverConfig with every field populated from
// the built-in defaults.
func DefaultDriverConfig() *DriverConfig {
	c := EmptyDriverConfig()
	return &DriverConfig{
		FrameWidth:      ptrInt(c.GetFrameWidth()),
		FrameHeight:     ptrInt(c.GetFrameHeight()),
		DetectLine:      ptrInt(c.GetDetectLine()),
		DetectDist:      ptrInt(c.GetDetectDist()),
		SearchHalfWidth: ptrInt(c.GetSearchHalfWidth()),
		HueLow:          ptrInt(c.GetHueLow()),
		HueHigh:         ptrInt(c.GetHueHigh()),
		SteeringGain:    ptrFloat64(c.GetSteeringGain()),
		Speed:           ptrFloat64(c.GetSpeed()),
		SteeringLimit:   ptrFloat64(c.GetSteeringLimit()),
	}
}

// LoadDriverConfig loads a DriverConfig from a JSON file. Fields omitted from
// the file keep their defaults.
func LoadDriverConfig(path string) (*DriverConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyDriverConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the effective configuration describes a usable camera
// geometry and policy.
func (c *DriverConfig) Validate() error {
	w, h := c.GetFrameWidth(), c.GetFrameHeight()
	if w <= 0 || h <= 0 {
		return fmt.Errorf("frame size must be positive, got %dx%d", w, h)
	}

	// The scan band spans two rows either side of the detect line.
	if line := c.GetDetectLine(); line < 2 || line >= h-2 {
		return fmt.Errorf("detect_line must be in [2, %d), got %d", h-2, line)
	}

	if d := c.GetDetectDist(); d <= 0 {
		return fmt.Errorf("detect_dist must be positive, got %d", d)
	}
	if hw := c.GetSearchHalfWidth(); hw <= 0 {
		return fmt.Errorf("search_half_width must be positive, got %d", hw)
	}

	lo, hi := c.GetHueLow(), c.GetHueHigh()
	if lo < 0 || hi >= 180 || lo > hi {
		return fmt.Errorf("hue band must satisfy 0 <= hue_low <= hue_high < 180, got [%d, %d]", lo, hi)
	}

	if s := c.GetSpeed(); s < 0 || math.IsNaN(s) {
		return fmt.Errorf("speed must be non-negative, got %f", s)
	}
	if l := c.GetSteeringLimit(); !(l > 0) {
		return fmt.Errorf("steering_limit must be positive, got %f", l)
	}
	if g := c.GetSteeringGain(); math.IsNaN(g) || math.IsInf(g, 0) {
		return fmt.Errorf("steering_gain must be finite, got %f", g)
	}

	return nil
}

// GetFrameWidth returns the frame_width value or the default.
func (c *DriverConfig) GetFrameWidth() int {
	if c.FrameWidth == nil {
		return 320
	}
	return *c.FrameWidth
}

// GetFrameHeight returns the frame_height value or the default.
func (c *DriverConfig) GetFrameHeight() int {
	if c.FrameHeight == nil {
		return 240
	}
	return *c.FrameHeight
}

// GetDetectLine returns the detect_line value or the default.
func (c *DriverConfig) GetDetectLine() int {
	if c.DetectLine == nil {
		return 70
	}
	return *c.DetectLine
}

// GetDetectDist returns the detect_dist value or the default.
func (c *DriverConfig) GetDetectDist() int {
	if c.DetectDist == nil {
		return 130
	}
	return *c.DetectDist
}

// GetSearchHalfWidth returns the search_half_width value or the default.
func (c *DriverConfig) GetSearchHalfWidth() int {
	if c.SearchHalfWidth == nil {
		return 100
	}
	return *c.SearchHalfWidth
}

// GetHueLow returns the hue_low value or the default.
func (c *DriverConfig) GetHueLow() int {
	if c.HueLow == nil {
		return 20
	}
	return *c.HueLow
}

// GetHueHigh returns the hue_high value or the default.
func (c *DriverConfig) GetHueHigh() int {
	if c.HueHigh == nil {
		return 40
	}
	return *c.HueHigh
}

// GetSteeringGain returns the steering_gain value or the default.
func (c *DriverConfig) GetSteeringGain() float64 {
	if c.SteeringGain == nil {
		return 2
	}
	return *c.SteeringGain
}

// GetSpeed returns the speed value or the default.
func (c *DriverConfig) GetSpeed() float64 {
	if c.Speed == nil {
		return 0.2
	}
	return *c.Speed
}

// GetSteeringLimit returns the steering_limit value or the default (pi/2).
func (c *DriverConfig) GetSteeringLimit() float64 {
	if c.SteeringLimit == nil {
		return math.Pi / 2
	}
	return *c.SteeringLimit
}
