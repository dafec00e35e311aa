// Package drive turns lane estimates into vehicle commands and keeps the
// per-session command state the simulator sees.
package drive

import "fmt"

// Command is a possibly partial vehicle command. A nil field means "leave the
// session's current value alone", which keeps an explicit zero distinct from
// an omitted field.
type Command struct {
	Speed    *float64 `json:"speed,omitempty"`
	Steering *float64 `json:"steering,omitempty"` // radians
}

// Float returns a pointer to v, for building Commands.
func Float(v float64) *float64 { return &v }

// Merge returns c with every field present in update overwritten.
func (c Command) Merge(update Command) Command {
	if update.Speed != nil {
		c.Speed = Float(*update.Speed)
	}
	if update.Steering != nil {
		c.Steering = Float(*update.Steering)
	}
	return c
}

// Full reports whether both fields are present.
func (c Command) Full() bool {
	return c.Speed != nil && c.Steering != nil
}

func (c Command) String() string {
	f := func(p *float64) string {
		if p == nil {
			return "-"
		}
		return fmt.Sprintf("%.4f", *p)
	}
	return fmt.Sprintf("speed=%s steering=%s", f(c.Speed), f(c.Steering))
}
