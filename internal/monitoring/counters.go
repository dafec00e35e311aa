package monitoring

import "expvar"

// Driver counters, published through expvar so they appear on /debug/varz.
var (
	Ticks            = expvar.NewInt("ticks")
	Resets           = expvar.NewInt("resets")
	DecodeFailures   = expvar.NewInt("decode_failures")
	InvalidFrames    = expvar.NewInt("invalid_frames")
	WriteFailures    = expvar.NewInt("write_failures")
	RecorderFailures = expvar.NewInt("recorder_failures")
	RecorderDrops    = expvar.NewInt("recorder_drops")
)

// Snapshot returns the current counter values keyed by their expvar name.
func Snapshot() map[string]int64 {
	return map[string]int64{
		"ticks":             Ticks.Value(),
		"resets":            Resets.Value(),
		"decode_failures":   DecodeFailures.Value(),
		"invalid_frames":    InvalidFrames.Value(),
		"write_failures":    WriteFailures.Value(),
		"recorder_failures": RecorderFailures.Value(),
		"recorder_drops":    RecorderDrops.Value(),
	}
}
