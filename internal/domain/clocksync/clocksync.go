package clocksync

import (
	"math"
	"time"
)

const (
	// SegmentSpanMs is the playback time covered by one binary segment.
	SegmentSpanMs        = 360000
	DefaultSegmentCount  = 3
	nearNormalTolerance  = 0.02
	speedEpsilon         = 1e-9
	nearNormalResyncTick = 6
	offSpeedResyncTick   = 3
)

// ResyncIntervalMs is the drift check period for a playback speed. Faster
// playback drifts faster and is checked more often.
func ResyncIntervalMs(speed float64) int64 {
	switch {
	case speed >= 1.75:
		return 900
	case speed >= 1.25:
		return 1200
	case speed > 1.02:
		return 1600
	case speed <= 0.75:
		return 3000
	case speed < 0.98:
		return 3500
	default:
		return 2200
	}
}

func ResyncInterval(speed float64) time.Duration {
	return time.Duration(ResyncIntervalMs(speed)) * time.Millisecond
}

// ShouldForceResync reports whether drift tick number tick (1-based) should
// push the full cue set again instead of only re-seeking.
func ShouldForceResync(speed float64, tick int) bool {
	if tick <= 0 {
		return false
	}
	n := offSpeedResyncTick
	if math.Abs(speed-1) <= nearNormalTolerance+speedEpsilon {
		n = nearNormalResyncTick
	}
	return tick%n == 0
}

// SegmentCount is how many binary segments cover a video. A known duration
// wins over the metadata total.
func SegmentCount(durationMs int64, metaTotal int) int {
	if durationMs > 0 {
		return int((durationMs + SegmentSpanMs - 1) / SegmentSpanMs)
	}
	if metaTotal > 0 {
		return metaTotal
	}
	return DefaultSegmentCount
}
