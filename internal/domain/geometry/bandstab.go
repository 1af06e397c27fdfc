package geometry

import (
	"math"

	"github.com/forPelevin/cuesync/internal/types"
)

type BandStabilizerConfig struct {
	RequiredStableFrames    int
	NoFaceExtraStableFrames int
	NoFaceHoldFrames        int
	MinUpdateDelta          float64
	PendingBandTolerance    float64
	MinUpdateIntervalMs     int64
	LargeJumpDelta          float64
	SmoothingLerp           float64
	SmoothingSnap           float64
}

func DefaultBandStabilizerConfig() BandStabilizerConfig {
	return BandStabilizerConfig{
		RequiredStableFrames:    2,
		NoFaceExtraStableFrames: 1,
		NoFaceHoldFrames:        2,
		MinUpdateDelta:          0.025,
		PendingBandTolerance:    0.015,
		MinUpdateIntervalMs:     1800,
		LargeJumpDelta:          0.08,
		SmoothingLerp:           0.18,
		SmoothingSnap:           0.01,
	}
}

// BandStabilizer turns a noisy per-frame band into a slowly changing one.
// It is not safe for concurrent use.
type BandStabilizer struct {
	cfg BandStabilizerConfig

	applied     *types.Band
	pending     *types.Band
	pendingHits int
	noFaceRun   int
	lastApplyMs int64
}

func NewBandStabilizer(cfg BandStabilizerConfig) *BandStabilizer {
	return &BandStabilizer{cfg: cfg, lastApplyMs: math.MinInt64}
}

func (s *BandStabilizer) Reset() {
	s.applied = nil
	s.pending = nil
	s.pendingHits = 0
	s.noFaceRun = 0
	s.lastApplyMs = math.MinInt64
}

func (s *BandStabilizer) Current() (types.Band, bool) {
	if s.applied == nil {
		return types.Band{}, false
	}
	return *s.applied, true
}

// Step feeds one detected band. It returns the new band and true when the
// applied band changes.
//
// A smoothed step of at least LargeJumpDelta is applied on its first
// observation regardless of stable frames and the update interval.
func (s *BandStabilizer) Step(detected types.Band, hasFace bool, nowMs int64) (types.Band, bool) {
	detected = detected.Normalized()
	if hasFace {
		s.noFaceRun = 0
	} else {
		s.noFaceRun++
	}

	if s.applied == nil {
		s.apply(detected, nowMs)
		return detected, true
	}
	applied := *s.applied

	target := detected
	if !hasFace && s.noFaceRun <= s.cfg.NoFaceHoldFrames {
		target = applied
	}
	smoothed := SmoothBand(&applied, target, s.cfg.SmoothingLerp, s.cfg.SmoothingSnap)

	delta := bandDelta(applied, smoothed)
	if delta < s.cfg.MinUpdateDelta {
		s.pending = nil
		s.pendingHits = 0
		return types.Band{}, false
	}

	if s.pending == nil || bandDelta(*s.pending, smoothed) > clamp(s.cfg.PendingBandTolerance, 0, 0.2) {
		s.pending = &smoothed
		s.pendingHits = 1
	} else {
		s.pendingHits++
	}

	large := delta >= s.cfg.LargeJumpDelta
	if !large {
		required := s.cfg.RequiredStableFrames
		if !hasFace {
			required += s.cfg.NoFaceExtraStableFrames
		}
		if s.pendingHits < max(required, 1) {
			return types.Band{}, false
		}
		if s.lastApplyMs != math.MinInt64 && nowMs-s.lastApplyMs < s.cfg.MinUpdateIntervalMs {
			return types.Band{}, false
		}
	}

	s.apply(smoothed, nowMs)
	return smoothed, true
}

func (s *BandStabilizer) apply(b types.Band, nowMs int64) {
	s.applied = &b
	s.pending = nil
	s.pendingHits = 0
	s.lastApplyMs = nowMs
}
