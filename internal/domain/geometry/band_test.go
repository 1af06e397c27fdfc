package geometry

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/forPelevin/cuesync/internal/types"
)

func TestResolveFaceAwareBand(t *testing.T) {
	opt := DefaultBandOptions()
	cases := []struct {
		name    string
		regions []types.Region
		want    types.Band
	}{
		{"no faces", nil, DefaultBand},
		{"face in the middle picks larger lower gap", []types.Region{{Top: 0.3, Bottom: 0.6}}, types.Band{Top: 0.64, Bottom: 1}},
		{"face low keeps top", []types.Region{{Top: 0.6, Bottom: 0.9}}, types.Band{Top: 0, Bottom: 0.56}},
		{"overlapping faces merge", []types.Region{{Top: 0.5, Bottom: 0.7}, {Top: 0.3, Bottom: 0.55}}, types.Band{Top: 0, Bottom: 0.26}},
		{"no gap tall enough", []types.Region{{Top: 0.1, Bottom: 0.9}}, DefaultBand},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveFaceAwareBand(tc.regions, DefaultBand, opt)
			if diff := cmp.Diff(tc.want, got, approx); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSmoothBand(t *testing.T) {
	target := types.Band{Top: 0.5, Bottom: 1}
	if got := SmoothBand(nil, target, 0.35, 0.015); got != target {
		t.Fatalf("no previous band returns target, got %v", got)
	}
	prev := types.Band{Top: 0.49, Bottom: 1}
	if got := SmoothBand(&prev, target, 0.35, 0.015); got != target {
		t.Fatalf("within snap returns target, got %v", got)
	}
	prev = types.Band{Top: 0, Bottom: 1}
	got := SmoothBand(&prev, target, 0.5, 0.015)
	if diff := cmp.Diff(types.Band{Top: 0.25, Bottom: 1}, got, approx); diff != "" {
		t.Fatalf("lerp mismatch:\n%s", diff)
	}
	got = SmoothBand(&prev, target, 0, 0)
	if diff := cmp.Diff(types.Band{Top: 0.025, Bottom: 1}, got, approx); diff != "" {
		t.Fatalf("factor floors at 0.05:\n%s", diff)
	}
}

func TestBandStabilizer_FirstStepApplies(t *testing.T) {
	s := NewBandStabilizer(DefaultBandStabilizerConfig())
	b := types.Band{Top: 0.1, Bottom: 0.9}
	got, ok := s.Step(b, true, 0)
	if !ok || got != b {
		t.Fatalf("first step must apply, got %v %v", got, ok)
	}
	if cur, ok := s.Current(); !ok || cur != b {
		t.Fatalf("current band not recorded")
	}
}

func TestBandStabilizer_SmallChangeIgnored(t *testing.T) {
	s := NewBandStabilizer(DefaultBandStabilizerConfig())
	s.Step(DefaultBand, true, 0)
	if _, ok := s.Step(types.Band{Top: 0.01, Bottom: 1}, true, 5000); ok {
		t.Fatalf("delta below minUpdateDelta must not update")
	}
}

func TestBandStabilizer_StableFramesAndInterval(t *testing.T) {
	s := NewBandStabilizer(DefaultBandStabilizerConfig())
	s.Step(DefaultBand, true, 0)
	target := types.Band{Top: 0.2, Bottom: 1}

	if _, ok := s.Step(target, true, 100); ok {
		t.Fatalf("single observation must not apply")
	}
	if _, ok := s.Step(target, true, 200); ok {
		t.Fatalf("interval not elapsed, must not apply")
	}
	got, ok := s.Step(target, true, 2000)
	if !ok {
		t.Fatalf("stable target after interval must apply")
	}
	if diff := cmp.Diff(types.Band{Top: 0.036, Bottom: 1}, got, approx); diff != "" {
		t.Fatalf("applied band should be smoothed:\n%s", diff)
	}
}

func TestBandStabilizer_LargeJumpBypassesGates(t *testing.T) {
	s := NewBandStabilizer(DefaultBandStabilizerConfig())
	s.Step(DefaultBand, true, 0)
	got, ok := s.Step(types.Band{Top: 0.6, Bottom: 1}, true, 10)
	if !ok {
		t.Fatalf("large jump must apply on first observation")
	}
	if diff := cmp.Diff(types.Band{Top: 0.108, Bottom: 1}, got, approx); diff != "" {
		t.Fatalf("mismatch:\n%s", diff)
	}
}

func TestBandStabilizer_NoFaceHold(t *testing.T) {
	s := NewBandStabilizer(DefaultBandStabilizerConfig())
	s.Step(DefaultBand, true, 0)
	far := types.Band{Top: 0.6, Bottom: 1}
	for i := 1; i <= 2; i++ {
		if _, ok := s.Step(far, false, int64(i)*10); ok {
			t.Fatalf("dropout frame %d must hold the band", i)
		}
	}
	if _, ok := s.Step(far, false, 30); !ok {
		t.Fatalf("after the hold window the band follows detections")
	}
	s.Reset()
	if _, ok := s.Current(); ok {
		t.Fatalf("reset must clear the band")
	}
}
