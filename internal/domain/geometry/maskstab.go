package geometry

import (
	"cmp"
	"slices"

	"github.com/forPelevin/cuesync/internal/types"
)

type MaskStabilizerConfig struct {
	Lerp              float64
	MinIOU            float64
	HoldMissingFrames int
	MaxMaskCount      int
}

func DefaultMaskStabilizerConfig() MaskStabilizerConfig {
	return MaskStabilizerConfig{Lerp: 0.35, MinIOU: 0.2, HoldMissingFrames: 2, MaxMaskCount: 6}
}

// MaskStabilizer tracks masks across frames by IOU and smooths matched ones.
// It is not safe for concurrent use.
type MaskStabilizer struct {
	cfg     MaskStabilizerConfig
	tracked []types.VisualMask
	missing int
}

func NewMaskStabilizer(cfg MaskStabilizerConfig) *MaskStabilizer {
	return &MaskStabilizer{cfg: cfg}
}

func (s *MaskStabilizer) Reset() {
	s.tracked = nil
	s.missing = 0
}

// Step feeds one frame of detected masks and returns the masks to draw. The
// returned slice must not be modified.
func (s *MaskStabilizer) Step(detected []types.VisualMask) []types.VisualMask {
	maxCount := min(max(s.cfg.MaxMaskCount, 1), 12)
	cur := make([]types.VisualMask, 0, min(len(detected), maxCount))
	for _, m := range detected {
		if len(cur) == maxCount {
			break
		}
		cur = append(cur, m.Normalized())
	}
	sortMasks(cur)

	if len(cur) == 0 {
		s.missing++
		if s.missing <= max(s.cfg.HoldMissingFrames, 0) {
			return s.tracked
		}
		s.tracked = nil
		return nil
	}

	s.missing = 0
	if len(s.tracked) == 0 {
		s.tracked = cur
		return s.tracked
	}

	unmatched := slices.Clone(s.tracked)
	minIOU := clamp(s.cfg.MinIOU, 0, 1)
	f := clamp(s.cfg.Lerp, 0, 1)
	next := make([]types.VisualMask, 0, len(cur))
	for _, m := range cur {
		idx := bestMatch(unmatched, m, minIOU)
		if idx < 0 {
			next = append(next, m)
			continue
		}
		prev := unmatched[idx]
		unmatched = slices.Delete(unmatched, idx, idx+1)
		next = append(next, smoothMask(prev, m, f))
	}
	sortMasks(next)
	if len(next) > maxCount {
		next = next[:maxCount]
	}
	s.tracked = next
	return s.tracked
}

func bestMatch(prev []types.VisualMask, cur types.VisualMask, minIOU float64) int {
	best, bestIOU := -1, minIOU
	for i, p := range prev {
		if iou := IOU(p.Rect, cur.Rect); iou >= bestIOU {
			best, bestIOU = i, iou
		}
	}
	return best
}

func smoothMask(prev, cur types.VisualMask, f float64) types.VisualMask {
	if f <= 0 {
		return prev
	}
	if f >= 1 {
		return cur
	}
	out := types.VisualMask{Rect: types.Rect{
		Left:   lerp(prev.Rect.Left, cur.Rect.Left, f),
		Top:    lerp(prev.Rect.Top, cur.Rect.Top, f),
		Right:  lerp(prev.Rect.Right, cur.Rect.Right, f),
		Bottom: lerp(prev.Rect.Bottom, cur.Rect.Bottom, f),
	}.Normalized()}

	switch {
	case len(cur.Polygon) == 0:
		out.Polygon = prev.Polygon
	case len(prev.Polygon) == len(cur.Polygon) && len(cur.Polygon) >= PolygonMinPoints:
		out.Polygon = make([]types.Point, len(cur.Polygon))
		for i, p := range cur.Polygon {
			out.Polygon[i] = types.Point{
				X: lerp(prev.Polygon[i].X, p.X, f),
				Y: lerp(prev.Polygon[i].Y, p.Y, f),
			}.Normalized()
		}
	default:
		out.Polygon = cur.Polygon
	}
	return out
}

func sortMasks(ms []types.VisualMask) {
	slices.SortStableFunc(ms, func(a, b types.VisualMask) int {
		if c := cmp.Compare(a.Rect.Top, b.Rect.Top); c != 0 {
			return c
		}
		return cmp.Compare(a.Rect.Left, b.Rect.Left)
	})
}
