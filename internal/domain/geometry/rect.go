package geometry

import (
	"cmp"
	"slices"

	"github.com/forPelevin/cuesync/internal/types"
)

// IOU is the intersection-over-union of two rects, in [0,1].
func IOU(a, b types.Rect) float64 {
	w := min(a.Right, b.Right) - max(a.Left, b.Left)
	h := min(a.Bottom, b.Bottom) - max(a.Top, b.Top)
	if w <= 0 || h <= 0 {
		return 0
	}
	inter := w * h
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return clamp(inter/union, 0, 1)
}

type MaskRectOptions struct {
	Expansion float64
	MinSize   float64
	MergeGap  float64
	MaxCount  int
}

func DefaultMaskRectOptions() MaskRectOptions {
	return MaskRectOptions{Expansion: 0.04, MinSize: 0.035, MergeGap: 0.02, MaxCount: 4}
}

// MergeMaskRects expands raw face rects, drops tiny ones, merges rects that
// touch or sit within MergeGap of each other and keeps the MaxCount largest.
func MergeMaskRects(raw []types.Rect, opt MaskRectOptions) []types.Rect {
	if len(raw) == 0 {
		return nil
	}
	minSize := clamp(opt.MinSize, 0.01, 0.2)
	expansion := clamp(opt.Expansion, 0, 0.2)
	gap := clamp(opt.MergeGap, 0, 0.1)
	maxCount := min(max(opt.MaxCount, 1), 8)

	var rects []types.Rect
	for _, r := range raw {
		r = r.Normalized().Expanded(expansion)
		if r.Width() >= minSize && r.Height() >= minSize {
			rects = append(rects, r)
		}
	}
	sortByAreaDesc(rects)

	merged := make([]types.Rect, 0, len(rects))
	for _, cur := range rects {
		for i := 0; i < len(merged); {
			if !rectsClose(merged[i], cur, gap) {
				i++
				continue
			}
			cur = union(merged[i], cur)
			merged = slices.Delete(merged, i, i+1)
			i = 0
		}
		merged = append(merged, cur)
	}
	sortByAreaDesc(merged)
	if len(merged) > maxCount {
		merged = merged[:maxCount]
	}
	return merged
}

func rectsClose(a, b types.Rect, gap float64) bool {
	hSep := a.Right+gap < b.Left || b.Right+gap < a.Left
	vSep := a.Bottom+gap < b.Top || b.Bottom+gap < a.Top
	return !hSep && !vSep
}

func union(a, b types.Rect) types.Rect {
	return types.Rect{
		Left:   min(a.Left, b.Left),
		Top:    min(a.Top, b.Top),
		Right:  max(a.Right, b.Right),
		Bottom: max(a.Bottom, b.Bottom),
	}.Normalized()
}

func sortByAreaDesc(rs []types.Rect) {
	slices.SortStableFunc(rs, func(a, b types.Rect) int { return cmp.Compare(b.Area(), a.Area()) })
}

func lerp(a, b, f float64) float64 { return a + (b-a)*f }

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
