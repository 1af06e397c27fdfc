package geometry

import (
	"cmp"
	"math"
	"slices"

	"github.com/forPelevin/cuesync/internal/types"
)

type BandOptions struct {
	MinHeight float64
	Padding   float64
}

func DefaultBandOptions() BandOptions {
	return BandOptions{MinHeight: 0.22, Padding: 0.04}
}

// DefaultBand is the full frame.
var DefaultBand = types.Band{Top: 0, Bottom: 1}

// ResolveFaceAwareBand picks the face-free vertical gap that best replaces
// def. Gaps shorter than MinHeight never qualify; with no qualifying gap def
// is returned.
func ResolveFaceAwareBand(regions []types.Region, def types.Band, opt BandOptions) types.Band {
	fallback := def.Normalized()
	if len(regions) == 0 {
		return fallback
	}
	minHeight := clamp(opt.MinHeight, 0.05, 1)
	pad := clamp(opt.Padding, 0, 0.2)

	var blocked []types.Band
	for _, r := range regions {
		r = r.Normalized()
		top := clamp(r.Top-pad, 0, 1)
		bottom := clamp(r.Bottom+pad, 0, 1)
		if bottom > top {
			blocked = append(blocked, types.Band{Top: top, Bottom: bottom})
		}
	}
	if len(blocked) == 0 {
		return fallback
	}
	slices.SortStableFunc(blocked, func(a, b types.Band) int { return cmp.Compare(a.Top, b.Top) })

	merged := []types.Band{blocked[0]}
	for _, cur := range blocked[1:] {
		last := &merged[len(merged)-1]
		if cur.Top > last.Bottom {
			merged = append(merged, cur)
			continue
		}
		last.Bottom = max(last.Bottom, cur.Bottom)
	}

	var gaps []types.Band
	cursor := 0.0
	for _, b := range merged {
		if b.Top > cursor {
			gaps = append(gaps, types.Band{Top: cursor, Bottom: b.Top})
		}
		cursor = max(cursor, b.Bottom)
	}
	if cursor < 1 {
		gaps = append(gaps, types.Band{Top: cursor, Bottom: 1})
	}

	preferred := fallback.Center()
	best, bestScore, found := types.Band{}, math.Inf(-1), false
	for _, g := range gaps {
		if g.Height() < minHeight {
			continue
		}
		score := g.Height() - 0.15*math.Abs(g.Center()-preferred)
		if g.Top <= 0.02 {
			score += 0.02
		}
		if score > bestScore {
			best, bestScore, found = g, score, true
		}
	}
	if !found {
		return fallback
	}
	return best.Normalized()
}

// SmoothBand moves prev toward target by factor. Targets within snap of prev
// on both edges are taken as-is.
func SmoothBand(prev *types.Band, target types.Band, factor, snap float64) types.Band {
	target = target.Normalized()
	if prev == nil {
		return target
	}
	p := prev.Normalized()
	snap = clamp(snap, 0, 0.2)
	if math.Abs(target.Top-p.Top) <= snap && math.Abs(target.Bottom-p.Bottom) <= snap {
		return target
	}
	f := clamp(factor, 0.05, 1)
	return types.Band{
		Top:    lerp(p.Top, target.Top, f),
		Bottom: lerp(p.Bottom, target.Bottom, f),
	}.Normalized()
}

func bandDelta(a, b types.Band) float64 {
	return max(math.Abs(a.Top-b.Top), math.Abs(a.Bottom-b.Bottom))
}
