package geometry

import (
	"math"

	"github.com/forPelevin/cuesync/internal/types"
)

const (
	PolygonMinPoints    = 5
	polygonExpansion    = 0.035
	fallbackRectPadding = 0.015
)

// ExpandPolygon scales a polygon away from its centroid. Fewer than three
// points are only normalized.
func ExpandPolygon(points []types.Point, expansion float64) []types.Point {
	if len(points) == 0 {
		return nil
	}
	norm := make([]types.Point, len(points))
	var cx, cy float64
	for i, p := range points {
		norm[i] = p.Normalized()
		cx += norm[i].X
		cy += norm[i].Y
	}
	expansion = clamp(expansion, 0, 0.2)
	if len(norm) < 3 || expansion <= 0 {
		return norm
	}
	cx /= float64(len(norm))
	cy /= float64(len(norm))
	scale := 1 + expansion*1.8

	out := make([]types.Point, len(norm))
	for i, p := range norm {
		dx, dy := p.X-cx, p.Y-cy
		if math.Hypot(dx, dy) < 0.0001 {
			out[i] = p
			continue
		}
		out[i] = types.Point{X: cx + dx*scale, Y: cy + dy*scale}.Normalized()
	}
	return out
}

// BuildVisualMask pairs a padded fallback rect with a feathered contour
// polygon. Contours shorter than five points leave the polygon empty.
func BuildVisualMask(rect types.Rect, contour []types.Point) types.VisualMask {
	m := types.VisualMask{Rect: rect.Normalized().Expanded(fallbackRectPadding)}
	if len(contour) >= PolygonMinPoints {
		m.Polygon = ExpandPolygon(contour, polygonExpansion)
	}
	return m
}

const (
	defaultFeatherPx = 8.0
	minEdgeRatio     = 0.004
	maxEdgeRatio     = 0.03
)

// EdgeExpansionRatio converts a feather width in pixels into a ratio of the
// viewport's short side.
func EdgeExpansionRatio(viewportW, viewportH, featherPx float64) float64 {
	short := min(max(viewportW, 1), max(viewportH, 1))
	if featherPx <= 0 {
		return minEdgeRatio
	}
	return clamp(featherPx/short, minEdgeRatio, maxEdgeRatio)
}

func DefaultEdgeExpansionRatio(viewportW, viewportH float64) float64 {
	return EdgeExpansionRatio(viewportW, viewportH, defaultFeatherPx)
}
