package faces

import (
	"github.com/forPelevin/cuesync/internal/domain/geometry"
	"github.com/forPelevin/cuesync/internal/types"
)

// Analyze keeps the reliable detections of one frame and converts them into
// normalized masks, merged mask rects and vertical face regions.
func Analyze(dets []types.FaceDetection, frameW, frameH int) types.DetectionResult {
	w, h := float64(max(frameW, 1)), float64(max(frameH, 1))

	var res types.DetectionResult
	for _, d := range dets {
		if !IsReliable(d, w, h) {
			continue
		}
		rect := types.Rect{
			Left:   clamp01(d.Box.Left / w),
			Top:    clamp01(d.Box.Top / h),
			Right:  clamp01(d.Box.Right / w),
			Bottom: clamp01(d.Box.Bottom / h),
		}.Normalized()
		if rect.Right <= rect.Left || rect.Bottom <= rect.Top {
			continue
		}
		contour := make([]types.Point, len(d.Contour))
		for i, p := range d.Contour {
			contour[i] = types.Point{X: clamp01(p.X / w), Y: clamp01(p.Y / h)}
		}
		res.Masks = append(res.Masks, geometry.BuildVisualMask(rect, contour))
	}

	rects := make([]types.Rect, len(res.Masks))
	for i, m := range res.Masks {
		rects[i] = m.Rect
	}
	res.MaskRects = geometry.MergeMaskRects(rects, geometry.DefaultMaskRectOptions())
	for _, r := range res.MaskRects {
		res.Regions = append(res.Regions, types.Region{Top: r.Top, Bottom: r.Bottom})
	}
	return res
}
