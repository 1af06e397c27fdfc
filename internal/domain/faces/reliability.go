package faces

import (
	"math"

	"github.com/forPelevin/cuesync/internal/types"
)

const (
	minWidthRatio    = 0.06
	minHeightRatio   = 0.08
	minAreaRatio     = 0.008
	maxAreaRatio     = 0.45
	minAspect        = 0.5
	maxAspect        = 1.7
	minContourPoints = 20
	minEyeGapRatio   = 0.025
)

// IsReliable rejects detections that are more likely background texture than
// a face. frameW and frameH are the dimensions of the sampled frame.
func IsReliable(d types.FaceDetection, frameW, frameH float64) bool {
	frameW, frameH = max(frameW, 1), max(frameH, 1)
	bw, bh := d.Box.Width(), d.Box.Height()
	if bw <= 0 || bh <= 0 {
		return false
	}
	wr := clamp01(bw / frameW)
	hr := clamp01(bh / frameH)
	if wr < minWidthRatio || hr < minHeightRatio {
		return false
	}
	if area := wr * hr; area < minAreaRatio || area > maxAreaRatio {
		return false
	}
	if aspect := max(bw/bh, 0.01); aspect < minAspect || aspect > maxAspect {
		return false
	}
	if len(d.Contour) < minContourPoints {
		return false
	}
	if (d.LeftEye == nil && d.RightEye == nil) || d.NoseBase == nil {
		return false
	}
	if d.LeftEye != nil && d.RightEye != nil && math.Abs(d.LeftEye.X-d.RightEye.X)/frameW < minEyeGapRatio {
		return false
	}
	return true
}

func clamp01(x float64) float64 { return min(max(x, 0), 1) }
