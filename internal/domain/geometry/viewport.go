package geometry

import "github.com/forPelevin/cuesync/internal/types"

// ViewportRect is the part of the surface covered by video pixels, in
// surface pixels.
type ViewportRect struct {
	Left, Top, Right, Bottom float64
}

func (v ViewportRect) Width() float64  { return max(v.Right-v.Left, 0) }
func (v ViewportRect) Height() float64 { return max(v.Bottom-v.Top, 0) }

// MapPoint converts a content-normalized point to surface pixels.
func (v ViewportRect) MapPoint(p types.Point) types.Point {
	return types.Point{X: v.Left + p.X*v.Width(), Y: v.Top + p.Y*v.Height()}
}

func (v ViewportRect) MapRect(r types.Rect) types.Rect {
	return types.Rect{
		Left:   v.Left + r.Left*v.Width(),
		Top:    v.Top + r.Top*v.Height(),
		Right:  v.Left + r.Right*v.Width(),
		Bottom: v.Top + r.Bottom*v.Height(),
	}
}

// ContentRect places a video of videoW x videoH inside a container according
// to the resize mode. Unknown video dimensions cover the whole container.
func ContentRect(containerW, containerH, videoW, videoH int, mode types.ResizeMode) ViewportRect {
	cw := float64(max(containerW, 1))
	ch := float64(max(containerH, 1))
	if videoW <= 0 || videoH <= 0 {
		return ViewportRect{Right: cw, Bottom: ch}
	}
	aspect := max(float64(videoW)/float64(videoH), 0.01)
	containerAspect := cw / ch

	w, h := cw, ch
	switch mode {
	case types.ResizeFill:
	case types.ResizeFixedWidth:
		h = cw / aspect
	case types.ResizeFixedHeight:
		w = ch * aspect
	case types.ResizeZoom:
		if aspect > containerAspect {
			w = ch * aspect
		} else {
			h = cw / aspect
		}
	default:
		if aspect > containerAspect {
			h = cw / aspect
		} else {
			w = ch * aspect
		}
	}
	left := (cw - w) / 2
	top := (ch - h) / 2
	return ViewportRect{Left: left, Top: top, Right: left + w, Bottom: top + h}
}
