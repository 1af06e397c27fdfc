package types

import "fmt"

// Point is a position normalized to the video content rect.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Normalized() Point {
	return Point{X: clamp(p.X, 0, 1), Y: clamp(p.Y, 0, 1)}
}

// Rect is an axis-aligned rectangle. Normalized rects live in [0,1] video
// content coordinates; FaceDetection boxes use frame pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

func (r Rect) Width() float64  { return max(r.Right-r.Left, 0) }
func (r Rect) Height() float64 { return max(r.Bottom-r.Top, 0) }
func (r Rect) Area() float64   { return r.Width() * r.Height() }

func (r Rect) Normalized() Rect {
	left := clamp(r.Left, 0, 1)
	top := clamp(r.Top, 0, 1)
	return Rect{
		Left:   left,
		Top:    top,
		Right:  clamp(r.Right, left, 1),
		Bottom: clamp(r.Bottom, top, 1),
	}
}

// Expanded grows the rect by pad on every side (pad is capped at 0.2) and
// normalizes the result.
func (r Rect) Expanded(pad float64) Rect {
	pad = clamp(pad, 0, 0.2)
	return Rect{
		Left:   r.Left - pad,
		Top:    r.Top - pad,
		Right:  r.Right + pad,
		Bottom: r.Bottom + pad,
	}.Normalized()
}

// VisualMask is one occluding shape. An empty Polygon means "use Rect".
type VisualMask struct {
	Rect    Rect    `json:"rect"`
	Polygon []Point `json:"polygon,omitempty"`
}

func (m VisualMask) Normalized() VisualMask {
	out := VisualMask{Rect: m.Rect.Normalized()}
	if len(m.Polygon) > 0 {
		out.Polygon = make([]Point, len(m.Polygon))
		for i, p := range m.Polygon {
			out.Polygon[i] = p.Normalized()
		}
	}
	return out
}

// Band is a normalized vertical strip in which cues may render.
type Band struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

func (b Band) Height() float64 { return max(b.Bottom-b.Top, 0) }
func (b Band) Center() float64 { return (b.Top + b.Bottom) / 2 }

func (b Band) Normalized() Band {
	top := clamp(b.Top, 0, 1)
	return Band{Top: top, Bottom: clamp(b.Bottom, top, 1)}
}

func (b Band) String() string { return fmt.Sprintf("[%.3f,%.3f]", b.Top, b.Bottom) }

// Region is the vertical extent of one face.
type Region struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

func (r Region) Normalized() Region {
	top := clamp(r.Top, 0, 1)
	return Region{Top: top, Bottom: clamp(r.Bottom, top, 1)}
}

type ResizeMode int

const (
	ResizeFit ResizeMode = iota
	ResizeFill
	ResizeFixedWidth
	ResizeFixedHeight
	ResizeZoom
)

func ParseResizeMode(s string) (ResizeMode, error) {
	switch s {
	case "", "fit":
		return ResizeFit, nil
	case "fill":
		return ResizeFill, nil
	case "fixed-width":
		return ResizeFixedWidth, nil
	case "fixed-height":
		return ResizeFixedHeight, nil
	case "zoom":
		return ResizeZoom, nil
	}
	return ResizeFit, fmt.Errorf("unknown resize mode %q", s)
}

// OcclusionMode selects how faces are kept clear of cues.
type OcclusionMode int

const (
	OcclusionOff OcclusionMode = iota
	OcclusionMask
	OcclusionBand
)

func (m OcclusionMode) String() string {
	switch m {
	case OcclusionMask:
		return "mask"
	case OcclusionBand:
		return "band"
	default:
		return "off"
	}
}

func ParseOcclusionMode(s string) (OcclusionMode, error) {
	switch s {
	case "", "off":
		return OcclusionOff, nil
	case "mask":
		return OcclusionMask, nil
	case "band":
		return OcclusionBand, nil
	}
	return OcclusionOff, fmt.Errorf("unknown occlusion mode %q", s)
}

type DrawKind string

const (
	DrawPolygon   DrawKind = "polygon"
	DrawRoundRect DrawKind = "round_rect"
	DrawClipBand  DrawKind = "clip_band"
)

// DrawInstruction is an abstract drawing command in surface pixels.
type DrawInstruction struct {
	Kind   DrawKind `json:"kind"`
	Points []Point  `json:"points,omitempty"`
	Rect   Rect     `json:"rect"`
	Radius float64  `json:"radius,omitempty"`
}

// OcclusionFrame is pushed to the surface as a full replacement of the
// previous one.
type OcclusionFrame struct {
	Mode         OcclusionMode     `json:"-"`
	Masks        []VisualMask      `json:"masks"`
	Band         *Band             `json:"band,omitempty"`
	Instructions []DrawInstruction `json:"instructions"`
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
