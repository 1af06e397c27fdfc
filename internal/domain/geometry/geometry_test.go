package geometry

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/forPelevin/cuesync/internal/types"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestIOU(t *testing.T) {
	a := types.Rect{Left: 0, Top: 0, Right: 2, Bottom: 1}
	if got := IOU(a, a); got != 1 {
		t.Fatalf("self IOU=%v", got)
	}
	if got := IOU(a, types.Rect{Left: 3, Top: 0, Right: 4, Bottom: 1}); got != 0 {
		t.Fatalf("disjoint IOU=%v", got)
	}
	if got := IOU(a, types.Rect{Left: 1, Top: 0, Right: 3, Bottom: 1}); math.Abs(got-1.0/3) > 1e-9 {
		t.Fatalf("half overlap IOU=%v", got)
	}
}

func TestRectNormalizedAndExpanded(t *testing.T) {
	r := types.Rect{Left: -0.2, Top: 0.5, Right: 1.4, Bottom: 0.3}.Normalized()
	want := types.Rect{Left: 0, Top: 0.5, Right: 1, Bottom: 0.5}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Fatalf("normalized mismatch:\n%s", diff)
	}
	e := types.Rect{Left: 0.4, Top: 0.4, Right: 0.6, Bottom: 0.6}.Expanded(0.9)
	if diff := cmp.Diff(types.Rect{Left: 0.2, Top: 0.2, Right: 0.8, Bottom: 0.8}, e, approx); diff != "" {
		t.Fatalf("expansion must cap at 0.2:\n%s", diff)
	}
}

func TestMergeMaskRects(t *testing.T) {
	raw := []types.Rect{
		{Left: 0.7, Top: 0.7, Right: 0.8, Bottom: 0.8},
		{Left: 0.1, Top: 0.1, Right: 0.2, Bottom: 0.2},
		{Left: 0.22, Top: 0.1, Right: 0.3, Bottom: 0.2},
	}
	got := MergeMaskRects(raw, DefaultMaskRectOptions())
	want := []types.Rect{
		{Left: 0.06, Top: 0.06, Right: 0.34, Bottom: 0.24},
		{Left: 0.66, Top: 0.66, Right: 0.84, Bottom: 0.84},
	}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeMaskRects_DropsTinyAndCaps(t *testing.T) {
	raw := []types.Rect{
		{Left: 0, Top: 0, Right: 0.02, Bottom: 0.5},
		{Left: 0.5, Top: 0.5, Right: 0.6, Bottom: 0.6},
		{Left: 0.1, Top: 0.1, Right: 0.3, Bottom: 0.3},
	}
	got := MergeMaskRects(raw, MaskRectOptions{Expansion: 0, MinSize: 0.035, MergeGap: 0.02, MaxCount: 1})
	want := []types.Rect{{Left: 0.1, Top: 0.1, Right: 0.3, Bottom: 0.3}}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if MergeMaskRects(nil, DefaultMaskRectOptions()) != nil {
		t.Fatalf("expected nil for no input")
	}
}

func TestMergeMaskRects_ChainsMerges(t *testing.T) {
	// the two small rects bridge the large ones
	raw := []types.Rect{
		{Left: 0.0, Top: 0.4, Right: 0.2, Bottom: 0.6},
		{Left: 0.5, Top: 0.4, Right: 0.7, Bottom: 0.6},
		{Left: 0.21, Top: 0.45, Right: 0.3, Bottom: 0.55},
		{Left: 0.31, Top: 0.45, Right: 0.49, Bottom: 0.55},
	}
	got := MergeMaskRects(raw, MaskRectOptions{Expansion: 0, MinSize: 0.035, MergeGap: 0.02, MaxCount: 4})
	if len(got) != 1 {
		t.Fatalf("expected a single merged rect, got %+v", got)
	}
	if diff := cmp.Diff(types.Rect{Left: 0, Top: 0.4, Right: 0.7, Bottom: 0.6}, got[0], approx); diff != "" {
		t.Fatalf("mismatch:\n%s", diff)
	}
}

func TestExpandPolygon(t *testing.T) {
	square := []types.Point{{X: 0.4, Y: 0.4}, {X: 0.6, Y: 0.4}, {X: 0.6, Y: 0.6}, {X: 0.4, Y: 0.6}}
	got := ExpandPolygon(square, 0.1)
	want := []types.Point{{X: 0.382, Y: 0.382}, {X: 0.618, Y: 0.382}, {X: 0.618, Y: 0.618}, {X: 0.382, Y: 0.618}}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	two := []types.Point{{X: -1, Y: 0.5}, {X: 0.5, Y: 2}}
	if diff := cmp.Diff([]types.Point{{X: 0, Y: 0.5}, {X: 0.5, Y: 1}}, ExpandPolygon(two, 0.1)); diff != "" {
		t.Fatalf("short polygons are only normalized:\n%s", diff)
	}

	edge := []types.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0.5, Y: 1}}
	for _, p := range ExpandPolygon(edge, 0.2) {
		if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
			t.Fatalf("point escaped unit square: %+v", p)
		}
	}
}

func TestBuildVisualMask(t *testing.T) {
	rect := types.Rect{Left: 0.2, Top: 0.2, Right: 0.4, Bottom: 0.5}
	m := BuildVisualMask(rect, []types.Point{{X: 0.3, Y: 0.2}, {X: 0.4, Y: 0.3}, {X: 0.3, Y: 0.5}, {X: 0.2, Y: 0.3}})
	if len(m.Polygon) != 0 {
		t.Fatalf("four-point contour must not produce a polygon")
	}
	if diff := cmp.Diff(types.Rect{Left: 0.185, Top: 0.185, Right: 0.415, Bottom: 0.515}, m.Rect, approx); diff != "" {
		t.Fatalf("fallback rect mismatch:\n%s", diff)
	}
	five := []types.Point{{X: 0.3, Y: 0.2}, {X: 0.4, Y: 0.3}, {X: 0.35, Y: 0.5}, {X: 0.25, Y: 0.5}, {X: 0.2, Y: 0.3}}
	if m := BuildVisualMask(rect, five); len(m.Polygon) != 5 {
		t.Fatalf("expected polygon, got %+v", m.Polygon)
	}
}

func TestEdgeExpansionRatio(t *testing.T) {
	cases := []struct {
		w, h, feather, want float64
	}{
		{1920, 1080, 8, 8.0 / 1080},
		{100, 100, 8, 0.03},
		{4000, 4000, 8, 0.004},
		{1920, 1080, 0, 0.004},
		{0, 0, 8, 0.03},
	}
	for _, tc := range cases {
		if got := EdgeExpansionRatio(tc.w, tc.h, tc.feather); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("EdgeExpansionRatio(%v,%v,%v)=%v want %v", tc.w, tc.h, tc.feather, got, tc.want)
		}
	}
}

func TestContentRect(t *testing.T) {
	cases := []struct {
		name string
		mode types.ResizeMode
		vw   int
		vh   int
		want ViewportRect
	}{
		{"fit letterbox", types.ResizeFit, 1920, 800, ViewportRect{Left: 0, Top: 140, Right: 1920, Bottom: 940}},
		{"fit pillarbox", types.ResizeFit, 1080, 1080, ViewportRect{Left: 420, Top: 0, Right: 1500, Bottom: 1080}},
		{"fill", types.ResizeFill, 1920, 800, ViewportRect{Right: 1920, Bottom: 1080}},
		{"zoom crops", types.ResizeZoom, 1920, 800, ViewportRect{Left: -336, Top: 0, Right: 2256, Bottom: 1080}},
		{"fixed width", types.ResizeFixedWidth, 1920, 800, ViewportRect{Left: 0, Top: 140, Right: 1920, Bottom: 940}},
		{"fixed height", types.ResizeFixedHeight, 1920, 800, ViewportRect{Left: -336, Top: 0, Right: 2256, Bottom: 1080}},
		{"unknown video", types.ResizeFit, 0, 800, ViewportRect{Right: 1920, Bottom: 1080}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ContentRect(1920, 1080, tc.vw, tc.vh, tc.mode)
			if diff := cmp.Diff(tc.want, got, approx); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestViewportRect_Map(t *testing.T) {
	v := ContentRect(1920, 1080, 1920, 800, types.ResizeFit)
	p := v.MapPoint(types.Point{X: 0.5, Y: 0.5})
	if diff := cmp.Diff(types.Point{X: 960, Y: 540}, p, approx); diff != "" {
		t.Fatalf("center mismatch:\n%s", diff)
	}
	r := v.MapRect(types.Rect{Left: 0, Top: 0, Right: 1, Bottom: 1})
	if diff := cmp.Diff(types.Rect{Left: 0, Top: 140, Right: 1920, Bottom: 940}, r, approx); diff != "" {
		t.Fatalf("rect mismatch:\n%s", diff)
	}
}
