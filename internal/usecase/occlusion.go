package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/forPelevin/cuesync/internal/domain/faces"
	"github.com/forPelevin/cuesync/internal/domain/geometry"
	"github.com/forPelevin/cuesync/internal/ports"
	"github.com/forPelevin/cuesync/internal/types"
)

// errNotSampling means the engine skipped a pass because the source is paused
// or the surface has no size yet.
var errNotSampling = errors.New("occlusion: not sampling")

type OcclusionDeps struct {
	Clock    ports.Clock
	Frames   ports.FrameSource
	Detector ports.FaceDetector
	Surface  ports.OcclusionSurface
	Logf     func(format string, args ...any)
	Now      func() time.Time
}

type OcclusionConfig struct {
	Mode   types.OcclusionMode
	Resize types.ResizeMode

	SampleW, SampleH int

	IdleInterval   time.Duration
	FaceInterval   time.Duration
	NoFaceInterval time.Duration
	DetectTimeout  time.Duration

	FeatherPx   float64
	DefaultBand types.Band
	Band        geometry.BandOptions
	BandStab    geometry.BandStabilizerConfig
	MaskStab    geometry.MaskStabilizerConfig
}

func DefaultOcclusionConfig() OcclusionConfig {
	return OcclusionConfig{
		Mode:           types.OcclusionMask,
		Resize:         types.ResizeFit,
		SampleW:        320,
		SampleH:        180,
		IdleInterval:   1200 * time.Millisecond,
		FaceInterval:   900 * time.Millisecond,
		NoFaceInterval: 1300 * time.Millisecond,
		DetectTimeout:  5 * time.Second,
		FeatherPx:      8,
		DefaultBand:    geometry.DefaultBand,
		Band:           geometry.DefaultBandOptions(),
		BandStab:       geometry.DefaultBandStabilizerConfig(),
		MaskStab:       geometry.DefaultMaskStabilizerConfig(),
	}
}

// OcclusionEngine samples frames, detects faces and pushes stabilized masks
// or a safe band to the surface. Step is single-flight; the setters may be
// called from any goroutine.
type OcclusionEngine struct {
	d   OcclusionDeps
	cfg OcclusionConfig

	step sync.Mutex // held for a whole pass

	mu        sync.Mutex
	mode      types.OcclusionMode
	resize    types.ResizeMode
	viewW     int
	viewH     int
	videoW    int
	videoH    int
	resetReq  bool
	lastEmpty bool

	masks *geometry.MaskStabilizer
	band  *geometry.BandStabilizer
}

func NewOcclusionEngine(d OcclusionDeps, cfg OcclusionConfig) *OcclusionEngine {
	if d.Logf == nil {
		d.Logf = func(string, ...any) {}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	def := DefaultOcclusionConfig()
	if cfg.SampleW <= 0 || cfg.SampleH <= 0 {
		cfg.SampleW, cfg.SampleH = def.SampleW, def.SampleH
	}
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = def.IdleInterval
	}
	if cfg.FaceInterval <= 0 {
		cfg.FaceInterval = def.FaceInterval
	}
	if cfg.NoFaceInterval <= 0 {
		cfg.NoFaceInterval = def.NoFaceInterval
	}
	if cfg.DetectTimeout <= 0 {
		cfg.DetectTimeout = def.DetectTimeout
	}
	if cfg.DefaultBand.Height() <= 0 {
		cfg.DefaultBand = def.DefaultBand
	}
	return &OcclusionEngine{
		d:         d,
		cfg:       cfg,
		mode:      cfg.Mode,
		resize:    cfg.Resize,
		lastEmpty: true,
		masks:     geometry.NewMaskStabilizer(cfg.MaskStab),
		band:      geometry.NewBandStabilizer(cfg.BandStab),
	}
}

// SetMode switches strategy. Stabilizer state is dropped so the new mode
// starts clean.
func (e *OcclusionEngine) SetMode(m types.OcclusionMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != m {
		e.mode = m
		e.resetReq = true
	}
}

func (e *OcclusionEngine) Mode() types.OcclusionMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

func (e *OcclusionEngine) SetResizeMode(m types.ResizeMode) {
	e.mu.Lock()
	e.resize = m
	e.mu.Unlock()
}

// Resize records the surface size in pixels.
func (e *OcclusionEngine) Resize(w, h int) {
	e.mu.Lock()
	e.viewW, e.viewH = w, h
	e.mu.Unlock()
}

// Reset forgets tracked masks and band and the cached video size. It takes
// effect at the start of the next pass.
func (e *OcclusionEngine) Reset() {
	e.mu.Lock()
	e.resetReq = true
	e.videoW, e.videoH = 0, 0
	e.mu.Unlock()
}

// Run samples until ctx is done.
func (e *OcclusionEngine) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		res, err := e.Step(ctx)
		next := e.cfg.NoFaceInterval
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !errors.Is(err, errNotSampling) {
				e.d.Logf("occlusion: %v", err)
			}
			next = e.cfg.IdleInterval
		case res.HasFaces():
			next = e.cfg.FaceInterval
		}
		timer.Reset(next)
	}
}

// Step runs one detection pass and pushes the resulting frame. A detector
// failure is logged and treated as "no faces" so stale masks age out.
func (e *OcclusionEngine) Step(ctx context.Context) (types.DetectionResult, error) {
	e.step.Lock()
	defer e.step.Unlock()

	e.mu.Lock()
	mode, resize := e.mode, e.resize
	viewW, viewH := e.viewW, e.viewH
	if e.resetReq {
		e.masks.Reset()
		e.band.Reset()
		e.resetReq = false
	}
	e.mu.Unlock()

	if mode == types.OcclusionOff {
		e.emitEmpty(mode)
		return types.DetectionResult{}, errNotSampling
	}
	if !e.d.Clock.IsPlaying() || viewW <= 0 || viewH <= 0 {
		return types.DetectionResult{}, errNotSampling
	}

	videoW, videoH := e.videoSize(ctx)

	frame, err := e.d.Frames.CaptureFrame(ctx, e.d.Clock.PositionMs(), e.cfg.SampleW, e.cfg.SampleH)
	if err != nil {
		return types.DetectionResult{}, fmt.Errorf("capture frame: %w", err)
	}
	b := frame.Bounds()

	dctx, cancel := context.WithTimeout(ctx, e.cfg.DetectTimeout)
	dets, err := e.d.Detector.Detect(dctx, frame)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return types.DetectionResult{}, ctx.Err()
		}
		e.d.Logf("occlusion: detect: %v", err)
		dets = nil
	}

	res := faces.Analyze(dets, b.Dx(), b.Dy())
	vp := geometry.ContentRect(viewW, viewH, videoW, videoH, resize)

	var out types.OcclusionFrame
	switch mode {
	case types.OcclusionBand:
		out = e.composeBand(res, vp)
	default:
		out = e.composeMasks(res, vp)
	}
	e.d.Surface.SetOcclusion(out)
	e.mu.Lock()
	e.lastEmpty = len(out.Instructions) == 0
	e.mu.Unlock()
	return res, nil
}

func (e *OcclusionEngine) videoSize(ctx context.Context) (int, int) {
	e.mu.Lock()
	w, h := e.videoW, e.videoH
	e.mu.Unlock()
	if w > 0 && h > 0 {
		return w, h
	}
	w, h, err := e.d.Frames.VideoSize(ctx)
	if err != nil {
		e.d.Logf("occlusion: video size: %v", err)
		return 0, 0
	}
	e.mu.Lock()
	e.videoW, e.videoH = w, h
	e.mu.Unlock()
	return w, h
}

func (e *OcclusionEngine) emitEmpty(mode types.OcclusionMode) {
	e.mu.Lock()
	if e.lastEmpty {
		e.mu.Unlock()
		return
	}
	e.lastEmpty = true
	e.mu.Unlock()
	e.d.Surface.SetOcclusion(types.OcclusionFrame{Mode: mode})
}

func (e *OcclusionEngine) composeMasks(res types.DetectionResult, vp geometry.ViewportRect) types.OcclusionFrame {
	masks := e.masks.Step(res.Masks)
	pad := geometry.EdgeExpansionRatio(vp.Width(), vp.Height(), e.cfg.FeatherPx)

	out := types.OcclusionFrame{Mode: types.OcclusionMask, Masks: masks}
	for _, m := range masks {
		if len(m.Polygon) >= geometry.PolygonMinPoints {
			poly := geometry.ExpandPolygon(m.Polygon, pad)
			pts := make([]types.Point, 0, len(poly))
			for _, p := range poly {
				pts = append(pts, vp.MapPoint(p))
			}
			out.Instructions = append(out.Instructions, types.DrawInstruction{
				Kind:   types.DrawPolygon,
				Points: pts,
				Rect:   vp.MapRect(m.Rect.Expanded(pad)),
			})
			continue
		}
		r := vp.MapRect(m.Rect.Expanded(pad))
		out.Instructions = append(out.Instructions, types.DrawInstruction{
			Kind:   types.DrawRoundRect,
			Rect:   r,
			Radius: min(r.Width(), r.Height()) * 0.25,
		})
	}
	return out
}

func (e *OcclusionEngine) composeBand(res types.DetectionResult, vp geometry.ViewportRect) types.OcclusionFrame {
	target := geometry.ResolveFaceAwareBand(res.Regions, e.cfg.DefaultBand, e.cfg.Band)
	nowMs := e.d.Now().UnixMilli()
	e.band.Step(target, res.HasFaces(), nowMs)
	band, ok := e.band.Current()
	if !ok {
		band = e.cfg.DefaultBand
	}
	r := vp.MapRect(types.Rect{Left: 0, Top: band.Top, Right: 1, Bottom: band.Bottom})
	return types.OcclusionFrame{
		Mode: types.OcclusionBand,
		Band: &band,
		Instructions: []types.DrawInstruction{{
			Kind: types.DrawClipBand,
			Rect: r,
		}},
	}
}
