package usecase

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/forPelevin/cuesync/internal/domain/wire"
	"github.com/forPelevin/cuesync/internal/types"
)

type fakeClock struct {
	mu      sync.Mutex
	pos     int64
	dur     int64
	playing bool
	speed   float64
}

func (c *fakeClock) PositionMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

func (c *fakeClock) DurationMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dur
}

func (c *fakeClock) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

func (c *fakeClock) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.speed == 0 {
		return 1
	}
	return c.speed
}

func (c *fakeClock) set(pos int64, playing bool) {
	c.mu.Lock()
	c.pos, c.playing = pos, playing
	c.mu.Unlock()
}

// fakeSurface records every call as a short string.
type fakeSurface struct {
	mu        sync.Mutex
	calls     []string
	cues      []types.Cue
	occlusion []types.OcclusionFrame
}

func (s *fakeSurface) record(format string, args ...any) {
	s.mu.Lock()
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
	s.mu.Unlock()
}

func (s *fakeSurface) SetCues(cues []types.Cue, originMs int64) {
	s.mu.Lock()
	s.cues = cues
	s.mu.Unlock()
	s.record("set:%d@%d", len(cues), originMs)
}

func (s *fakeSurface) SetAdvancedCues(cues []types.AdvancedCue) { s.record("adv:%d", len(cues)) }
func (s *fakeSurface) Start(atMs int64)                          { s.record("start:%d", atMs) }
func (s *fakeSurface) Pause()                                    { s.record("pause") }
func (s *fakeSurface) Clear()                                    { s.record("clear") }
func (s *fakeSurface) Invalidate()                               { s.record("invalidate") }

func (s *fakeSurface) SetOcclusion(f types.OcclusionFrame) {
	s.mu.Lock()
	s.occlusion = append(s.occlusion, f)
	s.mu.Unlock()
}

func (s *fakeSurface) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *fakeSurface) frames() []types.OcclusionFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.OcclusionFrame(nil), s.occlusion...)
}

func (s *fakeSurface) count(prefix string) int {
	n := 0
	for _, c := range s.snapshot() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// fakeFetcher serves canned payloads per id. An id with a gate blocks in
// FetchView until the gate is closed or ctx ends.
type fakeFetcher struct {
	mu       sync.Mutex
	segments map[string][][]byte
	legacy   map[string][]byte
	view     map[string][]byte
	gates    map[string]chan struct{}
	segCalls map[string]int
	counts   []int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		segments: map[string][][]byte{},
		legacy:   map[string][]byte{},
		view:     map[string][]byte{},
		gates:    map[string]chan struct{}{},
		segCalls: map[string]int{},
	}
}

func (f *fakeFetcher) FetchView(ctx context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	gate := f.gates[id]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.view[id]
	if !ok {
		return nil, errors.New("no view")
	}
	return b, nil
}

func (f *fakeFetcher) FetchSegments(_ context.Context, id string, count int) ([][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.segCalls[id]++
	f.counts = append(f.counts, count)
	segs, ok := f.segments[id]
	if !ok {
		return nil, errors.New("no segments")
	}
	return segs, nil
}

func (f *fakeFetcher) FetchLegacy(_ context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.legacy[id]
	if !ok {
		return nil, errors.New("no legacy document")
	}
	return b, nil
}

func (f *fakeFetcher) calls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.segCalls[id]
}

func testRecords() []types.RawCueRecord {
	return []types.RawCueRecord{
		{ID: 1, TimeOffsetMs: 1000, Mode: types.ModeScroll, FontSize: 25, ColorRGB: 0xFFFFFF, Content: "first"},
		{ID: 2, TimeOffsetMs: 2500, Mode: types.ModeTop, FontSize: 25, ColorRGB: 0xFF0000, Content: "top one"},
		{ID: 3, TimeOffsetMs: 4000, Mode: types.ModeBottom, FontSize: 18, ColorRGB: 0xFFFFFF, Content: "bottom one"},
		{ID: 4, TimeOffsetMs: 4100, Mode: types.ModeScroll, FontSize: 25, ColorRGB: 0xFFFFFF, Content: "哈哈哈哈哈"},
	}
}

func testSegment() []byte { return wire.EncodeSegment(testRecords()) }

func testView(commandText string, progressMs uint64) []byte {
	var cmd []byte
	cmd = protowire.AppendTag(cmd, 1, protowire.VarintType)
	cmd = protowire.AppendVarint(cmd, 9)
	cmd = protowire.AppendTag(cmd, 4, protowire.BytesType)
	cmd = protowire.AppendString(cmd, "#ATTENTION#")
	cmd = protowire.AppendTag(cmd, 5, protowire.BytesType)
	cmd = protowire.AppendString(cmd, commandText)
	cmd = protowire.AppendTag(cmd, 6, protowire.VarintType)
	cmd = protowire.AppendVarint(cmd, progressMs)

	var b []byte
	b = protowire.AppendTag(b, 9, protowire.BytesType)
	b = protowire.AppendBytes(b, cmd)
	return b
}

const testLegacy = `<?xml version="1.0" encoding="UTF-8"?><i>` +
	`<d p="1.5,1,25,16777215,0,0,abc,11">legacy one</d>` +
	`<d p="3.25,5,25,255,0,0,def,12">legacy top</d></i>`

type fakeFrames struct {
	w, h   int
	err    error
	mu     sync.Mutex
	atMs   []int64
	sizeOK bool
}

func (f *fakeFrames) CaptureFrame(_ context.Context, atMs int64, maxW, maxH int) (image.Image, error) {
	f.mu.Lock()
	f.atMs = append(f.atMs, atMs)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return image.NewRGBA(image.Rect(0, 0, maxW, maxH)), nil
}

func (f *fakeFrames) VideoSize(context.Context) (int, int, error) {
	if !f.sizeOK {
		return 0, 0, errors.New("unknown size")
	}
	return f.w, f.h, nil
}

// fakeDetector returns the next scripted result per call, repeating the last.
type fakeDetector struct {
	mu      sync.Mutex
	results [][]types.FaceDetection
	err     error
	calls   int
}

func (d *fakeDetector) Detect(context.Context, image.Image) ([]types.FaceDetection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	if len(d.results) == 0 {
		return nil, nil
	}
	i := min(d.calls-1, len(d.results)-1)
	return d.results[i], nil
}

type fakeModule struct {
	states     []types.ModuleState
	stateErr   error
	installErr error
	progress   []int
	checks     int
}

func (m *fakeModule) State(ctx context.Context) (types.ModuleState, error) {
	m.checks++
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if m.stateErr != nil {
		return 0, m.stateErr
	}
	i := min(m.checks-1, len(m.states)-1)
	return m.states[i], nil
}

func (m *fakeModule) Install(_ context.Context, progress func(int)) error {
	for _, p := range m.progress {
		progress(p)
	}
	return m.installErr
}

type fakeVideoTool struct {
	mu            sync.Mutex
	renderBurnASS []string
	renderStarts  []time.Duration
	renderOuts    []string
	duration      time.Duration
	w, h          int
}

func (f *fakeVideoTool) RenderClip(_ context.Context, _ string, start, _ time.Duration, out string, burnASS string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renderBurnASS = append(f.renderBurnASS, burnASS)
	f.renderStarts = append(f.renderStarts, start)
	f.renderOuts = append(f.renderOuts, out)
	return nil
}

func (f *fakeVideoTool) ProbeDuration(context.Context, string) (time.Duration, error) {
	return f.duration, nil
}

func (f *fakeVideoTool) ProbeVideoSize(context.Context, string) (int, int, error) {
	return f.w, f.h, nil
}
