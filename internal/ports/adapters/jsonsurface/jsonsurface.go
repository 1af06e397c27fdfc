// Package jsonsurface is a render surface that writes every call as one JSON
// line. It backs the play command and doubles as a recorder in tests.
package jsonsurface

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/forPelevin/cuesync/internal/types"
)

// Event is one surface call.
type Event struct {
	AtMs      int64                 `json:"at_ms"`
	Op        string                `json:"op"`
	OriginMs  *int64                `json:"origin_ms,omitempty"`
	PosMs     *int64                `json:"pos_ms,omitempty"`
	Count     *int                  `json:"count,omitempty"`
	Cues      []types.Cue           `json:"cues,omitempty"`
	Advanced  []types.AdvancedCue   `json:"advanced,omitempty"`
	Occlusion *types.OcclusionFrame `json:"occlusion,omitempty"`
	Mode      string                `json:"mode,omitempty"`
}

type Options struct {
	// Full writes the cue lists; otherwise only their sizes.
	Full bool
	Now  func() time.Time
}

// Surface serializes calls from the controller and the occlusion engine.
type Surface struct {
	mu    sync.Mutex
	enc   *json.Encoder
	full  bool
	now   func() time.Time
	start time.Time
	err   error
}

func New(w io.Writer, opt Options) *Surface {
	if opt.Now == nil {
		opt.Now = time.Now
	}
	return &Surface{enc: json.NewEncoder(w), full: opt.Full, now: opt.Now, start: opt.Now()}
}

func (s *Surface) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	ev.AtMs = s.now().Sub(s.start).Milliseconds()
	s.err = s.enc.Encode(ev)
}

// Err returns the first write error. Later calls are dropped after one.
func (s *Surface) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Surface) SetCues(cues []types.Cue, originMs int64) {
	n := len(cues)
	ev := Event{Op: "set_cues", OriginMs: &originMs, Count: &n}
	if s.full {
		ev.Cues = cues
	}
	s.emit(ev)
}

func (s *Surface) SetAdvancedCues(cues []types.AdvancedCue) {
	n := len(cues)
	ev := Event{Op: "set_advanced", Count: &n}
	if s.full {
		ev.Advanced = cues
	}
	s.emit(ev)
}

func (s *Surface) Start(atMs int64) { s.emit(Event{Op: "start", PosMs: &atMs}) }
func (s *Surface) Pause()           { s.emit(Event{Op: "pause"}) }
func (s *Surface) Clear()           { s.emit(Event{Op: "clear"}) }
func (s *Surface) Invalidate()      { s.emit(Event{Op: "invalidate"}) }

func (s *Surface) SetOcclusion(f types.OcclusionFrame) {
	n := len(f.Instructions)
	s.emit(Event{Op: "occlusion", Mode: f.Mode.String(), Count: &n, Occlusion: &f})
}
