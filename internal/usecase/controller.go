package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/forPelevin/cuesync/internal/domain/clocksync"
	"github.com/forPelevin/cuesync/internal/domain/filter"
	"github.com/forPelevin/cuesync/internal/ports"
	"github.com/forPelevin/cuesync/internal/types"
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}

type ControllerDeps struct {
	Clock   ports.Clock
	Surface ports.CueSurface
	Fetcher ports.SegmentFetcher
	Logf    func(format string, args ...any)
	// OnIdentityChange runs on the controller goroutine whenever the active
	// content id changes.
	OnIdentityChange func(id string)
}

type ControllerConfig struct {
	Policy         filter.Policy
	ViewRetryDelay time.Duration
	ViewRetryLimit int
	LoadTimeout    time.Duration
}

func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		Policy:         filter.DefaultPolicy(),
		ViewRetryDelay: 100 * time.Millisecond,
		ViewRetryLimit: 5,
		LoadTimeout:    30 * time.Second,
	}
}

type Snapshot struct {
	Session       string  `json:"session"`
	State         State   `json:"-"`
	StateName     string  `json:"state"`
	ID            string  `json:"id"`
	CueCount      int     `json:"cue_count"`
	AdvancedCount int     `json:"advanced_count"`
	Speed         float64 `json:"speed"`
	Attached      bool    `json:"attached"`
	Visible       bool    `json:"visible"`
	PushPending   bool    `json:"push_pending"`
}

// Controller keeps a cue surface in step with a playback clock. All state is
// owned by the goroutine running Run; the exported methods post events to it
// and are safe for concurrent use.
type Controller struct {
	d       ControllerDeps
	cfg     ControllerConfig
	session string
	events  chan event
	done    chan struct{}

	state       State
	id          string
	gen         uint64
	cancelLoad  context.CancelFunc
	loaded      *Loaded
	attached    bool
	visible     bool
	speed       float64
	viewW       int
	viewH       int
	pushPending bool
	viewRetries int
	retry       *time.Timer
	ticker      *time.Ticker
	tickEvery   time.Duration
	tick        int
	policy      filter.Policy
}

func NewController(d ControllerDeps, cfg ControllerConfig) *Controller {
	if d.Logf == nil {
		d.Logf = func(string, ...any) {}
	}
	def := DefaultControllerConfig()
	if cfg.ViewRetryDelay <= 0 {
		cfg.ViewRetryDelay = def.ViewRetryDelay
	}
	if cfg.ViewRetryLimit <= 0 {
		cfg.ViewRetryLimit = def.ViewRetryLimit
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = def.LoadTimeout
	}
	return &Controller{
		d:       d,
		cfg:     cfg,
		session: uuid.NewString(),
		events:  make(chan event, 64),
		done:    make(chan struct{}),
		visible: true,
		speed:   1,
		policy:  cfg.Policy,
	}
}

func (c *Controller) Session() string { return c.session }

type event interface{}

type (
	attachEvent        struct{}
	detachEvent        struct{}
	loadEvent          struct {
		id         string
		durationMs int64
	}
	loadedEvent struct {
		id  string
		gen uint64
		res Loaded
		err error
	}
	seekEvent          struct{ posMs int64 }
	playingEvent       struct{ playing bool }
	playbackStateEvent struct{ state types.PlaybackState }
	speedEvent         struct{ speed float64 }
	resizeEvent        struct{ w, h int }
	visibleEvent       struct{ visible bool }
	policyEvent        struct{ policy filter.Policy }
	snapshotEvent      struct{ reply chan Snapshot }
	releaseEvent       struct{}
)

func (c *Controller) Attach()                    { c.post(attachEvent{}) }
func (c *Controller) Detach()                    { c.post(detachEvent{}) }
func (c *Controller) Load(id string, durMs int64) { c.post(loadEvent{id: id, durationMs: durMs}) }
func (c *Controller) Seek(posMs int64)           { c.post(seekEvent{posMs: posMs}) }
func (c *Controller) SetPlaying(playing bool)    { c.post(playingEvent{playing: playing}) }
func (c *Controller) SetPlaybackState(s types.PlaybackState) {
	c.post(playbackStateEvent{state: s})
}
func (c *Controller) SetSpeed(speed float64)        { c.post(speedEvent{speed: speed}) }
func (c *Controller) Resize(w, h int)               { c.post(resizeEvent{w: w, h: h}) }
func (c *Controller) SetVisible(visible bool)       { c.post(visibleEvent{visible: visible}) }
func (c *Controller) UpdatePolicy(p filter.Policy) { c.post(policyEvent{policy: p}) }

// Snapshot returns the controller state. After Run has returned it reports
// an idle snapshot.
func (c *Controller) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	if !c.post(snapshotEvent{reply: reply}) {
		return Snapshot{Session: c.session, State: StateIdle, StateName: StateIdle.String()}
	}
	select {
	case s := <-reply:
		return s
	case <-c.done:
		return Snapshot{Session: c.session, State: StateIdle, StateName: StateIdle.String()}
	}
}

// Release clears the surface and stops Run. It blocks until Run returns.
func (c *Controller) Release() {
	if c.post(releaseEvent{}) {
		<-c.done
	}
}

func (c *Controller) post(ev event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// Run processes events until ctx is cancelled or Release is called.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	defer c.shutdown()
	if s := c.d.Clock.Speed(); s > 0 {
		c.speed = s
	}
	for {
		var tickC, retryC <-chan time.Time
		if c.ticker != nil {
			tickC = c.ticker.C
		}
		if c.retry != nil {
			retryC = c.retry.C
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.events:
			if _, ok := ev.(releaseEvent); ok {
				c.d.Surface.Clear()
				return nil
			}
			c.handle(ctx, ev)
		case <-tickC:
			c.onTick()
		case <-retryC:
			c.retry = nil
			if c.pushPending {
				c.push(c.d.Clock.PositionMs())
			}
		}
	}
}

func (c *Controller) handle(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case attachEvent:
		c.attached = true
		c.push(c.d.Clock.PositionMs())
	case detachEvent:
		c.attached = false
		c.d.Surface.Pause()
		c.stopTicker()
	case loadEvent:
		c.load(ctx, ev)
	case loadedEvent:
		c.onLoaded(ev)
	case seekEvent:
		if c.loaded == nil {
			c.d.Surface.Clear()
			return
		}
		c.push(ev.posMs)
	case playingEvent:
		c.onPlaying(ev.playing)
	case playbackStateEvent:
		c.onPlaybackState(ev.state)
	case speedEvent:
		if ev.speed <= 0 || ev.speed == c.speed {
			return
		}
		c.speed = ev.speed
		if c.push(c.d.Clock.PositionMs()) {
			c.d.Surface.Invalidate()
		}
	case resizeEvent:
		changed := ev.w != c.viewW || ev.h != c.viewH
		c.viewW, c.viewH = ev.w, ev.h
		if c.pushPending || changed {
			c.push(c.d.Clock.PositionMs())
		}
	case visibleEvent:
		c.visible = ev.visible
		if !ev.visible {
			c.d.Surface.Pause()
			c.d.Surface.Clear()
			c.stopTicker()
			return
		}
		c.push(c.d.Clock.PositionMs())
	case policyEvent:
		c.policy = ev.policy
		c.push(c.d.Clock.PositionMs())
	case snapshotEvent:
		ev.reply <- c.snapshot()
	}
}

func (c *Controller) load(ctx context.Context, ev loadEvent) {
	if ev.id == c.id {
		if c.loaded != nil {
			c.push(c.d.Clock.PositionMs())
			return
		}
		if c.state == StateLoading {
			return
		}
	} else {
		c.switchIdentity(ev.id)
	}

	c.gen++
	gen := c.gen
	lctx, cancel := context.WithTimeout(ctx, c.cfg.LoadTimeout)
	c.cancelLoad = cancel
	c.state = StateLoading
	id, dur, logf := ev.id, ev.durationMs, c.d.Logf
	go func() {
		res, err := LoadCues(lctx, c.d.Fetcher, id, dur, logf)
		c.post(loadedEvent{id: id, gen: gen, res: res, err: err})
	}()
}

func (c *Controller) switchIdentity(id string) {
	if c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
	}
	c.stopTicker()
	c.stopRetry()
	c.loaded = nil
	c.pushPending = false
	c.state = StateIdle
	if c.id != "" {
		c.d.Surface.Clear()
	}
	c.id = id
	if c.d.OnIdentityChange != nil {
		c.d.OnIdentityChange(id)
	}
}

func (c *Controller) onLoaded(ev loadedEvent) {
	if ev.id != c.id || ev.gen != c.gen {
		c.d.Logf("discarding stale load of %s", ev.id)
		return
	}
	if c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
	}
	if ev.err != nil {
		c.d.Logf("load %s: %v", ev.id, ev.err)
		c.state = StateIdle
		c.d.Surface.Clear()
		return
	}
	res := ev.res
	c.loaded = &res
	c.state = StateReady
	c.d.Logf("loaded %d cues for %s (legacy=%v)", len(res.Records), res.ID, res.Legacy)
	c.push(c.d.Clock.PositionMs())
}

// push re-bases the full cue set at origin 0 and starts the surface at
// atMs. The surface derives lane slots from time since origin, so the origin
// never moves. It reports whether the surface received the cues.
func (c *Controller) push(atMs int64) bool {
	if c.loaded == nil || !c.attached || !c.visible {
		return false
	}
	if c.viewW <= 0 || c.viewH <= 0 {
		c.deferPush()
		return false
	}
	c.pushPending = false
	c.viewRetries = 0
	c.stopRetry()

	c.d.Surface.SetCues(c.policy.Apply(c.loaded.Records), 0)
	c.d.Surface.SetAdvancedCues(c.policy.ApplyAdvanced(c.loaded.Advanced))
	c.d.Surface.Start(atMs)
	if c.d.Clock.IsPlaying() {
		c.state = StatePlaying
		c.startTicker()
		return true
	}
	c.d.Surface.Pause()
	c.state = StatePaused
	c.stopTicker()
	return true
}

func (c *Controller) deferPush() {
	c.pushPending = true
	if c.retry != nil {
		return
	}
	if c.viewRetries >= c.cfg.ViewRetryLimit {
		c.d.Logf("surface still has no size after %d retries; waiting for resize", c.viewRetries)
		return
	}
	c.viewRetries++
	c.retry = time.NewTimer(c.cfg.ViewRetryDelay)
}

func (c *Controller) onPlaying(playing bool) {
	if c.loaded == nil || !c.attached || !c.visible {
		return
	}
	if c.pushPending {
		c.push(c.d.Clock.PositionMs())
		return
	}
	if playing {
		c.d.Surface.Start(c.d.Clock.PositionMs())
		c.state = StatePlaying
		c.startTicker()
		return
	}
	c.d.Surface.Pause()
	c.state = StatePaused
	c.stopTicker()
}

func (c *Controller) onPlaybackState(s types.PlaybackState) {
	if c.loaded == nil || !c.attached || !c.visible {
		return
	}
	switch s {
	case types.PlaybackBuffering, types.PlaybackEnded:
		if c.state == StatePlaying {
			c.d.Surface.Pause()
			c.state = StatePaused
		}
		c.stopTicker()
	case types.PlaybackReady:
		if c.d.Clock.IsPlaying() {
			c.onPlaying(true)
		}
	}
}

func (c *Controller) onTick() {
	if c.loaded == nil || !c.d.Clock.IsPlaying() {
		return
	}
	c.tick++
	pos := c.d.Clock.PositionMs()
	if clocksync.ShouldForceResync(c.speed, c.tick) {
		c.push(pos)
		return
	}
	c.d.Surface.Start(pos)
}

func (c *Controller) startTicker() {
	every := clocksync.ResyncInterval(c.speed)
	if c.ticker != nil && c.tickEvery == every {
		return
	}
	c.stopTicker()
	c.ticker = time.NewTicker(every)
	c.tickEvery = every
}

func (c *Controller) stopTicker() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
	c.tick = 0
}

func (c *Controller) stopRetry() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
}

func (c *Controller) shutdown() {
	if c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
	}
	c.stopTicker()
	c.stopRetry()
	c.state = StateIdle
}

func (c *Controller) snapshot() Snapshot {
	s := Snapshot{
		Session:     c.session,
		State:       c.state,
		StateName:   c.state.String(),
		ID:          c.id,
		Speed:       c.speed,
		Attached:    c.attached,
		Visible:     c.visible,
		PushPending: c.pushPending,
	}
	if c.loaded != nil {
		s.CueCount = len(c.loaded.Records)
		s.AdvancedCount = len(c.loaded.Advanced)
	}
	return s
}
