// Package wallclock is a playback clock driven by the system clock. The play
// command uses it to stand in for a real player.
package wallclock

import (
	"sync"
	"time"
)

type Playback struct {
	mu         sync.Mutex
	now        func() time.Time
	durationMs int64
	anchorMs   int64
	anchorAt   time.Time
	playing    bool
	speed      float64
}

// New returns a paused clock at position 0. A durationMs of 0 means unknown.
func New(durationMs int64, now func() time.Time) *Playback {
	if now == nil {
		now = time.Now
	}
	return &Playback{now: now, durationMs: durationMs, speed: 1, anchorAt: now()}
}

// position assumes mu is held.
func (p *Playback) position() int64 {
	pos := p.anchorMs
	if p.playing {
		elapsed := p.now().Sub(p.anchorAt)
		pos += int64(float64(elapsed.Milliseconds()) * p.speed)
	}
	if p.durationMs > 0 && pos > p.durationMs {
		pos = p.durationMs
	}
	return max(pos, 0)
}

// rebase moves the anchor to the current instant. Caller holds mu.
func (p *Playback) rebase() {
	p.anchorMs = p.position()
	p.anchorAt = p.now()
}

func (p *Playback) PositionMs() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position()
}

func (p *Playback) DurationMs() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.durationMs
}

// IsPlaying turns false once the position reaches a known duration.
func (p *Playback) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing && !p.endedLocked()
}

func (p *Playback) Ended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.endedLocked()
}

func (p *Playback) endedLocked() bool {
	return p.durationMs > 0 && p.position() >= p.durationMs
}

func (p *Playback) Speed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

func (p *Playback) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return
	}
	p.anchorAt = p.now()
	p.playing = true
}

func (p *Playback) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return
	}
	p.rebase()
	p.playing = false
}

func (p *Playback) Seek(posMs int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.durationMs > 0 {
		posMs = min(posMs, p.durationMs)
	}
	p.anchorMs = max(posMs, 0)
	p.anchorAt = p.now()
}

func (p *Playback) SetSpeed(speed float64) {
	if speed <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rebase()
	p.speed = speed
}
