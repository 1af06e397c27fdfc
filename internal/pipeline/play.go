package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/cuesync/internal/domain/filter"
	"github.com/forPelevin/cuesync/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/cuesync/internal/ports/adapters/jsonsurface"
	"github.com/forPelevin/cuesync/internal/ports/adapters/wallclock"
	"github.com/forPelevin/cuesync/internal/types"
	"github.com/forPelevin/cuesync/internal/usecase"
)

// PlayConfig drives the controller against a wall-clock playback and
// writes every surface call as a JSON line.
type PlayConfig struct {
	Source   Source
	Settings types.Settings
	Detector DetectorConfig

	// InputMP4 feeds frames to the face detector; without it occlusion is off.
	InputMP4 string
	StartMs  int64
	Speed    float64
	ViewW    int
	ViewH    int
	// Full writes the cue lists, not just their sizes.
	Full bool

	FFmpegPath  string
	FFprobePath string

	Out  io.Writer
	Logf func(format string, args ...any)
}

func (c PlayConfig) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if err := c.Detector.Validate(); err != nil {
		return err
	}
	if c.InputMP4 != "" {
		if _, err := os.Stat(c.InputMP4); err != nil {
			return fmt.Errorf("stat input: %w", err)
		}
	}
	if c.Speed < 0 {
		return fmt.Errorf("speed must be > 0")
	}
	if c.StartMs < 0 {
		return fmt.Errorf("start must be >= 0")
	}
	if c.ViewW < 0 || c.ViewH < 0 {
		return fmt.Errorf("view size must be >= 0")
	}
	return nil
}

const playPoll = 100 * time.Millisecond

// Play runs until the clock reaches the end of a known duration, the load
// fails or ctx is done. It returns the controller state seen last.
func Play(ctx context.Context, cfg PlayConfig) (usecase.Snapshot, error) {
	logf := orNop(cfg.Logf)
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	speed := cfg.Speed
	if speed <= 0 {
		speed = 1
	}
	viewW, viewH := cfg.ViewW, cfg.ViewH
	if viewW == 0 && viewH == 0 {
		viewW, viewH = 1280, 720
	}

	fetcher, closeFn, err := cfg.Source.open(ctx, logf)
	if err != nil {
		return usecase.Snapshot{}, err
	}
	defer func() { _ = closeFn() }()

	video := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	durMs := cfg.Source.DurationMs
	if durMs <= 0 && cfg.InputMP4 != "" {
		d, err := video.ProbeDuration(ctx, cfg.InputMP4)
		if err != nil {
			return usecase.Snapshot{}, fmt.Errorf("probe duration: %w", err)
		}
		durMs = d.Milliseconds()
	}

	clock := wallclock.New(durMs, nil)
	surface := jsonsurface.New(out, jsonsurface.Options{Full: cfg.Full})

	var engine *usecase.OcclusionEngine
	if cfg.Settings.Occlusion != types.OcclusionOff {
		det, _, err := cfg.Detector.build()
		switch {
		case err != nil:
			return usecase.Snapshot{}, err
		case det == nil || cfg.InputMP4 == "":
			logf("occlusion %s needs a detector and an input video; disabled", cfg.Settings.Occlusion)
		default:
			ocfg := usecase.DefaultOcclusionConfig()
			ocfg.Mode = cfg.Settings.Occlusion
			ocfg.Resize = cfg.Settings.Resize
			engine = usecase.NewOcclusionEngine(usecase.OcclusionDeps{
				Clock:    clock,
				Frames:   video.Frames(cfg.InputMP4),
				Detector: det,
				Surface:  surface,
				Logf:     logf,
			}, ocfg)
			engine.Resize(viewW, viewH)
		}
	}

	ccfg := usecase.DefaultControllerConfig()
	ccfg.Policy = filter.NewPolicy(cfg.Settings)
	ctl := usecase.NewController(usecase.ControllerDeps{
		Clock:   clock,
		Surface: surface,
		Fetcher: fetcher,
		Logf:    logf,
		OnIdentityChange: func(string) {
			if engine != nil {
				engine.Reset()
			}
		},
	}, ccfg)
	logf("session %s", ctl.Session())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(ctl.Run(gctx)) })
	if engine != nil {
		g.Go(func() error { return ignoreCanceled(engine.Run(gctx)) })
	}

	clock.Seek(cfg.StartMs)
	clock.SetSpeed(speed)
	ctl.SetSpeed(speed)
	ctl.Resize(viewW, viewH)
	ctl.Attach()
	clock.Play()
	ctl.SetPlaying(true)
	ctl.Load(cfg.Source.ID, durMs)

	var last usecase.Snapshot
	var playErr error
	g.Go(func() error {
		defer cancel()
		t := time.NewTicker(playPoll)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
			}
			snap := ctl.Snapshot()
			if gctx.Err() != nil {
				return nil
			}
			if snap.State == usecase.StateIdle {
				playErr = fmt.Errorf("%w: %s", usecase.ErrNoCues, cfg.Source.ID)
				ctl.Release()
				return nil
			}
			last = snap
			if clock.Ended() {
				ctl.SetPlaybackState(types.PlaybackEnded)
				last = ctl.Snapshot()
				ctl.Release()
				return nil
			}
		}
	})
	if err := g.Wait(); err != nil {
		return last, err
	}
	if playErr != nil {
		return last, playErr
	}
	if err := surface.Err(); err != nil {
		return last, fmt.Errorf("write events: %w", err)
	}
	return last, nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
