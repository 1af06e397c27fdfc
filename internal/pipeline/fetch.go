package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/forPelevin/cuesync/internal/domain/clocksync"
	"github.com/forPelevin/cuesync/internal/domain/wire"
	"github.com/forPelevin/cuesync/internal/ports/adapters/localfs"
	"github.com/forPelevin/cuesync/internal/usecase"
)

type FetchConfig struct {
	Source  Source
	SaveDir string
	Logf    func(format string, args ...any)
}

func (c FetchConfig) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if c.SaveDir == "" {
		return errors.New("save dir is empty")
	}
	return nil
}

type FetchResult struct {
	Dir      string `json:"dir"`
	Segments int    `json:"segments"`
	View     bool   `json:"view"`
	Legacy   bool   `json:"legacy"`
}

// Fetch downloads the raw payloads of one content id into a directory that
// a later run can use as its Source.Dir.
func Fetch(ctx context.Context, cfg FetchConfig) (FetchResult, error) {
	logf := orNop(cfg.Logf)
	f, closeFn, err := cfg.Source.open(ctx, logf)
	if err != nil {
		return FetchResult{}, err
	}
	defer func() { _ = closeFn() }()

	id := cfg.Source.ID
	var p localfs.Payloads

	metaTotal := 0
	if view, err := f.FetchView(ctx, id); err != nil {
		logf("view metadata: %v", err)
	} else if len(view) > 0 {
		p.View = view
		reply, derr := wire.DecodeViewReply(view)
		if derr != nil {
			logf("view metadata: %v", derr)
		}
		if reply.SegmentConfig != nil {
			metaTotal = int(reply.SegmentConfig.Total)
		}
	}

	count := clocksync.SegmentCount(cfg.Source.DurationMs, metaTotal)
	logf("fetching %d segments for %s", count, id)
	segs, err := f.FetchSegments(ctx, id, count)
	if err != nil {
		if ctx.Err() != nil {
			return FetchResult{}, ctx.Err()
		}
		logf("segments: %v", err)
	}
	p.Segments = segs

	if len(segs) == 0 {
		legacy, err := f.FetchLegacy(ctx, id)
		if err != nil {
			return FetchResult{}, fmt.Errorf("%w: %s: %v", usecase.ErrNoCues, id, err)
		}
		p.Legacy = legacy
	}

	dir, err := localfs.New(cfg.SaveDir).Save(id, p)
	if err != nil {
		return FetchResult{}, fmt.Errorf("save payloads: %w", err)
	}
	res := FetchResult{Dir: dir, Segments: len(p.Segments), View: p.View != nil, Legacy: p.Legacy != nil}
	logf("saved %d segments to %s", res.Segments, dir)
	return res, nil
}
