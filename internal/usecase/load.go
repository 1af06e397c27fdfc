package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/forPelevin/cuesync/internal/domain/clocksync"
	"github.com/forPelevin/cuesync/internal/domain/filter"
	"github.com/forPelevin/cuesync/internal/domain/wire"
	"github.com/forPelevin/cuesync/internal/ports"
	"github.com/forPelevin/cuesync/internal/types"
)

var ErrNoCues = errors.New("no cues available")

// Loaded is the decoded, unfiltered cue set of one content id.
type Loaded struct {
	ID       string
	Records  []types.RawCueRecord
	Advanced []types.AdvancedCue
	View     *types.ViewReply
	Legacy   bool
}

// LoadCues fetches and decodes the cues of id. The binary segments are
// preferred; the legacy markup is used only when they yield nothing. View
// metadata is best effort.
func LoadCues(ctx context.Context, f ports.SegmentFetcher, id string, durationMs int64, logf func(string, ...any)) (Loaded, error) {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	out := Loaded{ID: id}

	metaTotal := 0
	if b, err := f.FetchView(ctx, id); err != nil {
		logf("view metadata for %s: %v", id, err)
	} else if len(b) > 0 {
		view, err := wire.DecodeViewReply(b)
		if err != nil {
			logf("view metadata for %s: %v", id, err)
		}
		out.View = &view
		if view.SegmentConfig != nil {
			metaTotal = int(view.SegmentConfig.Total)
		}
		out.Advanced = filter.BuildAdvancedCues(view.Commands)
	}
	if err := ctx.Err(); err != nil {
		return Loaded{}, err
	}

	count := clocksync.SegmentCount(durationMs, metaTotal)
	segs, err := f.FetchSegments(ctx, id, count)
	if err != nil {
		if ctx.Err() != nil {
			return Loaded{}, ctx.Err()
		}
		logf("segments for %s: %v", id, err)
	}
	if len(segs) > 0 {
		recs, derr := wire.DecodeSegments(segs)
		if derr != nil {
			logf("decode segments for %s: %v", id, derr)
		}
		out.Records = recs
	}
	if len(out.Records) > 0 {
		return out, nil
	}

	b, err := f.FetchLegacy(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return Loaded{}, ctx.Err()
		}
		if len(out.Advanced) > 0 {
			logf("legacy fallback for %s: %v", id, err)
			return out, nil
		}
		return out, fmt.Errorf("%w: legacy fallback for %s: %v", ErrNoCues, id, err)
	}
	recs, derr := wire.DecodeLegacy(b)
	if derr != nil {
		logf("decode legacy for %s: %v", id, derr)
	}
	out.Records = recs
	out.Legacy = true
	if len(recs) == 0 && len(out.Advanced) == 0 {
		return out, fmt.Errorf("%w: %s", ErrNoCues, id)
	}
	return out, nil
}
