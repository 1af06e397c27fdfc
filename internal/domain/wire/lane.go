package wire

import "github.com/forPelevin/cuesync/internal/types"

const (
	DefaultDurationMs = 8000
	fixedDurationMs   = 4000
	baseFontPx        = 25.0
)

// LaneFor maps a raw mode to a lane. Unknown modes scroll.
func LaneFor(mode int32) types.Lane {
	switch mode {
	case types.ModeBottom:
		return types.LaneBottom
	case types.ModeTop:
		return types.LaneTop
	default:
		return types.LaneScroll
	}
}

func ToCue(r types.RawCueRecord) types.Cue {
	lane := LaneFor(r.Mode)
	dur := int64(DefaultDurationMs)
	if lane != types.LaneScroll {
		dur = fixedDurationMs
	}
	size := float64(r.FontSize)
	if size <= 0 {
		size = baseFontPx
	}
	return types.Cue{
		ID:         r.ID,
		Text:       r.Content,
		ShowAtMs:   int64(r.TimeOffsetMs),
		DurationMs: dur,
		Lane:       lane,
		ColorRGB:   r.ColorRGB & 0xFFFFFF,
		FontSizePx: size,
		Alpha:      1,
	}
}

// ToCues projects records in order. Input sorted by offset stays sorted.
func ToCues(recs []types.RawCueRecord) []types.Cue {
	out := make([]types.Cue, 0, len(recs))
	for _, r := range recs {
		out = append(out, ToCue(r))
	}
	return out
}
