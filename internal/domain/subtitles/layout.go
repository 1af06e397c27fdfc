package subtitles

import (
	"time"

	"github.com/forPelevin/cuesync/internal/types"
)

// layout hands out rows so concurrent cues do not overlap.
type layout struct {
	resX, resY     float64
	bandY0, bandY1 float64

	// scroll holds, per row, when the previous cue's tail has fully entered
	// the screen.
	scroll []time.Duration
	// top and bottom hold, per row, when the previous fixed cue ends.
	top    []time.Duration
	bottom []time.Duration
}

func newLayout(opt Options, band types.Band) *layout {
	h := float64(opt.PlayResY)
	return &layout{
		resX:   float64(opt.PlayResX),
		resY:   h,
		bandY0: band.Top * h,
		bandY1: band.Bottom * h,
	}
}

func (l *layout) scrollRow(start, end time.Duration, width, size float64) int {
	rowH := size * 1.15
	rows := max(int((l.bandY1-l.bandY0)/rowH), 1)
	for len(l.scroll) < rows {
		l.scroll = append(l.scroll, 0)
	}
	entry := time.Duration(float64(end-start) * width / (l.resX + width))

	pick := firstFree(l.scroll[:rows], start)
	l.scroll[pick] = start + entry
	return int(l.bandY0 + float64(pick)*rowH)
}

func (l *layout) fixedRow(fromBottom bool, start, end time.Duration, size float64) int {
	rowH := size * 1.15
	limit := max(int(l.resY/2/rowH), 1)
	rows := &l.top
	if fromBottom {
		rows = &l.bottom
	}
	pick := -1
	for i, free := range *rows {
		if free <= start {
			pick = i
			break
		}
	}
	if pick < 0 {
		if len(*rows) < limit {
			*rows = append(*rows, 0)
			pick = len(*rows) - 1
		} else {
			pick = firstFree(*rows, start)
		}
	}
	(*rows)[pick] = end
	if fromBottom {
		return int(l.resY - float64(pick)*rowH)
	}
	return int(float64(pick) * rowH)
}

// firstFree returns the first row free at t, or the row that frees up
// soonest.
func firstFree(rows []time.Duration, t time.Duration) int {
	pick := 0
	for i, free := range rows {
		if free <= t {
			return i
		}
		if free < rows[pick] {
			pick = i
		}
	}
	return pick
}
