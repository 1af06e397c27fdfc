package highlights

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/forPelevin/cuesync/internal/types"
)

const (
	maxSampleTexts  = 12
	excitementBoost = 0.15
)

// BuildWindows slides a window of the given span over the cue timeline and
// returns the n busiest non-overlapping windows, best first. cues must be
// sorted by ShowAtMs.
func BuildWindows(cues []types.Cue, span time.Duration, n int) []types.Window {
	if len(cues) == 0 || span <= 0 || n <= 0 {
		return nil
	}
	stride := max(span/4, time.Second)
	first := time.Duration(cues[0].ShowAtMs) * time.Millisecond
	last := time.Duration(cues[len(cues)-1].ShowAtMs) * time.Millisecond

	var all []types.Window
	lo := 0
	for start := first.Truncate(stride); start <= last; start += stride {
		end := start + span
		for lo < len(cues) && time.Duration(cues[lo].ShowAtMs)*time.Millisecond < start {
			lo++
		}
		hi := lo
		var texts []string
		for hi < len(cues) && time.Duration(cues[hi].ShowAtMs)*time.Millisecond < end {
			if len(texts) < maxSampleTexts {
				texts = append(texts, strings.TrimSpace(cues[hi].Text))
			}
			hi++
		}
		count := hi - lo
		if count == 0 {
			continue
		}
		text := strings.Join(texts, " / ")
		exc := Excitement(text)
		density := float64(count) / span.Seconds()
		all = append(all, types.Window{
			Start:      start,
			End:        end,
			Count:      count,
			Text:       text,
			Excitement: exc,
			Score:      density * (1 + excitementBoost*exc),
		})
	}

	slices.SortStableFunc(all, func(a, b types.Window) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Start, b.Start)
	})
	var out []types.Window
	for _, w := range all {
		if len(out) == n {
			break
		}
		if overlapsAny(w, out) {
			continue
		}
		out = append(out, w)
	}
	return out
}

func overlapsAny(w types.Window, picked []types.Window) bool {
	for _, p := range picked {
		if w.Start < p.End && p.Start < w.End {
			return true
		}
	}
	return false
}
