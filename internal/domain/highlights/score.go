package highlights

import (
	"regexp"
	"strings"
)

var (
	reLaugh   = regexp.MustCompile(`(?i)(哈{2,}|h(a|h){2,}|lol|lmao|xswl|233+|笑死)`)
	reHype    = regexp.MustCompile(`(?i)(666+|awsl|wow|omg|牛|卧槽|绝了|名场面|高能|前方|泪目)`)
	reAskMark = regexp.MustCompile(`[?？]`)
	reBang    = regexp.MustCompile(`[!！]`)
)

// Excitement scores cue text in [0..10]. It is a cheap heuristic used to
// break ties between equally busy windows.
func Excitement(text string) float64 {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0
	}
	s := float64(len(reLaugh.FindAllStringIndex(t, -1))) * 0.8
	s += float64(len(reHype.FindAllStringIndex(t, -1))) * 0.9
	s += float64(repeatRuns(t, 4)) * 0.3
	s += float64(len(reBang.FindAllStringIndex(t, -1))) * 0.2
	s += float64(len(reAskMark.FindAllStringIndex(t, -1))) * 0.1
	return clamp(s, 0, 10)
}

// repeatRuns counts runs of at least n identical runes.
func repeatRuns(s string, n int) int {
	var (
		runs int
		prev rune = -1
		run  int
	)
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run == n {
			runs++
		}
	}
	return runs
}

func clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}
