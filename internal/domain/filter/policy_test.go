package filter

import (
	"testing"

	"github.com/forPelevin/cuesync/internal/types"
)

func TestIsVisible(t *testing.T) {
	all := types.DefaultTypeFilter()
	noColor := all
	noColor.AllowColorful = false
	noTop := all
	noTop.AllowTop = false

	cases := []struct {
		name string
		mode int32
		rgb  uint32
		s    types.TypeFilter
		want bool
	}{
		{"white scroll", 1, 0xFFFFFF, all, true},
		{"colour hidden", 1, 0xFF0000, noColor, false},
		{"white survives colour gate", 4, 0xFFFFFF, noColor, true},
		{"alpha bits ignored", 1, 0xFFFFFFFF, noColor, true},
		{"top hidden", 5, 0xFFFFFF, noTop, false},
		{"unknown mode follows scroll", 9, 0xFFFFFF, types.TypeFilter{AllowScroll: true}, true},
		{"zero value hides", 1, 0xFFFFFF, types.TypeFilter{}, false},
	}
	for _, tc := range cases {
		if got := IsVisible(tc.mode, tc.rgb, tc.s); got != tc.want {
			t.Fatalf("%s: got %v", tc.name, got)
		}
	}
}

func TestIsAdvancedVisible(t *testing.T) {
	s := types.DefaultTypeFilter()
	if !IsAdvancedVisible(0xFFD700, s) {
		t.Fatalf("special cue should be visible by default")
	}
	s.AllowColorful = false
	if IsAdvancedVisible(0xFFD700, s) {
		t.Fatalf("gold cue is colourful")
	}
	s = types.DefaultTypeFilter()
	s.AllowSpecial = false
	if IsAdvancedVisible(0xFFFFFF, s) {
		t.Fatalf("special disabled")
	}
}

func TestPolicy_Apply(t *testing.T) {
	p := NewPolicy(types.Settings{
		Types:      types.TypeFilter{AllowScroll: true, AllowBottom: true, AllowColorful: true},
		BlockRules: "spam, regex:^!",
	})
	recs := []types.RawCueRecord{
		{ID: 1, TimeOffsetMs: 10, Mode: 1, ColorRGB: 0xFFFFFF, Content: "nice"},
		{ID: 2, TimeOffsetMs: 20, Mode: 5, ColorRGB: 0xFFFFFF, Content: "top"},
		{ID: 3, TimeOffsetMs: 30, Mode: 1, ColorRGB: 0xFFFFFF, Content: "SPAM link"},
		{ID: 4, TimeOffsetMs: 40, Mode: 4, ColorRGB: 0x00FF00, Content: "bottom"},
		{ID: 5, TimeOffsetMs: 50, Mode: 1, ColorRGB: 0xFFFFFF, Content: "!cmd"},
	}
	got := p.Apply(recs)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 4 || got[1].Lane != types.LaneBottom {
		t.Fatalf("unexpected cues: %+v", got)
	}

	adv := p.ApplyAdvanced([]types.AdvancedCue{{ID: "cmd_1", Text: "hi", ColorRGB: 0xFFD700}})
	if len(adv) != 0 {
		t.Fatalf("special cues disabled in this policy")
	}
}
