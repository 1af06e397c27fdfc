package filter

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/forPelevin/cuesync/internal/types"
)

func TestResolveCommandText(t *testing.T) {
	cases := []struct {
		name string
		cmd  types.CommandCue
		want string
		ok   bool
	}{
		{"plain prose", types.CommandCue{Command: "#ATTENTION#", Content: "  hello\n  world  "}, "hello world", true},
		{"denylisted category", types.CommandCue{Command: " upower_state ", Content: "support me"}, "", false},
		{"json text key", types.CommandCue{Content: `{"icon":"x","text":"vote now"}`}, "vote now", true},
		{"json key priority", types.CommandCue{Content: `{"title":"second","msg":"first"}`}, "first", true},
		{"nested data", types.CommandCue{Content: `{"data":{"message":"nested hi"},"id":3}`}, "nested hi", true},
		{"falls back to extra", types.CommandCue{Content: "", Extra: `{"content":"from extra"}`}, "from extra", true},
		{"json without text", types.CommandCue{Content: `{"id":1,"url":"x"}`}, "", false},
		{"image url noise", types.CommandCue{Content: `see "a.png"`}, "", false},
		{"regex tolerates arrays", types.CommandCue{Content: `[{"text":"a","type":1}]`, Extra: "ok"}, "a", true},
		{"structured leak", types.CommandCue{Content: `id:1, name:"abc", url:"https://example.com/x"`}, "", false},
		{"short punctuation allowed", types.CommandCue{Content: `a:b,c:"d"`}, `a:b,c:"d"`, true},
		{"array not parsed strictly", types.CommandCue{Content: `[1,2,3]`}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ResolveCommandText(tc.cmd)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("got (%q,%v) want (%q,%v)", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestSanitize_LengthThreshold(t *testing.T) {
	short := strings.Repeat("a", 24) + `:,:,"`
	if _, ok := sanitize(short); !ok {
		t.Fatalf("text of %d chars must survive", len(short))
	}
	long := strings.Repeat("a", 28) + `:,:,"`
	if _, ok := sanitize(long); ok {
		t.Fatalf("text of %d chars with dense punctuation must be rejected", len(long))
	}
}

func TestBuildAdvancedCue(t *testing.T) {
	got, ok := BuildAdvancedCue(types.CommandCue{ID: 42, Content: "hi", ProgressMs: -300})
	if !ok {
		t.Fatalf("expected a cue")
	}
	want := types.AdvancedCue{
		ID: "cmd_42", Text: "hi", StartMs: 0, DurationMs: 5000,
		X: 0.5, Y: 0.1, FontSize: 20, ColorRGB: 0xFFD700, Alpha: 0.9,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if _, ok := BuildAdvancedCue(types.CommandCue{Command: "PANEL_STATE", Content: "x"}); ok {
		t.Fatalf("panel state must not render")
	}
}
