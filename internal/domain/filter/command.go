package filter

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/forPelevin/cuesync/internal/types"
)

// Command categories that never carry displayable text.
var nonVisualCommands = map[string]struct{}{
	"UPOWER_STATE":  {},
	"UPGRADE_STATE": {},
	"PANEL_STATE":   {},
}

var textKeys = []string{"text", "content", "msg", "message", "title"}

var (
	textKeyPatterns = func() []*regexp.Regexp {
		out := make([]*regexp.Regexp, 0, len(textKeys))
		for _, k := range textKeys {
			out = append(out, regexp.MustCompile(`"`+k+`"\s*:\s*"([^"]+)"`))
		}
		return out
	}()
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Noise markers compared case-insensitively.
var noiseMarkers = []string{`upower_state`, `"type":`, `","type":`, `.png"`}

const (
	noiseMinLen         = 32
	noiseMinPunctuation = 4
)

const (
	commandCueDurationMs = 5000
	commandCueX          = 0.5
	commandCueY          = 0.1
	commandCueFontSize   = 20
	commandCueColor      = 0xFFD700
	commandCueAlpha      = 0.9
)

// ResolveCommandText returns the human-readable text of a command cue, taken
// from its content and then its extra payload.
func ResolveCommandText(cmd types.CommandCue) (string, bool) {
	if _, skip := nonVisualCommands[strings.ToUpper(strings.TrimSpace(cmd.Command))]; skip {
		return "", false
	}
	if s, ok := readableText(cmd.Content); ok {
		return s, true
	}
	return readableText(cmd.Extra)
}

// BuildAdvancedCue turns a command cue into a positioned cue, or reports false
// when it has no displayable text.
func BuildAdvancedCue(cmd types.CommandCue) (types.AdvancedCue, bool) {
	text, ok := ResolveCommandText(cmd)
	if !ok {
		return types.AdvancedCue{}, false
	}
	return types.AdvancedCue{
		ID:         fmt.Sprintf("cmd_%d", cmd.ID),
		Text:       text,
		StartMs:    int64(max(cmd.ProgressMs, 0)),
		DurationMs: commandCueDurationMs,
		X:          commandCueX,
		Y:          commandCueY,
		FontSize:   commandCueFontSize,
		ColorRGB:   commandCueColor,
		Alpha:      commandCueAlpha,
	}, true
}

// BuildAdvancedCues keeps the order of cmds and drops commands without text.
func BuildAdvancedCues(cmds []types.CommandCue) []types.AdvancedCue {
	var out []types.AdvancedCue
	for _, c := range cmds {
		if ac, ok := BuildAdvancedCue(c); ok {
			out = append(out, ac)
		}
	}
	return out
}

func readableText(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if looksLikeJSON(s) {
		return textFromJSON(s)
	}
	return sanitize(s)
}

func looksLikeJSON(s string) bool {
	return (strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")) ||
		(strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"))
}

func textFromJSON(raw string) (string, bool) {
	for _, re := range textKeyPatterns {
		if m := re.FindStringSubmatch(raw); m != nil {
			if s, ok := sanitize(m[1]); ok {
				return s, true
			}
		}
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return "", false
	}
	if s, ok := textFromObject(obj); ok {
		return s, true
	}
	for _, key := range []string{"data", "extra"} {
		if nested, ok := obj[key].(map[string]any); ok {
			return textFromObject(nested)
		}
	}
	return "", false
}

func textFromObject(obj map[string]any) (string, bool) {
	for _, k := range textKeys {
		v, ok := obj[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch v := v.(type) {
		case string:
			s = v
		case float64, bool:
			s = fmt.Sprint(v)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				continue
			}
			s = string(b)
		}
		if out, ok := sanitize(s); ok {
			return out, true
		}
	}
	return "", false
}

func sanitize(raw string) (string, bool) {
	s := strings.TrimSpace(whitespaceRun.ReplaceAllString(strings.ReplaceAll(raw, "\n", " "), " "))
	if s == "" {
		return "", false
	}
	lower := strings.ToLower(s)
	for _, m := range noiseMarkers {
		if strings.Contains(lower, m) {
			return "", false
		}
	}
	if utf8.RuneCountInString(s) > noiseMinLen && strings.Count(s, ":")+strings.Count(s, ",")+strings.Count(s, `"`) >= noiseMinPunctuation {
		return "", false
	}
	return s, true
}
