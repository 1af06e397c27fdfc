package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/cuesync/internal/types"
)

type Options struct {
	PlayResX int
	PlayResY int
	// Band limits scrolling rows to a vertical strip. Nil means the full
	// frame.
	Band *types.Band
	// Start and End select a clip; cue times are rebased to Start. A zero End
	// keeps everything after Start.
	Start time.Duration
	End   time.Duration
	// FontScale multiplies the cue font size.
	FontScale float64
}

func DefaultOptions() Options {
	return Options{PlayResX: 1920, PlayResY: 1080, FontScale: 1.8}
}

// RenderASS renders cues and positioned cues as an ASS document. Scrolling
// cues move right to left in the first free row, fixed cues stack from the top
// or bottom edge.
func RenderASS(cues []types.Cue, advanced []types.AdvancedCue, opt Options) string {
	if opt.PlayResX <= 0 || opt.PlayResY <= 0 {
		def := DefaultOptions()
		opt.PlayResX, opt.PlayResY = def.PlayResX, def.PlayResY
	}
	if opt.FontScale <= 0 {
		opt.FontScale = DefaultOptions().FontScale
	}
	band := types.Band{Top: 0, Bottom: 1}
	if opt.Band != nil {
		band = opt.Band.Normalized()
	}

	var b strings.Builder
	b.WriteString(assHeader(opt.PlayResX, opt.PlayResY))
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	lay := newLayout(opt, band)
	for _, c := range cues {
		start, end, ok := clip(time.Duration(c.ShowAtMs)*time.Millisecond, time.Duration(c.DurationMs)*time.Millisecond, opt)
		if !ok {
			continue
		}
		text := sanitizeASS(c.Text)
		if text == "" {
			continue
		}
		size := c.FontSizePx * opt.FontScale
		var pos string
		switch c.Lane {
		case types.LaneTop:
			pos = fmt.Sprintf("\\an8\\pos(%d,%d)", opt.PlayResX/2, lay.fixedRow(false, start, end, size))
		case types.LaneBottom:
			pos = fmt.Sprintf("\\an2\\pos(%d,%d)", opt.PlayResX/2, lay.fixedRow(true, start, end, size))
		default:
			w := textWidth(c.Text, size)
			y := lay.scrollRow(start, end, w, size)
			pos = fmt.Sprintf("\\an7\\move(%d,%d,%d,%d)", opt.PlayResX, y, -int(w), y)
		}
		writeDialogue(&b, start, end, fmt.Sprintf("{%s\\fs%d%s}%s", pos, int(size), colour(c.ColorRGB, c.Alpha), text))
	}
	for _, c := range advanced {
		start, end, ok := clip(time.Duration(c.StartMs)*time.Millisecond, time.Duration(c.DurationMs)*time.Millisecond, opt)
		if !ok {
			continue
		}
		text := sanitizeASS(c.Text)
		if text == "" {
			continue
		}
		x := int(c.X * float64(opt.PlayResX))
		y := int(c.Y * float64(opt.PlayResY))
		size := c.FontSize * opt.FontScale
		writeDialogue(&b, start, end, fmt.Sprintf("{\\an5\\pos(%d,%d)\\fs%d%s}%s", x, y, int(size), colour(c.ColorRGB, c.Alpha), text))
	}
	return b.String()
}

func clip(start, dur time.Duration, opt Options) (time.Duration, time.Duration, bool) {
	end := start + dur
	if end <= opt.Start || (opt.End > 0 && start >= opt.End) {
		return 0, 0, false
	}
	if start < opt.Start {
		start = opt.Start
	}
	if opt.End > 0 && end > opt.End {
		end = opt.End
	}
	return start - opt.Start, end - opt.Start, true
}

func writeDialogue(b *strings.Builder, start, end time.Duration, text string) {
	b.WriteString("Dialogue: 0,")
	b.WriteString(assTime(start))
	b.WriteString(",")
	b.WriteString(assTime(end))
	b.WriteString(",Cue,,0,0,0,,")
	b.WriteString(text)
	b.WriteString("\n")
}

// colour converts 0xRRGGBB and an opacity into ASS override tags.
func colour(rgb uint32, alpha float64) string {
	r, g, bl := (rgb>>16)&0xFF, (rgb>>8)&0xFF, rgb&0xFF
	out := fmt.Sprintf("\\c&H%02X%02X%02X&", bl, g, r)
	if alpha > 0 && alpha < 1 {
		out += fmt.Sprintf("\\alpha&H%02X&", int((1-alpha)*255))
	}
	return out
}

func textWidth(s string, size float64) float64 {
	var w float64
	for _, r := range s {
		if r < 0x80 {
			w += 0.6 * size
		} else {
			w += size
		}
	}
	return w
}

func assHeader(w, h int) string {
	return strings.TrimSpace(fmt.Sprintf(`
[Script Info]
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
ScaledBorderAndShadow: yes
WrapStyle: 2

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Cue, Noto Sans CJK SC, 45, &H00FFFFFF, &H00FFFFFF, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,2,0,7, 0,0,0,1
`, w, h))
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
