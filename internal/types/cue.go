package types

import (
	"fmt"
	"time"
)

// Raw mode values carried by the wire format.
const (
	ModeScroll        int32 = 1
	ModeScroll2       int32 = 2
	ModeScroll3       int32 = 3
	ModeBottom        int32 = 4
	ModeTop           int32 = 5
	ModeScrollReverse int32 = 6
	ModeAdvanced      int32 = 7
)

// Pool values.
const (
	PoolNormal   int32 = 0
	PoolSubtitle int32 = 1
	PoolSpecial  int32 = 2
)

const (
	DefaultFontSize int32  = 25
	DefaultColor    uint32 = 0xFFFFFF
)

// RawCueRecord is one decoded element of a cue segment. It is never mutated
// after decoding.
type RawCueRecord struct {
	ID           int64  `json:"id"`
	TimeOffsetMs int32  `json:"progress_ms"`
	Mode         int32  `json:"mode"`
	FontSize     int32  `json:"fontsize"`
	ColorRGB     uint32 `json:"color"`
	MidHash      string `json:"mid_hash,omitempty"`
	Content      string `json:"content"`
	Weight       int32  `json:"weight"`
	Pool         int32  `json:"pool"`
}

type Lane int

const (
	LaneScroll Lane = iota
	LaneTop
	LaneBottom
)

func (l Lane) String() string {
	switch l {
	case LaneTop:
		return "top"
	case LaneBottom:
		return "bottom"
	default:
		return "scroll"
	}
}

func (l Lane) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *Lane) UnmarshalText(b []byte) error {
	switch string(b) {
	case "scroll":
		*l = LaneScroll
	case "top":
		*l = LaneTop
	case "bottom":
		*l = LaneBottom
	default:
		return fmt.Errorf("unknown lane %q", string(b))
	}
	return nil
}

// Cue is the render-ready projection of a RawCueRecord. Lists of cues handed to
// a surface are sorted ascending by ShowAtMs.
type Cue struct {
	ID         int64   `json:"id"`
	Text       string  `json:"text"`
	ShowAtMs   int64   `json:"show_at_ms"`
	DurationMs int64   `json:"duration_ms"`
	Lane       Lane    `json:"lane"`
	ColorRGB   uint32  `json:"color"`
	FontSizePx float64 `json:"font_size_px"`
	Alpha      float64 `json:"alpha"`
}

// AdvancedCue is a freely positioned cue (command cues, special cues).
// X and Y are normalized to the video content rect.
type AdvancedCue struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	StartMs    int64   `json:"start_ms"`
	DurationMs int64   `json:"duration_ms"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	FontSize   float64 `json:"font_size"`
	ColorRGB   uint32  `json:"color"`
	Alpha      float64 `json:"alpha"`
}

// CommandCue is an interactive command carried by the view reply. Content
// and Extra may be prose or a JSON-like payload.
type CommandCue struct {
	ID         int64  `json:"id"`
	OID        int64  `json:"oid"`
	MidHash    string `json:"mid,omitempty"`
	Command    string `json:"command"`
	Content    string `json:"content"`
	ProgressMs int32  `json:"progress_ms"`
	CTime      string `json:"ctime,omitempty"`
	MTime      string `json:"mtime,omitempty"`
	Extra      string `json:"extra,omitempty"`
	IDStr      string `json:"id_str,omitempty"`
}

type SegmentConfig struct {
	PageSize int64 `json:"page_size"`
	Total    int64 `json:"total"`
}

type FlagConfig struct {
	RecFlag   int32  `json:"rec_flag"`
	RecText   string `json:"rec_text"`
	RecSwitch int32  `json:"rec_switch"`
}

// ViewReply is the per-video cue metadata message.
type ViewReply struct {
	State         int32          `json:"state"`
	TextSide      string         `json:"text_side,omitempty"`
	SegmentConfig *SegmentConfig `json:"segment_config,omitempty"`
	Flag          *FlagConfig    `json:"flag,omitempty"`
	SpecialURLs   []string       `json:"special_urls,omitempty"`
	CheckBox      bool           `json:"check_box"`
	Count         int64          `json:"count"`
	Commands      []CommandCue   `json:"commands,omitempty"`
}

// TypeFilter gates cues by lane and colour. The zero value hides everything;
// use DefaultTypeFilter for the permissive default.
type TypeFilter struct {
	AllowScroll   bool `json:"allow_scroll"`
	AllowTop      bool `json:"allow_top"`
	AllowBottom   bool `json:"allow_bottom"`
	AllowColorful bool `json:"allow_colorful"`
	AllowSpecial  bool `json:"allow_special"`
}

func DefaultTypeFilter() TypeFilter {
	return TypeFilter{
		AllowScroll:   true,
		AllowTop:      true,
		AllowBottom:   true,
		AllowColorful: true,
		AllowSpecial:  true,
	}
}

// PlaybackState mirrors the player's coarse state machine.
type PlaybackState int

const (
	PlaybackIdle PlaybackState = iota
	PlaybackBuffering
	PlaybackReady
	PlaybackEnded
)

// Settings is the caller-supplied view configuration. Nothing here is
// persisted.
type Settings struct {
	Types      TypeFilter    `json:"types"`
	BlockRules string        `json:"block_rules"`
	Occlusion  OcclusionMode `json:"occlusion"`
	Resize     ResizeMode    `json:"resize"`
}

// Window is a stretch of the cue timeline ranked by how busy it is.
type Window struct {
	Start      time.Duration `json:"start"`
	End        time.Duration `json:"end"`
	Count      int           `json:"count"`
	Text       string        `json:"text"`
	Excitement float64       `json:"excitement"`
	Score      float64       `json:"score"`
}
