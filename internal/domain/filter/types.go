package filter

import "github.com/forPelevin/cuesync/internal/types"

// IsColorful reports whether the colour differs from pure white.
func IsColorful(rgb uint32) bool {
	return rgb&0xFFFFFF != 0xFFFFFF
}

// IsVisible gates a lane cue: lane first, then colour.
func IsVisible(mode int32, rgb uint32, s types.TypeFilter) bool {
	switch mode {
	case types.ModeBottom:
		if !s.AllowBottom {
			return false
		}
	case types.ModeTop:
		if !s.AllowTop {
			return false
		}
	default:
		if !s.AllowScroll {
			return false
		}
	}
	return s.AllowColorful || !IsColorful(rgb)
}

// IsAdvancedVisible gates freely positioned cues.
func IsAdvancedVisible(rgb uint32, s types.TypeFilter) bool {
	if !s.AllowSpecial {
		return false
	}
	return s.AllowColorful || !IsColorful(rgb)
}
