package filter

import (
	"github.com/forPelevin/cuesync/internal/domain/wire"
	"github.com/forPelevin/cuesync/internal/types"
)

// Policy is applied when cues are handed to a surface, never baked into the
// decoded records.
type Policy struct {
	Types types.TypeFilter
	Rules []Rule
}

func DefaultPolicy() Policy {
	return Policy{Types: types.DefaultTypeFilter()}
}

func NewPolicy(s types.Settings) Policy {
	return Policy{Types: s.Types, Rules: CompileRules(ParseRules(s.BlockRules))}
}

// Apply filters and projects records, keeping their order.
func (p Policy) Apply(recs []types.RawCueRecord) []types.Cue {
	out := make([]types.Cue, 0, len(recs))
	for _, r := range recs {
		if !p.Allows(r) {
			continue
		}
		out = append(out, wire.ToCue(r))
	}
	return out
}

func (p Policy) Allows(r types.RawCueRecord) bool {
	if !IsVisible(r.Mode, r.ColorRGB, p.Types) {
		return false
	}
	return !ShouldBlockCompiled(r.Content, p.Rules)
}

func (p Policy) ApplyAdvanced(cues []types.AdvancedCue) []types.AdvancedCue {
	var out []types.AdvancedCue
	for _, c := range cues {
		if !IsAdvancedVisible(c.ColorRGB, p.Types) || ShouldBlockCompiled(c.Text, p.Rules) {
			continue
		}
		out = append(out, c)
	}
	return out
}
