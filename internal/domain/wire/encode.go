package wire

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/forPelevin/cuesync/internal/types"
)

// EncodeSegment writes records in the segment format understood by
// DecodeSegment. Default-valued fields are still written so the output
// round-trips exactly.
func EncodeSegment(recs []types.RawCueRecord) []byte {
	var out []byte
	for _, r := range recs {
		out = protowire.AppendTag(out, fieldElems, protowire.BytesType)
		out = protowire.AppendBytes(out, encodeElem(r))
	}
	return out
}

func encodeElem(r types.RawCueRecord) []byte {
	var b []byte
	b = appendVarint(b, elemID, uint64(r.ID))
	b = appendVarint(b, elemProgress, uint64(int64(r.TimeOffsetMs)))
	b = appendVarint(b, elemMode, uint64(int64(r.Mode)))
	b = appendVarint(b, elemFontSize, uint64(int64(r.FontSize)))
	b = appendVarint(b, elemColor, uint64(r.ColorRGB))
	if r.MidHash != "" {
		b = protowire.AppendTag(b, elemMidHash, protowire.BytesType)
		b = protowire.AppendString(b, r.MidHash)
	}
	b = protowire.AppendTag(b, elemContent, protowire.BytesType)
	b = protowire.AppendString(b, r.Content)
	b = appendVarint(b, elemWeight, uint64(int64(r.Weight)))
	b = appendVarint(b, elemPool, uint64(int64(r.Pool)))
	return b
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}
