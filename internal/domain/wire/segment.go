package wire

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/forPelevin/cuesync/internal/types"
)

var (
	ErrTruncated = errors.New("wire: truncated input")
	ErrMalformed = errors.New("wire: malformed input")
)

// Segment field numbers. These are an external compatibility contract.
const (
	fieldElems = 1

	elemID       = 1
	elemProgress = 2
	elemMode     = 3
	elemFontSize = 4
	elemColor    = 5
	elemMidHash  = 6
	elemContent  = 7
	elemCTime    = 8
	elemWeight   = 9
	elemAction   = 10
	elemPool     = 11
	elemIDStr    = 12
	elemAttr     = 13
)

// DecodeSegment decodes one binary cue segment. It never panics. Records are
// returned sorted ascending by TimeOffsetMs; the error, when non-nil, describes
// the parts of the input that were skipped and does not invalidate the
// records.
func DecodeSegment(b []byte) ([]types.RawCueRecord, error) {
	var (
		recs []types.RawCueRecord
		errs []error
	)
	for off := 0; off < len(b); {
		num, typ, n := protowire.ConsumeTag(b[off:])
		if n < 0 {
			errs = append(errs, parseError(fmt.Sprintf("segment tag at %d", off), n))
			break
		}
		off += n
		if num != fieldElems || typ != protowire.BytesType {
			m := protowire.ConsumeFieldValue(num, typ, b[off:])
			if m < 0 {
				errs = append(errs, parseError(fmt.Sprintf("segment field %d at %d", num, off), m))
				break
			}
			off += m
			continue
		}
		msg, m := protowire.ConsumeBytes(b[off:])
		if m < 0 {
			errs = append(errs, parseError(fmt.Sprintf("element at %d", off), m))
			break
		}
		off += m
		rec, err := decodeElem(msg)
		if err != nil {
			errs = append(errs, fmt.Errorf("element at %d: %w", off-len(msg), err))
			continue
		}
		if rec.Content == "" {
			continue
		}
		recs = append(recs, rec)
	}
	sortByOffset(recs)
	return recs, errors.Join(errs...)
}

// DecodeSegments decodes every segment and merges the result into a single
// ordered list.
func DecodeSegments(segs [][]byte) ([]types.RawCueRecord, error) {
	var (
		all  []types.RawCueRecord
		errs []error
	)
	for i, seg := range segs {
		recs, err := DecodeSegment(seg)
		if err != nil {
			errs = append(errs, fmt.Errorf("segment %d: %w", i+1, err))
		}
		all = append(all, recs...)
	}
	sortByOffset(all)
	return all, errors.Join(errs...)
}

func decodeElem(b []byte) (types.RawCueRecord, error) {
	rec := types.RawCueRecord{
		Mode:     types.ModeScroll,
		FontSize: types.DefaultFontSize,
		ColorRGB: types.DefaultColor,
	}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return types.RawCueRecord{}, parseError("tag", n)
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType && isVarintField(num):
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return types.RawCueRecord{}, parseError(fmt.Sprintf("field %d", num), m)
			}
			b = b[m:]
			setVarint(&rec, num, v)
		case typ == protowire.BytesType && (num == elemMidHash || num == elemContent):
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return types.RawCueRecord{}, parseError(fmt.Sprintf("field %d", num), m)
			}
			b = b[m:]
			if num == elemContent {
				rec.Content = string(v)
			} else {
				rec.MidHash = string(v)
			}
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return types.RawCueRecord{}, parseError(fmt.Sprintf("skip field %d", num), m)
			}
			b = b[m:]
		}
	}
	return rec, nil
}

func isVarintField(num protowire.Number) bool {
	switch num {
	case elemID, elemProgress, elemMode, elemFontSize, elemColor, elemWeight, elemPool:
		return true
	}
	return false
}

func setVarint(rec *types.RawCueRecord, num protowire.Number, v uint64) {
	switch num {
	case elemID:
		rec.ID = int64(v)
	case elemProgress:
		rec.TimeOffsetMs = int32(v)
	case elemMode:
		rec.Mode = int32(v)
	case elemFontSize:
		rec.FontSize = int32(v)
	case elemColor:
		rec.ColorRGB = uint32(v)
	case elemWeight:
		rec.Weight = int32(v)
	case elemPool:
		rec.Pool = int32(v)
	}
}

func sortByOffset(recs []types.RawCueRecord) {
	slices.SortStableFunc(recs, func(a, b types.RawCueRecord) int {
		return cmp.Compare(a.TimeOffsetMs, b.TimeOffsetMs)
	})
}

func parseError(what string, n int) error {
	err := protowire.ParseError(n)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: %w", what, ErrTruncated)
	}
	return fmt.Errorf("%s: %w: %v", what, ErrMalformed, err)
}
