package wire

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/forPelevin/cuesync/internal/types"
)

type legacyCue struct {
	P    string `xml:"p,attr"`
	Text string `xml:",chardata"`
}

// DecodeLegacy decodes the markup cue format: one <d p="t,mode,size,color,...">
// element per cue, t in seconds. Unknown elements are ignored. A document cut
// short keeps every cue decoded before the break.
func DecodeLegacy(b []byte) ([]types.RawCueRecord, error) {
	dec := xml.NewDecoder(bytes.NewReader(b))
	dec.Strict = false
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }

	var (
		recs []types.RawCueRecord
		errs []error
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("legacy markup: %w: %v", ErrMalformed, err))
			break
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "d" {
			continue
		}
		var c legacyCue
		if err := dec.DecodeElement(&c, &start); err != nil {
			errs = append(errs, fmt.Errorf("legacy cue: %w: %v", ErrMalformed, err))
			break
		}
		rec, ok := legacyRecord(c)
		if ok {
			recs = append(recs, rec)
		}
	}
	sortByOffset(recs)
	return recs, errors.Join(errs...)
}

func legacyRecord(c legacyCue) (types.RawCueRecord, bool) {
	if c.Text == "" {
		return types.RawCueRecord{}, false
	}
	parts := strings.Split(c.P, ",")
	if len(parts) < 4 {
		return types.RawCueRecord{}, false
	}
	rec := types.RawCueRecord{
		Mode:     types.ModeScroll,
		FontSize: types.DefaultFontSize,
		ColorRGB: types.DefaultColor,
		Content:  c.Text,
	}
	if sec, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err == nil && !math.IsNaN(sec) && !math.IsInf(sec, 0) {
		rec.TimeOffsetMs = int32(max(min(sec*1000, math.MaxInt32), math.MinInt32))
	}
	if mode, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 32); err == nil {
		rec.Mode = int32(mode)
	}
	if size, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64); err == nil && size > 0 && size < math.MaxInt32 {
		rec.FontSize = int32(size)
	}
	if color, err := strconv.ParseInt(strings.TrimSpace(parts[3]), 10, 64); err == nil {
		rec.ColorRGB = uint32(color) & 0xFFFFFF
	}
	if len(parts) > 5 {
		if pool, err := strconv.ParseInt(strings.TrimSpace(parts[5]), 10, 32); err == nil {
			rec.Pool = int32(pool)
		}
	}
	if len(parts) > 6 {
		rec.MidHash = strings.TrimSpace(parts[6])
	}
	if len(parts) > 7 {
		if id, err := strconv.ParseInt(strings.TrimSpace(parts[7]), 10, 64); err == nil {
			rec.ID = id
		}
	}
	if len(parts) > 8 {
		if w, err := strconv.ParseInt(strings.TrimSpace(parts[8]), 10, 32); err == nil {
			rec.Weight = int32(w)
		}
	}
	return rec, true
}
