package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/forPelevin/cuesync/internal/domain/filter"
	"github.com/forPelevin/cuesync/internal/domain/wire"
	"github.com/forPelevin/cuesync/internal/types"
)

const (
	FormatAuto    = "auto"
	FormatSegment = "segment"
	FormatLegacy  = "legacy"
	FormatView    = "view"
)

type DecodeConfig struct {
	Path   string
	Format string
	// Raw prints decoded records instead of filtered cues.
	Raw      bool
	Settings types.Settings
	Out      io.Writer
	Logf     func(format string, args ...any)
}

func (c DecodeConfig) Validate() error {
	if c.Path == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(c.Path); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	switch c.Format {
	case "", FormatAuto, FormatSegment, FormatLegacy, FormatView:
		return nil
	}
	return fmt.Errorf("unknown format %q", c.Format)
}

func detectFormat(path string, b []byte) string {
	if strings.EqualFold(filepath.Ext(path), ".xml") {
		return FormatLegacy
	}
	if strings.EqualFold(filepath.Base(path), "view.bin") {
		return FormatView
	}
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(b, []byte("\xef\xbb\xbf")), " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return FormatLegacy
	}
	return FormatSegment
}

// Decode prints one JSON line per record, cue or view reply and returns how
// many lines it wrote. Decoder diagnostics are logged, not returned.
func Decode(_ context.Context, cfg DecodeConfig) (int, error) {
	logf := orNop(cfg.Logf)
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	b, err := os.ReadFile(cfg.Path)
	if err != nil {
		return 0, err
	}
	format := cfg.Format
	if format == "" || format == FormatAuto {
		format = detectFormat(cfg.Path, b)
	}
	enc := json.NewEncoder(out)

	if format == FormatView {
		view, derr := wire.DecodeViewReply(b)
		if derr != nil {
			logf("decode view: %v", derr)
		}
		return 1, enc.Encode(view)
	}

	var recs []types.RawCueRecord
	var derr error
	if format == FormatLegacy {
		recs, derr = wire.DecodeLegacy(b)
	} else {
		recs, derr = wire.DecodeSegment(b)
	}
	if derr != nil {
		logf("decode %s: %v", format, derr)
	}

	n := 0
	if cfg.Raw {
		for _, r := range recs {
			if err := enc.Encode(r); err != nil {
				return n, err
			}
			n++
		}
		return n, nil
	}
	for _, c := range filter.NewPolicy(cfg.Settings).Apply(recs) {
		if err := enc.Encode(c); err != nil {
			return n, err
		}
		n++
	}
	logf("decoded %d records, %d cues after filtering", len(recs), n)
	return n, nil
}
