package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forPelevin/cuesync/internal/domain/filter"
	"github.com/forPelevin/cuesync/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/cuesync/internal/types"
	"github.com/forPelevin/cuesync/internal/usecase"
)

type ExportConfig struct {
	Source   Source
	Settings types.Settings

	InputMP4 string
	OutDir   string

	ClipsN        int
	ClipSpan      time.Duration
	BurnSubtitles bool
	// Burn renders the whole input with every cue burned in.
	Burn      bool
	FontScale float64
	Band      *types.Band

	FFmpegPath  string
	FFprobePath string

	Logf func(format string, args ...any)
}

func (c ExportConfig) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if c.InputMP4 != "" {
		if _, err := os.Stat(c.InputMP4); err != nil {
			return fmt.Errorf("stat input: %w", err)
		}
	}
	if c.ClipsN < 0 {
		return fmt.Errorf("clips must be >= 0")
	}
	if c.ClipsN > 0 && c.ClipSpan <= 0 {
		return fmt.Errorf("clip span must be > 0")
	}
	if (c.Burn || c.ClipsN > 0) && c.InputMP4 == "" {
		return errors.New("rendering needs an input video")
	}
	if c.Source.DurationMs <= 0 && c.InputMP4 == "" {
		return errors.New("duration is required without an input video")
	}
	if c.FontScale < 0 {
		return fmt.Errorf("font scale must be >= 0")
	}
	if c.Band != nil && (c.Band.Top < 0 || c.Band.Bottom > 1 || c.Band.Height() <= 0) {
		return fmt.Errorf("band must satisfy 0 <= top < bottom <= 1")
	}
	return nil
}

// Export writes the subtitles, optional clips and a manifest into a fresh
// run directory under OutDir and returns that directory.
func Export(ctx context.Context, cfg ExportConfig) (string, error) {
	logf := orNop(cfg.Logf)

	f, closeFn, err := cfg.Source.open(ctx, logf)
	if err != nil {
		return "", err
	}
	defer func() { _ = closeFn() }()

	deps := usecase.Deps{Fetcher: f, Logf: logf}
	if cfg.InputMP4 != "" {
		deps.Video = ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	}
	uc := usecase.New(deps)

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "out"
	}
	name := cfg.Source.ID
	if cfg.InputMP4 != "" {
		name = cfg.InputMP4
	}
	runOutDir := buildRunOutDir(outDir, name, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return "", err
	}
	logf("output run dir: %s", runOutDir)

	in := usecase.Input{
		ID:            cfg.Source.ID,
		DurationMs:    cfg.Source.DurationMs,
		InputMP4:      cfg.InputMP4,
		Policy:        filter.NewPolicy(cfg.Settings),
		Band:          cfg.Band,
		FontScale:     cfg.FontScale,
		ClipsN:        cfg.ClipsN,
		ClipSpan:      cfg.ClipSpan,
		BurnSubtitles: cfg.BurnSubtitles,
		OutDir:        runOutDir,
	}
	if cfg.Burn {
		in.BurnOut = filepath.Join(runOutDir, "burned.mp4")
	}
	res, err := uc.Run(ctx, in)
	if err != nil {
		return "", err
	}
	logf("subtitles: %s (%d cues)", res.ASSPath, res.Manifest.Cues)

	b, err := json.MarshalIndent(res.Manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(runOutDir, "manifest.json")
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return "", err
	}
	logf("manifest written (%d clips): %s", len(res.Manifest.Clips), manifestPath)
	return runOutDir, nil
}
