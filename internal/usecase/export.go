package usecase

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/forPelevin/cuesync/internal/domain/filter"
	"github.com/forPelevin/cuesync/internal/domain/highlights"
	"github.com/forPelevin/cuesync/internal/domain/subtitles"
	"github.com/forPelevin/cuesync/internal/ports"
	"github.com/forPelevin/cuesync/internal/types"
)

type Deps struct {
	Fetcher ports.SegmentFetcher
	// Video is optional; without it nothing is probed or rendered.
	Video ports.VideoTool
	Logf  func(format string, args ...any)
}

// Usecase exports the cues of one content id as subtitle files, optionally
// cutting the busiest windows out of a local video.
type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Logf == nil {
		d.Logf = func(string, ...any) {}
	}
	return Usecase{d: d}
}

type Input struct {
	ID         string
	DurationMs int64
	InputMP4   string
	Policy     filter.Policy
	Band       *types.Band
	FontScale  float64

	// ClipsN > 0 selects that many high-energy windows of ClipSpan each.
	ClipsN   int
	ClipSpan time.Duration
	// BurnSubtitles burns the per-clip subtitles into rendered clips.
	BurnSubtitles bool
	// BurnOut, when set, renders the whole input with all cues burned in.
	BurnOut string
	OutDir  string
}

type Result struct {
	Manifest types.Manifest
	ASSPath  string
	Windows  []types.Window
}

func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	canRender := in.InputMP4 != "" && u.d.Video != nil
	if in.DurationMs <= 0 && canRender {
		d, err := u.d.Video.ProbeDuration(ctx, in.InputMP4)
		if err != nil {
			return Result{}, fmt.Errorf("probe duration: %w", err)
		}
		in.DurationMs = d.Milliseconds()
	}

	loaded, err := LoadCues(ctx, u.d.Fetcher, in.ID, in.DurationMs, u.d.Logf)
	if err != nil {
		return Result{}, err
	}
	cues := in.Policy.Apply(loaded.Records)
	advanced := in.Policy.ApplyAdvanced(loaded.Advanced)

	opt := subtitles.DefaultOptions()
	opt.Band = in.Band
	if in.FontScale > 0 {
		opt.FontScale = in.FontScale
	}
	if canRender {
		w, h, err := u.d.Video.ProbeVideoSize(ctx, in.InputMP4)
		if err != nil {
			u.d.Logf("probe video size: %v", err)
		} else if w > 0 && h > 0 {
			opt.PlayResX, opt.PlayResY = w, h
		}
	}

	assPath := filepath.Join(in.OutDir, safeName(in.ID)+".ass")
	if err := writeFile(assPath, []byte(subtitles.RenderASS(cues, advanced, opt))); err != nil {
		return Result{}, err
	}
	res := Result{
		ASSPath:  assPath,
		Manifest: types.Manifest{Input: in.InputMP4, ID: in.ID, Cues: len(cues)},
	}

	if in.BurnOut != "" {
		if !canRender {
			return Result{}, fmt.Errorf("burn: no input video")
		}
		end := time.Duration(in.DurationMs) * time.Millisecond
		if err := u.d.Video.RenderClip(ctx, in.InputMP4, 0, end, in.BurnOut, assPath); err != nil {
			return Result{}, err
		}
	}

	if in.ClipsN <= 0 {
		return res, nil
	}
	windows := highlights.BuildWindows(cues, in.ClipSpan, in.ClipsN)
	slices.SortFunc(windows, func(a, b types.Window) int { return cmp.Compare(a.Start, b.Start) })
	res.Windows = windows

	for i, w := range windows {
		id := fmt.Sprintf("%03d", i+1)
		clip := types.ManifestClip{
			ID:         id,
			StartSec:   w.Start.Seconds(),
			EndSec:     w.End.Seconds(),
			Count:      w.Count,
			Excitement: w.Excitement,
			Text:       w.Text,
		}

		burnASS := ""
		if in.BurnSubtitles {
			clipOpt := opt
			clipOpt.Start, clipOpt.End = w.Start, w.End
			rel := filepath.Join("subtitles", id+".ass")
			burnASS = filepath.Join(in.OutDir, rel)
			if err := writeFile(burnASS, []byte(subtitles.RenderASS(cues, advanced, clipOpt))); err != nil {
				return Result{}, err
			}
			clip.Subtitles = filepath.ToSlash(rel)
		}

		if canRender {
			rel := filepath.Join("clips", id+".mp4")
			if err := u.d.Video.RenderClip(ctx, in.InputMP4, w.Start, w.End, filepath.Join(in.OutDir, rel), burnASS); err != nil {
				return Result{}, err
			}
			clip.File = filepath.ToSlash(rel)
		}
		res.Manifest.Clips = append(res.Manifest.Clips, clip)
	}
	return res, nil
}

func writeFile(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func safeName(id string) string {
	out := []rune(id)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			out[i] = '_'
		}
	}
	if len(out) == 0 {
		return "cues"
	}
	return string(out)
}
