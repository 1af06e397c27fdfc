package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/cuesync/internal/pipeline"
	"github.com/forPelevin/cuesync/internal/ports/adapters/endpoint"
	"github.com/forPelevin/cuesync/internal/types"
)

func logfFor(cmd *cobra.Command) func(string, ...any) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return nil
	}
	errOut := cmd.ErrOrStderr()
	return func(format string, args ...any) {
		fmt.Fprintf(errOut, "[cuesync] "+format+"\n", args...)
	}
}

func signalContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	return tctx, func() { cancel(); stop() }
}

func sourceFromFlags(cmd *cobra.Command, id string) (pipeline.Source, error) {
	dur, _ := cmd.Flags().GetDuration("duration")
	dir, _ := cmd.Flags().GetString("dir")
	cacheDB, _ := cmd.Flags().GetString("cache-db")
	ttl, _ := cmd.Flags().GetDuration("cache-ttl")
	parallel, _ := cmd.Flags().GetInt("parallel")

	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return pipeline.Source{}, err
		}
		dir = abs
	}
	return pipeline.Source{
		ID:            id,
		DurationMs:    dur.Milliseconds(),
		Dir:           dir,
		APIBaseURL:    os.Getenv("CUESYNC_API_BASE_URL"),
		LegacyBaseURL: os.Getenv("CUESYNC_LEGACY_BASE_URL"),
		AllowedHosts:  endpoint.SplitHosts(os.Getenv("CUESYNC_ALLOWED_HOSTS")),
		Parallelism:   parallel,
		CacheDB:       cacheDB,
		CacheTTL:      ttl,
	}, nil
}

func settingsFromFlags(cmd *cobra.Command) (types.Settings, error) {
	s := types.Settings{Types: types.DefaultTypeFilter()}
	noScroll, _ := cmd.Flags().GetBool("no-scroll")
	noTop, _ := cmd.Flags().GetBool("no-top")
	noBottom, _ := cmd.Flags().GetBool("no-bottom")
	noColor, _ := cmd.Flags().GetBool("no-color")
	noSpecial, _ := cmd.Flags().GetBool("no-special")
	s.Types.AllowScroll = !noScroll
	s.Types.AllowTop = !noTop
	s.Types.AllowBottom = !noBottom
	s.Types.AllowColorful = !noColor
	s.Types.AllowSpecial = !noSpecial

	rules, _ := cmd.Flags().GetStringSlice("block")
	if path, _ := cmd.Flags().GetString("block-file"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return s, fmt.Errorf("read block file: %w", err)
		}
		rules = append(rules, string(b))
	}
	s.BlockRules = strings.Join(rules, "\n")

	occ, _ := cmd.Flags().GetString("occlusion")
	mode, err := types.ParseOcclusionMode(occ)
	if err != nil {
		return s, err
	}
	s.Occlusion = mode
	rz, _ := cmd.Flags().GetString("resize")
	resize, err := types.ParseResizeMode(rz)
	if err != nil {
		return s, err
	}
	s.Resize = resize
	return s, nil
}

func detectorFromFlags(cmd *cobra.Command) pipeline.DetectorConfig {
	kind, _ := cmd.Flags().GetString("detector")
	host, _ := cmd.Flags().GetString("ollama-host")
	model, _ := cmd.Flags().GetString("ollama-model")
	return pipeline.DetectorConfig{
		Kind:                   kind,
		OllamaHost:             host,
		OllamaModel:            model,
		OpenRouterAPIKey:       os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:        os.Getenv("OPENROUTER_MODEL"),
		OpenRouterBaseURL:      os.Getenv("OPENROUTER_BASE_URL"),
		OpenRouterAllowedHosts: endpoint.SplitHosts(os.Getenv("OPENROUTER_ALLOWED_HOSTS")),
	}
}

func runDecode(cmd *cobra.Command, input string) error {
	settings, err := settingsFromFlags(cmd)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	format, _ := cmd.Flags().GetString("format")
	raw, _ := cmd.Flags().GetBool("raw")
	cfg := pipeline.DecodeConfig{
		Path:     input,
		Format:   format,
		Raw:      raw,
		Settings: settings,
		Out:      cmd.OutOrStdout(),
		Logf:     logfFor(cmd),
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	_, err = pipeline.Decode(cmd.Context(), cfg)
	return err
}

func runFetch(cmd *cobra.Command, id string) error {
	src, err := sourceFromFlags(cmd, id)
	if err != nil {
		return err
	}
	save, _ := cmd.Flags().GetString("save")
	cfg := pipeline.FetchConfig{Source: src, SaveDir: save, Logf: logfFor(cmd)}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, cancel := signalContext(10 * time.Minute)
	defer cancel()
	res, err := pipeline.Fetch(ctx, cfg)
	if err != nil {
		return err
	}
	return writeJSON(cmd, res)
}

func runExport(cmd *cobra.Command, id string) error {
	src, err := sourceFromFlags(cmd, id)
	if err != nil {
		return err
	}
	settings, err := settingsFromFlags(cmd)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	input, _ := cmd.Flags().GetString("input")
	if input != "" {
		if input, err = filepath.Abs(input); err != nil {
			return err
		}
	}
	outDir, _ := cmd.Flags().GetString("out")
	clips, _ := cmd.Flags().GetInt("clips")
	span, _ := cmd.Flags().GetDuration("clip-span")
	burnSubs, _ := cmd.Flags().GetBool("burn-subtitles")
	burn, _ := cmd.Flags().GetBool("burn")
	fontScale, _ := cmd.Flags().GetFloat64("font-scale")
	bandFlag, _ := cmd.Flags().GetString("band")
	ffmpegPath, _ := cmd.Flags().GetString("ffmpeg")
	ffprobePath, _ := cmd.Flags().GetString("ffprobe")

	band, err := parseBand(bandFlag)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	cfg := pipeline.ExportConfig{
		Source:        src,
		Settings:      settings,
		InputMP4:      input,
		OutDir:        outDir,
		ClipsN:        clips,
		ClipSpan:      span,
		BurnSubtitles: burnSubs,
		Burn:          burn,
		FontScale:     fontScale,
		Band:          band,
		FFmpegPath:    ffmpegPath,
		FFprobePath:   ffprobePath,
		Logf:          logfFor(cmd),
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, cancel := signalContext(3 * time.Hour)
	defer cancel()
	runDir, err := pipeline.Export(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), runDir)
	return nil
}

func runPlay(cmd *cobra.Command, id string) error {
	src, err := sourceFromFlags(cmd, id)
	if err != nil {
		return err
	}
	settings, err := settingsFromFlags(cmd)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	input, _ := cmd.Flags().GetString("input")
	start, _ := cmd.Flags().GetDuration("start")
	speed, _ := cmd.Flags().GetFloat64("speed")
	view, _ := cmd.Flags().GetString("view")
	full, _ := cmd.Flags().GetBool("full")
	limit, _ := cmd.Flags().GetDuration("for")
	ffmpegPath, _ := cmd.Flags().GetString("ffmpeg")
	ffprobePath, _ := cmd.Flags().GetString("ffprobe")

	w, h, err := parseSize(view)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg := pipeline.PlayConfig{
		Source:      src,
		Settings:    settings,
		Detector:    detectorFromFlags(cmd),
		InputMP4:    input,
		StartMs:     start.Milliseconds(),
		Speed:       speed,
		ViewW:       w,
		ViewH:       h,
		Full:        full,
		FFmpegPath:  ffmpegPath,
		FFprobePath: ffprobePath,
		Out:         cmd.OutOrStdout(),
		Logf:        logfFor(cmd),
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, cancel := signalContext(limit)
	defer cancel()
	snap, err := pipeline.Play(ctx, cfg)
	if err != nil {
		return err
	}
	b, _ := json.Marshal(snap)
	fmt.Fprintln(cmd.ErrOrStderr(), string(b))
	return nil
}

func runDetectorStatus(cmd *cobra.Command) error {
	d := detectorFromFlags(cmd)
	if err := d.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	st, err := pipeline.CheckDetector(cmd.Context(), d)
	if err != nil {
		return err
	}
	return writeJSON(cmd, st)
}

func runDetectorInstall(cmd *cobra.Command) error {
	d := detectorFromFlags(cmd)
	if err := d.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	ctx, cancel := signalContext(0)
	defer cancel()

	errOut := cmd.ErrOrStderr()
	st, err := pipeline.InstallDetector(ctx, d, func(s pipeline.DetectorStatus) {
		fmt.Fprintf(errOut, "\r%s", s.UI.StatusText)
	})
	fmt.Fprintln(errOut)
	if werr := writeJSON(cmd, st); werr != nil {
		return werr
	}
	return err
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q (want WxH)", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q", s)
	}
	return w, h, nil
}

func parseBand(s string) (*types.Band, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	ts, bs, ok := strings.Cut(s, ",")
	if !ok {
		return nil, fmt.Errorf("invalid band %q (want top,bottom)", s)
	}
	top, err := strconv.ParseFloat(strings.TrimSpace(ts), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid band %q: %w", s, err)
	}
	bottom, err := strconv.ParseFloat(strings.TrimSpace(bs), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid band %q: %w", s, err)
	}
	return &types.Band{Top: top, Bottom: bottom}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
