package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "cuesync",
		Short:        "Decode, filter and replay timed video cues",
		SilenceUsage: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().BoolP("verbose", "v", false, "Log progress to stderr")

	root.AddCommand(
		newDecodeCmd(),
		newFetchCmd(),
		newExportCmd(),
		newPlayCmd(),
		newDetectorCmd(),
	)
	return root
}

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <file>",
		Short: "Decode a saved segment, legacy XML or view reply to JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd, args[0])
		},
	}
	cmd.Flags().String("format", "auto", "Input format: auto, segment, legacy or view")
	cmd.Flags().Bool("raw", false, "Print decoded records without filtering")
	addFilterFlags(cmd)
	return cmd
}

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <id>",
		Short: "Download the raw cue payloads of a content id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, args[0])
		},
	}
	addSourceFlags(cmd)
	cmd.Flags().String("save", "cues", "Directory to save payloads into")
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write the filtered cues as ASS subtitles, optionally cutting busy clips",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0])
		},
	}
	addSourceFlags(cmd)
	addFilterFlags(cmd)
	cmd.Flags().String("input", "", "Local MP4 of the same video")
	cmd.Flags().String("out", "out", "Output directory")
	cmd.Flags().Int("clips", 0, "Number of high-energy clips to cut (needs --input)")
	cmd.Flags().Duration("clip-span", 20*time.Second, "Length of each clip")
	cmd.Flags().Bool("burn-subtitles", true, "Burn cues into cut clips")
	cmd.Flags().Bool("burn", false, "Render the whole input with cues burned in")
	cmd.Flags().Float64("font-scale", 0, "Cue font scale for the subtitles")
	cmd.Flags().String("band", "", "Vertical strip for scrolling cues as top,bottom ratios")

	// Hidden tool paths
	cmd.Flags().String("ffmpeg", "ffmpeg", "ffmpeg binary")
	cmd.Flags().String("ffprobe", "ffprobe", "ffprobe binary")
	_ = cmd.Flags().MarkHidden("ffmpeg")
	_ = cmd.Flags().MarkHidden("ffprobe")
	return cmd
}

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <id>",
		Short: "Replay the cue timeline against a simulated player, printing surface events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, args[0])
		},
	}
	addSourceFlags(cmd)
	addFilterFlags(cmd)
	addDetectorFlags(cmd)
	cmd.Flags().String("input", "", "Local MP4 used for face occlusion and duration")
	cmd.Flags().Duration("start", 0, "Start position")
	cmd.Flags().Float64("speed", 1, "Playback speed")
	cmd.Flags().String("view", "1280x720", "Surface size WxH")
	cmd.Flags().Bool("full", false, "Print cue lists, not just their sizes")
	cmd.Flags().Duration("for", 0, "Stop after this long (0 = until the end)")

	cmd.Flags().String("ffmpeg", "ffmpeg", "ffmpeg binary")
	cmd.Flags().String("ffprobe", "ffprobe", "ffprobe binary")
	_ = cmd.Flags().MarkHidden("ffmpeg")
	_ = cmd.Flags().MarkHidden("ffprobe")
	return cmd
}

func newDetectorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detector",
		Short: "Inspect or install the face detector",
	}
	status := &cobra.Command{
		Use:   "status",
		Short: "Report whether the face detector is ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDetectorStatus(cmd)
		},
	}
	install := &cobra.Command{
		Use:   "install",
		Short: "Download the face detector model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDetectorInstall(cmd)
		},
	}
	addDetectorFlags(status)
	addDetectorFlags(install)
	cmd.AddCommand(status, install)
	return cmd
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("duration", 0, "Video duration, used to size the segment fetch")
	cmd.Flags().String("dir", "", "Read payloads saved by fetch instead of the network")
	cmd.Flags().String("cache-db", os.Getenv("CUESYNC_CACHE_DB"), "sqlite payload cache (empty = memory only)")
	cmd.Flags().Duration("cache-ttl", 24*time.Hour, "Max age of cached payloads (0 = forever)")

	cmd.Flags().Int("parallel", 3, "Concurrent segment requests")
	_ = cmd.Flags().MarkHidden("parallel")
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-scroll", false, "Hide scrolling cues")
	cmd.Flags().Bool("no-top", false, "Hide top cues")
	cmd.Flags().Bool("no-bottom", false, "Hide bottom cues")
	cmd.Flags().Bool("no-color", false, "Hide coloured cues")
	cmd.Flags().Bool("no-special", false, "Hide command and special cues")
	cmd.Flags().StringSlice("block", nil, "Block rule (keyword, regex:..., re:... or /.../); repeatable")
	cmd.Flags().String("block-file", "", "File with one block rule per line")
	cmd.Flags().String("occlusion", "off", "Keep cues clear of faces: off, mask or band")
	cmd.Flags().String("resize", "fit", "Video resize mode: fit, fill, fixed-width, fixed-height or zoom")
}

func addDetectorFlags(cmd *cobra.Command) {
	cmd.Flags().String("detector", getenvDefault("CUESYNC_DETECTOR", "none"), "Face detector: none, ollama or openrouter")
	cmd.Flags().String("ollama-host", getenvDefault("OLLAMA_HOST", ""), "Ollama server URL")
	cmd.Flags().String("ollama-model", getenvDefault("CUESYNC_OLLAMA_MODEL", ""), "Ollama vision model")
}
