package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/forPelevin/cuesync/internal/ports"
	"github.com/forPelevin/cuesync/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/cuesync/internal/ports/adapters/jsonsurface"
	"github.com/forPelevin/cuesync/internal/ports/adapters/localfs"
	"github.com/forPelevin/cuesync/internal/ports/adapters/ollama"
	"github.com/forPelevin/cuesync/internal/ports/adapters/openrouter"
	"github.com/forPelevin/cuesync/internal/ports/adapters/segapi"
	"github.com/forPelevin/cuesync/internal/ports/adapters/segcache"
	"github.com/forPelevin/cuesync/internal/ports/adapters/wallclock"
)

// Source says where the cues of one content id come from: a directory saved
// by Fetch, or the segment API behind an optional sqlite cache.
type Source struct {
	ID         string
	DurationMs int64

	// Dir, when set, reads payloads from disk instead of the network.
	Dir string

	APIBaseURL    string
	LegacyBaseURL string
	AllowedHosts  []string
	Parallelism   int

	// CacheDB is a sqlite file; empty keeps the cache in memory only.
	CacheDB  string
	CacheTTL time.Duration
}

func (s Source) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("content id is empty")
	}
	if s.DurationMs < 0 {
		return fmt.Errorf("duration must be >= 0")
	}
	if s.Dir != "" {
		fi, err := os.Stat(s.Dir)
		if err != nil {
			return fmt.Errorf("stat source dir: %w", err)
		}
		if !fi.IsDir() {
			return fmt.Errorf("source %s is not a directory", s.Dir)
		}
		return nil
	}
	if s.CacheTTL < 0 {
		return fmt.Errorf("cache ttl must be >= 0")
	}
	return segapi.ValidateBaseURLs(s.APIBaseURL, s.LegacyBaseURL, s.AllowedHosts)
}

// open builds the fetcher chain. The returned close func is never nil.
func (s Source) open(ctx context.Context, logf func(string, ...any)) (ports.SegmentFetcher, func() error, error) {
	noop := func() error { return nil }
	if s.Dir != "" {
		return localfs.New(s.Dir), noop, nil
	}

	var f ports.SegmentFetcher = segapi.New(segapi.Options{
		BaseURL:       s.APIBaseURL,
		LegacyBaseURL: s.LegacyBaseURL,
		Parallelism:   s.Parallelism,
		Logf:          logf,
	})
	closeFn := noop
	if s.CacheDB != "" {
		if err := os.MkdirAll(filepath.Dir(s.CacheDB), 0o755); err != nil {
			return nil, noop, err
		}
		store, err := segcache.OpenStore(s.CacheDB, s.CacheTTL)
		if err != nil {
			return nil, noop, fmt.Errorf("open cache: %w", err)
		}
		if n, err := store.Prune(ctx); err != nil {
			logf("cache prune: %v", err)
		} else if n > 0 {
			logf("cache: pruned %d stale payloads", n)
		}
		f = store.Wrap(f)
		closeFn = store.Close
	}
	return segcache.NewMemory(f, segcache.DefaultMaxEntries, segcache.DefaultMaxBytes), closeFn, nil
}

func nopLogf(string, ...any) {}

func orNop(logf func(string, ...any)) func(string, ...any) {
	if logf == nil {
		return nopLogf
	}
	return logf
}

func buildRunOutDir(outRoot, name string, now time.Time) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = normalizePathSegment(base)
	if base == "" {
		base = "cues"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", name, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", base, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.FrameSource = (*ffmpeg.FrameSource)(nil)
var _ ports.SegmentFetcher = (*segapi.Client)(nil)
var _ ports.SegmentFetcher = (*localfs.Dir)(nil)
var _ ports.SegmentFetcher = (*segcache.Memory)(nil)
var _ ports.FaceDetector = (*ollama.Adapter)(nil)
var _ ports.DetectorModule = (*ollama.Adapter)(nil)
var _ ports.FaceDetector = (*openrouter.Adapter)(nil)
var _ ports.DetectorModule = openrouter.Module{}
var _ ports.Clock = (*wallclock.Playback)(nil)
var _ ports.CueSurface = (*jsonsurface.Surface)(nil)
var _ ports.OcclusionSurface = (*jsonsurface.Surface)(nil)
