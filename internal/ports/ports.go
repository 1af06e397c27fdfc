package ports

import (
	"context"
	"image"
	"time"

	"github.com/forPelevin/cuesync/internal/types"
)

// Clock is the playback source the cue timeline follows.
type Clock interface {
	PositionMs() int64
	DurationMs() int64
	IsPlaying() bool
	Speed() float64
}

// CueSurface renders cues. Every call is a full replace; a surface must
// tolerate calls from the controller and the occlusion engine interleaving.
type CueSurface interface {
	SetCues(cues []types.Cue, originMs int64)
	SetAdvancedCues(cues []types.AdvancedCue)
	Start(atMs int64)
	Pause()
	Clear()
	Invalidate()
}

type OcclusionSurface interface {
	SetOcclusion(frame types.OcclusionFrame)
}

// SegmentFetcher retrieves raw cue payloads for a content id.
type SegmentFetcher interface {
	FetchSegments(ctx context.Context, id string, count int) ([][]byte, error)
	FetchLegacy(ctx context.Context, id string) ([]byte, error)
	FetchView(ctx context.Context, id string) ([]byte, error)
}

// FrameSource captures downscaled video frames for face detection.
type FrameSource interface {
	CaptureFrame(ctx context.Context, atMs int64, maxW, maxH int) (image.Image, error)
	VideoSize(ctx context.Context) (w, h int, err error)
}

type FaceDetector interface {
	Detect(ctx context.Context, frame image.Image) ([]types.FaceDetection, error)
}

// DetectorModule reports and installs whatever the face detector needs.
type DetectorModule interface {
	State(ctx context.Context) (types.ModuleState, error)
	Install(ctx context.Context, progress func(percent int)) error
}

type VideoTool interface {
	RenderClip(ctx context.Context, inMP4 string, start, end time.Duration, outMP4 string, burnASS string) error
	ProbeDuration(ctx context.Context, inMP4 string) (time.Duration, error)
	ProbeVideoSize(ctx context.Context, inMP4 string) (w, h int, err error)
}
