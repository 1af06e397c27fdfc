package types

// FaceDetection is one raw detector hit in frame pixel coordinates.
type FaceDetection struct {
	Box      Rect    `json:"box"`
	Contour  []Point `json:"contour,omitempty"`
	LeftEye  *Point  `json:"left_eye,omitempty"`
	RightEye *Point  `json:"right_eye,omitempty"`
	NoseBase *Point  `json:"nose_base,omitempty"`
}

// DetectionResult is the outcome of one detection pass, normalized to the
// video content rect.
type DetectionResult struct {
	Regions   []Region     `json:"regions"`
	MaskRects []Rect       `json:"mask_rects"`
	Masks     []VisualMask `json:"masks"`
}

func (r DetectionResult) HasFaces() bool { return len(r.Masks) > 0 }

// ModuleState reports availability of the face detector module.
type ModuleState int

const (
	ModuleChecking ModuleState = iota
	ModuleUnavailable
	ModuleNotInstalled
	ModuleDownloading
	ModuleReady
	ModuleFailed
)

func (s ModuleState) String() string {
	switch s {
	case ModuleChecking:
		return "checking"
	case ModuleUnavailable:
		return "unavailable"
	case ModuleNotInstalled:
		return "not-installed"
	case ModuleDownloading:
		return "downloading"
	case ModuleReady:
		return "ready"
	default:
		return "failed"
	}
}

type ModuleUIState struct {
	StatusText    string `json:"status_text"`
	ActionText    string `json:"action_text"`
	ShowAction    bool   `json:"show_action"`
	ActionEnabled bool   `json:"action_enabled"`
	Ready         bool   `json:"ready"`
}
