package faces

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/forPelevin/cuesync/internal/types"
)

var ErrNoJSON = errors.New("faces: no JSON object in detector output")

// Prompt asks a vision model for the face list ParseDetections understands.
const Prompt = `Detect every human face in this image. Reply with JSON only, no prose:
{"faces":[{"box":[left,top,right,bottom],"contour":[[x,y],...],"left_eye":[x,y],"right_eye":[x,y],"nose":[x,y]}]}
Coordinates are integer pixels of this image. "contour" traces the face outline with at least 24 points, clockwise from the chin.
Omit a landmark you cannot see. Reply {"faces":[]} when there is no face.`

type wirePoint []float64

type wireFace struct {
	Box      []float64   `json:"box"`
	Contour  []wirePoint `json:"contour"`
	LeftEye  wirePoint   `json:"left_eye"`
	RightEye wirePoint   `json:"right_eye"`
	Nose     wirePoint   `json:"nose"`
}

type wireReply struct {
	Faces []wireFace `json:"faces"`
}

// ParseDetections extracts a face list from a vision model reply. Markdown
// fences and surrounding prose are tolerated; malformed entries are skipped.
func ParseDetections(raw string) ([]types.FaceDetection, error) {
	body := extractJSON(raw)
	if body == "" {
		return nil, ErrNoJSON
	}
	var reply wireReply
	if strings.HasPrefix(body, "[") {
		if err := json.Unmarshal([]byte(body), &reply.Faces); err != nil {
			return nil, fmt.Errorf("decode faces: %w", err)
		}
	} else if err := json.Unmarshal([]byte(body), &reply); err != nil {
		return nil, fmt.Errorf("decode faces: %w", err)
	}

	out := make([]types.FaceDetection, 0, len(reply.Faces))
	for _, f := range reply.Faces {
		if len(f.Box) != 4 {
			continue
		}
		d := types.FaceDetection{Box: types.Rect{
			Left:   min(f.Box[0], f.Box[2]),
			Top:    min(f.Box[1], f.Box[3]),
			Right:  max(f.Box[0], f.Box[2]),
			Bottom: max(f.Box[1], f.Box[3]),
		}}
		for _, p := range f.Contour {
			if pt, ok := p.point(); ok {
				d.Contour = append(d.Contour, pt)
			}
		}
		d.LeftEye = f.LeftEye.ptr()
		d.RightEye = f.RightEye.ptr()
		d.NoseBase = f.Nose.ptr()
		out = append(out, d)
	}
	return out, nil
}

func (p wirePoint) point() (types.Point, bool) {
	if len(p) != 2 {
		return types.Point{}, false
	}
	return types.Point{X: p[0], Y: p[1]}, true
}

func (p wirePoint) ptr() *types.Point {
	pt, ok := p.point()
	if !ok {
		return nil
	}
	return &pt
}

func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = strings.TrimSpace(s)

	obj := strings.Index(s, "{")
	arr := strings.Index(s, "[")
	switch {
	case obj < 0 && arr < 0:
		return ""
	case obj >= 0 && (arr < 0 || obj < arr):
		end := strings.LastIndex(s, "}")
		if end < obj {
			return ""
		}
		return s[obj : end+1]
	default:
		end := strings.LastIndex(s, "]")
		if end < arr {
			return ""
		}
		return s[arr : end+1]
	}
}
