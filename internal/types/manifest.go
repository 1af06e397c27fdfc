package types

// Manifest describes the clips written by an export run.
type Manifest struct {
	Input string         `json:"input"`
	ID    string         `json:"id"`
	Cues  int            `json:"cues"`
	Clips []ManifestClip `json:"clips"`
}

type ManifestClip struct {
	ID         string  `json:"id"`
	StartSec   float64 `json:"start_sec"`
	EndSec     float64 `json:"end_sec"`
	File       string  `json:"file"`
	Subtitles  string  `json:"subtitles,omitempty"`
	Count      int     `json:"count"`
	Excitement float64 `json:"excitement"`
	Text       string  `json:"text"`
}
