package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/forPelevin/cuesync/internal/domain/faces"
	"github.com/forPelevin/cuesync/internal/ports"
	"github.com/forPelevin/cuesync/internal/ports/adapters/ollama"
	"github.com/forPelevin/cuesync/internal/ports/adapters/openrouter"
	"github.com/forPelevin/cuesync/internal/types"
	"github.com/forPelevin/cuesync/internal/usecase"
)

const (
	DetectorNone       = "none"
	DetectorOllama     = "ollama"
	DetectorOpenRouter = "openrouter"
)

type DetectorConfig struct {
	Kind string

	OllamaHost  string
	OllamaModel string

	OpenRouterAPIKey       string
	OpenRouterModel        string
	OpenRouterBaseURL      string
	OpenRouterAllowedHosts []string
}

func (d DetectorConfig) kind() string {
	k := strings.ToLower(strings.TrimSpace(d.Kind))
	if k == "" {
		return DetectorNone
	}
	return k
}

func (d DetectorConfig) Validate() error {
	switch d.kind() {
	case DetectorNone, DetectorOllama:
		return nil
	case DetectorOpenRouter:
		return openrouter.ValidateBaseURL(d.OpenRouterBaseURL, d.OpenRouterAllowedHosts)
	}
	return fmt.Errorf("unknown detector %q (want none, ollama or openrouter)", d.Kind)
}

// build returns nil ports for the "none" detector.
func (d DetectorConfig) build() (ports.FaceDetector, ports.DetectorModule, error) {
	switch d.kind() {
	case DetectorOllama:
		a, err := ollama.New(d.OllamaHost, d.OllamaModel)
		if err != nil {
			return nil, nil, err
		}
		return a, a, nil
	case DetectorOpenRouter:
		a := openrouter.New(d.OpenRouterAPIKey, d.OpenRouterModel, d.OpenRouterBaseURL)
		return a, a.Module(), nil
	case DetectorNone:
		return nil, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown detector %q", d.Kind)
}

type DetectorStatus struct {
	Detector string              `json:"detector"`
	State    string              `json:"state"`
	UI       types.ModuleUIState `json:"ui"`
	Error    string              `json:"error,omitempty"`
}

func CheckDetector(ctx context.Context, d DetectorConfig) (DetectorStatus, error) {
	_, m, err := d.build()
	if err != nil {
		return DetectorStatus{}, err
	}
	st, checkErr := usecase.CheckDetectorModule(ctx, m)
	out := DetectorStatus{Detector: d.kind(), State: st.String(), UI: faces.ResolveModuleUIState(st, 0)}
	if checkErr != nil {
		out.Error = checkErr.Error()
	}
	return out, nil
}

// InstallDetector installs the detector module. While the install runs,
// report receives a downloading status for every progress update.
func InstallDetector(ctx context.Context, d DetectorConfig, report func(DetectorStatus)) (DetectorStatus, error) {
	_, m, err := d.build()
	if err != nil {
		return DetectorStatus{}, err
	}
	if m == nil {
		return DetectorStatus{}, fmt.Errorf("detector %q has nothing to install", d.kind())
	}
	last := 0
	st, err := usecase.InstallDetectorModule(ctx, m, func(p int) {
		last = p
		if report != nil {
			st := types.ModuleDownloading
			report(DetectorStatus{Detector: d.kind(), State: st.String(), UI: faces.ResolveModuleUIState(st, p)})
		}
	})
	out := DetectorStatus{Detector: d.kind(), State: st.String(), UI: faces.ResolveModuleUIState(st, last)}
	if err != nil {
		out.Error = err.Error()
		return out, err
	}
	return out, nil
}
