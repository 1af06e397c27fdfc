package faces

import (
	"fmt"

	"github.com/forPelevin/cuesync/internal/types"
)

// ResolveModuleUIState projects the detector module state for display.
// progress < 0 means unknown.
func ResolveModuleUIState(state types.ModuleState, progress int) types.ModuleUIState {
	switch state {
	case types.ModuleChecking:
		return types.ModuleUIState{StatusText: "Checking face model…", ActionText: "Checking", ShowAction: true}
	case types.ModuleUnavailable:
		return types.ModuleUIState{StatusText: "Face detection is not available on this host", ActionText: "Unavailable", ShowAction: true}
	case types.ModuleNotInstalled:
		return types.ModuleUIState{StatusText: "Face model is not installed", ActionText: "Download model", ShowAction: true, ActionEnabled: true}
	case types.ModuleDownloading:
		status := "Downloading face model…"
		if progress >= 0 {
			status = fmt.Sprintf("Downloading face model: %d%%", min(progress, 100))
		}
		return types.ModuleUIState{StatusText: status, ActionText: "Downloading", ShowAction: true}
	case types.ModuleReady:
		return types.ModuleUIState{StatusText: "Face model ready", Ready: true}
	default:
		return types.ModuleUIState{StatusText: "Face model download failed, retry", ActionText: "Retry download", ShowAction: true, ActionEnabled: true}
	}
}
