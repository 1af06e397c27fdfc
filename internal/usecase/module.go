package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/forPelevin/cuesync/internal/ports"
	"github.com/forPelevin/cuesync/internal/types"
)

const (
	ModuleCheckTimeout   = 4 * time.Second
	ModuleInstallTimeout = 60 * time.Second
)

// CheckDetectorModule reports the module state. Any error or timeout is
// reported as ModuleFailed together with the cause.
func CheckDetectorModule(ctx context.Context, m ports.DetectorModule) (types.ModuleState, error) {
	if m == nil {
		return types.ModuleUnavailable, nil
	}
	cctx, cancel := context.WithTimeout(ctx, ModuleCheckTimeout)
	defer cancel()
	st, err := m.State(cctx)
	if err != nil {
		return types.ModuleFailed, fmt.Errorf("check detector module: %w", err)
	}
	return st, nil
}

// InstallDetectorModule installs the module and re-checks it. progress
// receives 0 before the install starts and 100 once the module is ready;
// intermediate values come from the module itself.
func InstallDetectorModule(ctx context.Context, m ports.DetectorModule, progress func(percent int)) (types.ModuleState, error) {
	if m == nil {
		return types.ModuleUnavailable, nil
	}
	if progress == nil {
		progress = func(int) {}
	}
	progress(0)

	ictx, cancel := context.WithTimeout(ctx, ModuleInstallTimeout)
	err := m.Install(ictx, func(p int) { progress(min(max(p, 0), 100)) })
	cancel()
	if err != nil {
		return types.ModuleFailed, fmt.Errorf("install detector module: %w", err)
	}

	st, err := CheckDetectorModule(ctx, m)
	if err != nil {
		return st, err
	}
	if st == types.ModuleReady {
		progress(100)
		return st, nil
	}
	return types.ModuleFailed, fmt.Errorf("install detector module: state after install is %s", st)
}
