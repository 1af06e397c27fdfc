package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/forPelevin/cuesync/internal/types"
)

func TestCheckDetectorModule(t *testing.T) {
	ctx := context.Background()

	st, err := CheckDetectorModule(ctx, &fakeModule{states: []types.ModuleState{types.ModuleNotInstalled}})
	if err != nil || st != types.ModuleNotInstalled {
		t.Fatalf("got %s, %v", st, err)
	}

	st, err = CheckDetectorModule(ctx, &fakeModule{stateErr: errors.New("connection refused")})
	if err == nil || st != types.ModuleFailed {
		t.Fatalf("check error must map to failed, got %s, %v", st, err)
	}

	st, err = CheckDetectorModule(ctx, nil)
	if err != nil || st != types.ModuleUnavailable {
		t.Fatalf("nil module must be unavailable, got %s, %v", st, err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	st, err = CheckDetectorModule(cctx, &fakeModule{states: []types.ModuleState{types.ModuleReady}})
	if !errors.Is(err, context.Canceled) || st != types.ModuleFailed {
		t.Fatalf("cancelled check must fail, got %s, %v", st, err)
	}
}

func TestInstallDetectorModule(t *testing.T) {
	cases := []struct {
		name       string
		module     *fakeModule
		wantState  types.ModuleState
		wantErr    bool
		wantReport []int
	}{
		{
			name:       "installs and reports progress",
			module:     &fakeModule{states: []types.ModuleState{types.ModuleReady}, progress: []int{10, 55, 120}},
			wantState:  types.ModuleReady,
			wantReport: []int{0, 10, 55, 100, 100},
		},
		{
			name:       "install error",
			module:     &fakeModule{states: []types.ModuleState{types.ModuleReady}, installErr: errors.New("disk full")},
			wantState:  types.ModuleFailed,
			wantErr:    true,
			wantReport: []int{0},
		},
		{
			name:       "still missing after install",
			module:     &fakeModule{states: []types.ModuleState{types.ModuleNotInstalled}},
			wantState:  types.ModuleFailed,
			wantErr:    true,
			wantReport: []int{0},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got []int
			st, err := InstallDetectorModule(context.Background(), tc.module, func(p int) { got = append(got, p) })
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if st != tc.wantState {
				t.Fatalf("state = %s, want %s", st, tc.wantState)
			}
			if len(got) != len(tc.wantReport) {
				t.Fatalf("progress = %v, want %v", got, tc.wantReport)
			}
			for i := range got {
				if got[i] != tc.wantReport[i] {
					t.Fatalf("progress = %v, want %v", got, tc.wantReport)
				}
			}
		})
	}
}
