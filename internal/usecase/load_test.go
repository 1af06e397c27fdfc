package usecase

import (
	"context"
	"errors"
	"testing"
)

func TestLoadCues_PrefersSegments(t *testing.T) {
	f := newFakeFetcher()
	f.segments["v"] = [][]byte{testSegment()}
	f.legacy["v"] = []byte(testLegacy)
	f.view["v"] = testView(`{"text":"subscribe"}`, 12000)

	got, err := LoadCues(context.Background(), f, "v", 400000, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Legacy {
		t.Fatalf("binary segments were available")
	}
	if len(got.Records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(got.Records))
	}
	if len(f.counts) != 1 || f.counts[0] != 2 {
		t.Fatalf("expected two segments requested for 400s, got %v", f.counts)
	}
	if len(got.Advanced) != 1 || got.Advanced[0].Text != "subscribe" || got.Advanced[0].StartMs != 12000 {
		t.Fatalf("unexpected advanced cues: %+v", got.Advanced)
	}
	for i := 1; i < len(got.Records); i++ {
		if got.Records[i].TimeOffsetMs < got.Records[i-1].TimeOffsetMs {
			t.Fatalf("records not sorted at %d", i)
		}
	}
}

func TestLoadCues_LegacyFallback(t *testing.T) {
	f := newFakeFetcher()
	f.segments["v"] = [][]byte{{}}
	f.legacy["v"] = []byte(testLegacy)

	got, err := LoadCues(context.Background(), f, "v", 0, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Legacy || len(got.Records) != 2 {
		t.Fatalf("expected legacy records, got legacy=%v n=%d", got.Legacy, len(got.Records))
	}
	if got.Records[0].TimeOffsetMs != 1500 || got.Records[1].Mode != 5 {
		t.Fatalf("unexpected legacy records: %+v", got.Records)
	}
	if f.counts[0] != 3 {
		t.Fatalf("unknown duration should request the default segment count, got %d", f.counts[0])
	}
}

func TestLoadCues_NothingAvailable(t *testing.T) {
	_, err := LoadCues(context.Background(), newFakeFetcher(), "missing", 0, nil)
	if !errors.Is(err, ErrNoCues) {
		t.Fatalf("expected ErrNoCues, got %v", err)
	}
}

func TestLoadCues_CommandCuesOnly(t *testing.T) {
	f := newFakeFetcher()
	f.view["v"] = testView(`{"text":"subscribe"}`, 3000)

	got, err := LoadCues(context.Background(), f, "v", 60000, nil)
	if err != nil {
		t.Fatalf("command cues alone must load, got %v", err)
	}
	if len(got.Records) != 0 || got.Legacy {
		t.Fatalf("unexpected records: %d (legacy=%v)", len(got.Records), got.Legacy)
	}
	if len(got.Advanced) != 1 || got.Advanced[0].Text != "subscribe" {
		t.Fatalf("unexpected advanced cues: %+v", got.Advanced)
	}
}

func TestLoadCues_Cancelled(t *testing.T) {
	f := newFakeFetcher()
	f.gates["v"] = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadCues(ctx, f, "v", 0, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
