package localfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSaveThenFetch(t *testing.T) {
	ctx := context.Background()
	d := New(t.TempDir())

	dir, err := d.Save("123", Payloads{
		Segments: [][]byte{[]byte("a"), []byte("b")},
		View:     []byte{0x08, 0x02},
		Legacy:   []byte("<i/>"),
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "seg_002.so")); err != nil {
		t.Fatalf("expected numbered segment files: %v", err)
	}

	segs, err := d.FetchSegments(ctx, "123", 5)
	if err != nil {
		t.Fatalf("segments: %v", err)
	}
	if diff := cmp.Diff([][]byte{[]byte("a"), []byte("b")}, segs); diff != "" {
		t.Fatalf("segments mismatch (-want +got):\n%s", diff)
	}
	v, err := d.FetchView(ctx, "123")
	if err != nil || len(v) != 2 {
		t.Fatalf("view: %v, %v", v, err)
	}
	l, err := d.FetchLegacy(ctx, "123")
	if err != nil || string(l) != "<i/>" {
		t.Fatalf("legacy: %q, %v", l, err)
	}
}

func TestSaveReplacesSegments(t *testing.T) {
	d := New(t.TempDir())
	if _, err := d.Save("x", Payloads{Segments: [][]byte{[]byte("1"), []byte("2"), []byte("3")}}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Save("x", Payloads{Segments: [][]byte{[]byte("new")}}); err != nil {
		t.Fatal(err)
	}
	segs, err := d.FetchSegments(context.Background(), "x", 3)
	if err != nil || len(segs) != 1 || string(segs[0]) != "new" {
		t.Fatalf("got %q, %v", segs, err)
	}
}

func TestFetchMissing(t *testing.T) {
	ctx := context.Background()
	d := New(t.TempDir())
	if _, err := d.FetchSegments(ctx, "nope", 2); err == nil {
		t.Fatalf("expected error when no segment exists")
	}
	if _, err := d.FetchView(ctx, "nope"); err == nil {
		t.Fatalf("expected error for a missing view")
	}
}

func TestRejectsPathIDs(t *testing.T) {
	d := New(t.TempDir())
	for _, id := range []string{"", "..", "a/b", `a\b`} {
		if _, err := d.FetchLegacy(context.Background(), id); err == nil {
			t.Fatalf("id %q must be rejected", id)
		}
	}
}
