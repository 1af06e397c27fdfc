package segapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/flate"
)

func TestFetchSegments_SkipsFailuresKeepsOrder(t *testing.T) {
	var (
		mu       sync.Mutex
		seen     []string
		inFlight atomic.Int32
		peak     atomic.Int32
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/x/v2/dm/web/seg.so" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		q := r.URL.Query()
		if q.Get("type") != "1" || q.Get("oid") != "42" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		idx := q.Get("segment_index")
		mu.Lock()
		seen = append(seen, idx)
		mu.Unlock()
		switch idx {
		case "2":
			w.WriteHeader(http.StatusInternalServerError)
		case "4":
			// empty segment
		default:
			_, _ = w.Write([]byte("seg" + idx))
		}
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Parallelism: 2})
	segs, err := c.FetchSegments(context.Background(), "42", 5)
	if err == nil || !strings.Contains(err.Error(), "segment 2") {
		t.Fatalf("expected the failed segment to be reported, got %v", err)
	}
	var got []string
	for _, s := range segs {
		got = append(got, string(s))
	}
	if strings.Join(got, ",") != "seg1,seg3,seg5" {
		t.Fatalf("segments = %v", got)
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 requests, got %v", seen)
	}
	if peak.Load() > 2 {
		t.Fatalf("parallelism exceeded: %d", peak.Load())
	}
}

func TestFetchSegments_ZeroCount(t *testing.T) {
	segs, err := New(Options{BaseURL: "http://127.0.0.1:1"}).FetchSegments(context.Background(), "1", 0)
	if err != nil || segs != nil {
		t.Fatalf("got %v, %v", segs, err)
	}
}

func TestFetchSegments_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(Options{BaseURL: srv.URL}).FetchSegments(ctx, "1", 3); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestFetchView(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/x/v2/dm/web/view" || r.URL.Query().Get("oid") != "7" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte{0x08, 0x01})
	}))
	defer srv.Close()

	b, err := New(Options{BaseURL: srv.URL}).FetchView(context.Background(), "7")
	if err != nil || !bytes.Equal(b, []byte{0x08, 0x01}) {
		t.Fatalf("got %v, %v", b, err)
	}
	if _, err := New(Options{BaseURL: srv.URL}).FetchView(context.Background(), "8"); err == nil {
		t.Fatalf("expected status error")
	}
}

func TestFetchLegacy(t *testing.T) {
	const doc = `<?xml version="1.0"?><i><d p="1,1,25,16777215,0,0,a,1">hi</d></i>`
	var deflated bytes.Buffer
	fw, err := flate.NewWriter(&deflated, flate.DefaultCompression)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte(doc))
	_ = fw.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/plain.xml":
			_, _ = w.Write([]byte(doc))
		case "/packed.xml":
			_, _ = w.Write(deflated.Bytes())
		case "/junk.xml":
			_, _ = w.Write([]byte{0xff, 0xfe, 0xfd})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, LegacyBaseURL: srv.URL})
	cases := []struct {
		id   string
		want string
	}{
		{id: "plain", want: doc},
		{id: "packed", want: doc},
		{id: "junk", want: "\xff\xfe\xfd"},
	}
	for _, tc := range cases {
		got, err := c.FetchLegacy(context.Background(), tc.id)
		if err != nil {
			t.Fatalf("%s: %v", tc.id, err)
		}
		if string(got) != tc.want {
			t.Fatalf("%s: got %q", tc.id, got)
		}
	}
	if _, err := c.FetchLegacy(context.Background(), "missing"); err == nil {
		t.Fatalf("expected status error")
	}
}

func TestValidateBaseURLs(t *testing.T) {
	if err := ValidateBaseURLs("", "", nil); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if err := ValidateBaseURLs("http://127.0.0.1:8080", "http://localhost:9090", []string{"127.0.0.1", "localhost"}); err != nil {
		t.Fatalf("loopback http must validate: %v", err)
	}
	if err := ValidateBaseURLs("http://api.bilibili.com", "", nil); err == nil {
		t.Fatalf("plain http to a remote host must be rejected")
	}
	if err := ValidateBaseURLs("", "https://evil.example", nil); err == nil {
		t.Fatalf("unknown legacy host must be rejected")
	}
}
