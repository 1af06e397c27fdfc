package segapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/klauspost/compress/flate"
	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/cuesync/internal/ports/adapters/endpoint"
)

// Endpoint is the base URL policy of the segment API.
var Endpoint = endpoint.Policy{
	Env:          "CUESYNC_API_BASE_URL",
	AllowEnv:     "CUESYNC_ALLOWED_HOSTS",
	DefaultURL:   "https://api.bilibili.com",
	DefaultHosts: []string{"api.bilibili.com", "comment.bilibili.com"},
	LoopbackHTTP: true,
}

// LegacyEndpoint serves the whole-video XML documents.
var LegacyEndpoint = endpoint.Policy{
	Env:          "CUESYNC_LEGACY_BASE_URL",
	AllowEnv:     "CUESYNC_ALLOWED_HOSTS",
	DefaultURL:   "https://comment.bilibili.com",
	DefaultHosts: []string{"api.bilibili.com", "comment.bilibili.com"},
	LoopbackHTTP: true,
}

const (
	DefaultParallelism = 3
	maxPayload         = 32 << 20
	userAgent          = "cuesync/1"
)

type Options struct {
	BaseURL       string
	LegacyBaseURL string
	Parallelism   int
	Client        *http.Client
	Logf          func(string, ...any)
}

// Client fetches cue payloads over HTTP. Segment indexes start at 1.
type Client struct {
	base     string
	legacy   string
	parallel int
	http     *http.Client
	logf     func(string, ...any)
}

func New(opt Options) *Client {
	c := &Client{
		base:     Endpoint.Normalize(opt.BaseURL),
		legacy:   LegacyEndpoint.Normalize(opt.LegacyBaseURL),
		parallel: opt.Parallelism,
		http:     opt.Client,
		logf:     opt.Logf,
	}
	if c.parallel <= 0 {
		c.parallel = DefaultParallelism
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 20 * time.Second}
	}
	if c.logf == nil {
		c.logf = func(string, ...any) {}
	}
	return c
}

// FetchSegments downloads segments 1..count with bounded parallelism.
// Failed and empty segments are skipped; the rest keep index order. The
// returned error joins the per-segment failures and is nil when every
// segment came back.
func (c *Client) FetchSegments(ctx context.Context, id string, count int) ([][]byte, error) {
	if count <= 0 {
		return nil, nil
	}
	out := make([][]byte, count)
	errs := make([]error, count)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallel)
	for i := range count {
		g.Go(func() error {
			q := url.Values{}
			q.Set("type", "1")
			q.Set("oid", id)
			q.Set("segment_index", strconv.Itoa(i+1))
			b, err := c.get(gctx, c.base+"/x/v2/dm/web/seg.so?"+q.Encode())
			if err != nil {
				errs[i] = fmt.Errorf("segment %d: %w", i+1, err)
				return nil
			}
			out[i] = b
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	segs := make([][]byte, 0, count)
	for _, b := range out {
		if len(b) > 0 {
			segs = append(segs, b)
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		c.logf("segments %s: %d/%d fetched", id, len(segs), count)
	}
	return segs, err
}

func (c *Client) FetchView(ctx context.Context, id string) ([]byte, error) {
	q := url.Values{}
	q.Set("type", "1")
	q.Set("oid", id)
	return c.get(ctx, c.base+"/x/v2/dm/web/view?"+q.Encode())
}

// FetchLegacy returns the XML document. The server may send it as raw
// deflate; a body that fails to inflate is returned as-is.
func (c *Client) FetchLegacy(ctx context.Context, id string) ([]byte, error) {
	b, err := c.get(ctx, c.legacy+"/"+url.PathEscape(id)+".xml")
	if err != nil {
		return nil, err
	}
	return inflate(b), nil
}

func inflate(b []byte) []byte {
	if len(b) == 0 || b[0] == '<' {
		return b
	}
	r := flate.NewReader(bytes.NewReader(b))
	defer r.Close()
	out, err := io.ReadAll(io.LimitReader(r, maxPayload))
	if err != nil || len(out) == 0 {
		return b
	}
	return out
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPayload))
}

func ValidateBaseURLs(baseURL, legacyBaseURL string, allowedHosts []string) error {
	return errors.Join(
		Endpoint.Validate(baseURL, allowedHosts),
		LegacyEndpoint.Validate(legacyBaseURL, allowedHosts),
	)
}
