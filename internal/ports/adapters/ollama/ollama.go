package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/ollama/ollama/api"

	"github.com/forPelevin/cuesync/internal/domain/faces"
	"github.com/forPelevin/cuesync/internal/types"
)

const (
	DefaultHost  = "http://127.0.0.1:11434"
	DefaultModel = "qwen2.5vl:3b"

	chatTimeout = 30 * time.Second
)

// Adapter detects faces with a local vision model and manages that model
// as the detector module.
type Adapter struct {
	client *api.Client
	model  string
}

func New(host, model string) (*Adapter, error) {
	if strings.TrimSpace(host) == "" {
		host = DefaultHost
	}
	if model == "" {
		model = DefaultModel
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid ollama host %q: scheme and host are required", host)
	}
	base := &url.URL{Scheme: u.Scheme, Host: u.Host}
	return &Adapter{client: api.NewClient(base, http.DefaultClient), model: model}, nil
}

func (a *Adapter) Detect(ctx context.Context, frame image.Image) ([]types.FaceDetection, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, chatTimeout)
		defer cancel()
	}

	var img bytes.Buffer
	if err := imaging.Encode(&img, frame, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	stream := false
	req := &api.ChatRequest{
		Model: a.model,
		Messages: []api.Message{{
			Role:    "user",
			Content: faces.Prompt,
			Images:  []api.ImageData{api.ImageData(img.Bytes())},
		}},
		Stream:  &stream,
		Format:  json.RawMessage(`"json"`),
		Options: map[string]any{"temperature": 0},
	}

	var content strings.Builder
	err := a.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}
	if strings.TrimSpace(content.String()) == "" {
		return nil, errors.New("ollama chat: empty response")
	}
	return faces.ParseDetections(content.String())
}

// State is Unavailable when the server does not answer, NotInstalled when
// the model is missing and Ready otherwise.
func (a *Adapter) State(ctx context.Context) (types.ModuleState, error) {
	if err := a.client.Heartbeat(ctx); err != nil {
		if ctx.Err() != nil {
			return types.ModuleFailed, ctx.Err()
		}
		return types.ModuleUnavailable, nil
	}
	if _, err := a.client.Show(ctx, &api.ShowRequest{Model: a.model}); err != nil {
		var se api.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return types.ModuleNotInstalled, nil
		}
		return types.ModuleFailed, fmt.Errorf("ollama show %s: %w", a.model, err)
	}
	return types.ModuleReady, nil
}

// Install pulls the model, reporting the download percentage.
func (a *Adapter) Install(ctx context.Context, progress func(percent int)) error {
	if progress == nil {
		progress = func(int) {}
	}
	last := -1
	err := a.client.Pull(ctx, &api.PullRequest{Model: a.model}, func(p api.ProgressResponse) error {
		if p.Total <= 0 {
			return nil
		}
		pct := int(p.Completed * 100 / p.Total)
		if pct != last {
			last = pct
			progress(pct)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ollama pull %s: %w", a.model, err)
	}
	return nil
}
