package openrouter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/forPelevin/cuesync/internal/domain/faces"
	"github.com/forPelevin/cuesync/internal/ports/adapters/endpoint"
	"github.com/forPelevin/cuesync/internal/types"
)

// Endpoint is the base URL policy of the OpenRouter API.
var Endpoint = endpoint.Policy{
	Env:          "OPENROUTER_BASE_URL",
	AllowEnv:     "OPENROUTER_ALLOWED_HOSTS",
	DefaultURL:   "https://openrouter.ai",
	DefaultHosts: []string{"openrouter.ai", "api.openrouter.ai"},
}

func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	return Endpoint.Validate(baseURL, allowedHosts)
}

// Adapter detects faces with a vision model behind the OpenRouter chat API.
type Adapter struct {
	key     string
	model   string
	baseURL string
	client  *http.Client
}

const (
	requestTimeout = 20 * time.Second
	jpegQuality    = 80
)

func New(apiKey, model, baseURL string) *Adapter {
	if model == "" {
		model = "google/gemini-2.0-flash-001"
	}
	return &Adapter{key: apiKey, model: model, baseURL: Endpoint.Normalize(baseURL), client: &http.Client{Timeout: time.Minute}}
}

func (a *Adapter) Detect(ctx context.Context, frame image.Image) ([]types.FaceDetection, error) {
	var img bytes.Buffer
	if err := imaging.Encode(&img, frame, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img.Bytes())

	payload := map[string]any{
		"model":       a.model,
		"stream":      false,
		"temperature": 0,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": faces.Prompt},
					{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
				},
			},
		},
		"response_format": map[string]any{"type": "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	url := a.baseURL + "/api/v1/chat/completions"

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("openrouter timeout after %s (model=%s)", requestTimeout, a.model)
		}
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("openrouter status %d and read body failed: %v", resp.StatusCode, readErr)
		}
		return nil, fmt.Errorf("openrouter status %d: %s", resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	if len(raw.Choices) == 0 {
		return nil, errors.New("openrouter: no choices")
	}
	content, err := messageContentToString(raw.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	dets, err := faces.ParseDetections(content)
	if err != nil {
		return nil, fmt.Errorf("openrouter: %w (content %q)", err, truncate(content, 200))
	}
	return dets, nil
}

// Module reports the remote detector as ready when a key is configured.
// There is nothing to install.
type Module struct{ a *Adapter }

func (a *Adapter) Module() Module { return Module{a: a} }

func (m Module) State(context.Context) (types.ModuleState, error) {
	if strings.TrimSpace(m.a.key) == "" {
		return types.ModuleUnavailable, nil
	}
	return types.ModuleReady, nil
}

func (m Module) Install(context.Context, func(int)) error {
	if strings.TrimSpace(m.a.key) == "" {
		return errors.New("openrouter: OPENROUTER_API_KEY is not set")
	}
	return nil
}

func messageContentToString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []any:
		// Some providers return an array of {type,text} parts.
		var b strings.Builder
		for _, it := range x {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := m["text"].(string); ok {
				b.WriteString(t)
			}
		}
		s := b.String()
		if strings.TrimSpace(s) == "" {
			return "", errors.New("openrouter: empty content")
		}
		return s, nil
	default:
		return "", fmt.Errorf("openrouter: unexpected content type %T", v)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
