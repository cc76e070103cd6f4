package hosted

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hectormr206/orchestra/internal/adapter"
	"github.com/hectormr206/orchestra/internal/adapter/cloudauth"
)

// VertexConfig configures the hosted Vertex AI Claude adapter, which
// authenticates with a short-lived signed-assertion bearer token instead
// of a static API key.
type VertexConfig struct {
	ProjectID     string
	Region        string
	ModelID       string // e.g. "claude-3-5-sonnet-v2@20241022"
	MaxTokens     int
	Timeout       time.Duration
	PrivateKeyPEM []byte // service-account key used to sign the assertion
	ServiceEmail  string // assertion subject/issuer
}

// VertexAdapter invokes a Claude model published on Vertex AI's Model
// Garden via the predict/rawPredict REST endpoint.
type VertexAdapter struct {
	cfg    VertexConfig
	signer *cloudauth.AssertionSigner
	client *http.Client
	ready  bool
}

type vertexRequestBody struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Messages         []bedrockMessage `json:"messages"`
}

type vertexResponseBody struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// NewVertex constructs a Vertex AI adapter from cfg.PrivateKeyPEM; a
// short-lived bearer assertion is signed afresh on every Execute call.
func NewVertex(cfg VertexConfig) (*VertexAdapter, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if len(cfg.PrivateKeyPEM) == 0 {
		return &VertexAdapter{cfg: cfg, ready: false}, nil
	}
	signer, err := cloudauth.NewAssertionSigner(cfg.ServiceEmail, cfg.PrivateKeyPEM)
	if err != nil {
		return &VertexAdapter{cfg: cfg, ready: false}, fmt.Errorf("hosted: vertex signer: %w", err)
	}
	return &VertexAdapter{cfg: cfg, signer: signer, client: &http.Client{}, ready: true}, nil
}

func (v *VertexAdapter) Info() adapter.AdapterInfo {
	return adapter.AdapterInfo{Name: "vertex-claude", Model: v.cfg.ModelID, Provider: "gcp-vertex"}
}

func (v *VertexAdapter) IsAvailable(ctx context.Context) bool {
	return v.ready
}

func (v *VertexAdapter) Execute(ctx context.Context, req adapter.ExecuteRequest) (adapter.ExecuteResult, error) {
	start := time.Now()

	if !v.ready {
		return adapter.ExecuteResult{Duration: time.Since(start), ErrorKind: adapter.ErrorGeneric},
			fmt.Errorf("hosted: vertex adapter not configured")
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if v.cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, v.cfg.Timeout)
		defer cancel()
	}

	token, err := v.signer.Sign(10*time.Minute, "https://www.googleapis.com/oauth2/v4/token")
	if err != nil {
		return adapter.ExecuteResult{Duration: time.Since(start), ErrorKind: adapter.ErrorGeneric},
			fmt.Errorf("hosted: sign vertex assertion: %w", err)
	}

	body, err := json.Marshal(vertexRequestBody{
		AnthropicVersion: "vertex-2023-10-16",
		MaxTokens:        v.cfg.MaxTokens,
		Messages:         []bedrockMessage{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return adapter.ExecuteResult{}, fmt.Errorf("hosted: marshal vertex request: %w", err)
	}

	url := fmt.Sprintf(
		"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/anthropic/models/%s:rawPredict",
		v.cfg.Region, v.cfg.ProjectID, v.cfg.Region, v.cfg.ModelID,
	)
	httpReq, err := http.NewRequestWithContext(runCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return adapter.ExecuteResult{}, fmt.Errorf("hosted: build vertex request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return adapter.ExecuteResult{Success: false, Duration: duration, ErrorKind: adapter.ErrorTimeout}, nil
		}
		return adapter.ExecuteResult{Success: false, Duration: duration, ErrorKind: adapter.ErrorGeneric}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return adapter.ExecuteResult{}, fmt.Errorf("hosted: read vertex response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return adapter.ExecuteResult{Success: false, Duration: duration, ErrorKind: adapter.ErrorRateLimit}, nil
	}
	if resp.StatusCode != http.StatusOK {
		if adapter.Classify(string(respBody), nil) == adapter.ErrorContextExceeded {
			return adapter.ExecuteResult{Success: false, Duration: duration, ErrorKind: adapter.ErrorContextExceeded}, nil
		}
		return adapter.ExecuteResult{Success: false, Duration: duration, ErrorKind: adapter.ErrorAPIError}, nil
	}

	var parsed vertexResponseBody
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return adapter.ExecuteResult{}, fmt.Errorf("hosted: parse vertex response: %w", err)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return adapter.ExecuteResult{Success: true, Duration: duration, Text: text.String()}, nil
}
