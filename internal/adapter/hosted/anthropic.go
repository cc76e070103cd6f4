// Package hosted implements adapter.Adapter against hosted generative-model
// HTTP APIs rather than a spawned CLI process, classifying the SDK's typed
// errors instead of scanning stdout/stderr for patterns.
package hosted

import (
	"context"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hectormr206/orchestra/internal/adapter"
)

// AnthropicConfig configures the hosted Anthropic Messages API adapter.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
	Timeout   time.Duration
}

// AnthropicAdapter calls the Anthropic Messages API directly.
type AnthropicAdapter struct {
	cfg    AnthropicConfig
	client anthropic.Client
}

// NewAnthropic constructs a hosted Anthropic adapter. The API key is read
// once at construction time from the adapter's configured environment
// variable.
func NewAnthropic(cfg AnthropicConfig) *AnthropicAdapter {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return &AnthropicAdapter{cfg: cfg, client: client}
}

func (a *AnthropicAdapter) Info() adapter.AdapterInfo {
	return adapter.AdapterInfo{Name: "anthropic-api", Model: a.cfg.Model, Provider: "anthropic"}
}

func (a *AnthropicAdapter) IsAvailable(ctx context.Context) bool {
	return a.cfg.APIKey != ""
}

// Execute sends req.Prompt as a single user message and classifies any
// returned API error by its HTTP status / error type.
func (a *AnthropicAdapter) Execute(ctx context.Context, req adapter.ExecuteRequest) (adapter.ExecuteResult, error) {
	start := time.Now()

	runCtx := ctx
	var cancel context.CancelFunc
	if a.cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	msg, err := a.client.Messages.New(runCtx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.cfg.Model),
		MaxTokens: a.cfg.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	duration := time.Since(start)

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return adapter.ExecuteResult{Success: false, Duration: duration, ErrorKind: adapter.ErrorTimeout}, nil
		}
		return adapter.ExecuteResult{Success: false, Duration: duration, ErrorKind: classifyAPIError(err)}, nil
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return adapter.ExecuteResult{Success: true, Duration: duration, Text: text}, nil
}

// classifyAPIError maps the Anthropic SDK's typed API errors to this
// repository's ErrorKind taxonomy instead of pattern-matching response text.
func classifyAPIError(err error) adapter.ErrorKind {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429:
			return adapter.ErrorRateLimit
		case 400:
			// Anthropic reports context-window overflows as a 400 with a
			// message we still substring-match, since the SDK does not
			// expose a dedicated typed error for this case.
			if adapter.Classify(apiErr.Message, nil) == adapter.ErrorContextExceeded {
				return adapter.ErrorContextExceeded
			}
			return adapter.ErrorAPIError
		default:
			return adapter.ErrorAPIError
		}
	}
	return adapter.ErrorGeneric
}
