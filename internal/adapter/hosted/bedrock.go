package hosted

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/hectormr206/orchestra/internal/adapter"
)

// BedrockConfig configures the hosted AWS Bedrock Claude adapter.
type BedrockConfig struct {
	Region    string
	ModelID   string // e.g. "anthropic.claude-3-5-sonnet-20241022-v2:0"
	MaxTokens int
	Timeout   time.Duration
}

// BedrockAdapter invokes a Claude model through AWS Bedrock's runtime API.
type BedrockAdapter struct {
	cfg    BedrockConfig
	client *bedrockruntime.Client
	ready  bool
}

// bedrockRequestBody is the Anthropic-on-Bedrock message payload shape.
type bedrockRequestBody struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Messages         []bedrockMessage   `json:"messages"`
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockResponseBody struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// NewBedrock constructs a Bedrock adapter using the default AWS credential
// chain, loaded once at construction time.
func NewBedrock(ctx context.Context, cfg BedrockConfig) (*BedrockAdapter, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return &BedrockAdapter{cfg: cfg, ready: false}, fmt.Errorf("hosted: load aws config: %w", err)
	}
	return &BedrockAdapter{cfg: cfg, client: bedrockruntime.NewFromConfig(awsCfg), ready: true}, nil
}

func (b *BedrockAdapter) Info() adapter.AdapterInfo {
	return adapter.AdapterInfo{Name: "bedrock-claude", Model: b.cfg.ModelID, Provider: "aws-bedrock"}
}

func (b *BedrockAdapter) IsAvailable(ctx context.Context) bool {
	return b.ready && b.client != nil
}

func (b *BedrockAdapter) Execute(ctx context.Context, req adapter.ExecuteRequest) (adapter.ExecuteResult, error) {
	start := time.Now()

	runCtx := ctx
	var cancel context.CancelFunc
	if b.cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(bedrockRequestBody{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        b.cfg.MaxTokens,
		Messages:         []bedrockMessage{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return adapter.ExecuteResult{}, fmt.Errorf("hosted: marshal bedrock request: %w", err)
	}

	out, err := b.client.InvokeModel(runCtx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.cfg.ModelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	duration := time.Since(start)

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return adapter.ExecuteResult{Success: false, Duration: duration, ErrorKind: adapter.ErrorTimeout}, nil
		}
		return adapter.ExecuteResult{Success: false, Duration: duration, ErrorKind: classifyBedrockError(err)}, nil
	}

	var parsed bedrockResponseBody
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return adapter.ExecuteResult{}, fmt.Errorf("hosted: parse bedrock response: %w", err)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return adapter.ExecuteResult{Success: true, Duration: duration, Text: text.String()}, nil
}

// classifyBedrockError maps Bedrock's typed exceptions (throttling, model
// errors) to this repository's ErrorKind taxonomy.
func classifyBedrockError(err error) adapter.ErrorKind {
	var throttling *types.ThrottlingException
	if errors.As(err, &throttling) {
		return adapter.ErrorRateLimit
	}
	var validation *types.ValidationException
	if errors.As(err, &validation) {
		if adapter.Classify(validation.ErrorMessage(), nil) == adapter.ErrorContextExceeded {
			return adapter.ErrorContextExceeded
		}
		return adapter.ErrorAPIError
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return adapter.ErrorAPIError
	}
	return adapter.ErrorGeneric
}
