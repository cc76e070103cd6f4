package hosted

import (
	"context"
	"os"
	"time"

	"github.com/hectormr206/orchestra/internal/adapter"
)

// init registers the hosted API backends. Credentials are read from the
// environment lazily, at factory-invocation time, so a missing key just
// makes IsAvailable report false instead of failing adapter.Get.
func init() {
	adapter.Register("anthropic-api", func() adapter.Adapter {
		model := envOr("ORCHESTRA_ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022")
		return NewAnthropic(AnthropicConfig{
			APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
			Model:   model,
			Timeout: 5 * time.Minute,
		})
	})

	adapter.Register("vertex-claude", func() adapter.Adapter {
		var keyPEM []byte
		if path := os.Getenv("ORCHESTRA_VERTEX_PRIVATE_KEY_PATH"); path != "" {
			keyPEM, _ = os.ReadFile(path)
		}
		a, err := NewVertex(VertexConfig{
			ProjectID:     os.Getenv("ORCHESTRA_GCP_PROJECT"),
			Region:        envOr("ORCHESTRA_GCP_REGION", "us-central1"),
			ModelID:       envOr("ORCHESTRA_VERTEX_MODEL_ID", "claude-3-5-sonnet-v2@20241022"),
			ServiceEmail:  os.Getenv("ORCHESTRA_VERTEX_SA_EMAIL"),
			PrivateKeyPEM: keyPEM,
			Timeout:       5 * time.Minute,
		})
		if err != nil {
			return a
		}
		return a
	})

	adapter.Register("bedrock-claude", func() adapter.Adapter {
		region := envOr("AWS_REGION", "us-east-1")
		modelID := envOr("ORCHESTRA_BEDROCK_MODEL_ID", "anthropic.claude-3-5-sonnet-20241022-v2:0")
		a, err := NewBedrock(context.Background(), BedrockConfig{
			Region:  region,
			ModelID: modelID,
			Timeout: 5 * time.Minute,
		})
		if err != nil {
			// Returned anyway: IsAvailable reports false until credentials
			// are fixed, matching the non-terminal-misconfiguration idiom
			// the subprocess adapters use for a missing binary.
			return a
		}
		return a
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
