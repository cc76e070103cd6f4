package subprocess

import (
	"time"

	"github.com/hectormr206/orchestra/internal/adapter"
)

// init registers the CLI backends this pipeline has historically shelled
// out to. Each factory is re-evaluated on every adapter.Get call, so PATH
// changes between runs are picked up without a restart.
func init() {
	adapter.Register("claude-code", func() adapter.Adapter {
		return New(Config{
			Name:       "claude-code",
			Model:      "claude-code-cli",
			Provider:   "anthropic",
			Command:    "claude",
			BaseArgs:   []string{"-p", "--output-format", "text"},
			PromptMode: PromptModeStdin,
			Timeout:    10 * time.Minute,
		})
	})

	adapter.Register("codex", func() adapter.Adapter {
		return New(Config{
			Name:       "codex",
			Model:      "codex-cli",
			Provider:   "openai",
			Command:    "codex",
			BaseArgs:   []string{"exec"},
			PromptMode: PromptModeArg,
			Timeout:    10 * time.Minute,
		})
	})
}
