package plugin

import (
	"os"
	"time"

	"github.com/hectormr206/orchestra/internal/adapter"
)

// init registers a single plugin-backed adapter named "custom-plugin".
// Its binary path comes from ORCHESTRA_PLUGIN_COMMAND; IsAvailable reports
// false (rather than adapter.Get failing) when that variable is unset, so
// an unconfigured fallback chain entry degrades the same way a missing CLI
// binary does.
func init() {
	adapter.Register("custom-plugin", func() adapter.Adapter {
		return New(Config{
			Name:     "custom-plugin",
			Model:    "custom",
			Provider: "plugin",
			Command:  os.Getenv("ORCHESTRA_PLUGIN_COMMAND"),
			Timeout:  10 * time.Minute,
		})
	})
}
