package logging

import (
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/loomcast/loomcast/internal/config"
)

// New builds the root logger from configuration. Components derive their own
// named sub-loggers from it.
func New(cfg config.LoggingConfig) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       "loomcast",
		Level:      hclog.LevelFromString(cfg.Level),
		JSONFormat: cfg.JSON,
		Output:     os.Stderr,
	})
}
