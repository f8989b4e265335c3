package debug

import (
	"os"

	"github.com/kayz/appinstall/internal/logger"
)

// enabled is set via ldflags for debug builds
var enabled = ""

// Enabled controls whether debug logging is forced on
var Enabled = false

func init() {
	// Enable debug via ldflags (build-debug target)
	if enabled == "true" {
		Enabled = true
	}
	// Enable debug via environment variable (overrides ldflags)
	if os.Getenv("APPINSTALL_DEBUG") == "1" {
		Enabled = true
	}
}

// Apply raises the logger to debug level when debug mode is on and the
// configured level is less verbose.
func Apply() {
	if !Enabled {
		return
	}
	if logger.GetLevel() > logger.DebugLevel {
		logger.SetLevel(logger.DebugLevel)
	}
	logger.Debug("[DEBUG] Debug mode enabled")
}
