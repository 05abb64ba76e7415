package testutil

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
)

// TestLogEnv re-enables logging in tests when set to a zerolog level name.
const TestLogEnv = "SEGMENTATION_TEST_LOG"

// init silences zerolog for every test binary that imports testutil.
func init() {
	if testing.Testing() {
		QuietLogs()
	}
}

// QuietLogs disables the global zerolog level unless TestLogEnv names a level.
func QuietLogs() {
	if level, err := zerolog.ParseLevel(os.Getenv(TestLogEnv)); err == nil && os.Getenv(TestLogEnv) != "" {
		zerolog.SetGlobalLevel(level)
		return
	}
	zerolog.SetGlobalLevel(zerolog.Disabled)
}
