package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger from the environment.
// PREVIEW_LOG_LEVEL takes any zerolog level name (default info);
// PREVIEW_LOG_FORMAT=json keeps raw JSON lines for log shippers, anything
// else selects the human-readable console writer. Both write to stderr so
// stdout stays reserved for metric documents.
func Init() {
	level, err := zerolog.ParseLevel(EnvOrDefault("PREVIEW_LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if os.Getenv("PREVIEW_LOG_FORMAT") == "json" {
		w = os.Stderr
	}
	log.Logger = log.Output(w)
}

// EnvOrDefault returns the named environment variable, or defaultVal when it
// is empty or unset.
func EnvOrDefault(envVar, defaultVal string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return defaultVal
}
