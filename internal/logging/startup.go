package logging

import (
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// field is one labelled startup value; slices keep the emitted order stable.
type field struct {
	label string
	value string
}

// StartupLogger collects service identity, external tools, directories, and
// configuration, then emits them as one structured event. A single event
// instead of scattered init logs shows exactly how the server came up when
// troubleshooting a host.
type StartupLogger struct {
	name         string
	version      string
	initDuration time.Duration

	tools    []field
	dirs     []field
	config   []field
	features []struct {
		name    string
		enabled bool
	}
}

// NewStartupLogger creates a StartupLogger for the named service binary.
func NewStartupLogger(name string) *StartupLogger {
	return &StartupLogger{name: name}
}

// Version records the version string baked into the binary at build time.
func (s *StartupLogger) Version(v string) *StartupLogger {
	s.version = v
	return s
}

// Tool records an image tool or external binary the service relies on.
func (s *StartupLogger) Tool(label, name string) *StartupLogger {
	s.tools = append(s.tools, field{label, name})
	return s
}

// Dir records a filesystem directory the service uses.
func (s *StartupLogger) Dir(label, path string) *StartupLogger {
	s.dirs = append(s.dirs, field{label, path})
	return s
}

// Feature records a boolean capability toggle.
func (s *StartupLogger) Feature(name string, enabled bool) *StartupLogger {
	s.features = append(s.features, struct {
		name    string
		enabled bool
	}{name, enabled})
	return s
}

// Config records a non-sensitive configuration value.
func (s *StartupLogger) Config(key, value string) *StartupLogger {
	s.config = append(s.config, field{key, value})
	return s
}

// InitDuration records how long startup took up to the point of logging.
func (s *StartupLogger) InitDuration(d time.Duration) *StartupLogger {
	s.initDuration = d
	return s
}

// Log emits the collected state as a single INFO event.
func (s *StartupLogger) Log() {
	service := zerolog.Dict().
		Str("name", s.name).
		Int("pid", os.Getpid()).
		Str("goVersion", runtime.Version()).
		Str("os", runtime.GOOS).
		Str("arch", runtime.GOARCH).
		Str("logLevel", zerolog.GlobalLevel().String())
	if s.version != "" {
		service = service.Str("version", s.version)
	}

	evt := log.Info().Dict("service", service)

	if len(s.tools) > 0 {
		evt = evt.Dict("tools", fieldDict(s.tools))
	}
	if len(s.dirs) > 0 {
		evt = evt.Dict("dirs", fieldDict(s.dirs))
	}
	if len(s.features) > 0 {
		d := zerolog.Dict()
		for _, f := range s.features {
			d = d.Bool(f.name, f.enabled)
		}
		evt = evt.Dict("features", d)
	}
	if len(s.config) > 0 {
		evt = evt.Dict("config", fieldDict(s.config))
	}
	if s.initDuration > 0 {
		evt = evt.Dur("initDuration", s.initDuration)
	}

	evt.Msg("Service startup complete")
}

func fieldDict(fields []field) *zerolog.Event {
	d := zerolog.Dict()
	for _, f := range fields {
		d = d.Str(f.label, f.value)
	}
	return d
}
