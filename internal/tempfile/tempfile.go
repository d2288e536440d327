// Package tempfile manages the working files created while servicing a
// single preview request. Every file the pipeline creates or takes ownership
// of is registered with a Tracker, and the Tracker's Cleanup removes them all
// regardless of how the request ended.
package tempfile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// NewPath returns a collision-free path for a new working file inside dir.
// ext must be empty or a simple leading-dot extension; anything else is
// discarded so caller-supplied filenames can never steer the path.
func NewPath(dir, ext string) string {
	if !validExt(ext) {
		ext = ""
	}
	return filepath.Join(dir, uuid.NewString()+ext)
}

func validExt(ext string) bool {
	if ext == "" {
		return true
	}
	if !strings.HasPrefix(ext, ".") {
		return false
	}
	rest := ext[1:]
	return rest != "" && !strings.ContainsAny(rest, `./\`)
}

// Tracker records the files created for one request so they can be removed
// together. It is not safe for concurrent use; create one per request.
type Tracker struct {
	paths []string
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Track registers a path for removal. Tracking the same path twice is
// harmless; empty paths are ignored.
func (t *Tracker) Track(path string) {
	if path == "" {
		return
	}
	t.paths = append(t.paths, path)
}

// Cleanup removes every tracked file. Already-missing files are ignored and
// removal failures are logged at warn level; cleanup never returns an error,
// so it cannot mask the request's primary outcome.
func (t *Tracker) Cleanup() {
	for _, p := range t.paths {
		err := os.Remove(p)
		switch {
		case err == nil:
			log.Debug().Str("path", p).Msg("Removed temp file")
		case errors.Is(err, fs.ErrNotExist):
			// Already gone.
		default:
			log.Warn().Err(err).Str("path", p).Msg("Failed to remove temp file")
		}
	}
	t.paths = nil
}
