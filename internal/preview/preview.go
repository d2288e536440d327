// Package preview implements the image preview pipeline: source resolution,
// metadata extraction, thumbnail rendering, and response assembly, with
// guaranteed cleanup of every file a request creates.
//
// The failure policy is deliberately asymmetric. Metadata extraction
// degrades to a fallback record and never fails a request; source resolution
// and thumbnail rendering are fatal. The pipeline is stateless and safe for
// concurrent use.
package preview

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/image-preview-service/internal/fetch"
	"github.com/fpang/image-preview-service/internal/imagetool"
	"github.com/fpang/image-preview-service/internal/tempfile"
)

// Thumbnail geometry. Every rendered thumbnail is exactly this size.
const (
	ThumbnailWidth  = 150
	ThumbnailHeight = 150
)

// DefaultMaxInlinePixels is the default pixel-count gate for inlining the
// original image into the response. At or above the gate only the thumbnail
// is inlined, which keeps response payloads bounded.
const DefaultMaxInlinePixels = 2_000_000

// Config controls one Pipeline. Zero values select the documented defaults.
type Config struct {
	// UploadDir is where request-scoped working files live.
	UploadDir string

	// MaxInlinePixels is the inline gate for the original image.
	MaxInlinePixels int64

	// DownloadTimeout bounds a remote fetch end to end.
	DownloadTimeout time.Duration

	// ToolTimeout bounds a single inspect or render invocation.
	ToolTimeout time.Duration
}

// Pipeline executes preview requests.
type Pipeline struct {
	cfg     Config
	tool    imagetool.Processor
	fetcher *fetch.Client
}

// New builds a Pipeline around the given image tool.
func New(cfg Config, tool imagetool.Processor) *Pipeline {
	if cfg.MaxInlinePixels <= 0 {
		cfg.MaxInlinePixels = DefaultMaxInlinePixels
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = imagetool.DefaultTimeout
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = fetch.DefaultTimeout
	}
	return &Pipeline{cfg: cfg, tool: tool, fetcher: fetch.New(cfg.DownloadTimeout)}
}

// Result is the success payload for one request.
type Result struct {
	// ThumbnailURL is a data URI carrying the rendered JPEG thumbnail.
	ThumbnailURL string `json:"thumbnailUrl"`

	// OriginalImageURL is a data URI carrying the source image when it
	// passes the inline pixel gate, and "" otherwise.
	OriginalImageURL string `json:"originalImageUrl"`

	// Metadata is the ordered metadata record.
	Metadata *Record `json:"metadata"`
}

// Process runs the full pipeline for one request. Every file created while
// servicing the request, the uploaded source included, is removed before
// Process returns, on success and on failure alike.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Result, error) {
	tracker := tempfile.NewTracker()
	defer tracker.Cleanup()

	start := time.Now()

	src, err := p.resolveSource(ctx, req, tracker)
	if err != nil {
		return nil, err
	}

	rec := p.extractMetadata(ctx, src.Path)

	thumbPath := tempfile.NewPath(p.cfg.UploadDir, ".jpg")
	tracker.Track(thumbPath)
	if err := p.renderThumbnail(ctx, src.Path, thumbPath); err != nil {
		return nil, err
	}

	result, err := p.assemble(thumbPath, src, rec)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("origin", src.Origin).
		Int64("sourceBytes", src.Size).
		Bool("originalInlined", result.OriginalImageURL != "").
		Dur("duration", time.Since(start)).
		Msg("Preview generated")

	return result, nil
}
