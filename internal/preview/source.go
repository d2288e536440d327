package preview

import (
	"context"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/image-preview-service/internal/tempfile"
)

// Source origins.
const (
	OriginDownloaded = "downloaded"
	OriginUploaded   = "uploaded"
)

// Request carries the image source for one preview. Zero values mean "not
// provided".
type Request struct {
	// RemoteURL is an http(s) URL to download.
	RemoteURL string

	// UploadedPath is a local file already received from the client. The
	// pipeline takes ownership: the file is deleted when processing ends,
	// whatever the outcome. When both fields are set the upload wins.
	UploadedPath string
}

// SourceFile is the resolved local image the pipeline works on.
type SourceFile struct {
	Path   string
	Origin string
	Size   int64
}

// resolveSource turns the request into a local file, registering every file
// it creates, and the uploaded file it owns, with the tracker.
func (p *Pipeline) resolveSource(ctx context.Context, req Request, tracker *tempfile.Tracker) (*SourceFile, error) {
	switch {
	case req.UploadedPath != "":
		tracker.Track(req.UploadedPath)
		info, err := os.Stat(req.UploadedPath)
		if err != nil {
			return nil, newError(ErrTypeInternal, "Uploaded file unavailable", err)
		}
		log.Debug().Str("path", req.UploadedPath).Int64("bytes", info.Size()).Msg("Using uploaded image")
		return &SourceFile{Path: req.UploadedPath, Origin: OriginUploaded, Size: info.Size()}, nil

	case req.RemoteURL != "":
		dest := tempfile.NewPath(p.cfg.UploadDir, urlExt(req.RemoteURL))
		tracker.Track(dest)
		size, err := p.fetcher.DownloadToFile(ctx, req.RemoteURL, dest)
		if err != nil {
			return nil, newError(ErrTypeDownload, "Error downloading image from URL", err)
		}
		return &SourceFile{Path: dest, Origin: OriginDownloaded, Size: size}, nil

	default:
		return nil, newError(ErrTypeMissingInput, "Missing imageUrl or image file", nil)
	}
}

// urlExt derives a filename extension from the URL path when one is present.
// tempfile.NewPath discards anything unsafe.
func urlExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Ext(u.Path))
}
