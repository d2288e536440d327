// Package imagetool puts the image manipulation tool behind a small
// capability interface so the preview pipeline can swap between an external
// ImageMagick invocation and a pure Go implementation, and tests can fake
// either.
//
// Every provider honours the same inspect text contract: the first token is
// "<width>x<height>", the remainder is whitespace-separated key=value pairs.
package imagetool

import (
	"context"
	"fmt"
	"time"
)

// DefaultTimeout bounds a single Inspect or Render invocation.
const DefaultTimeout = 20 * time.Second

// jpegQuality is the encode quality shared by every provider.
const jpegQuality = 85

// Processor is the capability the preview pipeline needs from an image tool.
type Processor interface {
	// Name identifies the provider ("native", "magick") for logs and health
	// reporting.
	Name() string

	// Inspect returns a textual description of the image at path following
	// the inspect text contract. A failed inspection returns an error and no
	// text.
	Inspect(ctx context.Context, path string) (string, error)

	// Render writes a width-by-height JPEG thumbnail of srcPath to dstPath,
	// scaling the source to cover the target, center-cropping the overflow,
	// and flattening transparency onto white.
	Render(ctx context.Context, srcPath, dstPath string, width, height int) error
}

// New returns the provider registered under name. Supported names are
// "native" (pure Go, no external binaries, the default) and "magick"
// (ImageMagick identify/convert).
func New(name string) (Processor, error) {
	switch name {
	case "", "native":
		return &Native{}, nil
	case "magick":
		return &Magick{}, nil
	default:
		return nil, fmt.Errorf("unknown image tool %q (supported: native, magick)", name)
	}
}
