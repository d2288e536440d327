package imagetool

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"

	// Register webp decoding for Inspect and Render. JPEG, PNG, GIF, TIFF,
	// and BMP come in with the imaging import.
	_ "golang.org/x/image/webp"
)

// Native is the pure Go provider. Inspection decodes image bounds through
// the standard image registry and merges EXIF tags from imagemeta; rendering
// goes through disintegration/imaging. No external binaries.
//
// EXIF coverage is narrower than ImageMagick's property dump, so inspections
// carry fewer tags here; the dimensions token behaves identically.
type Native struct{}

// Name implements Processor.
func (n *Native) Name() string { return "native" }

// Inspect implements Processor. Output leads with "<width>x<height>" and
// appends the decoded format plus any EXIF tags imagemeta recognises.
func (n *Native) Inspect(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return "", fmt.Errorf("decode image config: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%dx%d format=%s", cfg.Width, cfg.Height, format)
	for _, tag := range exifTags(path) {
		sb.WriteByte(' ')
		sb.WriteString(tag)
	}
	return sb.String(), nil
}

// Render implements Processor. The source is scaled to cover the target box
// (Lanczos), center-cropped, flattened onto a white canvas, and encoded as
// JPEG whatever the destination extension says.
func (n *Native) Render(ctx context.Context, srcPath, dstPath string, width, height int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	img, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}

	thumb := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	// Fill guarantees the geometry; the white canvas guarantees opaque
	// pixels for sources with transparency.
	canvas := imaging.New(width, height, color.White)
	canvas = imaging.OverlayCenter(canvas, thumb, 1.0)

	out, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create thumbnail file: %w", err)
	}
	if err := imaging.Encode(out, canvas, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		out.Close()
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close thumbnail file: %w", err)
	}

	log.Debug().Str("src", srcPath).Str("dst", dstPath).Msg("Thumbnail rendered")
	return nil
}

// exifTags extracts the EXIF fields the response cares about as key=value
// tokens. Failure is expected for plenty of valid images (no EXIF block,
// format imagemeta does not read) and only logged.
func exifTags(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	exifData, err := imagemeta.Decode(f)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("No EXIF metadata decoded")
		return nil
	}

	var tags []string
	add := func(key, value string) {
		value = strings.TrimSpace(value)
		if value != "" {
			tags = append(tags, key+"="+singleToken(value))
		}
	}

	add("exif:Make", exifData.Make)
	add("exif:Model", exifData.Model)

	// Date fallback chain: original capture time beats file-level dates.
	if ts := exifData.DateTimeOriginal(); !ts.IsZero() {
		add("exif:DateTimeOriginal", ts.Format(time.RFC3339))
	} else if ts := exifData.CreateDate(); !ts.IsZero() {
		add("exif:CreateDate", ts.Format(time.RFC3339))
	}

	gps := exifData.GPS
	if gps.Latitude() != 0 || gps.Longitude() != 0 {
		add("exif:GPSLatitude", fmt.Sprintf("%f", gps.Latitude()))
		add("exif:GPSLongitude", fmt.Sprintf("%f", gps.Longitude()))
	}
	return tags
}

// singleToken keeps a tag value to one whitespace-free token so it survives
// the key=value text contract.
func singleToken(v string) string {
	return strings.Join(strings.Fields(v), "_")
}
