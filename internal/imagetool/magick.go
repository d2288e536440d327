package imagetool

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Magick is the external tool provider. It shells out to ImageMagick:
// identify for inspection and convert for rendering. Both run under the
// caller's context, so a hung tool cannot stall a request past its deadline.
type Magick struct{}

// identifyFormat makes identify print the leading dimensions token, a few
// key=value pairs, and the full EXIF property dump (one exif:Tag=value per
// line).
const identifyFormat = "%wx%h format=%m colorspace=%[colorspace]\n%[EXIF:*]"

// Name implements Processor.
func (m *Magick) Name() string { return "magick" }

// CheckAvailable reports whether the ImageMagick binaries this provider needs
// are on PATH. Called at startup so a misconfigured host fails loudly instead
// of degrading every request.
func (m *Magick) CheckAvailable() error {
	for _, bin := range []string{"identify", "convert"} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s not found in PATH: the magick image tool requires ImageMagick", bin)
		}
	}
	return nil
}

// Inspect implements Processor using identify.
func (m *Magick) Inspect(ctx context.Context, path string) (string, error) {
	bin, err := exec.LookPath("identify")
	if err != nil {
		return "", fmt.Errorf("identify not found: image inspection requires ImageMagick")
	}

	cmd := exec.CommandContext(ctx, bin, buildIdentifyArgs(path)...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("identify %s: %w", path, err)
	}

	log.Debug().Str("path", path).Int("output_size", len(out)).Msg("Image inspected")
	return string(out), nil
}

// Render implements Processor using convert.
func (m *Magick) Render(ctx context.Context, srcPath, dstPath string, width, height int) error {
	bin, err := exec.LookPath("convert")
	if err != nil {
		return fmt.Errorf("convert not found: thumbnail rendering requires ImageMagick")
	}

	args := buildConvertArgs(srcPath, dstPath, width, height)
	log.Debug().Strs("args", args).Msg("Rendering thumbnail with convert")

	cmd := exec.CommandContext(ctx, bin, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("convert failed: %w: %s", err, string(output))
	}
	return nil
}

// buildIdentifyArgs builds the identify argument list for one file.
func buildIdentifyArgs(path string) []string {
	return []string{"-format", identifyFormat, firstFrame(path)}
}

// buildConvertArgs builds the convert argument list: scale the source to
// cover the target box, center-crop the overflow, flatten transparency onto
// white, and force JPEG output regardless of the destination extension.
func buildConvertArgs(srcPath, dstPath string, width, height int) []string {
	size := fmt.Sprintf("%dx%d", width, height)
	return []string{
		firstFrame(srcPath),
		"-auto-orient",
		"-thumbnail", size + "^",
		"-gravity", "center",
		"-background", "white",
		"-extent", size,
		"-alpha", "remove",
		"-alpha", "off",
		"-quality", strconv.Itoa(jpegQuality),
		"jpg:" + dstPath,
	}
}

// firstFrame pins multi-frame inputs (animated GIF, multi-page TIFF) to frame
// zero; for single-frame images the suffix is a no-op.
func firstFrame(path string) string {
	return path + "[0]"
}
