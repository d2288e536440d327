package preview

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// dimensionsPattern anchors the inspect text contract: output must lead with
// <width>x<height> (ASCII x or the multiplication sign) to be trusted.
var dimensionsPattern = regexp.MustCompile(`^(\d+)[x×](\d+)\b`)

// extractMetadata inspects the source image and parses the tool output into
// a Record. Every failure mode degrades to the fallback record; metadata can
// never fail a request. This asymmetry with the renderer is deliberate.
func (p *Pipeline) extractMetadata(ctx context.Context, path string) *Record {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ToolTimeout)
	defer cancel()

	out, err := p.tool.Inspect(ctx, path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Str("tool", p.tool.Name()).
			Msg("Image inspection failed, using fallback metadata")
		return fallbackRecord()
	}

	rec, ok := parseInspectOutput(out)
	if !ok {
		log.Warn().Str("path", path).Str("tool", p.tool.Name()).
			Msg("Inspection output had no leading dimensions, using fallback metadata")
		return fallbackRecord()
	}
	return rec
}

// fallbackRecord is what callers get whenever inspection fails or its output
// cannot be parsed.
func fallbackRecord() *Record {
	rec := NewRecord()
	rec.Set(keyDimensions, "unknown")
	return rec
}

// parseInspectOutput parses the inspect text contract: a leading
// "<width>x<height>" token, then whitespace-separated key=value tags.
// Malformed tags are dropped silently; a missing or unusable dimensions
// token makes the whole parse untrusted (ok=false).
func parseInspectOutput(out string) (*Record, bool) {
	text := strings.TrimSpace(out)
	m := dimensionsPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}

	width, errW := strconv.Atoi(m[1])
	height, errH := strconv.Atoi(m[2])
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return nil, false
	}

	rec := NewRecord()
	rec.Set(keyOriginalWidth, strconv.Itoa(width))
	rec.Set(keyOriginalHeight, strconv.Itoa(height))
	rec.Set(keyOriginalSize, formatSize(width, height))
	rec.Set(keyAspectRatio, formatAspectRatio(width, height))

	for _, token := range strings.Fields(text[len(m[0]):]) {
		eq := strings.Index(token, "=")
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(token[:eq])
		value := strings.TrimSpace(token[eq+1:])
		if key == "" {
			continue
		}
		rec.SetTag(key, value)
	}
	return rec, true
}

// formatSize renders "W×H" with the multiplication sign used across the API.
func formatSize(width, height int) string {
	return fmt.Sprintf("%d×%d", width, height)
}

// formatAspectRatio renders width/height rounded to two decimals.
func formatAspectRatio(width, height int) string {
	ratio := math.Round(float64(width)/float64(height)*100) / 100
	return strconv.FormatFloat(ratio, 'f', 2, 64)
}
