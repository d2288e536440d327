package preview

import (
	"context"

	"github.com/rs/zerolog/log"
)

// renderThumbnail renders the fixed-size thumbnail for src into dst via the
// configured tool, bounding the invocation with the tool timeout. Unlike
// metadata extraction, a render failure fails the whole request: without a
// thumbnail there is nothing worth returning.
func (p *Pipeline) renderThumbnail(ctx context.Context, srcPath, dstPath string) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ToolTimeout)
	defer cancel()

	if err := p.tool.Render(ctx, srcPath, dstPath, ThumbnailWidth, ThumbnailHeight); err != nil {
		log.Error().Err(err).Str("src", srcPath).Str("tool", p.tool.Name()).Msg("Thumbnail rendering failed")
		return newError(ErrTypeRender, "Failed to generate thumbnail", err)
	}
	return nil
}
