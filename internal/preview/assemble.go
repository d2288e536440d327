package preview

import (
	"encoding/base64"
	"fmt"
	"os"
)

// assemble builds the response payload: the thumbnail always inlined as a
// data URI, the original image only when its pixel count clears the inline
// gate, and the thumbnail size merged into the metadata record last.
func (p *Pipeline) assemble(thumbPath string, src *SourceFile, rec *Record) (*Result, error) {
	thumbBytes, err := os.ReadFile(thumbPath)
	if err != nil {
		return nil, newError(ErrTypeInternal, "Failed to read thumbnail", err)
	}

	result := &Result{
		ThumbnailURL: dataURI(thumbBytes),
		Metadata:     rec,
	}

	if p.shouldInlineOriginal(rec) {
		srcBytes, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, newError(ErrTypeInternal, "Failed to read source image", err)
		}
		result.OriginalImageURL = dataURI(srcBytes)
	}

	rec.Set(keyThumbnailSize, formatSize(ThumbnailWidth, ThumbnailHeight))
	return result, nil
}

// shouldInlineOriginal applies the pixel-count gate. Unknown dimensions fail
// the gate: when the size cannot be bounded, the original stays out of the
// response.
func (p *Pipeline) shouldInlineOriginal(rec *Record) bool {
	width, height, ok := rec.Dimensions()
	if !ok {
		return false
	}
	return int64(width)*int64(height) < p.cfg.MaxInlinePixels
}

// dataURI inlines JPEG bytes as a browser-ready data URI.
func dataURI(data []byte) string {
	return fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(data))
}
