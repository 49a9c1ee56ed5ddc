package ingest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"

	"golang.org/x/image/tiff"

	"github.com/heavyclick/autoballoon-sub001/internal/types"
)

// ingestRaster decodes a single-image upload into a one-page document
// with an empty vector layer.
func (ing *Ingestor) ingestRaster(ctx context.Context, fileBytes []byte, mimeType, outputDir string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := decodeRaster(fileBytes, mimeType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}

	b := img.Bounds()
	if b.Dx()*b.Dy() > ing.cfg.MaxPixels {
		return nil, fmt.Errorf("%w: image decodes to %d pixels (max %d)", ErrSizeLimit, b.Dx()*b.Dy(), ing.cfg.MaxPixels)
	}

	// Pages are stored as PNG regardless of upload format so downstream
	// consumers handle a single raster encoding.
	outPath := pageImagePath(outputDir, 1)
	f, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to write page image: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return nil, fmt.Errorf("failed to encode page image: %w", err)
	}

	return &Document{Pages: []Page{{
		Number:    1,
		ImagePath: outPath,
		Bounds:    types.Rect{W: float64(b.Dx()), H: float64(b.Dy())},
	}}}, nil
}

func decodeRaster(fileBytes []byte, mimeType string) (image.Image, error) {
	r := bytes.NewReader(fileBytes)
	switch mimeType {
	case MimePNG:
		return png.Decode(r)
	case MimeJPEG:
		return jpeg.Decode(r)
	case MimeTIFF:
		return tiff.Decode(r)
	default:
		return nil, fmt.Errorf("no decoder for %s", mimeType)
	}
}

// pngBounds reads the dimensions of an encoded PNG without a full decode.
func pngBounds(data []byte) (types.Rect, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return types.Rect{}, fmt.Errorf("failed to read png header: %w", err)
	}
	return types.Rect{W: float64(cfg.Width), H: float64(cfg.Height)}, nil
}
