// Package ingest decodes uploaded drawing files into rendered pages.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/heavyclick/autoballoon-sub001/internal/types"
)

// Accepted MIME types.
const (
	MimePDF  = "application/pdf"
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimeTIFF = "image/tiff"
)

// Sentinel errors for the ingestion boundary.
var (
	// ErrUnsupportedFormat is returned for MIME types outside the four
	// accepted kinds.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrCorruptFile is returned when decoding fails. Fatal to the whole
	// ingestion; there is no partial document.
	ErrCorruptFile = errors.New("corrupt file")
	// ErrSizeLimit is returned when the payload or the decoded output
	// exceeds the configured ceilings.
	ErrSizeLimit = errors.New("size limit exceeded")
)

// GlyphRun is a positioned run of text from a PDF's vector text layer,
// in page pixel coordinates at the render DPI.
type GlyphRun struct {
	Text     string     `json:"text"`
	BBox     types.Rect `json:"bbox"`
	FontSize float64    `json:"font_size"`
}

// Page is one rendered drawing page. ImagePath points at the PNG raster;
// VectorRuns is empty for image-only input.
type Page struct {
	Number     int        `json:"number"` // 1-indexed
	ImagePath  string     `json:"image_path"`
	Bounds     types.Rect `json:"bounds"` // raster bounds in pixels
	VectorRuns []GlyphRun `json:"-"`
}

// Document is the result of ingesting one uploaded file.
type Document struct {
	Pages []Page `json:"pages"`
}

// Config holds the ingestor's tunables.
type Config struct {
	// RenderDPI is the raster resolution. Chosen so the smallest expected
	// dimension callout text stays legible to OCR.
	RenderDPI int
	// MaxPages is the hard ceiling on decoded page count.
	MaxPages int
	// MaxPixels is the hard ceiling on decoded pixels per page.
	MaxPixels int
	// MaxBytes is the hard ceiling on the upload payload. Upstream size
	// validation belongs to the upload collaborator; this is the
	// ingestor's own defensive reject.
	MaxBytes int64
}

// Ingestor decodes uploaded files into rendered pages.
type Ingestor struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Ingestor. Zero config fields get conservative defaults.
func New(cfg Config, logger *slog.Logger) *Ingestor {
	if cfg.RenderDPI <= 0 {
		cfg.RenderDPI = 300
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 50
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = 64 << 20 // 64 megapixels
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 100 << 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{cfg: cfg, logger: logger}
}

// Ingest decodes fileBytes into rendered pages, writing page rasters as
// page_NNNN.png under outputDir. PDF input also carries a per-page vector
// text layer; raster input yields a single page with an empty layer.
func (ing *Ingestor) Ingest(ctx context.Context, fileBytes []byte, mimeType, outputDir string) (*Document, error) {
	if int64(len(fileBytes)) > ing.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: payload is %d bytes (max %d)", ErrSizeLimit, len(fileBytes), ing.cfg.MaxBytes)
	}
	if len(fileBytes) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrCorruptFile)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	switch mimeType {
	case MimePDF:
		return ing.ingestPDF(ctx, fileBytes, outputDir)
	case MimePNG, MimeJPEG, MimeTIFF:
		return ing.ingestRaster(ctx, fileBytes, mimeType, outputDir)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}
}

func pageImagePath(outputDir string, pageNum int) string {
	return filepath.Join(outputDir, fmt.Sprintf("page_%04d.png", pageNum))
}
