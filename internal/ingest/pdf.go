package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ledongthuc/pdf"
	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/heavyclick/autoballoon-sub001/internal/types"
)

// ingestPDF validates the PDF, renders each page to PNG via pdftoppm and
// harvests the vector text layer.
func (ing *Ingestor) ingestPDF(ctx context.Context, fileBytes []byte, outputDir string) (*Document, error) {
	// pdftoppm and pdfcpu both work on paths; stage the payload once.
	tmpDir, err := os.MkdirTemp("", "autoballoon-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "upload.pdf")
	if err := os.WriteFile(pdfPath, fileBytes, 0o644); err != nil {
		return nil, fmt.Errorf("failed to stage pdf: %w", err)
	}

	if err := pdfcpu.ValidateFile(pdfPath, nil); err != nil {
		return nil, fmt.Errorf("%w: pdf validation failed: %v", ErrCorruptFile, err)
	}
	pageCount, err := pdfcpu.PageCountFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to count pages: %v", ErrCorruptFile, err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("%w: pdf has no pages", ErrCorruptFile)
	}
	if pageCount > ing.cfg.MaxPages {
		return nil, fmt.Errorf("%w: pdf has %d pages (max %d)", ErrSizeLimit, pageCount, ing.cfg.MaxPages)
	}

	// Vector layer harvest is best-effort: a PDF with a broken text layer
	// still renders, it just degrades that page to OCR downstream.
	runsByPage, vectorErr := ing.vectorTextLayer(fileBytes)
	if vectorErr != nil {
		ing.logger.Warn("vector text layer unavailable, pages will rely on OCR", "error", vectorErr)
	}

	doc := &Document{Pages: make([]Page, 0, pageCount)}
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outPath := pageImagePath(outputDir, pageNum)
		bounds, err := ing.renderPDFPage(ctx, pdfPath, pageNum, outPath)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to render page %d: %v", ErrCorruptFile, pageNum, err)
		}
		if int(bounds.W*bounds.H) > ing.cfg.MaxPixels {
			return nil, fmt.Errorf("%w: page %d decodes to %.0f pixels (max %d)",
				ErrSizeLimit, pageNum, bounds.W*bounds.H, ing.cfg.MaxPixels)
		}
		doc.Pages = append(doc.Pages, Page{
			Number:     pageNum,
			ImagePath:  outPath,
			Bounds:     bounds,
			VectorRuns: runsByPage[pageNum],
		})
	}
	return doc, nil
}

// renderPDFPage renders a single page with pdftoppm (poppler-utils) and
// returns the raster bounds.
func (ing *Ingestor) renderPDFPage(ctx context.Context, pdfPath string, pageNum int, outPath string) (types.Rect, error) {
	tmpDir, err := os.MkdirTemp("", "autoballoon-page-*")
	if err != nil {
		return types.Rect{}, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outputPrefix := filepath.Join(tmpDir, "page")
	pageStr := fmt.Sprintf("%d", pageNum)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", fmt.Sprintf("%d", ing.cfg.RenderDPI),
		"-singlefile",
		pdfPath,
		outputPrefix,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return types.Rect{}, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, output)
	}

	srcPath := outputPrefix + ".png"
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return types.Rect{}, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return types.Rect{}, fmt.Errorf("failed to write page image: %w", err)
	}
	return pngBounds(data)
}

// vectorTextLayer extracts positioned glyph runs per page, converted to
// pixel coordinates at the render DPI (top-left origin, matching the
// rendered raster).
func (ing *Ingestor) vectorTextLayer(fileBytes []byte) (map[int][]GlyphRun, error) {
	reader, err := pdf.NewReader(bytes.NewReader(fileBytes), int64(len(fileBytes)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf text layer: %w", err)
	}

	scale := float64(ing.cfg.RenderDPI) / 72.0
	runs := make(map[int][]GlyphRun)

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		pageHeight := mediaBoxHeight(page)

		content := page.Content()
		for _, item := range content.Text {
			if item.S == "" {
				continue
			}
			// PDF text coordinates have a bottom-left origin with Y at
			// the baseline; flip to the raster's top-left origin.
			h := item.FontSize
			if h <= 0 {
				h = 10
			}
			w := item.W
			if w <= 0 {
				w = h * 0.6 * float64(len(item.S))
			}
			runs[pageNum] = append(runs[pageNum], GlyphRun{
				Text: item.S,
				BBox: types.Rect{
					X: item.X * scale,
					Y: (pageHeight - item.Y - h) * scale,
					W: w * scale,
					H: h * scale,
				},
				FontSize: item.FontSize,
			})
		}
	}
	return runs, nil
}

// mediaBoxHeight reads the page height in PDF points, defaulting to US
// Letter when the MediaBox is missing or malformed.
func mediaBoxHeight(page pdf.Page) float64 {
	box := page.V.Key("MediaBox")
	if box.IsNull() || box.Kind() != pdf.Array || box.Len() != 4 {
		return 792
	}
	y0 := numericValue(box.Index(1))
	y1 := numericValue(box.Index(3))
	if y1 <= y0 {
		return 792
	}
	return y1 - y0
}

func numericValue(v pdf.Value) float64 {
	switch v.Kind() {
	case pdf.Integer:
		return float64(v.Int64())
	case pdf.Real:
		return v.Float64()
	default:
		return 0
	}
}
