package drawing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heavyclick/autoballoon-sub001/internal/dimension"
	"github.com/heavyclick/autoballoon-sub001/internal/extract"
	"github.com/heavyclick/autoballoon-sub001/internal/ingest"
	"github.com/heavyclick/autoballoon-sub001/internal/tolerance"
)

// Processor runs the ingest → extract → parse pipeline for a drawing and
// populates its store and spatial index.
type Processor struct {
	Ingestor *ingest.Ingestor
	Pipeline *extract.Pipeline
	Parser   *dimension.Parser
	Logger   *slog.Logger
}

// Process ingests the payload, extracts spans per page and turns them
// into ballooned Dimension records. Document-fatal errors (unsupported
// format, corrupt file, size ceiling) return immediately; page-scoped
// degradation is folded into the drawing's summary instead.
func (p *Processor) Process(ctx context.Context, d *Drawing, fileBytes []byte, pagesDir string) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d.SetStatus(StatusExtracting, "")

	doc, err := p.Ingestor.Ingest(ctx, fileBytes, d.MimeType, pagesDir)
	if err != nil {
		d.SetStatus(StatusFailed, err.Error())
		return fmt.Errorf("ingest failed: %w", err)
	}

	pages := make([]PageInfo, 0, len(doc.Pages))
	for _, pg := range doc.Pages {
		pages = append(pages, PageInfo{Number: pg.Number, ImagePath: pg.ImagePath, Bounds: pg.Bounds})
	}
	d.SetPages(pages)

	result, err := p.Pipeline.ExtractDocument(ctx, doc)
	if err != nil {
		d.SetStatus(StatusFailed, err.Error())
		return fmt.Errorf("extraction failed: %w", err)
	}

	// Parsing runs sequentially over pages in page order so balloon
	// numbers are reproducible across re-runs.
	var summary Summary
	summary.DegradedPages = result.Degraded
	for _, pageResult := range result.Pages {
		summary.Spans += len(pageResult.Spans)
		parsed := p.Parser.ParseSpans(ctx, pageResult.Spans, d.Dimensions.NextID)
		for _, item := range parsed {
			resolveInitialLimits(item.Dimension)
			if err := d.Dimensions.Put(item.Dimension); err != nil {
				logger.Warn("failed to store dimension", "error", err)
				continue
			}
			d.Index.Put(item.Dimension.ID, item.Page, item.BBox)
			summary.Dimensions++
		}
	}

	d.SetSummary(summary)
	d.SetStatus(StatusReady, "")
	logger.Info("drawing processed",
		"drawing", d.ID,
		"pages", len(pages),
		"spans", summary.Spans,
		"dimensions", summary.Dimensions,
		"degraded_pages", len(summary.DegradedPages),
	)
	return nil
}

// resolveInitialLimits computes limits for a freshly parsed dimension.
// Failures are field-scoped: the dimension is flagged and kept with its
// limits undefined.
func resolveInitialLimits(dim *dimension.Dimension) {
	dim.ClearIssues(dimension.IssueTolerance)
	nominal, err := dim.Nominal()
	if err != nil {
		if dim.Parsed.Subtype != dimension.SubtypeNote && dim.Parsed.Subtype != dimension.SubtypeWeld {
			dim.Flag(dimension.IssueTolerance, err.Error())
		}
		return
	}
	tol, err := dim.Parsed.Tolerance()
	if err != nil {
		dim.Flag(dimension.IssueTolerance, err.Error())
		return
	}
	limits, err := tolerance.Resolve(nominal, tol)
	if err != nil {
		dim.Flag(dimension.IssueTolerance, err.Error())
		return
	}
	dim.Parsed.MaxLimit = limits.Max
	dim.Parsed.MinLimit = limits.Min
	if limits.Warning != "" {
		dim.Flag(dimension.IssueTolerance, limits.Warning)
	}
}
