// Package extract turns rendered drawing pages into ordered extraction
// spans. Vector text is harvested first; pages with thin vector coverage
// fall back to OCR. The two sources are never merged for one page.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/heavyclick/autoballoon-sub001/internal/ingest"
	"github.com/heavyclick/autoballoon-sub001/internal/providers"
	"github.com/heavyclick/autoballoon-sub001/internal/types"
)

// Config holds the pipeline's tunables.
type Config struct {
	// CoverageThreshold is the minimum fraction of page area the vector
	// spans must cover before the page is trusted to the vector layer.
	CoverageThreshold float64
	// IoUThreshold collapses overlapping spans onto the higher-confidence
	// one.
	IoUThreshold float64
	// OCRTimeout bounds a single page's OCR call. A timed-out page
	// degrades to empty spans instead of stalling the document.
	OCRTimeout time.Duration
	// Workers bounds the per-page fan-out.
	Workers int
}

// Pipeline extracts spans from ingested pages.
type Pipeline struct {
	cfg    Config
	ocr    providers.OCRProvider
	limit  *providers.RateLimiter
	logger *slog.Logger
}

// New creates a Pipeline. The OCR provider may be nil, in which case
// pages below the coverage threshold degrade to empty spans.
func New(cfg Config, ocr providers.OCRProvider, limiter *providers.RateLimiter, logger *slog.Logger) *Pipeline {
	if cfg.CoverageThreshold <= 0 {
		cfg.CoverageThreshold = 0.02
	}
	if cfg.IoUThreshold <= 0 {
		cfg.IoUThreshold = 0.5
	}
	if cfg.OCRTimeout <= 0 {
		cfg.OCRTimeout = 2 * time.Minute
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, ocr: ocr, limit: limiter, logger: logger}
}

// PageResult is the extraction outcome for one page.
type PageResult struct {
	Page           int                    `json:"page"`
	Spans          []types.ExtractionSpan `json:"spans"`
	Source         types.SpanSource       `json:"source"`
	VectorCoverage float64                `json:"vector_coverage"`
	// Degraded is set when the page produced no usable spans because OCR
	// failed or timed out. The page stays in the result set.
	Degraded bool   `json:"degraded"`
	Reason   string `json:"reason,omitempty"`
}

// Result is the document-level extraction outcome: a best-effort span
// set per page plus the list of degraded pages. Page-scoped failures are
// collected here, never thrown past the pipeline boundary.
type Result struct {
	Pages    []PageResult `json:"pages"`
	Degraded []int        `json:"degraded,omitempty"`
}

// ExtractDocument runs extraction over every page concurrently. Pages
// share no mutable state; results are reassembled in page order so span
// ordering, and therefore dimension numbering, is reproducible across
// runs.
func (p *Pipeline) ExtractDocument(ctx context.Context, doc *ingest.Document) (*Result, error) {
	results := make([]PageResult, len(doc.Pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, page := range doc.Pages {
		g.Go(func() error {
			results[i] = p.ExtractPage(gctx, page)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Pages: results}
	for _, pr := range results {
		if pr.Degraded {
			res.Degraded = append(res.Degraded, pr.Page)
		}
	}
	return res, nil
}

// ExtractPage extracts spans from a single page. The vector/OCR decision
// is exclusive per page: coordinate systems and duplicate detections
// between the two sources are never reconciled span by span.
func (p *Pipeline) ExtractPage(ctx context.Context, page ingest.Page) PageResult {
	vector := harvestVector(page)
	coverage := spanCoverage(vector, page.Bounds)

	if len(vector) > 0 && coverage >= p.cfg.CoverageThreshold {
		spans := sortReadingOrder(dedupe(vector, p.cfg.IoUThreshold))
		return PageResult{
			Page:           page.Number,
			Spans:          spans,
			Source:         types.SourceVector,
			VectorCoverage: coverage,
		}
	}

	spans, err := p.runOCR(ctx, page)
	if err != nil {
		p.logger.Warn("page degraded to empty span set", "page", page.Number, "error", err)
		return PageResult{
			Page:           page.Number,
			Spans:          []types.ExtractionSpan{},
			Source:         types.SourceOCR,
			VectorCoverage: coverage,
			Degraded:       true,
			Reason:         err.Error(),
		}
	}
	return PageResult{
		Page:           page.Number,
		Spans:          sortReadingOrder(dedupe(spans, p.cfg.IoUThreshold)),
		Source:         types.SourceOCR,
		VectorCoverage: coverage,
	}
}

// runOCR invokes the OCR provider under the page timeout and converts
// the provider's normalized boxes into page pixel coordinates.
func (p *Pipeline) runOCR(ctx context.Context, page ingest.Page) ([]types.ExtractionSpan, error) {
	if p.ocr == nil {
		return nil, fmt.Errorf("no ocr provider configured")
	}

	imageData, err := os.ReadFile(page.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read page raster: %w", err)
	}

	octx, cancel := context.WithTimeout(ctx, p.cfg.OCRTimeout)
	defer cancel()

	if p.limit != nil {
		if err := p.limit.Wait(octx); err != nil {
			return nil, fmt.Errorf("ocr rate limit wait: %w", err)
		}
	}

	result, err := p.callWithRetry(octx, imageData, page.Number)
	if err != nil {
		return nil, err
	}

	spans := make([]types.ExtractionSpan, 0, len(result.Spans))
	for _, s := range result.Spans {
		spans = append(spans, types.ExtractionSpan{
			Text: s.Text,
			BBox: types.Rect{
				X: s.BBox.X * page.Bounds.W,
				Y: s.BBox.Y * page.Bounds.H,
				W: s.BBox.W * page.Bounds.W,
				H: s.BBox.H * page.Bounds.H,
			},
			Confidence: s.Confidence,
			Source:     types.SourceOCR,
			Page:       page.Number,
		})
	}
	return spans, nil
}

// spanCoverage returns the fraction of page area covered by span boxes.
// Overlap between spans is rare enough on drawings that summing areas is
// an acceptable approximation.
func spanCoverage(spans []types.ExtractionSpan, bounds types.Rect) float64 {
	pageArea := bounds.Area()
	if pageArea == 0 {
		return 0
	}
	var covered float64
	for _, s := range spans {
		covered += s.BBox.Area()
	}
	frac := covered / pageArea
	if frac > 1 {
		frac = 1
	}
	return frac
}

// dedupe collapses overlapping spans onto the higher-confidence one.
func dedupe(spans []types.ExtractionSpan, iouThreshold float64) []types.ExtractionSpan {
	if len(spans) < 2 {
		return spans
	}
	// Highest confidence first so survivors absorb their duplicates.
	ordered := make([]types.ExtractionSpan, len(spans))
	copy(ordered, spans)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Confidence > ordered[j].Confidence
	})

	kept := make([]types.ExtractionSpan, 0, len(ordered))
	for _, s := range ordered {
		dup := false
		for _, k := range kept {
			if s.BBox.IoU(k.BBox) > iouThreshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, s)
		}
	}
	return kept
}
