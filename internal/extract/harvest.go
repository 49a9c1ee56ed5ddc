package extract

import (
	"context"
	"sort"
	"strings"

	"github.com/avast/retry-go/v4"

	"github.com/heavyclick/autoballoon-sub001/internal/ingest"
	"github.com/heavyclick/autoballoon-sub001/internal/providers"
	"github.com/heavyclick/autoballoon-sub001/internal/types"
)

// harvestVector groups a page's glyph runs into spans. Runs sharing a
// baseline are merged when the horizontal gap between them is small
// relative to the glyph height, so "1.000 ±.005" stays one span while
// callouts in different views stay apart.
func harvestVector(page ingest.Page) []types.ExtractionSpan {
	runs := page.VectorRuns
	if len(runs) == 0 {
		return nil
	}

	ordered := make([]ingest.GlyphRun, len(runs))
	copy(ordered, runs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].BBox.Y != ordered[j].BBox.Y {
			return ordered[i].BBox.Y < ordered[j].BBox.Y
		}
		return ordered[i].BBox.X < ordered[j].BBox.X
	})

	var spans []types.ExtractionSpan
	var cur []ingest.GlyphRun
	flush := func() {
		if len(cur) == 0 {
			return
		}
		spans = append(spans, mergeRuns(cur, page.Number))
		cur = nil
	}

	for _, run := range ordered {
		if strings.TrimSpace(run.Text) == "" {
			continue
		}
		if len(cur) == 0 {
			cur = append(cur, run)
			continue
		}
		last := cur[len(cur)-1]
		if sameBaseline(last.BBox, run.BBox) && horizontalGap(last.BBox, run.BBox) <= maxGap(last.BBox, run.BBox) {
			cur = append(cur, run)
			continue
		}
		flush()
		cur = append(cur, run)
	}
	flush()
	return spans
}

// sameBaseline reports whether two boxes sit on the same text row.
func sameBaseline(a, b types.Rect) bool {
	tol := max(a.H, b.H) / 2
	centerA := a.Y + a.H/2
	centerB := b.Y + b.H/2
	return centerA-centerB <= tol && centerB-centerA <= tol
}

func horizontalGap(a, b types.Rect) float64 {
	if b.X >= a.X+a.W {
		return b.X - (a.X + a.W)
	}
	if a.X >= b.X+b.W {
		return a.X - (b.X + b.W)
	}
	return 0
}

func maxGap(a, b types.Rect) float64 {
	h := max(a.H, b.H)
	if h <= 0 {
		return 8
	}
	return h * 1.5
}

func mergeRuns(runs []ingest.GlyphRun, pageNum int) types.ExtractionSpan {
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].BBox.X < runs[j].BBox.X })

	var sb strings.Builder
	bbox := runs[0].BBox
	for i, r := range runs {
		if i > 0 {
			if horizontalGap(runs[i-1].BBox, r.BBox) > r.BBox.H*0.3 {
				sb.WriteByte(' ')
			}
			bbox = bbox.Union(r.BBox)
		}
		sb.WriteString(r.Text)
	}

	return types.ExtractionSpan{
		Text:       strings.TrimSpace(sb.String()),
		BBox:       bbox,
		Confidence: 1.0, // vector text is exact
		Source:     types.SourceVector,
		Page:       pageNum,
	}
}

// sortReadingOrder orders spans top-to-bottom in row bands, then
// left-to-right within a band. This ordering governs default dimension
// numbering.
func sortReadingOrder(spans []types.ExtractionSpan) []types.ExtractionSpan {
	if len(spans) < 2 {
		return spans
	}
	ordered := make([]types.ExtractionSpan, len(spans))
	copy(ordered, spans)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !sameBaseline(a.BBox, b.BBox) {
			return a.BBox.Y+a.BBox.H/2 < b.BBox.Y+b.BBox.H/2
		}
		return a.BBox.X < b.BBox.X
	})
	return ordered
}

// callWithRetry issues the OCR request with bounded exponential backoff.
// Only whole-request failures are retried; a degraded-but-successful
// response is never reissued.
func (p *Pipeline) callWithRetry(ctx context.Context, image []byte, pageNum int) (*providers.OCRResult, error) {
	var result *providers.OCRResult
	err := retry.Do(
		func() error {
			r, err := p.ocr.ProcessImage(ctx, image, pageNum)
			if err != nil {
				return err
			}
			result = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(p.ocr.MaxRetries())),
		retry.Delay(p.ocr.RetryDelayBase()),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}
