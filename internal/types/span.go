package types

// SpanSource indicates where an extraction span came from.
type SpanSource string

const (
	// SourceVector indicates the span was harvested from the embedded vector text layer.
	SourceVector SpanSource = "vector"
	// SourceOCR indicates the span was produced by optical character recognition.
	SourceOCR SpanSource = "ocr"
)

// ExtractionSpan is a located piece of text extracted from a drawing page.
// Spans are immutable once produced; duplicates are collapsed before
// dimension parsing.
type ExtractionSpan struct {
	Text       string     `json:"text"`
	BBox       Rect       `json:"bbox"`
	Confidence float64    `json:"confidence"` // 0..1
	Source     SpanSource `json:"source"`
	Page       int        `json:"page"` // 1-indexed
}
