package dimension

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/heavyclick/autoballoon-sub001/internal/providers"
	"github.com/heavyclick/autoballoon-sub001/internal/tolerance"
	"github.com/heavyclick/autoballoon-sub001/internal/types"
)

// ParserConfig holds the parser's tunables.
type ParserConfig struct {
	// DefaultUnits is assumed when a callout does not name its units.
	DefaultUnits string
	// Classifier names the LLM provider used for ambiguous spans. Empty
	// disables the fallback; ambiguous spans become Notes.
	Classifier string
}

// Parser classifies extraction spans into Dimension records.
type Parser struct {
	cfg        ParserConfig
	classifier providers.LLMClient
	logger     *slog.Logger
}

// NewParser creates a Parser. classifier may be nil.
func NewParser(cfg ParserConfig, classifier providers.LLMClient, logger *slog.Logger) *Parser {
	if cfg.DefaultUnits == "" {
		cfg.DefaultUnits = "in"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{cfg: cfg, classifier: classifier, logger: logger}
}

// Parsed is the outcome for one span: the dimension plus the region it
// occupies on its page.
type Parsed struct {
	Dimension *Dimension
	BBox      types.Rect
	Page      int
}

// ParseSpans converts spans into dimensions, assigning balloon numbers
// from nextID in span order. Spans must already be in reading order;
// since ids are handed out sequentially over that ordering, numbering is
// stable and reproducible across re-runs.
func (p *Parser) ParseSpans(ctx context.Context, spans []types.ExtractionSpan, nextID func() int) []Parsed {
	out := make([]Parsed, 0, len(spans))
	for _, span := range spans {
		text := strings.TrimSpace(span.Text)
		if text == "" {
			continue
		}
		dim := p.parseSpan(ctx, span)
		dim.ID = nextID()
		out = append(out, Parsed{Dimension: dim, BBox: span.BBox, Page: span.Page})
	}
	return out
}

func (p *Parser) parseSpan(ctx context.Context, span types.ExtractionSpan) *Dimension {
	text := strings.TrimSpace(span.Text)

	subtype, confidence, certain := classifySubtype(text)
	if !certain && p.classifier != nil {
		if st, conf, err := p.classifyLLM(ctx, text); err == nil {
			subtype, confidence = st, conf
		} else {
			p.logger.Warn("classifier unavailable for ambiguous span", "text", text, "error", err)
		}
	}

	value, spec := parseTolerance(text)
	spec.Subtype = subtype
	spec.FullSpecification = text
	spec.Units = detectUnits(text, p.cfg.DefaultUnits)
	spec.InspectionMethod = defaultInspectionMethod(subtype)

	return &Dimension{
		Value:      value,
		Parsed:     spec,
		Confidence: confidence * span.Confidence,
	}
}

// GD&T frame and modifier symbols.
const gdtSymbols = "⌖◎⌭⌒⌓⊥∥⌯↗⏤⏥⌰Ⓜ"

var (
	radiusRe  = regexp.MustCompile(`^S?R\s*[0-9.]`)
	chamferRe = regexp.MustCompile(`(?i)^([0-9.]+)\s*[X×]\s*([0-9.]+)\s*°|CHAM`)
	angleRe   = regexp.MustCompile(`[0-9]\s*(°|DEG)`)
	finishRe  = regexp.MustCompile(`(?i)\b(Ra|Rz|RMS)\b|∇`)
	numericRe = regexp.MustCompile(`^[⌀Ø(\[]?\s*[0-9.]`)
)

// classifySubtype applies symbol and pattern recognition. The third
// return is false when the rule set could not decide and a statistical
// classifier should weigh in.
func classifySubtype(text string) (Subtype, float64, bool) {
	upper := strings.ToUpper(text)

	switch {
	case strings.ContainsAny(text, gdtSymbols) || strings.HasPrefix(text, "|"):
		return SubtypeGDT, 0.95, true
	case strings.ContainsAny(text, "⌀Ø") || strings.Contains(upper, "DIA"):
		return SubtypeDiameter, 0.95, true
	case radiusRe.MatchString(upper) || strings.Contains(upper, "RAD"):
		return SubtypeRadius, 0.9, true
	case chamferRe.MatchString(upper):
		return SubtypeChamfer, 0.9, true
	case angleRe.MatchString(upper):
		return SubtypeAngle, 0.9, true
	case finishRe.MatchString(text):
		return SubtypeSurfaceFinish, 0.9, true
	case strings.Contains(upper, "WELD"):
		return SubtypeWeld, 0.9, true
	case strings.HasPrefix(upper, "NOTE") || looksLikeProse(text):
		return SubtypeNote, 0.85, true
	case numericRe.MatchString(text):
		return SubtypeLinear, 0.8, true
	default:
		return SubtypeNote, 0.5, false
	}
}

// looksLikeProse reports whether text reads as a sentence rather than a
// dimension callout.
func looksLikeProse(text string) bool {
	letters, digits := 0, 0
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			letters++
		case r >= '0' && r <= '9':
			digits++
		}
	}
	return letters > 12 && letters > digits*3
}

var (
	plusMinusRe = regexp.MustCompile(`^(.*?)\s*(?:±|\+/-)\s*([0-9]*\.?[0-9]+)$`)
	asymRe      = regexp.MustCompile(`^(.*?)\s*\+\s*([0-9]*\.?[0-9]+)\s*/\s*[-−]\s*([0-9]*\.?[0-9]+)$`)
	limitPairRe = regexp.MustCompile(`^([0-9]*\.?[0-9]+)\s*[/\n]\s*([0-9]*\.?[0-9]+)$`)
	fitRe       = regexp.MustCompile(`^[⌀Ø]?\s*([0-9]*\.?[0-9]+)\s*([A-Z]{1,2}[0-9]{1,2})?\s*/?\s*([a-z]{1,2}[0-9]{1,2})?$`)
	maxMinRe    = regexp.MustCompile(`(?i)^(.*?)\s+(MAX|MIN)\.?$`)
	basicRe     = regexp.MustCompile(`^\[(.+)\]$|^<(.+)>$`)
)

// parseTolerance recognizes the five tolerance notations and returns the
// nominal value text plus the populated spec fields. Unrecognized syntax
// defaults to bilateral with both tolerances unset: an explicit unknown
// state, never inferred as zero.
func parseTolerance(text string) (string, ParsedSpec) {
	var spec ParsedSpec

	if m := basicRe.FindStringSubmatch(text); m != nil {
		nominal := m[1]
		if nominal == "" {
			nominal = m[2]
		}
		spec.ToleranceType = tolerance.TypeBasic
		return strings.TrimSpace(nominal), spec
	}

	if m := asymRe.FindStringSubmatch(text); m != nil {
		plus, errP := strconv.ParseFloat(m[2], 64)
		minus, errM := strconv.ParseFloat(m[3], 64)
		if errP == nil && errM == nil {
			spec.ToleranceType = tolerance.TypeBilateral
			spec.PlusTolerance = &plus
			spec.MinusTolerance = &minus
			return strings.TrimSpace(m[1]), spec
		}
	}

	if m := plusMinusRe.FindStringSubmatch(text); m != nil {
		if tol, err := strconv.ParseFloat(m[2], 64); err == nil {
			spec.ToleranceType = tolerance.TypeBilateral
			spec.PlusTolerance = &tol
			minus := tol
			spec.MinusTolerance = &minus
			return strings.TrimSpace(m[1]), spec
		}
	}

	if m := maxMinRe.FindStringSubmatch(text); m != nil {
		if strings.EqualFold(m[2], "MAX") {
			spec.ToleranceType = tolerance.TypeMax
		} else {
			spec.ToleranceType = tolerance.TypeMin
		}
		return strings.TrimSpace(m[1]), spec
	}

	if m := limitPairRe.FindStringSubmatch(text); m != nil {
		high, errH := strconv.ParseFloat(m[1], 64)
		low, errL := strconv.ParseFloat(m[2], 64)
		if errH == nil && errL == nil {
			spec.ToleranceType = tolerance.TypeLimit
			spec.MaxLimit = &high
			spec.MinLimit = &low
			// Nominal for a limit pair is conventionally the high value.
			return m[1], spec
		}
	}

	if m := fitRe.FindStringSubmatch(text); m != nil && (m[2] != "" || m[3] != "") {
		spec.ToleranceType = tolerance.TypeFit
		spec.HoleFitClass = m[2]
		spec.ShaftFitClass = m[3]
		return m[1], spec
	}

	spec.ToleranceType = tolerance.TypeBilateral
	return text, spec
}

func detectUnits(text, fallback string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "mm"):
		return "mm"
	case strings.Contains(lower, "in") && !strings.Contains(lower, "min"):
		return "in"
	case strings.Contains(text, "°"):
		return "deg"
	default:
		return fallback
	}
}

func defaultInspectionMethod(subtype Subtype) string {
	switch subtype {
	case SubtypeLinear, SubtypeDiameter, SubtypeRadius, SubtypeChamfer:
		return "Caliper"
	case SubtypeAngle:
		return "Protractor"
	case SubtypeGDT:
		return "CMM"
	case SubtypeSurfaceFinish:
		return "Profilometer"
	default:
		return "Visual"
	}
}

var classifySchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "subtype": {
      "type": "string",
      "enum": ["Linear", "Diameter", "Radius", "Angle", "Chamfer", "Note", "Weld", "Surface Finish", "GD&T"]
    },
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  },
  "required": ["subtype", "confidence"],
  "additionalProperties": false
}`)

// classifyLLM asks the statistical classifier to type an ambiguous span.
func (p *Parser) classifyLLM(ctx context.Context, text string) (Subtype, float64, error) {
	result, err := p.classifier.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: "You classify engineering drawing callouts into dimension subtypes. Respond with the subtype and your confidence."},
			{Role: "user", Content: fmt.Sprintf("Callout text: %q", text)},
		},
		Temperature:    0,
		ResponseFormat: &providers.ResponseFormat{Name: "dimension_subtype", JSONSchema: classifySchema},
	})
	if err != nil {
		return "", 0, err
	}

	var payload struct {
		Subtype    Subtype `json:"subtype"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal(result.ParsedJSON, &payload); err != nil {
		return "", 0, fmt.Errorf("failed to decode classifier output: %w", err)
	}
	return payload.Subtype, payload.Confidence, nil
}
