package dimension

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/heavyclick/autoballoon-sub001/internal/providers"
	"github.com/heavyclick/autoballoon-sub001/internal/tolerance"
	"github.com/heavyclick/autoballoon-sub001/internal/types"
)

func TestParseTolerance(t *testing.T) {
	fv := func(p *float64) float64 {
		if p == nil {
			t.Fatal("expected a value, got nil")
		}
		return *p
	}

	t.Run("symmetric bilateral", func(t *testing.T) {
		value, spec := parseTolerance("1.2500 ±.0005")
		if value != "1.2500" || spec.ToleranceType != tolerance.TypeBilateral {
			t.Fatalf("value = %q, type = %q", value, spec.ToleranceType)
		}
		if fv(spec.PlusTolerance) != 0.0005 || fv(spec.MinusTolerance) != 0.0005 {
			t.Errorf("tolerances = %v/%v, want 0.0005 both sides", *spec.PlusTolerance, *spec.MinusTolerance)
		}
	})

	t.Run("asymmetric bilateral", func(t *testing.T) {
		value, spec := parseTolerance("2.000 +.002/-.001")
		if value != "2.000" || spec.ToleranceType != tolerance.TypeBilateral {
			t.Fatalf("value = %q, type = %q", value, spec.ToleranceType)
		}
		if fv(spec.PlusTolerance) != 0.002 || fv(spec.MinusTolerance) != 0.001 {
			t.Errorf("tolerances = %v/%v, want +0.002/-0.001", *spec.PlusTolerance, *spec.MinusTolerance)
		}
	})

	t.Run("limit pair", func(t *testing.T) {
		value, spec := parseTolerance("1.505/1.495")
		if spec.ToleranceType != tolerance.TypeLimit {
			t.Fatalf("type = %q, want limit", spec.ToleranceType)
		}
		if value != "1.505" {
			t.Errorf("value = %q, want the high limit", value)
		}
		if fv(spec.MaxLimit) != 1.505 || fv(spec.MinLimit) != 1.495 {
			t.Errorf("limits = %v/%v", *spec.MaxLimit, *spec.MinLimit)
		}
	})

	t.Run("fit callout", func(t *testing.T) {
		value, spec := parseTolerance("⌀25 H7/g6")
		if spec.ToleranceType != tolerance.TypeFit {
			t.Fatalf("type = %q, want fit", spec.ToleranceType)
		}
		if value != "25" || spec.HoleFitClass != "H7" || spec.ShaftFitClass != "g6" {
			t.Errorf("value = %q, hole = %q, shaft = %q", value, spec.HoleFitClass, spec.ShaftFitClass)
		}
	})

	t.Run("hole fit only", func(t *testing.T) {
		_, spec := parseTolerance("25H7")
		if spec.ToleranceType != tolerance.TypeFit || spec.HoleFitClass != "H7" || spec.ShaftFitClass != "" {
			t.Errorf("spec = %+v, want hole-only fit", spec)
		}
	})

	t.Run("max and min", func(t *testing.T) {
		value, spec := parseTolerance(".500 MAX")
		if value != ".500" || spec.ToleranceType != tolerance.TypeMax {
			t.Errorf("value = %q, type = %q", value, spec.ToleranceType)
		}
		_, spec = parseTolerance("R.03 MIN")
		if spec.ToleranceType != tolerance.TypeMin {
			t.Errorf("type = %q, want min", spec.ToleranceType)
		}
	})

	t.Run("basic", func(t *testing.T) {
		value, spec := parseTolerance("[1.750]")
		if value != "1.750" || spec.ToleranceType != tolerance.TypeBasic {
			t.Errorf("value = %q, type = %q", value, spec.ToleranceType)
		}
		value, spec = parseTolerance("<2.500>")
		if value != "2.500" || spec.ToleranceType != tolerance.TypeBasic {
			t.Errorf("value = %q, type = %q", value, spec.ToleranceType)
		}
	})

	t.Run("unrecognized defaults to unset bilateral", func(t *testing.T) {
		value, spec := parseTolerance("MOUNTING SURFACE")
		if value != "MOUNTING SURFACE" {
			t.Errorf("value = %q, want the full text", value)
		}
		if spec.ToleranceType != tolerance.TypeBilateral {
			t.Errorf("type = %q, want bilateral", spec.ToleranceType)
		}
		if spec.PlusTolerance != nil || spec.MinusTolerance != nil {
			t.Error("tolerances set for unrecognized syntax, want explicit unknown")
		}
	})
}

func TestClassifySubtype(t *testing.T) {
	cases := []struct {
		text    string
		want    Subtype
		certain bool
	}{
		{"⌀.500 +.002/-.001", SubtypeDiameter, true},
		{"2X DIA .250", SubtypeDiameter, true},
		{"R.125", SubtypeRadius, true},
		{"SR.500", SubtypeRadius, true},
		{"⌖ ⌀.010 A B", SubtypeGDT, true},
		{"⊥ .005 A", SubtypeGDT, true},
		{"45° ±1°", SubtypeAngle, true},
		{".06 X 45°", SubtypeChamfer, true},
		{"Ra 32", SubtypeSurfaceFinish, true},
		{"WELD ALL AROUND", SubtypeWeld, true},
		{"NOTE: DEBURR ALL EDGES", SubtypeNote, true},
		{"REMOVE ALL BURRS AND SHARP EDGES", SubtypeNote, true},
		{"1.000 ±.005", SubtypeLinear, true},
		{"ABC-123", SubtypeNote, false},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got, conf, certain := classifySubtype(tc.text)
			if got != tc.want {
				t.Errorf("subtype = %q, want %q", got, tc.want)
			}
			if certain != tc.certain {
				t.Errorf("certain = %v, want %v", certain, tc.certain)
			}
			if conf <= 0 || conf > 1 {
				t.Errorf("confidence = %v out of range", conf)
			}
		})
	}
}

func TestDetectUnits(t *testing.T) {
	cases := []struct {
		text, fallback, want string
	}{
		{"25 mm ±0.1", "in", "mm"},
		{"1.00 in", "mm", "in"},
		{"45°", "in", "deg"},
		{"1.5 MIN", "in", "in"}, // MIN must not read as inches
		{".500 MAX", "mm", "mm"},
	}
	for _, tc := range cases {
		if got := detectUnits(tc.text, tc.fallback); got != tc.want {
			t.Errorf("detectUnits(%q, %q) = %q, want %q", tc.text, tc.fallback, got, tc.want)
		}
	}
}

func TestParseSpans(t *testing.T) {
	p := NewParser(ParserConfig{}, nil, nil)
	store := NewStore()

	spans := []types.ExtractionSpan{
		{Text: "1.2500 ±.0005", BBox: types.Rect{X: 100, Y: 100, W: 80, H: 20}, Confidence: 1.0, Page: 1},
		{Text: "   ", Page: 1},
		{Text: "⌀.500", BBox: types.Rect{X: 300, Y: 100, W: 50, H: 20}, Confidence: 0.9, Page: 1},
	}
	parsed := p.ParseSpans(context.Background(), spans, store.NextID)

	if len(parsed) != 2 {
		t.Fatalf("parsed = %d records, want 2 (blank span skipped)", len(parsed))
	}
	if parsed[0].Dimension.ID != 1 || parsed[1].Dimension.ID != 2 {
		t.Errorf("ids = %d, %d, want 1, 2 in span order", parsed[0].Dimension.ID, parsed[1].Dimension.ID)
	}
	first := parsed[0].Dimension
	if first.Value != "1.2500" || first.Parsed.Subtype != SubtypeLinear {
		t.Errorf("first record = %q %q", first.Value, first.Parsed.Subtype)
	}
	if first.Parsed.Units != "in" {
		t.Errorf("units = %q, want default in", first.Parsed.Units)
	}
	if first.Parsed.FullSpecification != "1.2500 ±.0005" {
		t.Errorf("full_specification = %q", first.Parsed.FullSpecification)
	}
	if first.Parsed.InspectionMethod != "Caliper" {
		t.Errorf("inspection method = %q, want Caliper", first.Parsed.InspectionMethod)
	}
	second := parsed[1].Dimension
	if second.Parsed.Subtype != SubtypeDiameter {
		t.Errorf("second subtype = %q, want Diameter", second.Parsed.Subtype)
	}
	// Rule confidence is discounted by the span's own confidence.
	if diff := second.Confidence - 0.95*0.9; diff < -1e-9 || diff > 1e-9 {
		t.Errorf("second confidence = %v, want 0.855", second.Confidence)
	}
}

func TestParserClassifierFallback(t *testing.T) {
	t.Run("ambiguous span asks the classifier", func(t *testing.T) {
		llm := &providers.MockLLMClient{
			Result: &providers.ChatResult{
				ParsedJSON: json.RawMessage(`{"subtype":"GD&T","confidence":0.7}`),
			},
		}
		p := NewParser(ParserConfig{Classifier: "mock"}, llm, nil)
		store := NewStore()

		spans := []types.ExtractionSpan{{Text: "ABC-123", Confidence: 1.0, Page: 1}}
		parsed := p.ParseSpans(context.Background(), spans, store.NextID)

		if len(llm.Requests) != 1 {
			t.Fatalf("classifier calls = %d, want 1", len(llm.Requests))
		}
		if parsed[0].Dimension.Parsed.Subtype != SubtypeGDT {
			t.Errorf("subtype = %q, want the classifier's answer", parsed[0].Dimension.Parsed.Subtype)
		}
		if parsed[0].Dimension.Confidence != 0.7 {
			t.Errorf("confidence = %v, want 0.7", parsed[0].Dimension.Confidence)
		}
	})

	t.Run("certain span skips the classifier", func(t *testing.T) {
		llm := &providers.MockLLMClient{}
		p := NewParser(ParserConfig{Classifier: "mock"}, llm, nil)
		store := NewStore()

		p.ParseSpans(context.Background(), []types.ExtractionSpan{{Text: "⌀.500", Confidence: 1.0}}, store.NextID)
		if len(llm.Requests) != 0 {
			t.Errorf("classifier calls = %d for an unambiguous span, want 0", len(llm.Requests))
		}
	})

	t.Run("classifier failure keeps the rule answer", func(t *testing.T) {
		llm := &providers.MockLLMClient{Err: errors.New("provider down")}
		p := NewParser(ParserConfig{Classifier: "mock"}, llm, nil)
		store := NewStore()

		parsed := p.ParseSpans(context.Background(), []types.ExtractionSpan{{Text: "ABC-123", Confidence: 1.0}}, store.NextID)
		if parsed[0].Dimension.Parsed.Subtype != SubtypeNote {
			t.Errorf("subtype = %q, want the rule fallback Note", parsed[0].Dimension.Parsed.Subtype)
		}
	})
}

func TestNominal(t *testing.T) {
	cases := []struct {
		value string
		want  float64
		ok    bool
	}{
		{"1.2500", 1.25, true},
		{"⌀.500", 0.5, true},
		{"R.125", 0.125, true},
		{"45°", 45, true},
		{"25 mm", 25, true},
		{"MOUNTING SURFACE", 0, false},
	}
	for _, tc := range cases {
		d := Dimension{Value: tc.value}
		got, err := d.Nominal()
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("Nominal(%q) = %v, %v; want %v", tc.value, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("Nominal(%q) succeeded, want error", tc.value)
		}
	}
}

func TestFlagDeduplicates(t *testing.T) {
	var d Dimension
	d.Flag(IssueTolerance, "unknown fit class")
	d.Flag(IssueTolerance, "unknown fit class")
	d.Flag(IssueSampling, "lot size out of range")
	if len(d.Issues) != 2 {
		t.Errorf("issues = %v, want 2 distinct entries", d.Issues)
	}
	d.ClearIssues(IssueTolerance)
	if len(d.Issues) != 1 || d.Issues[0] != "sampling: lot size out of range" {
		t.Errorf("issues = %v, want only the sampling flag", d.Issues)
	}
	d.ClearIssues(IssueSampling)
	if d.Issues != nil {
		t.Errorf("issues = %v after clear", d.Issues)
	}
}
