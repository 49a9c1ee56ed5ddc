// Package dimension defines the canonical Dimension record and the
// parser that produces it from extraction spans.
package dimension

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/heavyclick/autoballoon-sub001/internal/sampling"
	"github.com/heavyclick/autoballoon-sub001/internal/tolerance"
)

// Subtype is the closed set of dimension callout kinds.
type Subtype string

const (
	SubtypeLinear        Subtype = "Linear"
	SubtypeDiameter      Subtype = "Diameter"
	SubtypeRadius        Subtype = "Radius"
	SubtypeAngle         Subtype = "Angle"
	SubtypeChamfer       Subtype = "Chamfer"
	SubtypeNote          Subtype = "Note"
	SubtypeWeld          Subtype = "Weld"
	SubtypeSurfaceFinish Subtype = "Surface Finish"
	SubtypeGDT           Subtype = "GD&T"
)

// Subtypes lists every valid subtype, used by the classifier schema.
var Subtypes = []Subtype{
	SubtypeLinear, SubtypeDiameter, SubtypeRadius, SubtypeAngle,
	SubtypeChamfer, SubtypeNote, SubtypeWeld, SubtypeSurfaceFinish,
	SubtypeGDT,
}

// ParsedSpec is the structured interpretation of a dimension callout.
// Every optional numeric field is a pointer: missing is distinct from
// zero, and an unset field is an explicit unknown, never an implied 0.
type ParsedSpec struct {
	Subtype           Subtype        `json:"subtype"`
	Operation         string         `json:"operation,omitempty"`
	FullSpecification string         `json:"full_specification"`
	Units             string         `json:"units,omitempty"`
	ToleranceType     tolerance.Type `json:"tolerance_type"`

	PlusTolerance  *float64 `json:"plus_tolerance,omitempty"`
	MinusTolerance *float64 `json:"minus_tolerance,omitempty"` // non-negative magnitude
	HoleFitClass   string   `json:"hole_fit_class,omitempty"`
	ShaftFitClass  string   `json:"shaft_fit_class,omitempty"`

	MaxLimit *float64 `json:"max_limit,omitempty"`
	MinLimit *float64 `json:"min_limit,omitempty"`

	InspectionMethod string          `json:"inspection_method,omitempty"`
	LotSize          *int            `json:"lot_size,omitempty"`
	AQL              *float64        `json:"aql,omitempty"`
	InspectionLevel  *sampling.Level `json:"inspection_level,omitempty"`
	SampleSize       *int            `json:"sample_size,omitempty"`
}

// Tolerance constructs the tagged tolerance variant for this spec.
// The flat fields an edit boundary can address become a sum type here so
// the resolver sees exactly the fields its representation needs.
func (ps *ParsedSpec) Tolerance() (tolerance.Tolerance, error) {
	switch ps.ToleranceType {
	case tolerance.TypeBilateral, "":
		return tolerance.Bilateral{Plus: ps.PlusTolerance, Minus: ps.MinusTolerance}, nil
	case tolerance.TypeLimit:
		if ps.MaxLimit == nil || ps.MinLimit == nil {
			return nil, fmt.Errorf("limit tolerance requires both limits")
		}
		return tolerance.Limit{High: *ps.MaxLimit, Low: *ps.MinLimit}, nil
	case tolerance.TypeFit:
		return tolerance.Fit{HoleClass: ps.HoleFitClass, ShaftClass: ps.ShaftFitClass}, nil
	case tolerance.TypeMax:
		return tolerance.Max{}, nil
	case tolerance.TypeMin:
		return tolerance.Min{}, nil
	case tolerance.TypeBasic:
		return tolerance.Basic{}, nil
	default:
		return nil, fmt.Errorf("unknown tolerance type %q", ps.ToleranceType)
	}
}

// Dimension is the canonical record for one ballooned callout.
// ID is the balloon number: unique within a drawing, assigned on
// creation, immutable, never reused.
type Dimension struct {
	ID          int    `json:"id"`
	ChartCharID string `json:"chart_char_id,omitempty"`
	Sheet       string `json:"sheet,omitempty"`
	ViewName    string `json:"view_name,omitempty"`
	Value       string `json:"value"`

	Parsed ParsedSpec `json:"parsed"`

	// Confidence is the classifier's score for the subtype decision.
	// Recorded regardless of how low it is, never silently discarded.
	Confidence float64 `json:"confidence"`

	// Issues collects field-scoped problems (unknown fit class, out of
	// range sampling inputs). A flagged dimension stays in the set with
	// its derived values unresolved. Each recomputation replaces the
	// flags of its own scope so a corrected field stops being flagged.
	Issues []string `json:"issues,omitempty"`
}

// Issue scopes group flags by the derivation that produced them, so a
// recomputation can drop its own stale flags without touching the rest.
const (
	IssueTolerance = "tolerance"
	IssueSampling  = "sampling"
)

// Nominal parses the numeric nominal from the raw value string.
func (d *Dimension) Nominal() (float64, error) {
	s := strings.TrimSpace(d.Value)
	s = strings.TrimLeft(s, "⌀ØR∠ ")
	s = strings.TrimSuffix(s, "°")
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(s, "mm"), "in"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q has no parseable nominal: %w", d.Value, err)
	}
	return v, nil
}

// Flag records an issue under a scope, dropping exact duplicates.
func (d *Dimension) Flag(scope, issue string) {
	tagged := scope + ": " + issue
	for _, existing := range d.Issues {
		if existing == tagged {
			return
		}
	}
	d.Issues = append(d.Issues, tagged)
}

// ClearIssues drops every issue recorded under scope. A recomputation
// pass calls this before re-flagging so a resolved field is no longer
// reported.
func (d *Dimension) ClearIssues(scope string) {
	prefix := scope + ": "
	var kept []string
	for _, issue := range d.Issues {
		if !strings.HasPrefix(issue, prefix) {
			kept = append(kept, issue)
		}
	}
	d.Issues = kept
}
