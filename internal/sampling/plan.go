// Package sampling computes acceptance sampling plans in the manner of
// ANSI/ASQ Z1.4 single sampling, normal inspection.
package sampling

import "fmt"

// Level is a general inspection level.
type Level string

const (
	LevelI   Level = "I"
	LevelII  Level = "II"
	LevelIII Level = "III"
)

// AQLs is the closed set of supported acceptable quality limits.
var AQLs = []float64{0.65, 1.0, 1.5, 2.5, 4.0, 6.5}

// SamplingPlan is the result of a plan lookup. It is fully determined by
// (lot size, AQL, level) and treated as a derived cache value: recomputed
// whenever an input changes, never hand-edited.
type SamplingPlan struct {
	CodeLetter   string `json:"code_letter"`
	SampleSize   int    `json:"sample_size"`
	AcceptNumber int    `json:"accept_number"`
	RejectNumber int    `json:"reject_number"`
}

// OutOfRangeError reports plan inputs outside the tabulated domain.
type OutOfRangeError struct {
	Field string
	Value any
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("sampling input %s=%v out of range", e.Field, e.Value)
}

// Code letters in table order. The letter I and O are skipped per the
// standard.
var codeLetters = []string{"A", "B", "C", "D", "E", "F", "G", "H", "J", "K", "L", "M", "N", "P", "Q", "R"}

// Sample size per code letter, same order as codeLetters.
var sampleSizes = []int{2, 3, 5, 8, 13, 20, 32, 50, 80, 125, 200, 315, 500, 800, 1250, 2000}

// Lot size brackets, upper bounds inclusive. Lots beyond the last bound
// use the last bracket (explicit extrapolation, not a failure).
var lotBrackets = []int{8, 15, 25, 50, 90, 150, 280, 500, 1200, 3200, 10000, 35000, 150000, 500000}

// Code letter index per (level, lot bracket). One extra column for lots
// beyond the last bracket bound.
var letterByLevel = map[Level][]int{
	//         ≤8 ≤15 ≤25 ≤50 ≤90 ≤150 ≤280 ≤500 ≤1.2k ≤3.2k ≤10k ≤35k ≤150k ≤500k >500k
	LevelI:   {0, 0, 1, 2, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	LevelII:  {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14},
	LevelIII: {1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
}

// Accept numbers walk this sequence down each AQL column starting at the
// column's first tabulated letter. Entries above the start point arrow
// down to the start letter's plan; entries past the end arrow up to the
// last plan (table saturation: several code letters share one plan).
var acceptSequence = []int{0, 1, 1, 2, 3, 5, 7, 10, 14, 21}

// First code letter index with a tabulated accept number, per AQL.
var firstLetterByAQL = map[float64]int{
	6.5:  1, // B
	4.0:  2, // C
	2.5:  3, // D
	1.5:  4, // E
	1.0:  5, // F
	0.65: 6, // G
}

// Plan computes a single sampling plan for normal inspection. It is pure
// and side-effect free.
//
// The two-stage lookup: (lot size, level) selects a code letter over
// monotonic lot-size brackets; (code letter, AQL) selects sample size and
// accept/reject numbers, with arrow rules collapsing off-table cells onto
// the nearest tabulated plan. The returned sample size is always a
// positive integer; it is capped at the lot size when the table asks for
// more items than the lot contains.
func Plan(lotSize int, aql float64, level Level) (SamplingPlan, error) {
	if lotSize <= 0 {
		return SamplingPlan{}, &OutOfRangeError{Field: "lot_size", Value: lotSize}
	}
	letters, ok := letterByLevel[level]
	if !ok {
		return SamplingPlan{}, &OutOfRangeError{Field: "inspection_level", Value: level}
	}
	first, ok := firstLetterByAQL[aql]
	if !ok {
		return SamplingPlan{}, &OutOfRangeError{Field: "aql", Value: aql}
	}

	letter := letters[lotBracket(lotSize)]

	// Arrow rules: clamp onto the tabulated diagonal band for this AQL.
	pos := letter - first
	if pos < 0 {
		pos = 0
	}
	if pos >= len(acceptSequence) {
		pos = len(acceptSequence) - 1
	}
	effective := first + pos

	size := sampleSizes[effective]
	if size > lotSize {
		// Sample cannot exceed the lot; inspect everything.
		size = lotSize
	}
	accept := acceptSequence[pos]

	return SamplingPlan{
		CodeLetter:   codeLetters[effective],
		SampleSize:   size,
		AcceptNumber: accept,
		RejectNumber: accept + 1,
	}, nil
}

// lotBracket returns the bracket column for a lot size. Brackets are
// half-open; a lot equal to an upper bound belongs to that bracket.
func lotBracket(lotSize int) int {
	for i, upper := range lotBrackets {
		if lotSize <= upper {
			return i
		}
	}
	return len(lotBrackets) // beyond the table: largest bracket
}
