package tolerance

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// UnknownFitClassError reports a fit class that does not match any table
// entry, or a nominal size outside every defined bracket.
type UnknownFitClassError struct {
	Class   string
	Nominal float64
}

func (e *UnknownFitClassError) Error() string {
	if e.Class == "" {
		return "fit tolerance has no hole or shaft class"
	}
	return fmt.Sprintf("unknown fit class %q for nominal size %g", e.Class, e.Nominal)
}

// ISO 286 nominal size brackets in millimetres, half-open (over, incl].
// Index i covers sizes > sizeBrackets[i-1] and <= sizeBrackets[i].
var sizeBrackets = []float64{3, 6, 10, 18, 30, 50, 80, 120, 180, 250}

// Standard tolerance values (IT grades) in micrometres, one column per
// size bracket.
var itGrades = map[int][]float64{
	5:  {4, 5, 6, 8, 9, 11, 13, 15, 18, 20},
	6:  {6, 8, 9, 11, 13, 16, 19, 22, 25, 29},
	7:  {10, 12, 15, 18, 21, 25, 30, 35, 40, 46},
	8:  {14, 18, 22, 27, 33, 39, 46, 54, 63, 72},
	9:  {25, 30, 36, 43, 52, 62, 74, 87, 100, 115},
	10: {40, 48, 58, 70, 84, 100, 120, 140, 160, 185},
	11: {60, 75, 90, 110, 130, 160, 190, 220, 250, 290},
}

// Fundamental deviations in micrometres per size bracket.
// Shaft letters a-h carry an upper deviation es <= 0; letters k-p carry a
// lower deviation ei >= 0. Hole deviations derive from the shaft tables:
// EI = -es for letters up to H, ES = -ei plus the delta correction for
// K through P.
var upperDeviations = map[string][]float64{
	"d": {-20, -30, -40, -50, -65, -80, -100, -120, -145, -170},
	"e": {-14, -20, -25, -32, -40, -50, -60, -72, -85, -100},
	"f": {-6, -10, -13, -16, -20, -25, -30, -36, -43, -50},
	"g": {-2, -4, -5, -6, -7, -9, -10, -12, -14, -15},
	"h": {0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
}

var lowerDeviations = map[string][]float64{
	"k": {0, 1, 1, 1, 2, 2, 2, 3, 3, 4},
	"m": {2, 4, 6, 7, 8, 9, 11, 13, 15, 17},
	"n": {4, 8, 10, 12, 15, 17, 20, 23, 27, 31},
	"p": {6, 12, 15, 18, 22, 26, 32, 37, 43, 50},
}

var fitClassPattern = regexp.MustCompile(`^([A-Za-z]{1,2})([0-9]{1,2})$`)

// fitDeviations returns the (upper, lower) deviation in millimetres for a
// fit class at the given nominal size. ISO 286 deviation tables are
// metric; nominal is interpreted in millimetres.
func fitDeviations(nominal float64, class string) (upper, lower float64, err error) {
	bracket := bracketIndex(nominal)
	if bracket < 0 {
		return 0, 0, &UnknownFitClassError{Class: class, Nominal: nominal}
	}

	m := fitClassPattern.FindStringSubmatch(strings.TrimSpace(class))
	if m == nil {
		return 0, 0, &UnknownFitClassError{Class: class, Nominal: nominal}
	}
	letter := m[1]
	grade, _ := strconv.Atoi(m[2])

	it, ok := itGrades[grade]
	if !ok {
		return 0, 0, &UnknownFitClassError{Class: class, Nominal: nominal}
	}
	width := it[bracket]

	// Hole classes are written in uppercase, shaft classes in lowercase.
	isHole := unicode.IsUpper(rune(letter[0]))
	key := strings.ToLower(letter)

	switch {
	case key == "js":
		return width / 2 / 1000, -width / 2 / 1000, nil

	case isHole:
		// General rule: hole EI = -shaft es for the same letter.
		if es, ok := upperDeviations[key]; ok {
			ei := -es[bracket]
			return (ei + width) / 1000, ei / 1000, nil
		}
		// K through P holes take ES = -ei with the delta correction
		// IT(n) - IT(n-1), applied up to IT8 (IT7 for P).
		if ei, ok := lowerDeviations[key]; ok {
			es := -ei[bracket]
			maxDeltaGrade := 8
			if key == "p" {
				maxDeltaGrade = 7
			}
			if grade <= maxDeltaGrade {
				prev, ok := itGrades[grade-1]
				if !ok {
					return 0, 0, &UnknownFitClassError{Class: class, Nominal: nominal}
				}
				es += width - prev[bracket]
			}
			return es / 1000, (es - width) / 1000, nil
		}
		return 0, 0, &UnknownFitClassError{Class: class, Nominal: nominal}

	default:
		if es, ok := upperDeviations[key]; ok {
			return es[bracket] / 1000, (es[bracket] - width) / 1000, nil
		}
		if ei, ok := lowerDeviations[key]; ok {
			return (ei[bracket] + width) / 1000, ei[bracket] / 1000, nil
		}
		return 0, 0, &UnknownFitClassError{Class: class, Nominal: nominal}
	}
}

// bracketIndex returns the size bracket containing nominal, or -1.
// Boundary sizes belong to the bracket whose upper bound equals them.
func bracketIndex(nominal float64) int {
	if nominal <= 0 {
		return -1
	}
	for i, upper := range sizeBrackets {
		if nominal <= upper {
			return i
		}
	}
	return -1
}
