package tolerance

import "fmt"

// Limits is the resolved pair of numeric limits for a dimension.
// A nil side means the limit could not be determined from the callout
// and must be displayed as unresolved, never as zero.
type Limits struct {
	Max *float64 `json:"max_limit,omitempty"`
	Min *float64 `json:"min_limit,omitempty"`

	// Warning records a non-fatal data-entry correction, currently only
	// the swap applied when a limit pair arrives inverted.
	Warning string `json:"warning,omitempty"`
}

// Resolve computes numeric limits from a nominal value and a tolerance
// representation. It is pure: it never mutates its inputs and identical
// inputs always yield identical limits. The caller assigns the result.
//
// Guarantees on success: whenever both limits are defined,
// *Max >= *Min.
func Resolve(nominal float64, tol Tolerance) (Limits, error) {
	switch t := tol.(type) {
	case Bilateral:
		var lim Limits
		if t.Plus != nil {
			lim.Max = ptr(nominal + *t.Plus)
		}
		if t.Minus != nil {
			lim.Min = ptr(nominal - *t.Minus)
		}
		return lim, nil

	case Limit:
		high, low := t.High, t.Low
		var warning string
		if high < low {
			// Inverted pair is a data-entry tolerance, not an error.
			high, low = low, high
			warning = fmt.Sprintf("limit pair inverted (%g < %g), swapped", t.High, t.Low)
		}
		return Limits{Max: ptr(high), Min: ptr(low), Warning: warning}, nil

	case Fit:
		return resolveFit(nominal, t)

	case Max:
		return Limits{Max: ptr(nominal), Min: ptr(nominal)}, nil

	case Min:
		return Limits{Max: ptr(nominal), Min: ptr(nominal)}, nil

	case Basic:
		return Limits{Max: ptr(nominal), Min: ptr(nominal)}, nil

	default:
		return Limits{}, fmt.Errorf("unhandled tolerance type %T", tol)
	}
}

// resolveFit looks the fit classes up in the ISO 286 deviation tables.
// When both a hole and a shaft class are present, the hole class governs
// the measured feature; the shaft class describes the mating part.
func resolveFit(nominal float64, t Fit) (Limits, error) {
	class := t.HoleClass
	if class == "" {
		class = t.ShaftClass
	}
	if class == "" {
		return Limits{}, &UnknownFitClassError{Class: "", Nominal: nominal}
	}

	upper, lower, err := fitDeviations(nominal, class)
	if err != nil {
		return Limits{}, err
	}
	return Limits{Max: ptr(nominal + upper), Min: ptr(nominal + lower)}, nil
}

func ptr(v float64) *float64 { return &v }
