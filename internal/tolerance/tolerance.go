// Package tolerance computes numeric dimension limits from tolerance
// callouts. Each of the five tolerance representations is a distinct
// variant so the fields a representation needs are guaranteed present.
package tolerance

// Type identifies a tolerance representation.
type Type string

const (
	TypeBilateral Type = "bilateral"
	TypeLimit     Type = "limit"
	TypeFit       Type = "fit"
	TypeMax       Type = "max"
	TypeMin       Type = "min"
	TypeBasic     Type = "basic"
)

// Valid reports whether t is one of the closed set of tolerance types.
func (t Type) Valid() bool {
	switch t {
	case TypeBilateral, TypeLimit, TypeFit, TypeMax, TypeMin, TypeBasic:
		return true
	}
	return false
}

// Tolerance is a tagged tolerance representation. Exactly one concrete
// variant exists per Type.
type Tolerance interface {
	Type() Type
}

// Bilateral is an X ± Y or X +Y/-Z callout. Minus is stored as a
// non-negative magnitude; the resolver applies the sign. A nil side means
// the tolerance was not stated, which leaves that limit undefined rather
// than implying zero.
type Bilateral struct {
	Plus  *float64
	Minus *float64
}

func (Bilateral) Type() Type { return TypeBilateral }

// Limit is a high/low pair written directly as two numbers.
type Limit struct {
	High float64
	Low  float64
}

func (Limit) Type() Type { return TypeLimit }

// Fit is an ISO 286 hole/shaft class callout attached to a nominal size,
// e.g. a 10 H7/g6 fit. Either class may be empty.
type Fit struct {
	HoleClass  string
	ShaftClass string
}

func (Fit) Type() Type { return TypeFit }

// Max is a single-sided MAX callout: the nominal is the upper limit.
type Max struct{}

func (Max) Type() Type { return TypeMax }

// Min is a single-sided MIN callout: the nominal is the lower limit.
type Min struct{}

func (Min) Type() Type { return TypeMin }

// Basic is a boxed/reference dimension with no tolerance.
type Basic struct{}

func (Basic) Type() Type { return TypeBasic }
