package tolerance

import (
	"errors"
	"math"
	"testing"
)

func fptr(v float64) *float64 { return &v }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func checkLimits(t *testing.T, lim Limits, wantMax, wantMin float64) {
	t.Helper()
	if lim.Max == nil || !approx(*lim.Max, wantMax) {
		t.Errorf("max = %v, want %g", lim.Max, wantMax)
	}
	if lim.Min == nil || !approx(*lim.Min, wantMin) {
		t.Errorf("min = %v, want %g", lim.Min, wantMin)
	}
}

func TestResolveBilateral(t *testing.T) {
	t.Run("symmetric", func(t *testing.T) {
		lim, err := Resolve(1.2500, Bilateral{Plus: fptr(0.0005), Minus: fptr(0.0005)})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		checkLimits(t, lim, 1.2505, 1.2495)
	})

	t.Run("asymmetric", func(t *testing.T) {
		lim, err := Resolve(10, Bilateral{Plus: fptr(0.1), Minus: fptr(0.05)})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		checkLimits(t, lim, 10.1, 9.95)
	})

	t.Run("missing side stays undefined", func(t *testing.T) {
		lim, err := Resolve(10, Bilateral{Plus: fptr(0.1)})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if lim.Max == nil || !approx(*lim.Max, 10.1) {
			t.Errorf("max = %v, want 10.1", lim.Max)
		}
		if lim.Min != nil {
			t.Errorf("min = %v, want nil for unstated side", *lim.Min)
		}
	})

	t.Run("both sides missing leaves limits undefined", func(t *testing.T) {
		lim, err := Resolve(10, Bilateral{})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if lim.Max != nil || lim.Min != nil {
			t.Errorf("limits = %v/%v, want nil/nil", lim.Max, lim.Min)
		}
	})
}

func TestResolveLimit(t *testing.T) {
	t.Run("ordered pair", func(t *testing.T) {
		lim, err := Resolve(0.5, Limit{High: 0.505, Low: 0.495})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		checkLimits(t, lim, 0.505, 0.495)
		if lim.Warning != "" {
			t.Errorf("unexpected warning: %q", lim.Warning)
		}
	})

	t.Run("inverted pair swaps with warning", func(t *testing.T) {
		lim, err := Resolve(0.5, Limit{High: 0.495, Low: 0.505})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		checkLimits(t, lim, 0.505, 0.495)
		if lim.Warning == "" {
			t.Error("expected swap warning")
		}
	})
}

func TestResolveFit(t *testing.T) {
	t.Run("H7 hole at 25mm", func(t *testing.T) {
		lim, err := Resolve(25, Fit{HoleClass: "H7"})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		checkLimits(t, lim, 25.021, 25.000)
	})

	t.Run("g6 shaft at 25mm", func(t *testing.T) {
		lim, err := Resolve(25, Fit{ShaftClass: "g6"})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		checkLimits(t, lim, 24.993, 24.980)
	})

	t.Run("hole class governs when both present", func(t *testing.T) {
		lim, err := Resolve(25, Fit{HoleClass: "H7", ShaftClass: "g6"})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		checkLimits(t, lim, 25.021, 25.000)
	})

	t.Run("js splits the grade width", func(t *testing.T) {
		lim, err := Resolve(25, Fit{ShaftClass: "js7"})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		checkLimits(t, lim, 25.0105, 24.9895)
	})

	t.Run("p6 interference shaft at 10mm", func(t *testing.T) {
		lim, err := Resolve(10, Fit{ShaftClass: "p6"})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		checkLimits(t, lim, 10.024, 10.015)
	})

	t.Run("K7 transition hole at 25mm", func(t *testing.T) {
		lim, err := Resolve(25, Fit{HoleClass: "K7"})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		checkLimits(t, lim, 25.006, 24.985)
	})

	t.Run("N7 interference hole at 25mm", func(t *testing.T) {
		lim, err := Resolve(25, Fit{HoleClass: "N7"})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		checkLimits(t, lim, 24.993, 24.972)
	})

	t.Run("P7 interference hole at 25mm", func(t *testing.T) {
		lim, err := Resolve(25, Fit{HoleClass: "P7"})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		checkLimits(t, lim, 24.986, 24.965)
	})

	t.Run("P9 hole skips the delta correction", func(t *testing.T) {
		lim, err := Resolve(25, Fit{HoleClass: "P9"})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		checkLimits(t, lim, 24.978, 24.926)
	})

	t.Run("unknown class is a typed error", func(t *testing.T) {
		_, err := Resolve(25, Fit{HoleClass: "Z9"})
		var fitErr *UnknownFitClassError
		if !errors.As(err, &fitErr) {
			t.Fatalf("error = %v, want UnknownFitClassError", err)
		}
		if fitErr.Class != "Z9" {
			t.Errorf("class = %q, want Z9", fitErr.Class)
		}
	})

	t.Run("nominal outside brackets rejected", func(t *testing.T) {
		var fitErr *UnknownFitClassError
		if _, err := Resolve(400, Fit{HoleClass: "H7"}); !errors.As(err, &fitErr) {
			t.Errorf("error = %v, want UnknownFitClassError", err)
		}
		if _, err := Resolve(0, Fit{HoleClass: "H7"}); !errors.As(err, &fitErr) {
			t.Errorf("error = %v, want UnknownFitClassError", err)
		}
	})

	t.Run("no class at all rejected", func(t *testing.T) {
		var fitErr *UnknownFitClassError
		if _, err := Resolve(25, Fit{}); !errors.As(err, &fitErr) {
			t.Errorf("error = %v, want UnknownFitClassError", err)
		}
	})
}

func TestResolveSingleSided(t *testing.T) {
	cases := []struct {
		name string
		tol  Tolerance
	}{
		{"max", Max{}},
		{"min", Min{}},
		{"basic", Basic{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lim, err := Resolve(0.125, tc.tol)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			checkLimits(t, lim, 0.125, 0.125)
		})
	}
}

func TestResolveDeterministic(t *testing.T) {
	tol := Bilateral{Plus: fptr(0.002), Minus: fptr(0.001)}
	first, err := Resolve(3.14, tol)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Resolve(3.14, tol)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if *again.Max != *first.Max || *again.Min != *first.Min {
			t.Fatalf("run %d: limits changed: %g/%g vs %g/%g",
				i, *again.Max, *again.Min, *first.Max, *first.Min)
		}
	}
}

func TestLimitsOrdering(t *testing.T) {
	// Whenever both limits resolve, max >= min must hold.
	tols := []Tolerance{
		Bilateral{Plus: fptr(0.01), Minus: fptr(0.02)},
		Limit{High: 1.0, Low: 2.0},
		Fit{HoleClass: "H8"},
		Fit{ShaftClass: "f7"},
		Max{},
		Basic{},
	}
	for _, tol := range tols {
		lim, err := Resolve(12, tol)
		if err != nil {
			t.Fatalf("Resolve(%v): %v", tol, err)
		}
		if lim.Max != nil && lim.Min != nil && *lim.Max < *lim.Min {
			t.Errorf("Resolve(%v): max %g < min %g", tol, *lim.Max, *lim.Min)
		}
	}
}
