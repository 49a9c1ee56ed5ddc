package sampling

import (
	"errors"
	"testing"
)

func TestPlanLookup(t *testing.T) {
	cases := []struct {
		name    string
		lotSize int
		aql     float64
		level   Level
		want    SamplingPlan
	}{
		{
			name: "lot 500 aql 2.5 level II",
			lotSize: 500, aql: 2.5, level: LevelII,
			want: SamplingPlan{CodeLetter: "H", SampleSize: 50, AcceptNumber: 3, RejectNumber: 4},
		},
		{
			name: "lot 1200 aql 1.0 level II",
			lotSize: 1200, aql: 1.0, level: LevelII,
			want: SamplingPlan{CodeLetter: "J", SampleSize: 80, AcceptNumber: 2, RejectNumber: 3},
		},
		{
			name: "level I uses smaller samples",
			lotSize: 500, aql: 2.5, level: LevelI,
			want: SamplingPlan{CodeLetter: "F", SampleSize: 20, AcceptNumber: 1, RejectNumber: 2},
		},
		{
			name: "level III uses larger samples",
			lotSize: 500, aql: 2.5, level: LevelIII,
			want: SamplingPlan{CodeLetter: "J", SampleSize: 80, AcceptNumber: 5, RejectNumber: 6},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Plan(tc.lotSize, tc.aql, tc.level)
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}
			if got != tc.want {
				t.Errorf("Plan = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestPlanArrowRules(t *testing.T) {
	t.Run("small lot with tight aql arrows down to first tabulated letter", func(t *testing.T) {
		got, err := Plan(8, 0.65, LevelII)
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		if got.CodeLetter != "G" {
			t.Errorf("code letter = %s, want G", got.CodeLetter)
		}
		if got.AcceptNumber != 0 || got.RejectNumber != 1 {
			t.Errorf("accept/reject = %d/%d, want 0/1", got.AcceptNumber, got.RejectNumber)
		}
	})

	t.Run("huge lot with loose aql saturates", func(t *testing.T) {
		got, err := Plan(500000, 6.5, LevelIII)
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		if got.CodeLetter != "L" || got.SampleSize != 200 {
			t.Errorf("plan = %+v, want L/200", got)
		}
		if got.AcceptNumber != 21 || got.RejectNumber != 22 {
			t.Errorf("accept/reject = %d/%d, want 21/22", got.AcceptNumber, got.RejectNumber)
		}
	})
}

func TestPlanSampleCappedAtLot(t *testing.T) {
	got, err := Plan(8, 0.65, LevelII)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if got.SampleSize != 8 {
		t.Errorf("sample size = %d, want lot size 8", got.SampleSize)
	}

	got, err = Plan(3, 2.5, LevelII)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if got.SampleSize > 3 {
		t.Errorf("sample size = %d exceeds lot of 3", got.SampleSize)
	}
}

func TestPlanMonotonicInLotSize(t *testing.T) {
	prev := 0
	for _, lot := range []int{1, 5, 10, 40, 100, 400, 900, 2000, 8000, 30000, 120000, 400000, 900000} {
		got, err := Plan(lot, 1.5, LevelII)
		if err != nil {
			t.Fatalf("Plan(%d): %v", lot, err)
		}
		if got.SampleSize < prev {
			t.Errorf("sample size decreased at lot %d: %d < %d", lot, got.SampleSize, prev)
		}
		prev = got.SampleSize
	}
}

func TestPlanOutOfRange(t *testing.T) {
	cases := []struct {
		name    string
		lotSize int
		aql     float64
		level   Level
		field   string
	}{
		{"zero lot", 0, 2.5, LevelII, "lot_size"},
		{"negative lot", -10, 2.5, LevelII, "lot_size"},
		{"untabulated aql", 500, 3.0, LevelII, "aql"},
		{"unknown level", 500, 2.5, Level("IV"), "inspection_level"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Plan(tc.lotSize, tc.aql, tc.level)
			var oor *OutOfRangeError
			if !errors.As(err, &oor) {
				t.Fatalf("error = %v, want OutOfRangeError", err)
			}
			if oor.Field != tc.field {
				t.Errorf("field = %s, want %s", oor.Field, tc.field)
			}
		})
	}
}

func TestPlanRejectAlwaysAcceptPlusOne(t *testing.T) {
	for _, aql := range AQLs {
		for _, level := range []Level{LevelI, LevelII, LevelIII} {
			for _, lot := range []int{10, 100, 1000, 10000} {
				got, err := Plan(lot, aql, level)
				if err != nil {
					t.Fatalf("Plan(%d, %g, %s): %v", lot, aql, level, err)
				}
				if got.RejectNumber != got.AcceptNumber+1 {
					t.Errorf("Plan(%d, %g, %s): reject %d != accept %d + 1",
						lot, aql, level, got.RejectNumber, got.AcceptNumber)
				}
				if got.SampleSize < 1 {
					t.Errorf("Plan(%d, %g, %s): sample size %d < 1", lot, aql, level, got.SampleSize)
				}
			}
		}
	}
}
