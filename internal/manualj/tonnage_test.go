package manualj

import "testing"

func TestTonnageBand(t *testing.T) {
	cases := []struct {
		btuh float64
		want string
	}{
		{0, "n/a"},
		{-500, "n/a"},
		{12000, "1.5 ton"}, // below the smallest residential unit
		{24000, "2.0 ton"},
		{27500, "2.5 ton"}, // 2.29 rounds up to the half-ton step
		{36000, "3.0 ton"},
		{60000, "5.0 ton"},
		{84000, "7.0 ton (multiple systems)"},
	}
	for _, tc := range cases {
		if got := TonnageBand(tc.btuh); got != tc.want {
			t.Fatalf("TonnageBand(%f) = %q, want %q", tc.btuh, got, tc.want)
		}
	}
}
