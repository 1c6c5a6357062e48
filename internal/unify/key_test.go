package unify

import (
	"math"
	"testing"
)

func TestNormalizeKeyValue(t *testing.T) {
	t.Parallel()

	cases := []struct {
		col  string
		in   any
		want string
	}{
		{"out_flight_number_1", " ci 073 ", "CI073"},
		{"ret_flight_number_3", "br\t0087", "BR0087"},
		{"out_cabin_class_1", "經濟艙 K", "經濟艙K"},
		{"out_cabin_class_2", "經濟艙　K", "經濟艙K"},
		{"out_flight_number_2", nil, ""},
		{"out_flight_number_2", math.NaN(), ""},
		{"out_flight_number_2", "None", ""},
		{"out_flight_number_2", " <NA> ", ""},
		{"out_flight_number_2", "null", ""},
		{"outbound_date", "NaT", ""},
		{"outbound_date", "2025-11-05", "11/05"},
		{"outbound_date", "11/5", "11/05"},
		{"outbound_date", "2025.1.7", "01/07"},
		{"return_date", "5/11/2025", "05/11"},
		{"return_date", " 11 / 12 ", "11/12"},
		{"return_date", "13/45", "13/45"},
		{"return_date", "next week", "NEXT WEEK"},
		{"gds_type", "  1a   b ", "1A B"},
	}
	for _, tc := range cases {
		if got := NormalizeKeyValue(tc.col, tc.in); got != tc.want {
			t.Errorf("NormalizeKeyValue(%q, %#v) = %q, want %q", tc.col, tc.in, got, tc.want)
		}
	}
}

func TestJoinKeyBlankLegsMatch(t *testing.T) {
	t.Parallel()

	a, _ := joinKey(map[string]any{"out_flight_number_1": "CI073", "out_flight_number_2": nil})
	b, _ := joinKey(map[string]any{"out_flight_number_1": "ci073", "out_flight_number_2": "nan"})
	if a != b {
		t.Fatalf("keys differ:\n%q\n%q", a, b)
	}
}
