package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestPercentOf(t *testing.T) {
	cases := []struct {
		amount int64
		income int64
		want   float64
	}{
		{50000, 100000, 50.0},
		{33300, 100000, 33.3},
		{33333, 100000, 33.3},
		{33350, 100000, 33.4}, // rounds half up
		{50000, 0, 0},         // no income
		{50000, -100, 0},
		{100000, 100000, 100.0},
		{150000, 100000, 150.0}, // over budget still computed
	}
	for _, tc := range cases {
		got := Money{Cents: tc.amount}.PercentOf(Money{Cents: tc.income})
		if got != tc.want {
			t.Fatalf("PercentOf(%d/%d) = %v, want %v", tc.amount, tc.income, got, tc.want)
		}
	}
}

func TestMoneyFromFloat(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{12.34, 1234},
		{0.1, 10},
		{999.995, 100000}, // half-up
		{0, 0},
	}
	for _, tc := range cases {
		if got := MoneyFromFloat(tc.in).Cents; got != tc.want {
			t.Fatalf("MoneyFromFloat(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
