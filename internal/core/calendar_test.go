package core

import (
	"errors"
	"testing"
)

func TestAddPeriod(t *testing.T) {
	tests := []struct {
		name string
		from Date
		unit TimeUnit
		n    int
		want Date
	}{
		{"one day", NewDate(2021, 12, 31), Day, 1, NewDate(2022, 1, 1)},
		{"hundred days", NewDate(2021, 1, 1), Day, 100, NewDate(2021, 4, 11)},
		{"four weeks", NewDate(2021, 4, 21), Week, 4, NewDate(2021, 5, 19)},
		{"month keeps day", NewDate(2021, 1, 15), Month, 1, NewDate(2021, 2, 15)},
		{"jan 31 plus one month clamps", NewDate(2021, 1, 31), Month, 1, NewDate(2021, 2, 28)},
		{"jan 31 plus one month in leap year", NewDate(2024, 1, 31), Month, 1, NewDate(2024, 2, 29)},
		{"jan 31 plus two months does not drift", NewDate(2021, 1, 31), Month, 2, NewDate(2021, 3, 31)},
		{"jan 31 plus three months clamps to april 30", NewDate(2021, 1, 31), Month, 3, NewDate(2021, 4, 30)},
		{"month crosses year", NewDate(2021, 11, 30), Month, 3, NewDate(2022, 2, 28)},
		{"twelve months", NewDate(2021, 1, 1), Month, 12, NewDate(2022, 1, 1)},
		{"leap day plus one year", NewDate(2024, 2, 29), Year, 1, NewDate(2025, 2, 28)},
		{"leap day plus four years", NewDate(2024, 2, 29), Year, 4, NewDate(2028, 2, 29)},
		{"twenty years", NewDate(2010, 1, 1), Year, 20, NewDate(2030, 1, 1)},
		{"zero step", NewDate(2021, 1, 31), Month, 0, NewDate(2021, 1, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AddPeriod(tt.from, tt.unit, tt.n)
			if err != nil {
				t.Fatalf("AddPeriod() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("AddPeriod(%s, %s, %d) = %s, want %s", tt.from, tt.unit, tt.n, got, tt.want)
			}
		})
	}
}

func TestLifetimeEndMatchesSinglePeriodRule(t *testing.T) {
	since := NewDate(2021, 1, 31)
	// 1m x 3 and 3m x 1 must land on the same day.
	a, err := LifetimeEnd(since, Lifetime{Unit: Month, Count: 1, Repeat: 3})
	if err != nil {
		t.Fatal(err)
	}
	b, err := LifetimeEnd(since, Lifetime{Unit: Month, Count: 3, Repeat: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(b) || !a.Equal(NewDate(2021, 4, 30)) {
		t.Fatalf("LifetimeEnd mismatch: %s vs %s", a, b)
	}
}

func TestAddPeriodOverflow(t *testing.T) {
	cases := []struct {
		name string
		from Date
		unit TimeUnit
		n    int
	}{
		{"month past 9999", NewDate(9999, 12, 1), Month, 1},
		{"year past 9999", NewDate(2021, 1, 1), Year, 8000},
		{"days past 9999", NewDate(2021, 1, 1), Day, 5_000_000},
		{"weeks past 9999", NewDate(9999, 12, 30), Week, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := AddPeriod(tc.from, tc.unit, tc.n); !errors.Is(err, ErrArithmeticOverflow) {
				t.Fatalf("expected ErrArithmeticOverflow, got %v", err)
			}
		})
	}

	huge := Lifetime{Unit: Day, Count: 1 << 20, Repeat: 1 << 20}
	if _, err := LifetimeEnd(NewDate(2021, 1, 1), huge); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected overflow for %s, got %v", huge, err)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want Date
	}{
		{"010118", NewDate(2018, 1, 1)},
		{"210421", NewDate(2021, 4, 21)},
		{"30.01.20", NewDate(2020, 1, 30)},
		{"30/01/20", NewDate(2020, 1, 30)},
		{"27/12/2020", NewDate(2020, 12, 27)},
		{"27.12.2020", NewDate(2020, 12, 27)},
		{"2021-12-31", NewDate(2021, 12, 31)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if err != nil {
			t.Fatalf("ParseDate(%q) error = %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("ParseDate(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"30/02/2020", "320118", "011318", "30.01/20", "2021-13-01", "yesterday", ""} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("ParseDate(%q) expected ErrInvalidDate, got %v", bad, err)
		}
	}
}
