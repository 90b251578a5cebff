package train

import (
	"errors"
	"testing"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{input: "20261015", want: "20261015"},
		{input: "2026-10-15", want: "20261015"},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.input)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("ParseDate(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}

	for _, bad := range []string{"", "2026-13-01", "tomorrow", "2026101"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("ParseDate(%q) expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{input: "09:30", want: "0930"},
		{input: "0930", want: "0930"},
		{input: "093000", want: "0930"},
		{input: "7:05", want: "0705"},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.input)
		if err != nil {
			t.Fatalf("ParseClock(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("ParseClock(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
	if _, err := ParseClock("25:00"); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("expected ErrInvalidTime, got %v", err)
	}
}

func TestShiftDateAndClock(t *testing.T) {
	next, err := ShiftDate("20261231", 1)
	if err != nil {
		t.Fatalf("shift date: %v", err)
	}
	if next != "20270101" {
		t.Fatalf("expected 20270101, got %q", next)
	}
	if got := ShiftClock("2300", 1); got != "2300" {
		t.Fatalf("expected clamp at end of day, got %q", got)
	}
	if got := ShiftClock("0000", -1); got != "0000" {
		t.Fatalf("expected clamp at start of day, got %q", got)
	}
	if got := ShiftClock("0900", 2); got != "1100" {
		t.Fatalf("expected 1100, got %q", got)
	}
}

func TestCriteriaTimeFrom(t *testing.T) {
	criteria := SearchCriteria{Time: "0600"}
	if got := criteria.TimeFrom(); got != "060000" {
		t.Fatalf("expected 060000, got %q", got)
	}
	if got := FormatClock("060000"); got != "06:00" {
		t.Fatalf("expected 06:00, got %q", got)
	}
	if got := FormatDate("20261015"); got != "2026-10-15" {
		t.Fatalf("expected 2026-10-15, got %q", got)
	}
}
