package train

import (
	"errors"
	"fmt"
	"time"

	internalstrings "github.com/amonks/rail/internal/strings"
)

var (
	// ErrInvalidDate indicates a travel date that is not a calendar day.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidTime indicates a departure time that is not a clock time.
	ErrInvalidTime = errors.New("invalid time")
)

const (
	dateLayout  = "20060102"
	clockLayout = "1504"
)

// SearchCriteria describes one departure search. Values are passed by copy;
// a search in flight never observes later edits.
type SearchCriteria struct {
	Mode        Mode
	Origin      Station
	Destination Station
	// Date is the travel date as YYYYMMDD.
	Date string
	// Time is the earliest departure as HHMM.
	Time      string
	AccountID int64
}

// TimeFrom returns the earliest departure in the worker's HHMMSS form.
func (c SearchCriteria) TimeFrom() string {
	if c.Time == "" {
		return ""
	}
	return c.Time + "00"
}

// ParseDate accepts YYYYMMDD or YYYY-MM-DD and returns YYYYMMDD.
func ParseDate(value string) (string, error) {
	digits := internalstrings.DigitsOnly(value)
	if len(digits) != len(dateLayout) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	if _, err := time.Parse(dateLayout, digits); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return digits, nil
}

// FormatDate renders a YYYYMMDD date as YYYY-MM-DD for display.
func FormatDate(value string) string {
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return value
	}
	return parsed.Format("2006-01-02")
}

// ShiftDate moves a YYYYMMDD date by the given number of days.
func ShiftDate(value string, days int) (string, error) {
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return parsed.AddDate(0, 0, days).Format(dateLayout), nil
}

// DateOf returns the YYYYMMDD form of t.
func DateOf(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseClock accepts HH:MM, HHMM, or HHMMSS and returns HHMM.
func ParseClock(value string) (string, error) {
	digits := internalstrings.DigitsOnly(value)
	switch len(digits) {
	case 6:
		digits = digits[:4]
	case 3:
		digits = "0" + digits
	}
	if len(digits) != len(clockLayout) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	if _, err := time.Parse(clockLayout, digits); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	return digits, nil
}

// ShiftClock moves an HHMM time by the given number of hours, clamped to the day.
func ShiftClock(value string, hours int) string {
	parsed, err := time.Parse(clockLayout, value)
	if err != nil {
		return value
	}
	shifted := parsed.Add(time.Duration(hours) * time.Hour)
	if shifted.Day() != parsed.Day() {
		if hours < 0 {
			return "0000"
		}
		return "2300"
	}
	return shifted.Format(clockLayout)
}

// FormatClock renders HHMM or HHMMSS as HH:MM.
func FormatClock(value string) string {
	if len(value) < 4 {
		return value
	}
	return value[:2] + ":" + value[2:4]
}
