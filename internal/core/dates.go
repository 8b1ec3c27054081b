package core

import (
	"fmt"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04"
	TimestampLayout = "2006-01-02T15:04:05.000Z"
)

// Today returns the local calendar date of now as YYYY-MM-DD
func Today(now time.Time) string {
	return now.Format(DateLayout)
}

// Timestamp renders now in UTC with millisecond precision
func Timestamp(now time.Time) string {
	return now.UTC().Format(TimestampLayout)
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// ValidTime reports whether s is an HH:MM clock time
func ValidTime(s string) bool {
	_, err := time.Parse(TimeLayout, s)
	return err == nil && len(s) == 5
}

// AddDays shifts a YYYY-MM-DD date by n calendar days
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// MonthPrefix returns the YYYY-MM prefix of a date, used for month filters
func MonthPrefix(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}
