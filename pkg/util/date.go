package util

import (
	"fmt"
	"time"
)

const (
	PeriodLayout = "2006-01"
	DateLayout   = "2006-01-02"
)

// MonthStart truncates t to the first day of its month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ParsePeriod parses a "YYYY-MM" label into the first day of that month.
func ParsePeriod(s string) (time.Time, error) {
	t, err := time.Parse(PeriodLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse period %q: %w", s, err)
	}
	return t, nil
}

// FormatPeriod renders t as a "YYYY-MM" label.
func FormatPeriod(t time.Time) string {
	return t.UTC().Format(PeriodLayout)
}

// ParseDate parses a "YYYY-MM-DD" date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// AddMonths shifts a month start by n months.
func AddMonths(period time.Time, n int) time.Time {
	return MonthStart(period).AddDate(0, n, 0)
}

// NextPeriods returns the n period labels following last, oldest first.
func NextPeriods(last time.Time, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = FormatPeriod(AddMonths(last, i+1))
	}
	return out
}

// ContiguousMonths reports whether periods are consecutive calendar months, oldest first.
func ContiguousMonths(periods []time.Time) bool {
	for i := 1; i < len(periods); i++ {
		if !MonthStart(periods[i]).Equal(AddMonths(periods[i-1], 1)) {
			return false
		}
	}
	return true
}
