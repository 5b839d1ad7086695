package model

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date (YYYY-MM-DD) without time-of-day. The empty string means unset.
type Date string

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", err
	}
	return Date(t.Format(dateLayout)), nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

func (d Date) IsZero() bool { return strings.TrimSpace(string(d)) == "" }

func (d Date) String() string { return string(d) }

// Time returns midnight UTC of d, or the zero time when d is unset or invalid.
func (d Date) Time() time.Time {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (d Date) AddDays(n int) Date {
	if d.IsZero() {
		return d
	}
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }

func (d Date) Before(o Date) bool { return string(d) < string(o) }

func (d Date) After(o Date) bool { return string(d) > string(o) }

// DaysBetween returns b-a in whole days.
func DaysBetween(a, b Date) int {
	if a.IsZero() || b.IsZero() {
		return 0
	}
	return int(b.Time().Sub(a.Time()).Hours() / 24)
}
