package core

import (
	"strings"
	"time"
)

const monthLayout = "Jan2006"

// Month is a calendar month keyed by tokens such as "Jan2026".
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth accepts a three letter month and four digit year in any case.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if len(s) != len("Jan2006") {
		return Month{}, validationf("month %q must look like Jan2026", s)
	}
	lower := strings.ToLower(s)
	t, err := time.Parse(monthLayout, strings.ToUpper(lower[:1])+lower[1:])
	if err != nil {
		return Month{}, validationf("month %q must look like Jan2026", s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// NormalizeMonth canonicalizes a month token, e.g. "jan2026" -> "Jan2026".
func NormalizeMonth(s string) (string, error) {
	m, err := ParseMonth(s)
	if err != nil {
		return "", err
	}
	return m.String(), nil
}

// CurrentMonth is the UTC month of now.
func CurrentMonth(now time.Time) Month {
	return MonthOf(now.UTC())
}

func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) String() string {
	return m.First().Format(monthLayout)
}

// First is midnight UTC of the first day.
func (m Month) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is midnight UTC of the first day of the next month.
func (m Month) End() time.Time {
	return m.First().AddDate(0, 1, 0)
}

func (m Month) Last() time.Time {
	return m.End().AddDate(0, 0, -1)
}

func (m Month) key() int {
	return m.Year*100 + int(m.Month)
}

func (m Month) Contains(t time.Time) bool {
	return MonthOf(t.UTC()) == m
}

// Cutoff is the last day counted as elapsed: today for the current month,
// the last day for past months and the day before the first for future months.
func (m Month) Cutoff(today time.Time) time.Time {
	today = today.UTC()
	current := MonthOf(today)
	switch {
	case current.key() == m.key():
		return time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	case current.key() > m.key():
		return m.Last()
	default:
		return m.First().AddDate(0, 0, -1)
	}
}
