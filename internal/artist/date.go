package artist

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultMinYear is the earliest plausible birth year for curated input.
const DefaultMinYear = 1600

// Date normalization errors.
var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrImplausibleYear = errors.New("implausible year")
)

// PartialDate is a calendar date whose month and day may be unknown (zero).
type PartialDate struct {
	Year  int `json:"year"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

// IsZero reports whether no year is known.
func (p PartialDate) IsZero() bool { return p.Year == 0 }

// Complete reports whether year, month and day are all known.
func (p PartialDate) Complete() bool { return p.Year != 0 && p.Month != 0 && p.Day != 0 }

func (p PartialDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", p.Year, p.Month, p.Day)
}

// ParsePartialDate parses YYYY, YYYY-MM or YYYY-MM-DD, where month and day
// may be "00". A trailing time component (as in ISO timestamps) is ignored.
func ParsePartialDate(s string) (PartialDate, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, "-")
	if len(parts) == 0 || len(parts) > 3 || len(parts[0]) != 4 {
		return PartialDate{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return PartialDate{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		nums[i] = n
	}
	return PartialDate{Year: nums[0], Month: nums[1], Day: nums[2]}, nil
}

// Date is a full calendar date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d.Year == 0 }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Noon returns the date at 12:00 UTC, the instant positions are computed for.
func (d Date) Noon() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC)
}

// MarshalText encodes the date as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText decodes YYYY-MM-DD. Partial dates are rejected here; use
// Normalize for untrusted input.
func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(time.DateOnly, string(b))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, b)
	}
	*d = Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
	return nil
}

// Normalize resolves a partial date into a full one. A missing month maps
// to July 1 and a missing day to the 15th, both flagged approximate. An
// exact January 1 is also flagged approximate since upstream metadata uses
// it as a year-only placeholder. Years outside [minYear, now.Year()] are
// rejected with ErrImplausibleYear.
func Normalize(p PartialDate, now time.Time, minYear int) (date Date, approx bool, err error) {
	if p.Year == 0 {
		return Date{}, false, fmt.Errorf("%w: year missing", ErrInvalidDate)
	}
	if p.Year < minYear || p.Year > now.Year() {
		return Date{}, false, fmt.Errorf("%w: %d", ErrImplausibleYear, p.Year)
	}
	if p.Month < 0 || p.Month > 12 || p.Day < 0 {
		return Date{}, false, fmt.Errorf("%w: %s", ErrInvalidDate, p)
	}

	switch {
	case p.Month == 0:
		return Date{Year: p.Year, Month: time.July, Day: 1}, true, nil
	case p.Day == 0:
		return Date{Year: p.Year, Month: time.Month(p.Month), Day: 15}, true, nil
	}

	if p.Day > daysIn(p.Year, time.Month(p.Month)) {
		return Date{}, false, fmt.Errorf("%w: %s", ErrInvalidDate, p)
	}
	d := Date{Year: p.Year, Month: time.Month(p.Month), Day: p.Day}
	return d, d.Month == time.January && d.Day == 1, nil
}

// NormalizeString parses and normalizes a raw date string.
func NormalizeString(s string, now time.Time, minYear int) (Date, bool, error) {
	p, err := ParsePartialDate(s)
	if err != nil {
		return Date{}, false, err
	}
	return Normalize(p, now, minYear)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Layouts tried by ParseDateText, most specific first.
var textLayouts = []struct {
	layout string
	month  bool
	day    bool
}{
	{time.DateOnly, true, true},
	{"January 2, 2006", true, true},
	{"January 2 2006", true, true},
	{"2 January 2006", true, true},
	{"Jan 2, 2006", true, true},
	{"2 Jan 2006", true, true},
	{"January 2006", true, false},
	{"Jan 2006", true, false},
	{"2006", false, false},
}

// ParseDateText parses a human-written date such as "August 18, 1971",
// "18 August 1971", "August 1971" or "1971". Parenthesized suffixes like
// "(age 54)" are ignored.
func ParseDateText(s string) (PartialDate, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '('); i > 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.Join(strings.Fields(strings.TrimSuffix(s, ".")), " ")
	for _, l := range textLayouts {
		t, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		p := PartialDate{Year: t.Year()}
		if l.month {
			p.Month = int(t.Month())
		}
		if l.day {
			p.Day = t.Day()
		}
		return p, nil
	}
	return PartialDate{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}
