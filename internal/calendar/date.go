// Package calendar implements the proleptic-Gregorian date arithmetic the
// statement-cycle logic is built on. Dates are plain year/month/day values
// with no time-of-day or zone component; conversions to and from a continuous
// day count use the civil-calendar algorithms from
// http://howardhinnant.github.io/date_algorithms.html
package calendar

import (
	"errors"
	"fmt"
)

// Date is a calendar date. The zero value is not a valid date.
type Date struct {
	Year  int
	Month int
	Day   int
}

// Weekday numbering: 0=Monday … 6=Sunday.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func (w Weekday) String() string {
	if w < Monday || w > Sunday {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return weekdayNames[w]
}

// New builds a Date from its parts.
func New(year, month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

var ErrInvalidDate = errors.New("invalid date format, expected YYYY-MM-DD")

// Parse reads an ISO calendar date (YYYY-MM-DD). Only the shape is checked
// here; calendar validity is the caller's concern.
func Parse(s string) (Date, error) {
	var d Date
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return Date{}, ErrInvalidDate
	}
	if _, err := fmt.Sscanf(s, "%04d-%02d-%02d", &d.Year, &d.Month, &d.Day); err != nil {
		return Date{}, ErrInvalidDate
	}
	if d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > 31 {
		return Date{}, ErrInvalidDate
	}
	return d, nil
}

// String formats the date as ISO YYYY-MM-DD. The zero-padded form sorts
// lexicographically in date order, which the storage layer relies on.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// DayNumber converts the date to days since 1970-01-01. Valid across the
// whole proleptic range, negative years included.
func (d Date) DayNumber() int {
	y := d.Year
	if d.Month <= 2 {
		y--
	}
	era := y
	if y < 0 {
		era = y - 399
	}
	era /= 400
	yoe := y - era*400 // [0, 399]
	m := d.Month
	mp := m + 9
	if m > 2 {
		mp = m - 3
	}
	doy := (153*mp+2)/5 + d.Day - 1          // [0, 365]
	doe := yoe*365 + yoe/4 - yoe/100 + doy   // [0, 146096]
	return era*146097 + doe - 719468
}

// FromDayNumber is the exact inverse of DayNumber.
func FromDayNumber(n int) Date {
	z := n + 719468
	era := z
	if z < 0 {
		era = z - 146096
	}
	era /= 146097
	doe := z - era*146097                                  // [0, 146096]
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365 // [0, 399]
	y := yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100) // [0, 365]
	mp := (5*doy + 2) / 153                  // [0, 11]
	day := doy - (153*mp+2)/5 + 1
	month := mp - 9
	if mp < 10 {
		month = mp + 3
	}
	if month <= 2 {
		y++
	}
	return Date{Year: y, Month: month, Day: day}
}

// Weekday returns the day of week. Day number 0 (1970-01-01) was a Thursday.
func (d Date) Weekday() Weekday {
	return Weekday(((d.DayNumber() % 7) + 7 + 3) % 7)
}

// AdjustForWeekend moves a Saturday back one day and a Sunday back two days,
// landing on the preceding Friday. The shift happens in day-number space so
// month and year rollovers fall out for free. Weekdays are returned as is.
func (d Date) AdjustForWeekend() Date {
	var shift int
	switch d.Weekday() {
	case Saturday:
		shift = 1
	case Sunday:
		shift = 2
	default:
		return d
	}
	return FromDayNumber(d.DayNumber() - shift)
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return FromDayNumber(d.DayNumber() + n)
}

// Before reports whether d falls strictly before other.
func (d Date) Before(other Date) bool {
	return d.DayNumber() < other.DayNumber()
}
