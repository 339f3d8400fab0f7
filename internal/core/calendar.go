package core

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// maxYear is the last year a Date may fall in.
const maxYear = 9999

// maxDays bounds day and week steps before any calendar arithmetic happens.
const maxDays = (maxYear + 1) * 366

var (
	compactDateRe   = regexp.MustCompile(`^(\d{2})(\d{2})(\d{2})$`)
	separatedDateRe = regexp.MustCompile(`^(\d{2})([./])(\d{2})([./])(\d{2}|\d{4})$`)
)

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddPeriod advances d by n units.
//
// Day and week steps are exact. Month and year steps keep the day of the
// month and clamp it to the last day of the target month when the target
// month is shorter: Jan 31 + 1m is Feb 28 (Feb 29 in leap years), and
// Feb 29 + 1y is Feb 28. The step is always taken from d in one move, so
// Jan 31 + 2m is Mar 31, never Mar 28.
func AddPeriod(d Date, unit TimeUnit, n int) (Date, error) {
	if n < 0 {
		return Date{}, fmt.Errorf("%w: negative step %d", ErrInvalidLifetime, n)
	}
	switch unit {
	case Day:
		return addDays(d, int64(n))
	case Week:
		return addDays(d, int64(n)*7)
	case Month:
		months := int64(d.Year())*12 + int64(d.Month()-1) + int64(n)
		return clampedDate(months/12, int(months%12)+1, d.Day())
	case Year:
		return clampedDate(int64(d.Year())+int64(n), d.Month(), d.Day())
	default:
		return Date{}, fmt.Errorf("%w: unknown unit %q", ErrInvalidLifetime, string(unit))
	}
}

func addDays(d Date, n int64) (Date, error) {
	if n > maxDays {
		return Date{}, fmt.Errorf("%w: %d days from %s", ErrArithmeticOverflow, n, d)
	}
	out := d.AddDays(int(n))
	if out.Year() > maxYear {
		return Date{}, fmt.Errorf("%w: %d days from %s", ErrArithmeticOverflow, n, d)
	}
	return out, nil
}

func clampedDate(year int64, month, day int) (Date, error) {
	if year > maxYear {
		return Date{}, fmt.Errorf("%w: year %d", ErrArithmeticOverflow, year)
	}
	if last := daysIn(int(year), time.Month(month)); day > last {
		day = last
	}
	return NewDate(int(year), month, day), nil
}

// LifetimeEnd returns the first day after the lifetime that starts on since,
// i.e. since advanced by Count*Repeat units.
func LifetimeEnd(since Date, l Lifetime) (Date, error) {
	if err := l.Validate(); err != nil {
		return Date{}, err
	}
	if l.Count > math.MaxInt32 || l.Repeat > math.MaxInt32/l.Count {
		return Date{}, fmt.Errorf("%w: lifetime %s", ErrArithmeticOverflow, l)
	}
	return AddPeriod(since, l.Unit, l.Count*l.Repeat)
}

// DateFromDMY builds a date from the digits of a little-endian day, month,
// year triple. Two-digit years are read as 20yy.
func DateFromDMY(day, month, year string) (Date, error) {
	d, err := strconv.Atoi(day)
	if err != nil {
		return Date{}, fmt.Errorf("%w: day %q", ErrInvalidDate, day)
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return Date{}, fmt.Errorf("%w: month %q", ErrInvalidDate, month)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return Date{}, fmt.Errorf("%w: year %q", ErrInvalidDate, year)
	}
	if len(year) == 2 {
		y += 2000
	}
	return DateOf(y, m, d)
}

// ParseDate parses the date formats accepted on input:
//
//	ddmmyy, dd.mm.yy, dd/mm/yy, dd.mm.yyyy, dd/mm/yyyy, yyyy-mm-dd
func ParseDate(s string) (Date, error) {
	if m := compactDateRe.FindStringSubmatch(s); m != nil {
		return DateFromDMY(m[1], m[2], m[3])
	}
	if m := separatedDateRe.FindStringSubmatch(s); m != nil && m[2] == m[4] {
		return DateFromDMY(m[1], m[3], m[5])
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Today(t), nil
	}
	return Date{}, fmt.Errorf("%w: unrecognized format %q", ErrInvalidDate, s)
}
