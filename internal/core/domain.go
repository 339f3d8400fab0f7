package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Day   TimeUnit = "d"
	Week  TimeUnit = "w"
	Month TimeUnit = "m"
	Year  TimeUnit = "y"
)

const dateLayout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

type (
	// TimeUnit is the length of one lifetime period.
	TimeUnit string

	// Date is a calendar date, always stored at UTC midnight.
	Date struct {
		time.Time
	}

	// Lifetime is Repeat consecutive periods of Count units each.
	Lifetime struct {
		Unit   TimeUnit
		Count  int
		Repeat int
	}

	Transaction struct {
		Title      string
		Amount     decimal.Decimal
		Since      Date
		Lifetime   Lifetime
		Tags       []string // normalized: lowercase, unique, sorted
		RecordedAt time.Time
		Source     string // raw input line, empty when built programmatically
	}
)

// DefaultLifetime is a single day, used when the input names no lifetime.
var DefaultLifetime = Lifetime{Unit: Day, Count: 1, Repeat: 1}

// IsValid reports whether u is one of the four known units.
func (u TimeUnit) IsValid() bool {
	switch u {
	case Day, Week, Month, Year:
		return true
	}
	return false
}

// Name returns the long name of the unit ("day", "week", ...).
func (u TimeUnit) Name() string {
	switch u {
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	case Year:
		return "year"
	}
	return "unknown"
}

func (l Lifetime) Validate() error {
	if !l.Unit.IsValid() {
		return fmt.Errorf("%w: unknown unit %q", ErrInvalidLifetime, string(l.Unit))
	}
	if l.Count < 1 {
		return fmt.Errorf("%w: count must be positive", ErrInvalidLifetime)
	}
	if l.Repeat < 1 {
		return fmt.Errorf("%w: repeat must be positive", ErrInvalidLifetime)
	}
	return nil
}

// String renders the lifetime in the stored form, e.g. "1m12x".
func (l Lifetime) String() string {
	return fmt.Sprintf("%d%s%dx", l.Count, l.Unit, l.Repeat)
}

// NewDate creates a new Date from year, month, day. Out of range values are
// normalized the way time.Date does; use DateOf to reject them instead.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf builds a calendar date and fails with ErrInvalidDate when the day
// does not exist in that month.
func DateOf(year, month, day int) (Date, error) {
	if year < 1 || year > maxYear {
		return Date{}, fmt.Errorf("%w: year %d out of range", ErrInvalidDate, year)
	}
	if month < 1 || month > 12 {
		return Date{}, fmt.Errorf("%w: month %d out of range", ErrInvalidDate, month)
	}
	if day < 1 || day > daysIn(year, time.Month(month)) {
		return Date{}, fmt.Errorf("%w: day %d out of range for %04d-%02d", ErrInvalidDate, day, year, month)
	}
	return NewDate(year, month, day), nil
}

// Today returns the calendar date of now, in now's own location.
func Today(now time.Time) Date {
	y, m, d := now.Date()
	return NewDate(y, int(m), d)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysUntil returns the number of days from d to other, negative when other
// is earlier. Both dates are UTC midnights, so whole days divide exactly;
// time.Duration would saturate past about 292 years.
func (d Date) DaysUntil(other Date) int {
	return int((other.Unix() - d.Unix()) / secondsPerDay)
}

func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool  { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool  { return d.Time.Equal(other.Time) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NormalizeTag lowercases a tag and strips a leading '#' or '.' marker.
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimLeft(tag, "#.")
	return strings.ToLower(tag)
}

// NormalizeTags returns the normalized, deduplicated and alphabetically
// sorted tag set. Empty tags are dropped.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = NormalizeTag(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// NewTransaction builds a validated transaction with normalized tags.
func NewTransaction(title string, amount decimal.Decimal, since Date, lifetime Lifetime, tags []string) (Transaction, error) {
	tx := Transaction{
		Title:    strings.TrimSpace(title),
		Amount:   amount,
		Since:    since,
		Lifetime: lifetime,
		Tags:     NormalizeTags(tags),
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrMissingTitle
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if err := t.Since.Validate(); err != nil {
		return err
	}
	if err := t.Lifetime.Validate(); err != nil {
		return err
	}
	// The lifetime must end inside the calendar, or it can never be evaluated.
	if _, err := LifetimeEnd(t.Since, t.Lifetime); err != nil {
		return err
	}
	return nil
}

// HasTag reports whether the transaction carries tag, compared
// case-insensitively.
func (t Transaction) HasTag(tag string) bool {
	tag = NormalizeTag(tag)
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

func (t Transaction) String() string {
	return t.Title
}
