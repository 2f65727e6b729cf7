package calendar

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrInvalidDate     = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidClock    = errors.New("invalid time, expected HH:MM")
	ErrUnknownTimezone = errors.New("unknown timezone")
)

const (
	MinutesPerDay = 24 * 60

	dateLayout = "2006-01-02"

	// Offsets are at most a couple of fixed steps away from the naive guess,
	// so three corrections always settle (or land on the post-gap instant).
	maxOffsetCorrections = 3
)

// Date is a calendar day without a timezone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// ParseDate parses a strict YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	if len(s) != len(dateLayout) {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// DateFromStorage reads a date-only column value stored at UTC midnight.
func DateFromStorage(t time.Time) Date {
	return DateOf(t.UTC())
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// StorageTime maps the date to UTC midnight, the representation used for every
// persisted date-only field.
func (d Date) StorageTime() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.StorageTime().AddDate(0, 0, n))
}

func (d Date) Weekday() time.Weekday {
	return d.StorageTime().Weekday()
}

// DaysUntil returns the number of calendar days from d to o (negative when o is earlier).
func (d Date) DaysUntil(o Date) int {
	return int(o.StorageTime().Sub(d.StorageTime()).Hours() / 24)
}

func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

// Between reports whether d lies in the inclusive range [from, to].
func (d Date) Between(from, to Date) bool {
	return !d.Before(from) && !d.After(to)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Clock is a wall-clock time of day in minutes since midnight.
type Clock int

// ParseClock parses a strict HH:MM string.
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, okH := twoDigits(s[0], s[1])
	m, okM := twoDigits(s[3], s[4])
	if !okH || !okM || h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock(h*60 + m), nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Zone is a clinic timezone. All local <-> UTC conversions go through it.
type Zone struct {
	name string
	loc  *time.Location
}

var zoneCache sync.Map // name -> *time.Location

// LoadZone resolves an IANA timezone name.
func LoadZone(name string) (Zone, error) {
	if name == "" {
		return Zone{}, fmt.Errorf("%w: empty name", ErrUnknownTimezone)
	}
	if loc, ok := zoneCache.Load(name); ok {
		return Zone{name: name, loc: loc.(*time.Location)}, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Zone{}, fmt.Errorf("%w: %q", ErrUnknownTimezone, name)
	}
	zoneCache.Store(name, loc)
	return Zone{name: name, loc: loc}, nil
}

func (z Zone) Name() string              { return z.name }
func (z Zone) Location() *time.Location { return z.loc }

// ToUTC resolves a clinic-local wall-clock time to a UTC instant.
//
// The naive UTC guess is rendered back into the zone and moved by the
// minute/day delta from the wanted wall time until the delta is zero.
func (z Zone) ToUTC(d Date, c Clock) time.Time {
	guess := time.Date(d.Year, d.Month, d.Day, c.Hour(), c.Minute(), 0, 0, time.UTC)
	for i := 0; i < maxOffsetCorrections; i++ {
		delta := wallDelta(guess.In(z.loc), d, c)
		if delta == 0 {
			break
		}
		guess = guess.Add(time.Duration(delta) * time.Minute)
	}
	return guess
}

// ToUTCMinutes is ToUTC for a cursor that may run past midnight
// (minutes >= MinutesPerDay roll into the following local days).
func (z Zone) ToUTCMinutes(d Date, minutes int) time.Time {
	days := minutes / MinutesPerDay
	return z.ToUTC(d.AddDays(days), Clock(minutes%MinutesPerDay))
}

func wallDelta(rendered time.Time, d Date, c Clock) int {
	have := Clock(rendered.Hour()*60 + rendered.Minute())
	return DateOf(rendered).DaysUntil(d)*MinutesPerDay + int(c) - int(have)
}

func (z Zone) DateOf(t time.Time) Date {
	return DateOf(t.In(z.loc))
}

func (z Zone) ClockOf(t time.Time) Clock {
	local := t.In(z.loc)
	return Clock(local.Hour()*60 + local.Minute())
}

// Today is the clinic-local calendar day at instant now.
func (z Zone) Today(now time.Time) Date {
	return z.DateOf(now)
}

// String-level helpers for collaborators that speak YYYY-MM-DD / HH:MM.

func LocalDateTimeToUTC(date, clock, tz string) (time.Time, error) {
	z, err := LoadZone(tz)
	if err != nil {
		return time.Time{}, err
	}
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	c, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return z.ToUTC(d, c), nil
}

func UTCToLocalDate(t time.Time, tz string) (string, error) {
	z, err := LoadZone(tz)
	if err != nil {
		return "", err
	}
	return z.DateOf(t).String(), nil
}

func UTCToLocalTime(t time.Time, tz string) (string, error) {
	z, err := LoadZone(tz)
	if err != nil {
		return "", err
	}
	return z.ClockOf(t).String(), nil
}

func DateOnlyToStorage(date string) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	return d.StorageTime(), nil
}

func AddCalendarDays(date string, n int, tz string) (string, error) {
	if _, err := LoadZone(tz); err != nil {
		return "", err
	}
	d, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return d.AddDays(n).String(), nil
}

// DayOfWeek returns 0 (Sunday) .. 6 (Saturday) for a clinic-local date.
func DayOfWeek(date, tz string) (int, error) {
	if _, err := LoadZone(tz); err != nil {
		return 0, err
	}
	d, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return int(d.Weekday()), nil
}
