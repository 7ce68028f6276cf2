/*
value.go - Value, a zone-aware point in time

A Value is an instant (milliseconds since the Unix epoch) bound to a Config.
The instant and the location together determine every calendar field.

LIFECYCLE:
  - FromMillis / FromTime: from an instant
  - Of: from field values, trailing hour/minute/second/millisecond default to 0
  - Now: from a Clock
  - Clone: an independent copy

Values are plain data. Set and Add mutate in place and re-derive the instant;
they are meant for Values the caller owns (for example a working copy).
*/
package calendar

import (
	"errors"
	"time"
)

const (
	msPerSecond = 1000
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
	nsPerMilli  = int64(time.Millisecond)
)

// Value is a zone-aware point in time with millisecond precision.
type Value struct {
	ms  int64
	cfg Config
}

// FromMillis binds an instant to cfg.
func FromMillis(ms int64, cfg Config) Value {
	return Value{ms: ms, cfg: cfg}
}

// FromTime binds t, truncated to milliseconds, to cfg.
func FromTime(t time.Time, cfg Config) Value {
	return Value{ms: t.UnixMilli(), cfg: cfg}
}

// Now returns the current instant of clock bound to cfg.
func Now(clock Clock, cfg Config) Value {
	if clock == nil {
		clock = SystemClock{}
	}
	return FromTime(clock.Now(), cfg)
}

// Of builds a Value from field values in cfg's location. rest holds hour,
// minute, second and millisecond; missing trailing fields are zero.
//
// A lenient cfg normalizes out-of-range values (October 32 becomes
// November 1). A strict cfg rejects them with ErrFieldOutOfRange.
func Of(cfg Config, year int, month time.Month, day int, rest ...int) (Value, error) {
	var hms [4]int
	copy(hms[:], rest)
	if !cfg.Lenient {
		checks := []struct {
			f        Field
			v        int
			min, max int
		}{
			{Month, int(month), 1, 12},
			{Day, day, 1, daysIn(month, year)},
			{Hour, hms[0], 0, 23},
			{Minute, hms[1], 0, 59},
			{Second, hms[2], 0, 59},
			{Millisecond, hms[3], 0, 999},
		}
		for _, c := range checks {
			if c.v < c.min || c.v > c.max {
				return Value{}, &FieldError{Op: "of", Field: c.f, Value: c.v, Err: ErrFieldOutOfRange}
			}
		}
	}
	t := time.Date(year, month, day, hms[0], hms[1], hms[2], hms[3]*int(nsPerMilli), cfg.location())
	return FromTime(t, cfg), nil
}

// MustOf is like Of but panics on error. Intended for tests and constants.
func MustOf(cfg Config, year int, month time.Month, day int, rest ...int) Value {
	v, err := Of(cfg, year, month, day, rest...)
	if err != nil {
		panic(err)
	}
	return v
}

// Clone returns an independent copy of v.
func (v Value) Clone() Value { return v }

// Millis returns the instant in milliseconds since the Unix epoch.
func (v Value) Millis() int64 { return v.ms }

// Config returns the settings v is bound to.
func (v Value) Config() Config { return v.cfg }

// Location returns the location calendar fields are resolved in.
func (v Value) Location() *time.Location { return v.cfg.location() }

// Time returns v as a time.Time in its location.
func (v Value) Time() time.Time { return time.UnixMilli(v.ms).In(v.cfg.location()) }

// In returns a copy of v bound to loc. The instant is unchanged.
func (v Value) In(loc *time.Location) Value {
	v.cfg.Location = loc
	return v
}

// Properties
func (v Value) Year() int               { return v.Time().Year() }
func (v Value) Month() time.Month       { return v.Time().Month() }
func (v Value) Day() int                { return v.Time().Day() }
func (v Value) Hour() int               { return v.Time().Hour() }
func (v Value) Minute() int             { return v.Time().Minute() }
func (v Value) Second() int             { return v.Time().Second() }
func (v Value) Millisecond() int        { return v.Time().Nanosecond() / int(nsPerMilli) }
func (v Value) Weekday() time.Weekday   { return v.Time().Weekday() }
func (v Value) YearDay() int            { return v.Time().YearDay() }
func (v Value) WeekOfMonth() int        { return weekNumber(v.Day(), v.Weekday(), v.cfg.FirstDayOfWeek) }
func (v Value) WeekOfYear() int         { return weekNumber(v.YearDay(), v.Weekday(), v.cfg.FirstDayOfWeek) }
func (v Value) Before(other Value) bool { return v.ms < other.ms }
func (v Value) After(other Value) bool  { return v.ms > other.ms }
func (v Value) Equal(other Value) bool  { return v.ms == other.ms }

// ISOWeekday returns the ISO 8601 weekday, Monday=1 through Sunday=7.
func (v Value) ISOWeekday() int {
	if wd := v.Weekday(); wd != time.Sunday {
		return int(wd)
	}
	return 7
}

// Compare returns -1, 0 or +1 depending on whether v is before, equal to or
// after other.
func (v Value) Compare(other Value) int {
	switch {
	case v.ms < other.ms:
		return -1
	case v.ms > other.ms:
		return 1
	}
	return 0
}

// String formats v as RFC 3339 with milliseconds.
func (v Value) String() string {
	return v.Time().Format("2006-01-02T15:04:05.000Z07:00")
}

// Get returns the value of field f. Month is 1-12, DayOfWeek is a
// time.Weekday (Sunday=0).
func (v Value) Get(f Field) (int, error) {
	t := v.Time()
	switch f {
	case Year:
		return t.Year(), nil
	case Month:
		return int(t.Month()), nil
	case WeekOfYear:
		return v.WeekOfYear(), nil
	case WeekOfMonth:
		return v.WeekOfMonth(), nil
	case DayOfWeek:
		return int(t.Weekday()), nil
	case Day:
		return t.Day(), nil
	case Hour:
		return t.Hour(), nil
	case Minute:
		return t.Minute(), nil
	case Second:
		return t.Second(), nil
	case Millisecond:
		return t.Nanosecond() / int(nsPerMilli), nil
	}
	return 0, unsupported("get", f)
}

// =============================================================================
// MUTATORS - In place, for Values the caller owns
// =============================================================================

// Set writes field f and re-derives the instant. Fields not named keep their
// wall-clock values. A strict Value rejects writes that leave a field out of
// range, including a day that no longer exists in the new month.
func (v *Value) Set(f Field, n int) error {
	switch f {
	case DayOfWeek:
		if !v.cfg.Lenient && (n < int(time.Sunday) || n > int(time.Saturday)) {
			return &FieldError{Op: "set", Field: f, Value: n, Err: ErrFieldOutOfRange}
		}
		fdw := v.cfg.FirstDayOfWeek
		target := time.Weekday(((n % 7) + 7) % 7)
		return v.Add(Day, weekdayIndex(target, fdw)-weekdayIndex(v.Weekday(), fdw))
	case WeekOfMonth, WeekOfYear:
		if !v.cfg.Lenient && n < 1 {
			return &FieldError{Op: "set", Field: f, Value: n, Err: ErrFieldOutOfRange}
		}
		cur, _ := v.Get(f)
		return v.Add(Day, 7*(n-cur))
	}

	t := v.Time()
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()
	ms := t.Nanosecond() / int(nsPerMilli)

	switch f {
	case Year:
		year = n
	case Month:
		month = time.Month(n)
	case Day:
		day = n
	case Hour:
		hour = n
	case Minute:
		minute = n
	case Second:
		sec = n
	case Millisecond:
		ms = n
	default:
		return unsupported("set", f)
	}

	nv, err := Of(v.cfg, year, month, day, hour, minute, sec, ms)
	if err != nil {
		var fe *FieldError
		if errors.As(err, &fe) && fe.Field != f {
			// Report the field the caller wrote, not the one that broke.
			fe.Op = "set " + f.String()
		}
		return err
	}
	v.ms = nv.ms
	return nil
}

// Add adds n units of field f. Adding months or years pins the day of month
// to the last day of the target month, so January 31 plus one month is the
// last day of February. Hours and finer are added as elapsed time; days and
// weeks keep the wall clock.
func (v *Value) Add(f Field, n int) error {
	if n == 0 {
		if !f.valid() {
			return unsupported("add", f)
		}
		return nil
	}
	t := v.Time()
	switch f {
	case Year:
		t = addMonthsPinned(t, 12*n)
	case Month:
		t = addMonthsPinned(t, n)
	case WeekOfYear, WeekOfMonth:
		t = t.AddDate(0, 0, 7*n)
	case Day, DayOfWeek:
		t = t.AddDate(0, 0, n)
	case Hour:
		t = t.Add(time.Duration(n) * time.Hour)
	case Minute:
		t = t.Add(time.Duration(n) * time.Minute)
	case Second:
		t = t.Add(time.Duration(n) * time.Second)
	case Millisecond:
		t = t.Add(time.Duration(n) * time.Millisecond)
	default:
		return unsupported("add", f)
	}
	v.ms = t.UnixMilli()
	return nil
}

// =============================================================================
// CALENDAR HELPERS
// =============================================================================

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

var daysPerMonth = [...]int{
	time.January:   31,
	time.February:  28,
	time.March:     31,
	time.April:     30,
	time.May:       31,
	time.June:      30,
	time.July:      31,
	time.August:    31,
	time.September: 30,
	time.October:   31,
	time.November:  30,
	time.December:  31,
}

// daysIn returns the number of days of month m in year. Out-of-range months
// are normalized first.
func daysIn(m time.Month, year int) int {
	year, mi := norm(year, int(m)-1, 12)
	m = time.Month(mi + 1)
	if m == time.February && isLeap(year) {
		return 29
	}
	return daysPerMonth[m]
}

// norm returns nhi, nlo such that
//
//	hi * base + lo == nhi * base + nlo
//	0 <= nlo < base
func norm(hi, lo, base int) (nhi, nlo int) {
	if lo < 0 {
		n := (-lo-1)/base + 1
		hi -= n
		lo += n * base
	}
	if lo >= base {
		n := lo / base
		hi += n
		lo -= n * base
	}
	return hi, lo
}

func addMonthsPinned(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()
	year, m := norm(year, int(month)-1+months, 12)
	month = time.Month(m + 1)
	if last := daysIn(month, year); day > last {
		day = last
	}
	return time.Date(year, month, day, hour, minute, sec, t.Nanosecond(), t.Location())
}

// weekdayIndex returns the position of wd in a week starting on first, 0-6.
func weekdayIndex(wd, first time.Weekday) int {
	return (int(wd) - int(first) + 7) % 7
}

// weekNumber returns the 1-based week containing ordinal day n (day of month
// or day of year) whose weekday is wd. A week that starts before day 1
// counts as week 1.
func weekNumber(n int, wd, first time.Weekday) int {
	// weekday of day 1
	startWd := time.Weekday(((int(wd)-(n-1))%7 + 7) % 7)
	offset := weekdayIndex(startWd, first)
	return (n-1+offset)/7 + 1
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}
