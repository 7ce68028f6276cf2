/*
Package calendar provides the calendar arithmetic engine.

PURPOSE:
  Computes with zone-aware points in time at calendar granularity:
  the signed difference between two points in a chosen unit under a chosen
  rounding policy, truncation to the start or end of a calendar period, and
  equality of two instants at a calendar granularity.

KEY CONCEPTS IN THIS FILE (field.go):
  - Field: a calendar unit (year ... millisecond)
  - Calendar fields (year, month) have variable length
  - Physical fields (day and finer) have a fixed length in milliseconds

OPERATIONS:
  Difference(from, to, field, rounding)   difference.go
  Truncate(value, field, towardStart)     truncate.go
  SameBucket(a, b, field, cfg)            same.go
  MillisecondsPerUnit(field)              units.go

CONCURRENCY:
  Every operation is a pure function of its inputs. A Value is owned by one
  computation at a time; Clone before sharing a Value you intend to mutate.

SEE ALSO:
  - value.go: Value, the zone-aware point in time
  - rounding.go: rounding policy table
*/
package calendar

import (
	"fmt"
	"strings"
)

// =============================================================================
// FIELD - Calendar unit selector
// =============================================================================

// Field selects a calendar unit. Fields are ordered from coarsest to finest.
type Field int

const (
	Year Field = iota
	Month
	WeekOfYear
	WeekOfMonth
	DayOfWeek
	Day
	Hour
	Minute
	Second
	Millisecond
)

var fieldNames = [...]string{
	Year:        "year",
	Month:       "month",
	WeekOfYear:  "week_of_year",
	WeekOfMonth: "week_of_month",
	DayOfWeek:   "day_of_week",
	Day:         "day",
	Hour:        "hour",
	Minute:      "minute",
	Second:      "second",
	Millisecond: "millisecond",
}

// Fields lists every field, coarsest first.
func Fields() []Field {
	return []Field{Year, Month, WeekOfYear, WeekOfMonth, DayOfWeek, Day, Hour, Minute, Second, Millisecond}
}

func (f Field) String() string {
	if f.valid() {
		return fieldNames[f]
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

func (f Field) valid() bool { return f >= Year && f <= Millisecond }

// IsCalendar reports whether f has a variable length (year, month).
func (f Field) IsCalendar() bool { return f == Year || f == Month }

// IsPhysical reports whether f has a fixed length in milliseconds.
func (f Field) IsPhysical() bool { return f >= Day && f <= Millisecond }

// IsWeek reports whether f selects a week-based bucket.
func (f Field) IsWeek() bool { return f == WeekOfYear || f == WeekOfMonth || f == DayOfWeek }

// ParseField parses a field name. Names are case-insensitive; "week" is an
// alias for week_of_month and plural forms are accepted.
func ParseField(s string) (Field, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "-", "_")
	switch name {
	case "week", "weeks":
		return WeekOfMonth, nil
	case "ms", "millis":
		return Millisecond, nil
	}
	name = strings.TrimSuffix(name, "s")
	for f, n := range fieldNames {
		if n == name {
			return Field(f), nil
		}
	}
	return 0, &FieldError{Op: "parse", Name: s, Err: ErrUnsupportedField}
}

// MarshalText implements encoding.TextMarshaler.
func (f Field) MarshalText() ([]byte, error) {
	if !f.valid() {
		return nil, &FieldError{Op: "marshal", Field: f, Err: ErrUnsupportedField}
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Field) UnmarshalText(b []byte) error {
	v, err := ParseField(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
