/*
Package factory converts wire-level inputs into calendar engine values.

PURPOSE:
  The calendar core does not parse strings. The HTTP API and the CLI accept
  field names, rounding names, zone names, weekday names and timestamps as
  text; this package turns them into calendar.Field, calendar.Rounding,
  calendar.Config and calendar.Value, so both surfaces agree on the format.

ACCEPTED TIME FORMATS:
  - RFC 3339 with offset:      2024-03-31T00:00:00Z, 2024-03-31T09:00:00+09:00
  - Local date-time (zone of the request): 2024-03-31T10:30, 2024-03-31 10:30:15.250
  - Local date:                2024-03-31
    Local inputs follow the config's leniency: 2023-10-32 is November 1
    when lenient and a field error when strict.
  - Epoch milliseconds:        1711843200000
  - "now" (factory clock)

ACCEPTED ZONES:
  IANA names (Asia/Seoul), "UTC", fixed offsets (+09:00, UTC+9, -0330).
  "Local" is rejected: the engine never reads process-wide settings.

JSON SCHEMA (difference):
  {
    "from": "2024-03-30", "to": 1706659200000,
    "field": "month", "rounding": "half_up",
    "zone": "Asia/Seoul", "first_day": "monday"
  }

USAGE:
  f := factory.New(calendar.DefaultConfig())
  in, err := f.Difference(factory.DifferenceJSON{From: "2024-03-30", To: "2024-01-31", Field: "month"})
  n, err := calendar.Difference(in.From, in.To, in.Field, in.Rounding)

SEE ALSO:
  - calendar/: the engine
  - api/dto.go: embeds the JSON types below
*/
package factory

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone names resolve without a system zoneinfo

	"github.com/warp/calendar-engine/calendar"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// Instant is a JSON time input: a string in one of the accepted formats or
// a number of epoch milliseconds.
type Instant string

// UnmarshalJSON accepts both strings and numbers.
func (i *Instant) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*i = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*i = Instant(str)
		return nil
	}
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return fmt.Errorf("instant must be a string or integer milliseconds: %s", s)
	}
	*i = Instant(s)
	return nil
}

// ZoneJSON selects the calendar settings of a request. Empty fields fall
// back to the factory default (or the named profile, resolved by the caller).
type ZoneJSON struct {
	Zone     string `json:"zone,omitempty"`
	FirstDay string `json:"first_day,omitempty"`
	Profile  string `json:"profile,omitempty"`
}

// DifferenceJSON is the JSON form of a difference request.
type DifferenceJSON struct {
	From     Instant `json:"from"`
	To       Instant `json:"to"`
	Field    string  `json:"field"`
	Rounding string  `json:"rounding,omitempty"`
	ZoneJSON
}

// TruncateJSON is the JSON form of a truncate request.
type TruncateJSON struct {
	Value     Instant `json:"value"`
	Field     string  `json:"field"`
	Direction string  `json:"direction,omitempty"` // "begin" (default) or "end"
	ZoneJSON
}

// SameJSON is the JSON form of a same-bucket request.
type SameJSON struct {
	A     Instant `json:"a"`
	B     Instant `json:"b"`
	Field string  `json:"field"`
	ZoneJSON
}

// =============================================================================
// PARSED INPUTS
// =============================================================================

type DifferenceInput struct {
	From, To calendar.Value
	Field    calendar.Field
	Rounding calendar.Rounding
}

type TruncateInput struct {
	Value       calendar.Value
	Field       calendar.Field
	TowardStart bool
}

type SameInput struct {
	A, B   int64
	Field  calendar.Field
	Config calendar.Config
}

// =============================================================================
// FACTORY
// =============================================================================

// Factory parses requests against a default calendar configuration.
type Factory struct {
	Default  calendar.Config
	Rounding calendar.Rounding
	Clock    calendar.Clock
}

// New creates a factory with HalfUp as the default rounding.
func New(def calendar.Config) *Factory {
	return &Factory{Default: def, Rounding: calendar.HalfUp, Clock: calendar.SystemClock{}}
}

// Config resolves zone settings on top of base.
func (f *Factory) Config(z ZoneJSON, base calendar.Config) (calendar.Config, error) {
	cfg := base
	if z.Zone != "" {
		loc, err := ParseZone(z.Zone)
		if err != nil {
			return cfg, err
		}
		cfg.Location = loc
	}
	if z.FirstDay != "" {
		wd, err := ParseWeekday(z.FirstDay)
		if err != nil {
			return cfg, err
		}
		cfg.FirstDayOfWeek = wd
	}
	return cfg, nil
}

// Difference parses a difference request against base.
func (f *Factory) Difference(dj DifferenceJSON, base calendar.Config) (DifferenceInput, error) {
	cfg, err := f.Config(dj.ZoneJSON, base)
	if err != nil {
		return DifferenceInput{}, err
	}
	field, err := calendar.ParseField(dj.Field)
	if err != nil {
		return DifferenceInput{}, err
	}
	rounding := f.Rounding
	if dj.Rounding != "" {
		if rounding, err = calendar.ParseRounding(dj.Rounding); err != nil {
			return DifferenceInput{}, err
		}
	}
	from, err := f.Value(string(dj.From), cfg)
	if err != nil {
		return DifferenceInput{}, fmt.Errorf("from: %w", err)
	}
	to, err := f.Value(string(dj.To), cfg)
	if err != nil {
		return DifferenceInput{}, fmt.Errorf("to: %w", err)
	}
	return DifferenceInput{From: from, To: to, Field: field, Rounding: rounding}, nil
}

// Truncate parses a truncate request against base.
func (f *Factory) Truncate(tj TruncateJSON, base calendar.Config) (TruncateInput, error) {
	cfg, err := f.Config(tj.ZoneJSON, base)
	if err != nil {
		return TruncateInput{}, err
	}
	field, err := calendar.ParseField(tj.Field)
	if err != nil {
		return TruncateInput{}, err
	}
	var towardStart bool
	switch strings.ToLower(tj.Direction) {
	case "", "begin", "start":
		towardStart = true
	case "end":
	default:
		return TruncateInput{}, fmt.Errorf("direction must be begin or end, got %q", tj.Direction)
	}
	v, err := f.Value(string(tj.Value), cfg)
	if err != nil {
		return TruncateInput{}, fmt.Errorf("value: %w", err)
	}
	return TruncateInput{Value: v, Field: field, TowardStart: towardStart}, nil
}

// Same parses a same-bucket request against base.
func (f *Factory) Same(sj SameJSON, base calendar.Config) (SameInput, error) {
	cfg, err := f.Config(sj.ZoneJSON, base)
	if err != nil {
		return SameInput{}, err
	}
	field, err := calendar.ParseField(sj.Field)
	if err != nil {
		return SameInput{}, err
	}
	a, err := f.Value(string(sj.A), cfg)
	if err != nil {
		return SameInput{}, fmt.Errorf("a: %w", err)
	}
	b, err := f.Value(string(sj.B), cfg)
	if err != nil {
		return SameInput{}, fmt.Errorf("b: %w", err)
	}
	return SameInput{A: a.Millis(), B: b.Millis(), Field: field, Config: cfg}, nil
}

// =============================================================================
// SCALAR PARSERS
// =============================================================================

// localPattern matches a date or date-time without an offset. Fields are
// captured as digits only so a lenient config can roll over out-of-range
// values (2023-10-32 is November 1).
var localPattern = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[T ](\d{1,2}):(\d{2})(?::(\d{2})(?:\.(\d{1,9}))?)?)?$`)

// Value parses a time input and binds it to cfg. Inputs without an offset
// are read as wall-clock time in cfg's location through calendar.Of, so a
// strict cfg rejects out-of-range fields and a lenient one normalizes them.
func (f *Factory) Value(s string, cfg calendar.Config) (calendar.Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return calendar.Value{}, fmt.Errorf("empty time")
	}
	if strings.EqualFold(s, "now") {
		return calendar.Now(f.Clock, cfg), nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return calendar.FromMillis(ms, cfg), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return calendar.FromTime(t, cfg), nil
	}
	m := localPattern.FindStringSubmatch(s)
	if m == nil {
		return calendar.Value{}, fmt.Errorf("unrecognized time %q", s)
	}
	var n [6]int
	for i, part := range m[1:7] {
		if part != "" {
			n[i], _ = strconv.Atoi(part)
		}
	}
	milli := 0
	if frac := m[7]; frac != "" {
		milli, _ = strconv.Atoi((frac + "00")[:3])
	}
	v, err := calendar.Of(cfg, n[0], time.Month(n[1]), n[2], n[3], n[4], n[5], milli)
	if err != nil {
		return calendar.Value{}, fmt.Errorf("time %q: %w", s, err)
	}
	return v, nil
}

var offsetPattern = regexp.MustCompile(`^(?i:utc|gmt)?([+-])(\d{1,2})(?::?(\d{2}))?$`)

// ParseZone resolves a zone name or fixed offset.
func ParseZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	switch strings.ToUpper(name) {
	case "", "UTC", "Z", "GMT":
		return time.UTC, nil
	case "LOCAL":
		return nil, fmt.Errorf("zone %q depends on the host; name a zone explicitly", name)
	}
	if m := offsetPattern.FindStringSubmatch(name); m != nil {
		hours, _ := strconv.Atoi(m[2])
		minutes := 0
		if m[3] != "" {
			minutes, _ = strconv.Atoi(m[3])
		}
		if hours > 18 || minutes > 59 {
			return nil, fmt.Errorf("zone offset out of range: %q", name)
		}
		offset := hours*3600 + minutes*60
		if m[1] == "-" {
			offset = -offset
		}
		return time.FixedZone(name, offset), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown zone %q: %w", name, err)
	}
	return loc, nil
}

// ParseWeekday parses an English weekday name or three-letter abbreviation.
func ParseWeekday(s string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		name := strings.ToLower(wd.String())
		if key == name || key == name[:3] {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
