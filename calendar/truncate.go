/*
truncate.go - Period truncation (begin of / end of)

Truncate keeps every field coarser than the target and sets the target and
everything finer to its minimum (toward start) or maximum (toward end),
coarsest first, so that the legal maximum of each finer field is known when
it is written (December is set before "last day of the month" is chosen).

Week truncation moves by whole days to the configured first day of the week
(start) or six days after it (end), then clears the time of day.

Hour, minute and second work on the instant directly: the local residue of
the unit is subtracted, so the repeated hour of a fall-back transition
truncates within its own offset. Day and coarser resolve the bounding wall
time back to an instant with the offset that keeps the result on the right
side of the input; a bound that falls in a spring-forward gap becomes the
transition instant.

  2024-02-15T10:30 month, start  ->  2024-02-01T00:00:00.000
  2024-02-15T10:30 month, end    ->  2024-02-29T23:59:59.999
*/
package calendar

import "time"

// Truncate returns v moved to the start (towardStart) or end of the period
// of field f that contains it. Supported fields: Year, Month, DayOfWeek,
// WeekOfMonth, WeekOfYear, Day, Hour, Minute, Second. v is not modified.
func Truncate(v Value, f Field, towardStart bool) (Value, error) {
	t := v.Time()
	loc := t.Location()
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()
	ms := t.Nanosecond() / int(nsPerMilli)

	if f.IsWeek() {
		wd := t.Weekday()
		target := v.cfg.FirstDayOfWeek
		if !towardStart {
			target = (target + 6) % 7
		}
		delta := int(target) - int(wd) // in (-7, 7)
		if towardStart && delta > 0 {
			delta -= 7
		}
		if !towardStart && delta < 0 {
			delta += 7
		}
		year, month, day = time.Date(year, month, day+delta, 12, 0, 0, 0, loc).Date()
		hour, minute, sec, ms = clockBound(towardStart)
		wall := time.Date(year, month, day, hour, minute, sec, ms*int(nsPerMilli), time.UTC).UnixMilli()
		return FromMillis(resolveWall(wall, v.ms, loc, towardStart), v.cfg), nil
	}

	switch f {
	case Hour, Minute, Second:
		unit := unitMillis[f]
		begin := v.ms - floorMod(v.ms+zoneOffsetMillis(v.ms, loc), unit)
		if towardStart {
			return FromMillis(begin, v.cfg), nil
		}
		return FromMillis(begin+unit-1, v.cfg), nil
	}

	// Each case falls through to clear the next finer field.
	switch f {
	case Year:
		month = time.January
		if !towardStart {
			month = time.December
		}
		fallthrough
	case Month:
		day = 1
		if !towardStart {
			day = daysIn(month, year)
		}
		fallthrough
	case Day:
		hour = bound(towardStart, 23)
		fallthrough
	case Hour:
		minute = bound(towardStart, 59)
		fallthrough
	case Minute:
		sec = bound(towardStart, 59)
		fallthrough
	case Second:
		ms = bound(towardStart, 999)
	default:
		return Value{}, unsupported("truncate", f)
	}
	wall := time.Date(year, month, day, hour, minute, sec, ms*int(nsPerMilli), time.UTC).UnixMilli()
	return FromMillis(resolveWall(wall, v.ms, loc, towardStart), v.cfg), nil
}

// BeginOf returns the start of the period of f containing v.
func BeginOf(v Value, f Field) (Value, error) { return Truncate(v, f, true) }

// EndOf returns the last millisecond of the period of f containing v.
func EndOf(v Value, f Field) (Value, error) { return Truncate(v, f, false) }

// resolveWall maps a local wall time (milliseconds as if in UTC) to the
// instant nearest ref that reads that wall time in loc, at or before ref for
// a start bound and at or after it for an end bound.
func resolveWall(wall, ref int64, loc *time.Location, towardStart bool) int64 {
	refOff := zoneOffsetMillis(ref, loc)
	guessOff := zoneOffsetMillis(wall-refOff, loc)
	offsets := []int64{refOff, guessOff, zoneOffsetMillis(wall-guessOff, loc)}

	found := false
	var best int64
	for _, off := range offsets {
		c := wall - off
		if zoneOffsetMillis(c, loc) != off {
			continue
		}
		if towardStart && c <= ref && (!found || c > best) {
			best, found = c, true
		}
		if !towardStart && c >= ref && (!found || c < best) {
			best, found = c, true
		}
	}
	if found {
		return best
	}

	// Gap: the wall time is skipped. Find the transition between the two
	// candidate instants.
	lo, hi := wall-max(offsets[0], offsets[1], offsets[2]), wall-min(offsets[0], offsets[1], offsets[2])
	loOff := zoneOffsetMillis(lo, loc)
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		if zoneOffsetMillis(mid, loc) == loOff {
			lo = mid
		} else {
			hi = mid
		}
	}
	if towardStart {
		return min(hi, ref)
	}
	return max(lo, ref)
}

func bound(towardStart bool, max int) int {
	if towardStart {
		return 0
	}
	return max
}

func clockBound(towardStart bool) (hour, minute, sec, ms int) {
	return bound(towardStart, 23), bound(towardStart, 59), bound(towardStart, 59), bound(towardStart, 999)
}
