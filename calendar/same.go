package calendar

import "time"

// SameBucket reports whether instants a and b (milliseconds since the Unix
// epoch) fall in the same period of field f, with calendar fields resolved
// in cfg.Location.
//
// Day and finer avoid a full calendar decomposition: both instants are
// shifted to local wall time by their own zone offset and compared by unit
// index, so a 25 hour day is still one day. Year, month and week fields compare decomposed fields from the
// coarsest down: year, then month, then week of month. WeekOfYear compares
// year and week of year only.
func SameBucket(a, b int64, f Field, cfg Config) (bool, error) {
	if !f.valid() {
		return false, unsupported("same", f)
	}
	if a == b {
		return true, nil
	}
	if f.IsPhysical() {
		return samePhysical(a, b, unitMillis[f], cfg.location()), nil
	}

	va, vb := FromMillis(a, cfg), FromMillis(b, cfg)
	ta, tb := va.Time(), vb.Time()
	if ta.Year() != tb.Year() {
		return false, nil
	}
	switch f {
	case Year:
		return true, nil
	case WeekOfYear:
		return va.WeekOfYear() == vb.WeekOfYear(), nil
	}
	if ta.Month() != tb.Month() {
		return false, nil
	}
	if f == Month {
		return true, nil
	}
	return va.WeekOfMonth() == vb.WeekOfMonth(), nil
}

// IsSameAs reports whether a and b fall in the same period of field f,
// resolved with a's Config.
func IsSameAs(a, b Value, f Field) (bool, error) {
	return SameBucket(a.ms, b.ms, f, a.cfg)
}

func samePhysical(a, b, unit int64, loc *time.Location) bool {
	localA := a + zoneOffsetMillis(a, loc)
	localB := b + zoneOffsetMillis(b, loc)
	return floorDiv(localA, unit) == floorDiv(localB, unit)
}

func zoneOffsetMillis(ms int64, loc *time.Location) int64 {
	_, offset := time.UnixMilli(ms).In(loc).Zone()
	return int64(offset) * msPerSecond
}
