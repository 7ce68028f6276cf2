package calendar

// unitMillis maps each physical field to its fixed length.
var unitMillis = map[Field]int64{
	Day:         msPerDay,
	Hour:        msPerHour,
	Minute:      msPerMinute,
	Second:      msPerSecond,
	Millisecond: 1,
}

// MillisecondsPerUnit returns the length of one unit of f in milliseconds.
// Only day and finer have a fixed length; any other field returns
// ErrUnsupportedUnit.
func MillisecondsPerUnit(f Field) (int64, error) {
	if ms, ok := unitMillis[f]; ok {
		return ms, nil
	}
	return 0, &FieldError{Op: "units", Field: f, Err: ErrUnsupportedUnit}
}
