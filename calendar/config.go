package calendar

import "time"

// =============================================================================
// CONFIG - Explicit calendar settings (never read from process globals)
// =============================================================================

// Config carries everything a Value needs besides its instant.
type Config struct {
	// Location resolves calendar fields. Nil means UTC.
	Location *time.Location

	// FirstDayOfWeek is used by week truncation and week equality.
	FirstDayOfWeek time.Weekday

	// Lenient makes out-of-range field writes roll over instead of failing.
	Lenient bool
}

// DefaultConfig returns UTC, Monday-first weeks, lenient fields.
func DefaultConfig() Config {
	return Config{Location: time.UTC, FirstDayOfWeek: time.Monday, Lenient: true}
}

// In returns a copy of c bound to loc.
func (c Config) In(loc *time.Location) Config {
	c.Location = loc
	return c
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// =============================================================================
// CLOCK - Instant source for "now"-relative values
// =============================================================================

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant. Useful in tests.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }
