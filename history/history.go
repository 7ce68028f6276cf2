/*
history.go - Calculation history and named calendar profiles

PURPOSE:
  The calendar engine itself is stateless. The service around it keeps two
  kinds of state: an append-only log of calculations it has answered, and
  named profiles (zone + first day of week + leniency) that clients can
  refer to instead of repeating the settings on every request.

APPEND-ONLY CONTRACT:
  Records are never updated. The only removal is Prune, which drops whole
  records older than a retention cutoff.

IDEMPOTENCY:
  A record may carry an idempotency key. Appending a second record with the
  same key fails with ErrDuplicateIdempotencyKey, so a client retrying a
  request after a timeout does not log the calculation twice.

IMPLEMENTATIONS:
  - history/store/memory.go: in-memory, for tests and the CLI
  - store/sqlite/sqlite.go:  SQLite, for the server

SEE ALSO:
  - api/handlers.go: writes records, serves profiles
  - api/scheduler.go: prunes expired records
*/
package history

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/calendar-engine/calendar"
	"github.com/warp/calendar-engine/factory"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrInvalidProfile          = errors.New("invalid profile")
)

// =============================================================================
// RECORDS
// =============================================================================

type Operation string

const (
	OpDifference Operation = "difference"
	OpTruncate   Operation = "truncate"
	OpSame       Operation = "same"
)

// Record is one answered calculation.
type Record struct {
	ID        string
	Operation Operation
	Field     calendar.Field
	Rounding  string  // difference only
	Zone      string  // zone the operands were resolved in
	Operands  []int64 // epoch milliseconds
	Result    string
	Fraction  decimal.NullDecimal // difference only
	// IdempotencyKey is optional; empty keys are never deduplicated.
	IdempotencyKey string
	CreatedAt      time.Time
}

// NewRecord stamps a record with a fresh ID and the clock's time.
func NewRecord(op Operation, clock calendar.Clock) Record {
	return Record{
		ID:        uuid.NewString(),
		Operation: op,
		CreatedAt: clock.Now().UTC(),
	}
}

// Filter narrows a List call. Zero values match everything.
type Filter struct {
	Operation Operation
	Since     time.Time
	Limit     int
}

// Matches reports whether r passes the operation and time filters.
func (f Filter) Matches(r Record) bool {
	if f.Operation != "" && r.Operation != f.Operation {
		return false
	}
	if !f.Since.IsZero() && r.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}

// Store persists calculation records.
type Store interface {
	// Append writes a record. Fails if its idempotency key was seen before.
	Append(ctx context.Context, r Record) error

	// List returns matching records, newest first.
	List(ctx context.Context, f Filter) ([]Record, error)

	// Exists checks whether an idempotency key was used.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)

	// Prune deletes records created before cutoff and returns how many.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// =============================================================================
// PROFILES
// =============================================================================

// Profile is a named set of calendar settings.
type Profile struct {
	Name      string
	Zone      string
	FirstDay  time.Weekday
	Lenient   bool
	UpdatedAt time.Time
}

var profileName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

// Validate checks the name and that the zone resolves.
func (p Profile) Validate() error {
	if !profileName.MatchString(p.Name) {
		return fmt.Errorf("%w: name %q must be lowercase letters, digits, '-' or '_'", ErrInvalidProfile, p.Name)
	}
	if p.FirstDay < time.Sunday || p.FirstDay > time.Saturday {
		return fmt.Errorf("%w: first day %d", ErrInvalidProfile, p.FirstDay)
	}
	if _, err := factory.ParseZone(p.Zone); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return nil
}

// Config converts the profile to engine settings.
func (p Profile) Config() (calendar.Config, error) {
	loc, err := factory.ParseZone(p.Zone)
	if err != nil {
		return calendar.Config{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return calendar.Config{Location: loc, FirstDayOfWeek: p.FirstDay, Lenient: p.Lenient}, nil
}

// ProfileStore persists named profiles. Saving an existing name replaces it.
type ProfileStore interface {
	SaveProfile(ctx context.Context, p Profile) error
	GetProfile(ctx context.Context, name string) (Profile, error)
	ListProfiles(ctx context.Context) ([]Profile, error)
	DeleteProfile(ctx context.Context, name string) error
}

// Repository is everything the service persists.
type Repository interface {
	Store
	ProfileStore

	// Reset clears records, idempotency keys and profiles (for testing/demo).
	Reset(ctx context.Context) error
}
