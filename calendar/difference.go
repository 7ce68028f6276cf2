/*
difference.go - Signed difference between two Values in a chosen unit

A positive result means from is at or after to.

PHYSICAL UNITS (day ... millisecond):
  The millisecond difference is divided by the unit length with exact
  integer division (decimal.QuoRem). The remainder and its complement
  feed the rounding table.

CALENDAR UNITS (year, month):
  Months and years have no fixed length, so boundaries are counted from
  the earlier operand, each in a single pinned addition:

    1. n = whole years (or months) between the calendar fields
    2. b = earlier + n units
         b == later  exact, done
         b >  later  overshot, the integer part is n - 1
    3. the boundaries earlier + integer and earlier + integer + 1 units
       bracket the later operand:
         inner = later - lower boundary
         outer = upper boundary - later
    4. apply the rounding policy to (inner, outer)

  Month and year additions pin the day of month, so January 31 plus one
  month is the last day of February, while February 29 plus thirteen months
  is March 29.

  2024-01-31 -> 2024-03-31   2 months exactly
  2024-01-31 -> 2024-03-30   b is 03-31, overshot by one day:
                             integer 1, inner 30d (from 02-29), outer 1d,
                             HalfUp gives 2
  2024-01-31 -> 2024-03-01   integer 1, inner 1d, outer 30d, HalfUp gives 1

The caller's Values are not touched. Both operands are resolved in from's
Config so one computation never mixes two zones.
*/
package calendar

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// FractionPrecision is the number of decimal places Fraction keeps for
// physical units.
const FractionPrecision = 9

// Difference returns from - to in whole units of f, rounded with r.
func Difference(from, to Value, f Field, r Rounding) (int64, error) {
	if _, ok := roundingTable[r]; !ok {
		return 0, fmt.Errorf("difference: unknown rounding %d", int(r))
	}
	q, err := quotient(from, to, f)
	if err != nil {
		return 0, err
	}
	return q.round(f, r)
}

// DifferenceMillis is Difference with to given as an instant, bound to
// from's Config.
func DifferenceMillis(from Value, to int64, f Field, r Rounding) (int64, error) {
	return Difference(from, FromMillis(to, from.cfg), f, r)
}

// Fraction returns the signed quotient from - to in units of f: the whole
// count plus inner / (inner + outer) of the bracketing unit, rounded half
// away from zero to FractionPrecision places. For physical units this is
// the plain ratio of milliseconds.
func Fraction(from, to Value, f Field) (decimal.Decimal, error) {
	q, err := quotient(from, to, f)
	if err != nil {
		return decimal.Zero, err
	}
	if q.inner == 0 {
		return q.signed(decimal.NewFromInt(q.integer)), nil
	}
	frac := decimal.NewFromInt(q.inner).DivRound(decimal.NewFromInt(q.inner+q.outer), FractionPrecision)
	return q.signed(decimal.NewFromInt(q.integer).Add(frac)), nil
}

// =============================================================================
// QUOTIENT - Magnitude and remainder pair, shared by both regimes
// =============================================================================

type quotientParts struct {
	integer  int64 // truncated magnitude
	inner    int64 // ms past the lower boundary, 0 when exact
	outer    int64 // ms short of the upper boundary
	negative bool  // from is before to
}

func (q quotientParts) round(f Field, r Rounding) (int64, error) {
	rem := Remainder{
		Inner:    q.inner,
		Outer:    q.outer,
		Odd:      q.integer%2 != 0,
		Negative: q.negative,
	}
	inc, err := r.Increment(rem)
	if err != nil {
		if errors.Is(err, ErrInexactDifference) {
			return 0, &InexactError{Field: f, Integer: q.integer, Inner: q.inner, Outer: q.outer, Rounding: r}
		}
		return 0, err
	}
	n := q.integer + inc
	if q.negative {
		n = -n
	}
	return n, nil
}

func (q quotientParts) signed(d decimal.Decimal) decimal.Decimal {
	if q.negative {
		return d.Neg()
	}
	return d
}

func quotient(from, to Value, f Field) (quotientParts, error) {
	switch {
	case f.IsPhysical():
		return physicalQuotient(from.ms-to.ms, unitMillis[f]), nil
	case f.IsCalendar():
		return calendarQuotient(from, FromMillis(to.ms, from.cfg), f), nil
	}
	return quotientParts{}, unsupported("difference", f)
}

func physicalQuotient(raw, unit int64) quotientParts {
	if raw == 0 {
		return quotientParts{}
	}
	q, rem := decimal.NewFromInt(raw).QuoRem(decimal.NewFromInt(unit), 0)
	inner := rem.Abs().IntPart()
	return quotientParts{
		integer:  q.Abs().IntPart(),
		inner:    inner,
		outer:    unit - inner,
		negative: raw < 0,
	}
}

func calendarQuotient(from, to Value, f Field) quotientParts {
	raw := from.ms - to.ms
	if raw == 0 {
		return quotientParts{}
	}
	earlier, later := to, from
	if raw < 0 {
		earlier, later = from, to
	}
	et, lt := earlier.Time(), later.Time()

	// Every boundary is counted from the earlier operand in one step, so a
	// pinned day (February 29 plus one year) never carries into the next.
	per := 12
	n := lt.Year() - et.Year()
	if f == Month {
		per = 1
		n = n*12 + int(lt.Month()) - int(et.Month())
	}
	boundary := func(n int) int64 { return addMonthsPinned(et, n*per).UnixMilli() }

	q := quotientParts{integer: int64(n), negative: raw < 0}
	lower := boundary(n)
	if lower == later.ms {
		return q
	}
	upper := lower
	if lower > later.ms {
		n--
		q.integer--
		lower = boundary(n)
	} else {
		upper = boundary(n + 1)
	}
	q.inner = later.ms - lower
	q.outer = upper - later.ms
	return q
}
