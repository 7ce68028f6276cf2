/*
rounding.go - Rounding policies as a strategy table

Each policy is a pure function from a Remainder to an increment of 0 or 1
that is added to the magnitude of the truncated quotient. The table is keyed
by the Rounding tag, so each policy can be tested on its own.

  Policy       | increment on a non-zero remainder
  -------------|-------------------------------------------------
  Ceiling      | 1 for positive quotients, 0 for negative
  Up           | 1
  Down         | 0
  Floor        | 0 for positive quotients, 1 for negative
  HalfUp       | 1 when Inner >= Outer (ties away from zero)
  HalfDown     | 1 when Inner > Outer (ties toward zero)
  HalfEven     | 1 when Inner > Outer, or on a tie with an odd integer part
  Unnecessary  | error (ErrInexactDifference)
*/
package calendar

import (
	"fmt"
	"strings"
)

// Rounding selects how a quotient with a remainder is turned into an integer.
type Rounding int

const (
	Ceiling Rounding = iota // toward positive infinity
	Up                      // away from zero
	Down                    // toward zero
	Floor                   // toward negative infinity
	HalfUp
	HalfDown
	HalfEven
	Unnecessary // exact results only
)

// Remainder is the input of a rounding policy.
type Remainder struct {
	// Inner is the distance already advanced past the lower unit boundary.
	Inner int64
	// Outer is the distance still short of the next unit boundary. Only
	// computed for half policies.
	Outer int64
	// Odd reports whether the truncated integer part is odd.
	Odd bool
	// Negative reports whether the signed quotient is negative.
	Negative bool
}

type roundingPolicy struct {
	name string
	// half policies compare Inner against Outer.
	half      bool
	increment func(r Remainder) (int64, error)
}

var roundingTable = map[Rounding]roundingPolicy{
	Ceiling: {name: "ceiling", increment: func(r Remainder) (int64, error) {
		return boolToInc(r.Inner != 0 && !r.Negative), nil
	}},
	Up: {name: "up", increment: func(r Remainder) (int64, error) {
		return boolToInc(r.Inner != 0), nil
	}},
	Down: {name: "down", increment: func(r Remainder) (int64, error) {
		return 0, nil
	}},
	Floor: {name: "floor", increment: func(r Remainder) (int64, error) {
		return boolToInc(r.Inner != 0 && r.Negative), nil
	}},
	HalfUp: {name: "half_up", half: true, increment: func(r Remainder) (int64, error) {
		return boolToInc(r.Inner != 0 && r.Inner >= r.Outer), nil
	}},
	HalfDown: {name: "half_down", half: true, increment: func(r Remainder) (int64, error) {
		return boolToInc(r.Inner > r.Outer), nil
	}},
	HalfEven: {name: "half_even", half: true, increment: func(r Remainder) (int64, error) {
		switch {
		case r.Inner == 0 || r.Inner < r.Outer:
			return 0, nil
		case r.Inner > r.Outer:
			return 1, nil
		default:
			return boolToInc(r.Odd), nil
		}
	}},
	Unnecessary: {name: "unnecessary", increment: func(r Remainder) (int64, error) {
		if r.Inner != 0 {
			return 0, ErrInexactDifference
		}
		return 0, nil
	}},
}

func boolToInc(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Increment applies the policy to r and returns 0 or 1.
func (m Rounding) Increment(r Remainder) (int64, error) {
	p, ok := roundingTable[m]
	if !ok {
		return 0, fmt.Errorf("unknown rounding %d", int(m))
	}
	return p.increment(r)
}

// IsHalf reports whether the policy needs the outer remainder.
func (m Rounding) IsHalf() bool { return roundingTable[m].half }

func (m Rounding) String() string {
	if p, ok := roundingTable[m]; ok {
		return p.name
	}
	return fmt.Sprintf("Rounding(%d)", int(m))
}

// Roundings lists every policy.
func Roundings() []Rounding {
	return []Rounding{Ceiling, Up, Down, Floor, HalfUp, HalfDown, HalfEven, Unnecessary}
}

// ParseRounding parses a policy name such as "half_up" or "HALF-EVEN".
// "exact" is an alias for unnecessary.
func ParseRounding(s string) (Rounding, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "-", "_")
	if name == "exact" {
		return Unnecessary, nil
	}
	for m, p := range roundingTable {
		if p.name == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown rounding %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Rounding) MarshalText() ([]byte, error) {
	if _, ok := roundingTable[m]; !ok {
		return nil, fmt.Errorf("unknown rounding %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Rounding) UnmarshalText(b []byte) error {
	v, err := ParseRounding(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
