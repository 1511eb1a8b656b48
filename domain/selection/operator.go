// Package selection compiles selection criteria into predicate chains and
// evaluates them against job attribute sets.
package selection

import (
	"fmt"
	"strings"
)

// Operator is a comparison operator.
type Operator int

// Operator values.
const (
	OpEqual Operator = iota
	OpNotEqual
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual
)

// Accepts reports whether a three-way comparison result r satisfies the
// operator. r compares the job value against the criterion value.
func (o Operator) Accepts(r int) bool {
	switch o {
	case OpEqual:
		return r == 0
	case OpNotEqual:
		return r != 0
	case OpLessThan:
		return r < 0
	case OpLessThanOrEqual:
		return r <= 0
	case OpGreaterThan:
		return r > 0
	case OpGreaterThanOrEqual:
		return r >= 0
	default:
		return false
	}
}

// IsEquality reports whether o is EQ or NE.
func (o Operator) IsEquality() bool {
	return o == OpEqual || o == OpNotEqual
}

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	return o >= OpEqual && o <= OpGreaterThanOrEqual
}

// String returns the short operator name.
func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "eq"
	case OpNotEqual:
		return "ne"
	case OpLessThan:
		return "lt"
	case OpLessThanOrEqual:
		return "le"
	case OpGreaterThan:
		return "gt"
	case OpGreaterThanOrEqual:
		return "ge"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// ParseOperator parses a short name or a symbol.
func ParseOperator(s string) (Operator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "eq", "=", "==":
		return OpEqual, nil
	case "ne", "!=", "<>":
		return OpNotEqual, nil
	case "lt", "<":
		return OpLessThan, nil
	case "le", "<=":
		return OpLessThanOrEqual, nil
	case "gt", ">":
		return OpGreaterThan, nil
	case "ge", ">=":
		return OpGreaterThanOrEqual, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidOperator, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Operator) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOperator, int(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Operator) UnmarshalText(text []byte) error {
	op, err := ParseOperator(string(text))
	if err != nil {
		return err
	}
	*o = op
	return nil
}
