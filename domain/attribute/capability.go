package attribute

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Errors returned by capabilities.
var (
	ErrBadValue        = errors.New("bad attribute value")
	ErrUnknownResource = errors.New("unknown resource")
)

var errOverflow = errors.New("value out of range")

// Capability decodes, compares, encodes and releases values of one
// attribute kind.
//
// Compare returns a negative number when a sorts before b, zero when they
// are equal and a positive number otherwise. An unset operand sorts first.
// Decode returns an unset value for empty input.
type Capability interface {
	Decode(name, resource, raw string) (Value, error)
	Compare(a, b Value) int
	Encode(v Value) string
	Release(v *Value)
}

// Built-in capabilities.
var (
	String     Capability = stringCapability{}
	Long       Capability = longCapability{}
	Size       Capability = sizeCapability{}
	Boolean    Capability = booleanCapability{}
	Char       Capability = charCapability{}
	Checkpoint Capability = checkpointCapability{}
	ACL        Capability = aclCapability{}
	Duration   Capability = durationCapability{}
)

func release(v *Value) {
	if v != nil {
		*v = Value{kind: v.kind}
	}
}

func badValue(name, raw string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s=%q: %v", ErrBadValue, name, raw, err)
	}
	return fmt.Errorf("%w: %s=%q", ErrBadValue, name, raw)
}

// unsetOrder orders operands when at least one is unset.
func unsetOrder(a, b Value) (int, bool) {
	switch {
	case a.set && b.set:
		return 0, false
	case !a.set && !b.set:
		return 0, true
	case !a.set:
		return -1, true
	default:
		return 1, true
	}
}

type stringCapability struct{}

func (stringCapability) Decode(_, _, raw string) (Value, error) {
	if raw == "" {
		return Unset(KindString), nil
	}
	return NewString(raw), nil
}

func (stringCapability) Compare(a, b Value) int {
	if r, ok := unsetOrder(a, b); ok {
		return r
	}
	return strings.Compare(a.str, b.str)
}

func (stringCapability) Encode(v Value) string { return v.str }

func (stringCapability) Release(v *Value) { release(v) }

type longCapability struct{}

func (longCapability) Decode(name, _, raw string) (Value, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Unset(KindLong), nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Value{}, badValue(name, raw, err)
	}
	return NewLong(n), nil
}

func (longCapability) Compare(a, b Value) int {
	if r, ok := unsetOrder(a, b); ok {
		return r
	}
	return cmp.Compare(a.num, b.num)
}

func (longCapability) Encode(v Value) string { return strconv.FormatInt(v.num, 10) }

func (longCapability) Release(v *Value) { release(v) }

type booleanCapability struct{}

func (booleanCapability) Decode(name, _, raw string) (Value, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return Unset(KindBoolean), nil
	case "true", "t", "y", "yes", "1":
		return NewBoolean(true), nil
	case "false", "f", "n", "no", "0":
		return NewBoolean(false), nil
	default:
		return Value{}, badValue(name, raw, nil)
	}
}

func (booleanCapability) Compare(a, b Value) int {
	if r, ok := unsetOrder(a, b); ok {
		return r
	}
	return cmp.Compare(a.num, b.num)
}

func (booleanCapability) Encode(v Value) string {
	if v.Bool() {
		return "True"
	}
	return "False"
}

func (booleanCapability) Release(v *Value) { release(v) }

type charCapability struct{}

func (charCapability) Decode(_, _, raw string) (Value, error) {
	if raw == "" {
		return Unset(KindChar), nil
	}
	return NewChar(raw[0]), nil
}

func (charCapability) Compare(a, b Value) int {
	if r, ok := unsetOrder(a, b); ok {
		return r
	}
	return cmp.Compare(a.ch, b.ch)
}

func (charCapability) Encode(v Value) string {
	if !v.set {
		return ""
	}
	return string([]byte{v.ch})
}

func (charCapability) Release(v *Value) { release(v) }

// CheckpointOrder ranks an encoded checkpoint value:
// n > s > c=minutes > c > u > anything else or unset.
func CheckpointOrder(v Value) int {
	if !v.set || v.str == "" {
		return 0
	}
	switch v.str[0] {
	case 'n':
		return 5
	case 's':
		return 4
	case 'c':
		if len(v.str) > 1 {
			return 3
		}
		return 2
	case 'u':
		return 1
	default:
		return 0
	}
}

type checkpointCapability struct{}

func (checkpointCapability) Decode(_, _, raw string) (Value, error) {
	if raw == "" {
		return Unset(KindString), nil
	}
	return NewString(raw), nil
}

func (checkpointCapability) Compare(a, b Value) int {
	return cmp.Compare(CheckpointOrder(a), CheckpointOrder(b))
}

func (checkpointCapability) Encode(v Value) string { return v.str }

func (checkpointCapability) Release(v *Value) { release(v) }

type aclCapability struct{}

func (aclCapability) Decode(_, _, raw string) (Value, error) {
	var entries []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			entries = append(entries, part)
		}
	}
	if len(entries) == 0 {
		return Unset(KindACL), nil
	}
	return NewACL(entries), nil
}

func (aclCapability) Compare(a, b Value) int {
	if r, ok := unsetOrder(a, b); ok {
		return r
	}
	return strings.Compare(strings.Join(a.entries, ","), strings.Join(b.entries, ","))
}

func (aclCapability) Encode(v Value) string { return strings.Join(v.entries, ",") }

func (aclCapability) Release(v *Value) { release(v) }

// durationCapability holds a number of seconds, written either as a plain
// integer or as [[hh:]mm:]ss.
type durationCapability struct{}

func (durationCapability) Decode(name, _, raw string) (Value, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Unset(KindLong), nil
	}
	parts := strings.Split(raw, ":")
	if len(parts) > 3 {
		return Value{}, badValue(name, raw, nil)
	}
	var total int64
	for _, part := range parts {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n < 0 {
			return Value{}, badValue(name, raw, err)
		}
		if total > (math.MaxInt64-n)/60 {
			return Value{}, badValue(name, raw, errOverflow)
		}
		total = total*60 + n
	}
	return NewLong(total), nil
}

func (durationCapability) Compare(a, b Value) int {
	return longCapability{}.Compare(a, b)
}

func (durationCapability) Encode(v Value) string {
	s := v.num
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

func (durationCapability) Release(v *Value) { release(v) }
