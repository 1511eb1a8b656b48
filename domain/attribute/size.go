package attribute

import (
	"cmp"
	"math"
	"strconv"
	"strings"
)

// sizeUnits maps a unit suffix to its shift in bits. A bare number is in
// kilobytes.
var sizeUnits = []struct {
	suffix string
	shift  uint
}{
	{"tb", 40},
	{"gb", 30},
	{"mb", 20},
	{"kb", 10},
	{"b", 0},
}

// wordSize is the multiplier applied to sizes written in words ("4mw").
const wordSize = 8

type sizeCapability struct{}

func (sizeCapability) Decode(name, _, raw string) (Value, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return Unset(KindSize), nil
	}

	words := false
	shift := uint(10)
	digits := s
	switch {
	case strings.HasSuffix(s, "w"):
		words = true
		digits = strings.TrimSuffix(s, "w")
		shift = 0
		for _, u := range sizeUnits[:4] {
			prefix := strings.TrimSuffix(u.suffix, "b")
			if strings.HasSuffix(digits, prefix) {
				digits = strings.TrimSuffix(digits, prefix)
				shift = u.shift
				break
			}
		}
	default:
		for _, u := range sizeUnits {
			if strings.HasSuffix(s, u.suffix) {
				digits = strings.TrimSuffix(s, u.suffix)
				shift = u.shift
				break
			}
		}
	}

	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return Value{}, badValue(name, raw, err)
	}
	limit := int64(math.MaxInt64) >> shift
	if words {
		limit /= wordSize
	}
	if n > limit {
		return Value{}, badValue(name, raw, errOverflow)
	}
	bytes := n << shift
	if words {
		bytes *= wordSize
	}
	return NewSize(bytes), nil
}

func (sizeCapability) Compare(a, b Value) int {
	if r, ok := unsetOrder(a, b); ok {
		return r
	}
	return cmp.Compare(a.num, b.num)
}

// Encode writes the size in the largest unit that divides it exactly.
func (sizeCapability) Encode(v Value) string {
	if v.num == 0 {
		return "0b"
	}
	for _, u := range sizeUnits {
		if u.shift == 0 {
			break
		}
		unit := int64(1) << u.shift
		if v.num%unit == 0 {
			return strconv.FormatInt(v.num/unit, 10) + u.suffix
		}
	}
	return strconv.FormatInt(v.num, 10) + "b"
}

func (sizeCapability) Release(v *Value) { release(v) }
