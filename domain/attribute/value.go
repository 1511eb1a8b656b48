// Package attribute provides typed job attribute values and the capabilities
// that decode, compare, encode and release them.
package attribute

import "slices"

// Kind identifies the representation held by a Value.
type Kind int

// Kind values.
const (
	KindString Kind = iota
	KindLong
	KindSize
	KindBoolean
	KindChar
	KindACL
	KindResources
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindLong:
		return "long"
	case KindSize:
		return "size"
	case KindBoolean:
		return "boolean"
	case KindChar:
		return "char"
	case KindACL:
		return "acl"
	case KindResources:
		return "resources"
	default:
		return "unknown"
	}
}

// Value is one decoded attribute value. The zero Value is an unset string.
type Value struct {
	kind      Kind
	set       bool
	str       string
	num       int64
	ch        byte
	entries   []string
	resources []Resource
}

// Unset returns an unset value of the given kind.
func Unset(kind Kind) Value {
	return Value{kind: kind}
}

// NewString creates a set string value.
func NewString(s string) Value {
	return Value{kind: KindString, set: true, str: s}
}

// NewLong creates a set integer value.
func NewLong(n int64) Value {
	return Value{kind: KindLong, set: true, num: n}
}

// NewSize creates a set size value measured in bytes.
func NewSize(bytes int64) Value {
	return Value{kind: KindSize, set: true, num: bytes}
}

// NewBoolean creates a set boolean value.
func NewBoolean(b bool) Value {
	v := Value{kind: KindBoolean, set: true}
	if b {
		v.num = 1
	}
	return v
}

// NewChar creates a set single-character value.
func NewChar(c byte) Value {
	return Value{kind: KindChar, set: true, ch: c}
}

// NewACL creates a set access control list value.
func NewACL(entries []string) Value {
	return Value{kind: KindACL, set: true, entries: slices.Clone(entries)}
}

// NewResources creates a set resource list value.
func NewResources(resources ...Resource) Value {
	return Value{kind: KindResources, set: true, resources: slices.Clone(resources)}
}

// Kind returns the value kind.
func (v Value) Kind() Kind { return v.kind }

// IsSet reports whether the value carries data.
func (v Value) IsSet() bool { return v.set }

// String returns the string payload.
func (v Value) String() string { return v.str }

// Long returns the integer payload. Sizes are reported in bytes.
func (v Value) Long() int64 { return v.num }

// Bool returns the boolean payload.
func (v Value) Bool() bool { return v.num != 0 }

// Char returns the character payload.
func (v Value) Char() byte { return v.ch }

// Entries returns a copy of the ACL entries.
func (v Value) Entries() []string { return slices.Clone(v.entries) }

// Resources returns a copy of the resource entries.
func (v Value) Resources() []Resource { return slices.Clone(v.resources) }

// Resource finds the resource entry with the given name.
func (v Value) Resource(name string) (Resource, bool) {
	for _, r := range v.resources {
		if r.Name() == name {
			return r, true
		}
	}
	return Resource{}, false
}

// WithResource returns a copy of a resource list with r added or replaced.
func (v Value) WithResource(r Resource) Value {
	out := Value{kind: KindResources, set: true, resources: make([]Resource, 0, len(v.resources)+1)}
	replaced := false
	for _, existing := range v.resources {
		if existing.Name() == r.Name() {
			out.resources = append(out.resources, r)
			replaced = true
			continue
		}
		out.resources = append(out.resources, existing)
	}
	if !replaced {
		out.resources = append(out.resources, r)
	}
	return out
}

// Set is the indexable attribute set of one job.
type Set struct {
	values []Value
}

// NewSet creates an empty set with room for size attributes.
func NewSet(size int) Set {
	return Set{values: make([]Value, size)}
}

// Len returns the number of slots in the set.
func (s Set) Len() int { return len(s.values) }

// Get returns the value at index i, or an unset value when i is out of range.
func (s Set) Get(i Index) Value {
	if int(i) < 0 || int(i) >= len(s.values) {
		return Value{}
	}
	return s.values[i]
}

// Put stores v at index i, growing the set when needed.
func (s *Set) Put(i Index, v Value) {
	if int(i) < 0 {
		return
	}
	if int(i) >= len(s.values) {
		grown := make([]Value, int(i)+1)
		copy(grown, s.values)
		s.values = grown
	}
	s.values[i] = v
}

// Clone returns a copy of the set that shares no slots with s.
func (s Set) Clone() Set {
	return Set{values: slices.Clone(s.values)}
}
