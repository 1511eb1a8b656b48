package attribute

import (
	"fmt"
	"strings"
)

// Perm is a permission mask. Attribute definitions carry the bits that grant
// access; requesters carry the bits they hold.
type Perm uint32

// Perm bits.
const (
	PermUserRead Perm = 1 << iota
	PermUserWrite
	PermOperatorRead
	PermOperatorWrite
	PermManagerRead
	PermManagerWrite
)

// Common permission masks.
const (
	PermReadAccess = PermUserRead | PermOperatorRead | PermManagerRead

	PermUser     = PermUserRead | PermUserWrite
	PermOperator = PermUser | PermOperatorRead | PermOperatorWrite
	PermManager  = PermOperator | PermManagerRead | PermManagerWrite

	// PermReadOnly lets everyone read and nobody write.
	PermReadOnly = PermReadAccess
	// PermReadPrivileged restricts reading to operators and managers.
	PermReadPrivileged = PermOperatorRead | PermManagerRead
)

// CanRead reports whether a requester holding p may read an attribute whose
// definition grants access.
func (p Perm) CanRead(access Perm) bool {
	return access&p&PermReadAccess != 0
}

// Privileged reports whether p carries operator or manager read access.
func (p Perm) Privileged() bool {
	return p&(PermOperatorRead|PermManagerRead) != 0
}

// String returns the name of the broadest role contained in p.
func (p Perm) String() string {
	switch {
	case p&PermManagerRead != 0:
		return "manager"
	case p&PermOperatorRead != 0:
		return "operator"
	case p&PermUserRead != 0:
		return "user"
	default:
		return "none"
	}
}

// ParsePerm parses a role name into its permission mask.
func ParsePerm(s string) (Perm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user", "":
		return PermUser, nil
	case "operator":
		return PermOperator, nil
	case "manager":
		return PermManager, nil
	default:
		return 0, fmt.Errorf("unknown permission role %q", s)
	}
}
