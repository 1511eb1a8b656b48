package attribute

import "strings"

// ACLContains reports whether owner, written user@host, is a member of the
// access control list held in acl. An entry without a host matches any
// host; a host starting with "*" matches by suffix.
func ACLContains(acl Value, owner string) bool {
	if !acl.set {
		return false
	}
	user, host := SplitOwner(owner)
	for _, entry := range acl.entries {
		eu, eh := SplitOwner(entry)
		if eu != user {
			continue
		}
		if eh == "" || hostMatches(eh, host) {
			return true
		}
	}
	return false
}

// SplitOwner splits user@host into its parts. The host is empty when absent.
func SplitOwner(owner string) (user, host string) {
	user, host, _ = strings.Cut(owner, "@")
	return user, host
}

func hostMatches(pattern, host string) bool {
	if strings.HasPrefix(pattern, "*") {
		return strings.HasSuffix(strings.ToLower(host), strings.ToLower(pattern[1:]))
	}
	return strings.EqualFold(pattern, host)
}
