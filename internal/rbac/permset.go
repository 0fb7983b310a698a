package rbac

import "sort"

// PermissionSet is an unordered set of permission tokens.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from the given tokens.
func NewPermissionSet(perms ...string) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		if p == "" {
			continue
		}
		set[p] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s PermissionSet) Has(perm string) bool {
	_, ok := s[perm]
	return ok
}

// Len returns the number of permissions.
func (s PermissionSet) Len() int { return len(s) }

// Clone returns an independent copy.
func (s PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

// Union returns a new set holding the permissions of both sets.
func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	out := make(PermissionSet, len(s)+len(other))
	for p := range s {
		out[p] = struct{}{}
	}
	for p := range other {
		out[p] = struct{}{}
	}
	return out
}

// Intersect returns a new set holding the permissions present in both sets.
func (s PermissionSet) Intersect(other PermissionSet) PermissionSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(PermissionSet, len(small))
	for p := range small {
		if _, ok := large[p]; ok {
			out[p] = struct{}{}
		}
	}
	return out
}

// SubsetOf reports whether every permission of s is in other.
func (s PermissionSet) SubsetOf(other PermissionSet) bool {
	for p := range s {
		if _, ok := other[p]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the permissions in lexical order.
func (s PermissionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
