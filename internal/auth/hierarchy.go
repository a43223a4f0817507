package auth

import (
	"fmt"
	"sort"
)

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Hierarchy maps a role to the roles it implies. It is built once at
// startup and read-only afterwards, so concurrent readers need no
// locking.
type Hierarchy struct {
	implies map[string][]string
	known   map[string]struct{}
}

// DefaultHierarchy is the production role table: ADMIN implies USER.
func DefaultHierarchy() *Hierarchy {
	h, err := NewHierarchy(map[string][]string{
		RoleAdmin: {RoleUser},
	})
	if err != nil {
		panic(err)
	}
	return h
}

// NewHierarchy validates the role table and fails on cycles. Cycles are
// a configuration mistake, caught at startup rather than at request
// time.
func NewHierarchy(implies map[string][]string) (*Hierarchy, error) {
	h := &Hierarchy{
		implies: make(map[string][]string, len(implies)),
		known:   make(map[string]struct{}),
	}
	for role, implied := range implies {
		h.implies[role] = append([]string(nil), implied...)
		h.known[role] = struct{}{}
		for _, name := range implied {
			h.known[name] = struct{}{}
		}
	}

	for role := range h.implies {
		if err := h.checkCycle(role, role, make(map[string]struct{})); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hierarchy) checkCycle(start, current string, seen map[string]struct{}) error {
	seen[current] = struct{}{}
	for _, implied := range h.implies[current] {
		if implied == start {
			return fmt.Errorf("role hierarchy: cycle involving %q", start)
		}
		if _, visited := seen[implied]; visited {
			continue
		}
		if err := h.checkCycle(start, implied, seen); err != nil {
			return err
		}
	}
	return nil
}

// Known reports whether a role name appears anywhere in the table.
func (h *Hierarchy) Known(role string) bool {
	_, ok := h.known[role]
	return ok
}

// Expand returns the union of the given roles and everything they
// transitively imply, sorted. Expand(Expand(x)) == Expand(x).
func (h *Hierarchy) Expand(roles ...string) []string {
	set := make(map[string]struct{})
	var walk func(role string)
	walk = func(role string) {
		if _, ok := set[role]; ok {
			return
		}
		set[role] = struct{}{}
		for _, implied := range h.implies[role] {
			walk(implied)
		}
	}
	for _, role := range roles {
		walk(role)
	}

	expanded := make([]string, 0, len(set))
	for role := range set {
		expanded = append(expanded, role)
	}
	sort.Strings(expanded)
	return expanded
}

// Authorizes reports whether the granted roles, after expansion, include
// the required role.
func (h *Hierarchy) Authorizes(granted []string, required string) bool {
	for _, role := range h.Expand(granted...) {
		if role == required {
			return true
		}
	}
	return false
}
