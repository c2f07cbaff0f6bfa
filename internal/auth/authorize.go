package auth

import "sort"

// Principal is an authenticated user with its role and resolved privilege codes.
type Principal struct {
	User       User
	Role       Role
	Privileges map[string]struct{}
}

// NewPrincipal builds a principal, keeping only active privileges.
func NewPrincipal(user User, role Role, privs []Privilege) Principal {
	set := make(map[string]struct{}, len(privs))
	for _, p := range privs {
		if !p.IsActive {
			continue
		}
		set[p.Code] = struct{}{}
	}
	return Principal{User: user, Role: role, Privileges: set}
}

// HasPrivilege reports whether the principal holds code.
func (p Principal) HasPrivilege(code string) bool {
	_, ok := p.Privileges[code]
	return ok
}

// Missing returns the codes in required that the principal lacks, in input order.
func (p Principal) Missing(required ...string) []string {
	var out []string
	for _, code := range required {
		if !p.HasPrivilege(code) {
			out = append(out, code)
		}
	}
	return out
}

// Require returns a *MissingPrivilegesError unless the principal holds every
// code in required.
func (p Principal) Require(required ...string) error {
	if missing := p.Missing(required...); len(missing) > 0 {
		return &MissingPrivilegesError{Missing: missing}
	}
	return nil
}

// Codes returns the privilege codes sorted.
func (p Principal) Codes() []string {
	out := make([]string, 0, len(p.Privileges))
	for k := range p.Privileges {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
