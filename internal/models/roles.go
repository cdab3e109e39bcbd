package models

import "fmt"

// Role grants access beyond the caller's own account.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleStaff     Role = "staff"
	RoleSuperuser Role = "superuser"
)

// ParseRole maps the stored name to a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleCustomer, RoleStaff, RoleSuperuser:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// IsStaff reports whether the role may use administrative endpoints.
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleSuperuser
}
