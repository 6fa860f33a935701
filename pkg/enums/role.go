package enums

import (
	"fmt"
	"strings"
)

// Role is the platform role carried in access tokens.
type Role string

const (
	RoleEVOwner Role = "EV_OWNER"
	RoleBuyer   Role = "BUYER"
	RoleCVA     Role = "CVA"
	RoleAdmin   Role = "ADMIN"
)

var validRoles = []Role{RoleEVOwner, RoleBuyer, RoleCVA, RoleAdmin}

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole accepts any casing, e.g. "admin" or "Admin".
func ParseRole(value string) (Role, error) {
	normalized := Role(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid role %q", value)
}
