package enums

import "fmt"

// ActorRole maps to the role claim carried by access tokens.
type ActorRole string

const (
	RoleCustomer ActorRole = "customer"
	RoleOwner    ActorRole = "owner"
	RoleRider    ActorRole = "rider"
	RoleGuest    ActorRole = "guest"
)

var validActorRoles = []ActorRole{
	RoleCustomer,
	RoleOwner,
	RoleRider,
	RoleGuest,
}

// IsValid reports whether the value matches the canonical role enum.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts the raw string to ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
