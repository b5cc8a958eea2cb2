package enums

// UserRole identifies which side of the marketplace a user acts on.
type UserRole string

const (
	UserRoleBuyer  UserRole = "buyer"
	UserRoleFarmer UserRole = "farmer"
	UserRoleAdmin  UserRole = "admin"
)

// IsValid reports whether the role is one of the known values.
func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleBuyer, UserRoleFarmer, UserRoleAdmin:
		return true
	default:
		return false
	}
}

func (r UserRole) String() string {
	return string(r)
}
