// package identity carries the explicit caller identity passed into every
// service call. Authorization is capability based: services check the caller's
// roles at their boundary instead of reading ambient session state.
package identity

type Role string

const (
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

type Caller struct {
	ID    string
	Roles []Role
}

func (c Caller) HasRole(role Role) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}

	return false
}

// IsStaff reports whether the caller may drive the pool workflow. Admins are
// staff for this purpose.
func (c Caller) IsStaff() bool {
	return c.HasRole(RoleStaff) || c.HasRole(RoleAdmin)
}
