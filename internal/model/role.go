package model

// StaffRole classifies a staff connection for event routing.
type StaffRole string

const (
	StaffRoleChef   StaffRole = "chef"
	StaffRoleWaiter StaffRole = "waiter"
)

// StaffRoles lists every role a connection may be admitted under.
var StaffRoles = []StaffRole{StaffRoleChef, StaffRoleWaiter}

// ParseStaffRole maps a raw role string to a StaffRole. The second return
// value is false when the value is not part of the known role set.
func ParseStaffRole(s string) (StaffRole, bool) {
	for _, role := range StaffRoles {
		if s == string(role) {
			return role, true
		}
	}
	return "", false
}
