package user

type Role string

const (
	RoleAdmin   Role = "admin"   // School administrator - full access
	RoleStaff   Role = "staff"   // Teachers and office staff
	RoleStudent Role = "student" // Students, own data only
	RoleDevice  Role = "device"  // Check-in kiosk or scanner
)

// IsStaff reports whether the role may act on behalf of other subjects.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleStaff
}
