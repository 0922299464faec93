package user

type Permission string

const (
	// Recording
	PermissionAttendanceRecord       Permission = "attendance.record"
	PermissionAttendanceRecordManual Permission = "attendance.record_manual"
	PermissionAttendanceViewOwn      Permission = "attendance.view_own"
	PermissionAttendanceViewAll      Permission = "attendance.view_all"

	// Reports
	PermissionReportsView Permission = "reports.view"

	// Administration
	PermissionSweepRun       Permission = "sweep.run"
	PermissionTokensIssue    Permission = "tokens.issue"
	PermissionSettingsManage Permission = "settings.manage"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermissionAttendanceRecord,
		PermissionAttendanceRecordManual,
		PermissionAttendanceViewOwn,
		PermissionAttendanceViewAll,
		PermissionReportsView,
		PermissionSweepRun,
		PermissionTokensIssue,
		PermissionSettingsManage,
	},
	RoleStaff: {
		PermissionAttendanceRecord,
		PermissionAttendanceRecordManual,
		PermissionAttendanceViewOwn,
		PermissionAttendanceViewAll,
		PermissionReportsView,
		PermissionTokensIssue,
	},
	RoleDevice: {
		PermissionAttendanceRecord,
		PermissionAttendanceViewOwn,
	},
	RoleStudent: {
		PermissionAttendanceRecord,
		PermissionAttendanceViewOwn,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}
