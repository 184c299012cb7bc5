package constants

const (
	RoleApplicant = "applicant"
	RoleStaff     = "staff"
	RoleAdmin     = "admin"
)

// StaffRoles may review applications, issue offers and manage sessions.
var StaffRoles = []string{RoleStaff, RoleAdmin}
