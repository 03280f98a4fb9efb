package auth

// Permission represents a specific action on a resource.
type Permission string

const (
	PermPatientRead         Permission = "patient.read"
	PermPatientWrite        Permission = "patient.write"
	PermDoctorRead          Permission = "doctor.read"
	PermDoctorWrite         Permission = "doctor.write"
	PermConsultationRead    Permission = "consultation.read"
	PermConsultationWrite   Permission = "consultation.write"
	PermPrescriptionRead    Permission = "prescription.read"
	PermPrescriptionWrite   Permission = "prescription.write"
	PermReimbursementDecide Permission = "reimbursement.decide"
	PermSessionAudit        Permission = "session.audit"
)

var readPermissions = []Permission{
	PermPatientRead, PermDoctorRead, PermConsultationRead, PermPrescriptionRead,
}

// RolePermissions maps roles to their permissions.
var RolePermissions = map[Role][]Permission{
	RoleAdmin: append([]Permission{
		PermPatientWrite, PermDoctorWrite, PermConsultationWrite, PermPrescriptionWrite,
		PermReimbursementDecide, PermSessionAudit,
	}, readPermissions...),
	RoleDoctor: append([]Permission{
		PermPatientWrite, PermConsultationWrite, PermPrescriptionWrite,
	}, readPermissions...),
	RoleSocialSecurityAgent: append([]Permission{
		PermPatientWrite, PermReimbursementDecide,
	}, readPermissions...),
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range RolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// RolesWith returns the roles holding perm, in AllRoles order.
func RolesWith(perm Permission) []Role {
	var roles []Role
	for _, r := range AllRoles {
		if HasPermission(r, perm) {
			roles = append(roles, r)
		}
	}
	return roles
}

// HasAnyRole reports whether user is present and holds one of required.
func HasAnyRole(user *User, required ...Role) bool {
	if user == nil {
		return false
	}
	for _, r := range required {
		if user.Role == r {
			return true
		}
	}
	return false
}
