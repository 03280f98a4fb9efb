package auth

import (
	"fmt"

	"github.com/social-security/patient-office/internal/shared/types"
)

// Role represents a user role in the office.
type Role string

const (
	RoleAdmin               Role = "ADMIN"
	RoleDoctor              Role = "DOCTOR"
	RoleSocialSecurityAgent Role = "SOCIAL_SECURITY_AGENT"
)

// AllRoles lists every role.
var AllRoles = []Role{RoleAdmin, RoleDoctor, RoleSocialSecurityAgent}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleSocialSecurityAgent:
		return true
	default:
		return false
	}
}

// Label is the French display name of the role.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Administrateur"
	case RoleDoctor:
		return "Médecin"
	case RoleSocialSecurityAgent:
		return "Agent de sécurité sociale"
	default:
		return string(r)
	}
}

// ParseRole parses a role name.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// User is the authentication principal. It is distinct from the Person
// records the office manages; a DOCTOR user may point at one.
type User struct {
	ID             types.ID  `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Role           Role      `json:"role"`
	DoctorID       *types.ID `json:"doctor_id,omitempty"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
}

// Validate checks that u is a well-formed user record.
func (u User) Validate() error {
	if u.ID.IsZero() {
		return fmt.Errorf("user id is required")
	}
	if u.Username == "" {
		return fmt.Errorf("username is required")
	}
	if !u.Role.Valid() {
		return fmt.Errorf("unknown role %q", u.Role)
	}
	if u.DoctorID != nil && u.Role != RoleDoctor {
		return fmt.Errorf("doctor_id is only allowed for role %s", RoleDoctor)
	}
	return nil
}

// clone returns a deep copy so callers cannot mutate session state.
func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.DoctorID != nil {
		id := *u.DoctorID
		c.DoctorID = &id
	}
	return &c
}
