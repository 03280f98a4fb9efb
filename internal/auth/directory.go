package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/social-security/patient-office/internal/shared/types"
)

// ErrUserNotFound is returned when no user has the requested username.
var ErrUserNotFound = errors.New("user not found")

// Directory is the read-only source of known users.
type Directory interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	Users(ctx context.Context) ([]User, error)
}

// StaticDirectory serves a fixed user list.
type StaticDirectory struct {
	users []User
	index map[string]int
}

// NewStaticDirectory validates users and indexes them by username.
func NewStaticDirectory(users []User) (*StaticDirectory, error) {
	d := &StaticDirectory{
		users: make([]User, 0, len(users)),
		index: make(map[string]int, len(users)),
	}
	for _, u := range users {
		if err := u.Validate(); err != nil {
			return nil, fmt.Errorf("user %q: %w", u.Username, err)
		}
		if _, dup := d.index[u.Username]; dup {
			return nil, fmt.Errorf("duplicate username %q", u.Username)
		}
		d.index[u.Username] = len(d.users)
		d.users = append(d.users, *u.clone())
	}
	return d, nil
}

// FindByUsername matches the username exactly, case included.
func (d *StaticDirectory) FindByUsername(ctx context.Context, username string) (*User, error) {
	i, ok := d.index[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return d.users[i].clone(), nil
}

// Users returns a copy of every user in directory order.
func (d *StaticDirectory) Users(ctx context.Context) ([]User, error) {
	out := make([]User, len(d.users))
	for i := range d.users {
		out[i] = *d.users[i].clone()
	}
	return out, nil
}

// DemoUsers are the demonstration accounts offered on the login page.
func DemoUsers() []User {
	return []User{
		{
			ID:       "u1",
			Username: "admin",
			Email:    "admin@securite-sociale.fr",
			Role:     RoleAdmin,
		},
		{
			ID:             "u2",
			Username:       "doctor1",
			Email:          "m.durand@cabinet-medical.fr",
			Role:           RoleDoctor,
			DoctorID:       types.ID("d1").Ptr(),
			ProfilePicture: "https://ui-avatars.com/api/?name=Marie+Durand",
		},
		{
			ID:       "u3",
			Username: "agent1",
			Email:    "agent1@securite-sociale.fr",
			Role:     RoleSocialSecurityAgent,
		},
		{
			ID:       "u4",
			Username: "doctor2",
			Email:    "p.lefebvre@clinique-coeur.fr",
			Role:     RoleDoctor,
			DoctorID: types.ID("d3").Ptr(),
		},
	}
}

// NewDemoDirectory returns a directory over DemoUsers.
func NewDemoDirectory() *StaticDirectory {
	d, err := NewStaticDirectory(DemoUsers())
	if err != nil {
		panic(err)
	}
	return d
}
