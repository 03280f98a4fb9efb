package types

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// ID is an opaque entity identifier.
type ID string

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// NewID generates a new random ID
func NewID() ID {
	return ID(uuid.New().String())
}

// NewDeterministicID generates a deterministic ID based on namespace and name
// This creates the same UUID for the same namespace+name combination
func NewDeterministicID(namespace, name string) ID {
	ns := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return ID(uuid.NewSHA1(ns, []byte(namespace+":"+name)).String())
}

// ParseID parses a string into an ID. Identifiers are opaque: any short
// token of letters, digits, '-' or '_' is accepted.
func ParseID(s string) (ID, error) {
	if !idPattern.MatchString(s) {
		return "", fmt.Errorf("invalid ID %q", s)
	}
	return ID(s), nil
}

// MustParseID parses a string into an ID, panics on error
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsZero checks if the ID is empty
func (id ID) IsZero() bool {
	return id == ""
}

// Ptr returns a pointer to a copy of the ID, for optional references.
func (id ID) Ptr() *ID {
	return &id
}
