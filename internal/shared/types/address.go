package types

import "strings"

// Address represents a postal address
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"` // ISO 3166-1 alpha-2, default "FR"
}

// NewAddress creates a new address with France as default country
func NewAddress(street, postalCode, city string) Address {
	return Address{
		Street:     street,
		City:       city,
		PostalCode: postalCode,
		Country:    "FR",
	}
}

// String formats the address on one line: "street, postal city".
func (a Address) String() string {
	var parts []string
	if a.Street != "" {
		parts = append(parts, a.Street)
	}
	locality := strings.TrimSpace(a.PostalCode + " " + a.City)
	if locality != "" {
		parts = append(parts, locality)
	}
	return strings.Join(parts, ", ")
}

// IsZero reports whether no address field is set.
func (a Address) IsZero() bool {
	return a == Address{}
}

// ContactInfo represents contact information
type ContactInfo struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}
