package types

import "strings"

// SSN is a social-security number. It is an opaque identifier: no checksum
// or format check is applied.
type SSN string

// String returns the string representation
func (s SSN) String() string {
	return string(s)
}

// Masked returns a masked version for display (first 5 characters visible)
func (s SSN) Masked() string {
	compact := strings.ReplaceAll(string(s), " ", "")
	if len(compact) <= 5 {
		return strings.Repeat("*", len(compact))
	}
	return compact[:5] + strings.Repeat("*", len(compact)-5)
}

// Contains reports whether the SSN contains term, ignoring case and spaces.
func (s SSN) Contains(term string) bool {
	compact := strings.ToLower(strings.ReplaceAll(string(s), " ", ""))
	return strings.Contains(compact, strings.ToLower(strings.ReplaceAll(term, " ", "")))
}

// IsZero checks if the SSN is empty
func (s SSN) IsZero() bool {
	return s == ""
}
