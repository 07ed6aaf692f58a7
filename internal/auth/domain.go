// Package auth adapts the externally issued session to the identity context
// consumed by the authorization gate.
package auth

// Profile is the internal profile of an authenticated principal.
type Profile struct {
	ID           string
	PrincipalID  string
	DepartmentID string
}
