package shared

import "errors"

// Error taxonomy shared by the access layer. Callers match with errors.Is;
// wrapped errors keep their underlying cause reachable as well.
var (
	// ErrUnauthenticated indicates no valid identity context is present.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates the identity lacks the required permission.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates no visible row matched. It does not reveal whether
	// an invisible row exists.
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedOperation indicates the resource cannot perform the request,
	// e.g. a soft delete on a resource without a soft-delete column.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrDependency indicates a failure of the role-binding store or storage engine.
	ErrDependency = errors.New("dependency failure")
	// ErrConfiguration indicates an unknown resource, role or column reference.
	ErrConfiguration = errors.New("configuration error")
)
