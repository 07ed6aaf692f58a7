package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/odyssey-erp/odyssey-ops/internal/rbac"
	"github.com/odyssey-erp/odyssey-ops/internal/shared"
)

// SessionAuthenticator resolves the session principal placed in the request
// context by the session middleware into an rbac.AuthContext.
type SessionAuthenticator struct {
	repo Repository
}

// NewSessionAuthenticator builds an authenticator over a profile repository.
func NewSessionAuthenticator(repo Repository) *SessionAuthenticator {
	return &SessionAuthenticator{repo: repo}
}

// Authenticate implements rbac.Authenticator.
func (a *SessionAuthenticator) Authenticate(ctx context.Context) (rbac.AuthContext, error) {
	principalID, ok := shared.PrincipalFromContext(ctx)
	if !ok {
		return rbac.AuthContext{}, shared.ErrUnauthenticated
	}
	profile, err := a.repo.ProfileByPrincipal(ctx, principalID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return rbac.AuthContext{}, fmt.Errorf("%w: principal has no profile", shared.ErrUnauthenticated)
		}
		return rbac.AuthContext{}, err
	}
	return rbac.AuthContext{
		PrincipalID:  principalID,
		ProfileID:    profile.ID,
		DepartmentID: profile.DepartmentID,
	}, nil
}
