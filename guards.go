package iam

// RequireAdmin rejects callers whose token lacks the admin flag.
func RequireAdmin(claims AuthClaims) error {
	if claims == nil || !claims.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// RequireNotSelf rejects destructive operations where the acting
// account is also the target, regardless of role.
func RequireNotSelf(actorID, targetID string) error {
	if actorID != "" && actorID == targetID {
		return ErrSelfAction
	}
	return nil
}

// RequireActive rejects identities that resolved but are deactivated.
// Applied after credential verification so responses stay uniform for
// unknown accounts.
func RequireActive(user *User) error {
	if user == nil {
		return ErrIdentityNotFound
	}
	if !user.Active {
		return ErrInactiveAccount
	}
	return nil
}
