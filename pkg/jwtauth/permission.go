package jwtauth

// CheckPermission reports whether claims grant permission.
//
// The scope claim must be present. An empty permission imposes no membership
// constraint, so it admits any authenticated caller with a scope.
func CheckPermission(permission string, claims Claims) error {
	if _, ok := claims.Scope(); !ok {
		return scopeMissing()
	}
	if permission == "" {
		return nil
	}
	if !claims.HasPermission(permission) {
		return permissionDenied(permission)
	}
	return nil
}
