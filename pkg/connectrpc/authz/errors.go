// Package authz enforces per-procedure permissions for Connect RPC services.
package authz

import "errors"

// AuthErrorHeader carries the authorization failure code on rejected calls.
const AuthErrorHeader = "Auth-Error"

var (
	// ErrProcedureNotMapped is returned for procedures without a permission rule.
	ErrProcedureNotMapped = errors.New("procedure has no permission rule")

	// ErrAuthorizerRequired is returned when no authorizer is given.
	ErrAuthorizerRequired = errors.New("authorizer is required")
)
