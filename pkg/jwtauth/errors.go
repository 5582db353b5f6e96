// Package jwtauth verifies Auth0-issued bearer tokens against the provider's
// JSON Web Key Set and enforces scope-based permissions.
package jwtauth

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an authorization failure.
type Kind int

// Failure kinds. Every rejection is classified as exactly one of these.
const (
	KindMissingHeader Kind = iota + 1
	KindMalformedHeader
	KindMalformedToken
	KindKeyNotFound
	KindKeyDirectoryUnavailable
	KindTokenExpired
	KindInvalidClaims
	KindScopeMissing
	KindPermissionDenied
	KindUnexpectedVerificationError
)

var kindNames = map[Kind]string{
	KindMissingHeader:               "MissingHeader",
	KindMalformedHeader:             "MalformedHeader",
	KindMalformedToken:              "MalformedToken",
	KindKeyNotFound:                 "KeyNotFound",
	KindKeyDirectoryUnavailable:     "KeyDirectoryUnavailable",
	KindTokenExpired:                "TokenExpired",
	KindInvalidClaims:               "InvalidClaims",
	KindScopeMissing:                "ScopeMissing",
	KindPermissionDenied:            "PermissionDenied",
	KindUnexpectedVerificationError: "UnexpectedVerificationError",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Wire codes carried by a Failure.
const (
	CodeHeaderMissing           = "authorization_header_missing"
	CodeInvalidHeader           = "invalid_header"
	CodeTokenExpired            = "token_expired"
	CodeInvalidClaims           = "invalid_claims"
	CodeUnauthorized            = "unauthorized"
	CodeKeyDirectoryUnavailable = "key_directory_unavailable"
)

// Failure is a classified authorization failure. It is created once at the
// point of detection and returned unchanged to the boundary.
type Failure struct {
	Kind        Kind
	Code        string
	Description string
	HTTPStatus  int

	err error
}

func (f *Failure) Error() string {
	if f.err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Code, f.Description, f.err)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Description)
}

// Unwrap returns the underlying cause, if any.
func (f *Failure) Unwrap() error {
	return f.err
}

// Is reports whether target is a Failure of the same Kind, so that the
// package-level sentinels below work with errors.Is.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return t.Kind == f.Kind && t.Code == "" && t.Description == ""
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Sentinels for matching with errors.Is. They carry only a Kind.
var (
	ErrMissingHeader               = &Failure{Kind: KindMissingHeader}
	ErrMalformedHeader             = &Failure{Kind: KindMalformedHeader}
	ErrMalformedToken              = &Failure{Kind: KindMalformedToken}
	ErrKeyNotFound                 = &Failure{Kind: KindKeyNotFound}
	ErrKeyDirectoryUnavailable     = &Failure{Kind: KindKeyDirectoryUnavailable}
	ErrTokenExpired                = &Failure{Kind: KindTokenExpired}
	ErrInvalidClaims               = &Failure{Kind: KindInvalidClaims}
	ErrScopeMissing                = &Failure{Kind: KindScopeMissing}
	ErrPermissionDenied            = &Failure{Kind: KindPermissionDenied}
	ErrUnexpectedVerificationError = &Failure{Kind: KindUnexpectedVerificationError}
)

func missingHeader() *Failure {
	return &Failure{
		Kind:        KindMissingHeader,
		Code:        CodeHeaderMissing,
		Description: "Authorization header is expected.",
		HTTPStatus:  http.StatusUnauthorized,
	}
}

func malformedHeader(description string) *Failure {
	return &Failure{
		Kind:        KindMalformedHeader,
		Code:        CodeInvalidHeader,
		Description: description,
		HTTPStatus:  http.StatusUnauthorized,
	}
}

func malformedToken(description string, status int, err error) *Failure {
	return &Failure{
		Kind:        KindMalformedToken,
		Code:        CodeInvalidHeader,
		Description: description,
		HTTPStatus:  status,
		err:         err,
	}
}

func keyNotFound(kid string) *Failure {
	return &Failure{
		Kind:        KindKeyNotFound,
		Code:        CodeInvalidHeader,
		Description: "Unable to find the appropriate key.",
		HTTPStatus:  http.StatusBadRequest,
		err:         fmt.Errorf("kid %q", kid),
	}
}

func keyDirectoryUnavailable(err error) *Failure {
	return &Failure{
		Kind:        KindKeyDirectoryUnavailable,
		Code:        CodeKeyDirectoryUnavailable,
		Description: "Unable to fetch signing keys.",
		HTTPStatus:  http.StatusServiceUnavailable,
		err:         err,
	}
}

func tokenExpired(err error) *Failure {
	return &Failure{
		Kind:        KindTokenExpired,
		Code:        CodeTokenExpired,
		Description: "Token expired.",
		HTTPStatus:  http.StatusUnauthorized,
		err:         err,
	}
}

func invalidClaims(err error) *Failure {
	return &Failure{
		Kind:        KindInvalidClaims,
		Code:        CodeInvalidClaims,
		Description: "Incorrect claims. Please, check the audience and issuer.",
		HTTPStatus:  http.StatusUnauthorized,
		err:         err,
	}
}

func scopeMissing() *Failure {
	return &Failure{
		Kind:        KindScopeMissing,
		Code:        CodeInvalidClaims,
		Description: "Scope not included in JWT.",
		HTTPStatus:  http.StatusBadRequest,
	}
}

func permissionDenied(permission string) *Failure {
	return &Failure{
		Kind:        KindPermissionDenied,
		Code:        CodeUnauthorized,
		Description: "Permission not found.",
		HTTPStatus:  http.StatusForbidden,
		err:         fmt.Errorf("permission %q", permission),
	}
}

func unexpectedVerificationError(err error) *Failure {
	return &Failure{
		Kind:        KindUnexpectedVerificationError,
		Code:        CodeUnauthorized,
		Description: "Permissions not found",
		HTTPStatus:  http.StatusUnauthorized,
		err:         err,
	}
}

// ErrJWKSFetch is wrapped by key directory errors when the key set cannot be
// fetched or parsed.
var ErrJWKSFetch = errors.New("failed to fetch JWKS")

// Configuration errors.
var (
	// ErrDomainRequired is returned when Domain is empty.
	ErrDomainRequired = errors.New("domain is required")

	// ErrAudienceRequired is returned when Audience is empty.
	ErrAudienceRequired = errors.New("audience is required")

	// ErrAlgorithmsRequired is returned when no signing algorithm is accepted.
	ErrAlgorithmsRequired = errors.New("at least one algorithm is required")

	// ErrUnsupportedAlgorithm is returned for an algorithm name jwx does not know.
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
)
