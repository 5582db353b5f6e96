package jwtauth

import "strings"

// ExtractToken returns the bearer token carried by an Authorization header
// value. An empty header is treated as absent.
func ExtractToken(header string) (string, error) {
	if header == "" {
		return "", missingHeader()
	}

	parts := strings.Fields(header)
	if len(parts) == 0 || !strings.EqualFold(parts[0], "bearer") {
		return "", malformedHeader(`Authorization header must start with "Bearer".`)
	}

	switch {
	case len(parts) == 1:
		return "", malformedHeader("Token not found.")
	case len(parts) > 2:
		return "", malformedHeader("Authorization header must be bearer token.")
	}

	return parts[1], nil
}
