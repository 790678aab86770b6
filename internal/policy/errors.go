package policy

import "github.com/datacentricdesign/profile-api/internal/apperror"

var (
	// ErrNotAllowed is returned when the policy engine denies a request.
	ErrNotAllowed = apperror.New(apperror.Forbidden, "Request was not allowed")
	// ErrGroupPrefix is returned when a group id misses its namespace.
	ErrGroupPrefix = apperror.New(apperror.ValidationError, "Group id must start with "+GroupIDPrefix).
		WithRequirements("id prefixed with " + GroupIDPrefix)
)
