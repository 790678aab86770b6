package auth

import "github.com/datacentricdesign/profile-api/internal/apperror"

var (
	// ErrMissingCredential is returned when the request carries no token.
	ErrMissingCredential = apperror.New(apperror.MissingCredential, "Add 'Authorization' header.")

	// ErrMalformedCredential is returned when the Authorization header does not use the bearer scheme.
	ErrMalformedCredential = apperror.New(apperror.MalformedCredential,
		"Add 'bearer ' in front of your 'Authorization' token.")

	// ErrTokenInactive is returned when the authorization server reports the token inactive.
	ErrTokenInactive = apperror.New(apperror.TokenInactive, "The bearer token is not active")

	// ErrWrongTokenType is returned when the token is not an access token.
	ErrWrongTokenType = apperror.New(apperror.WrongTokenType, "The bearer token is not an access token")
)
