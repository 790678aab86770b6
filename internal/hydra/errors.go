package hydra

import "github.com/datacentricdesign/profile-api/internal/apperror"

var (
	// ErrEmptyChallenge is returned when a flow step is called without its challenge.
	ErrEmptyChallenge = apperror.New(apperror.ValidationError, "challenge is required")
	// ErrNoRedirect is returned when an accept or a reject answer carries no redirect_to.
	ErrNoRedirect = apperror.New(apperror.UpstreamError, "authorization server answered without redirect_to")
	// ErrSkipWithoutSubject is returned when a skipped login or consent names no subject.
	ErrSkipWithoutSubject = apperror.New(apperror.UpstreamError, "authorization server skipped a request without subject")
	// ErrEmptyAdminURL is returned when the admin url is not configured.
	ErrEmptyAdminURL = apperror.New(apperror.ValidationError, "hydra admin url is empty")
)
