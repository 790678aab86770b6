package hydra

import (
	"context"
	"net/http"
)

const (
	flowLogin   = "login"
	flowConsent = "consent"
	flowLogout  = "logout"

	actionAccept = "accept"
	actionReject = "reject"
)

// GetLoginRequest reads the login request of challenge.
func (a *Admin) GetLoginRequest(ctx context.Context, challenge string) (*LoginRequest, error) {
	var r LoginRequest
	if err := a.getRequest(ctx, flowLogin, challenge, &r); err != nil {
		return nil, err
	}

	if r.Skip && r.Subject == "" {
		return nil, ErrSkipWithoutSubject
	}

	return &r, nil
}

// AcceptLoginRequest authenticates the subject of the login request.
func (a *Admin) AcceptLoginRequest(ctx context.Context, challenge string, body AcceptLogin) (*Completed, error) {
	return a.complete(ctx, flowLogin, actionAccept, challenge, body)
}

// RejectLoginRequest denies the login request.
func (a *Admin) RejectLoginRequest(ctx context.Context, challenge string, body Reject) (*Completed, error) {
	return a.complete(ctx, flowLogin, actionReject, challenge, body)
}

// GetConsentRequest reads the consent request of challenge.
func (a *Admin) GetConsentRequest(ctx context.Context, challenge string) (*ConsentRequest, error) {
	var r ConsentRequest
	if err := a.getRequest(ctx, flowConsent, challenge, &r); err != nil {
		return nil, err
	}

	if r.Skip && r.Subject == "" {
		return nil, ErrSkipWithoutSubject
	}

	return &r, nil
}

// AcceptConsentRequest grants the scopes of the consent request.
func (a *Admin) AcceptConsentRequest(ctx context.Context, challenge string, body AcceptConsent) (*Completed, error) {
	if body.GrantScope == nil {
		body.GrantScope = []string{}
	}

	if body.GrantAccessTokenAudience == nil {
		body.GrantAccessTokenAudience = []string{}
	}

	return a.complete(ctx, flowConsent, actionAccept, challenge, body)
}

// RejectConsentRequest denies the consent request.
func (a *Admin) RejectConsentRequest(ctx context.Context, challenge string, body Reject) (*Completed, error) {
	return a.complete(ctx, flowConsent, actionReject, challenge, body)
}

// GetLogoutRequest reads the logout request of challenge.
func (a *Admin) GetLogoutRequest(ctx context.Context, challenge string) (*LogoutRequest, error) {
	var r LogoutRequest
	if err := a.getRequest(ctx, flowLogout, challenge, &r); err != nil {
		return nil, err
	}

	return &r, nil
}

// AcceptLogoutRequest ends the session of the logout request.
func (a *Admin) AcceptLogoutRequest(ctx context.Context, challenge string) (*Completed, error) {
	return a.complete(ctx, flowLogout, actionAccept, challenge, nil)
}

// RejectLogoutRequest keeps the session. The server answers without a redirect.
func (a *Admin) RejectLogoutRequest(ctx context.Context, challenge string) error {
	if challenge == "" {
		return ErrEmptyChallenge
	}

	_, err := a.http.Do(ctx, http.MethodPut, "/oauth2/auth/requests/logout/reject",
		challengeQuery(flowLogout, challenge), Reject{Error: "access_denied"}, nil)

	return err
}
