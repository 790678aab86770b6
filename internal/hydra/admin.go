package hydra

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/datacentricdesign/profile-api/internal/apperror"
	"github.com/datacentricdesign/profile-api/internal/httpclient"
)

// Introspect asks the server about token. scopes, when given, must all be granted to the token.
func (a *Admin) Introspect(ctx context.Context, token string, scopes ...string) (*Introspection, error) {
	form := url.Values{"token": {token}}
	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}

	var i Introspection
	if _, err := a.http.PostForm(ctx, "/oauth2/introspect", form, &i); err != nil {
		return nil, err
	}

	return &i, nil
}

// ListConsentSessions lists the consents granted by subject.
func (a *Admin) ListConsentSessions(ctx context.Context, subject string) ([]PreviousConsent, error) {
	sessions := []PreviousConsent{}

	_, err := a.http.Do(ctx, http.MethodGet, "/oauth2/auth/sessions/consent",
		url.Values{"subject": {subject}}, nil, &sessions)
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

// RevokeConsentSessions revokes the consents subject granted to client, or to
// every client when client is empty.
func (a *Admin) RevokeConsentSessions(ctx context.Context, subject, client string) error {
	q := url.Values{"subject": {subject}}
	if client != "" {
		q.Set("client", client)
	} else {
		q.Set("all", "true")
	}

	_, err := a.http.Do(ctx, http.MethodDelete, "/oauth2/auth/sessions/consent", q, nil, nil)

	return err
}

// ListClients lists the registered OAuth2 clients.
func (a *Admin) ListClients(ctx context.Context) ([]Client, error) {
	clients := []Client{}

	if _, err := a.http.Do(ctx, http.MethodGet, "/clients", nil, nil, &clients); err != nil {
		return nil, err
	}

	return clients, nil
}

// CreateClient registers c and returns the stored client, secret included.
func (a *Admin) CreateClient(ctx context.Context, c Client) (*Client, error) {
	var created Client

	if _, err := a.http.Do(ctx, http.MethodPost, "/clients", nil, c, &created); err != nil {
		return nil, err
	}

	return &created, nil
}

// DeleteClient removes the client. An unknown client is NotFound.
func (a *Admin) DeleteClient(ctx context.Context, clientID string) error {
	_, err := a.http.Do(ctx, http.MethodDelete, "/clients/"+url.PathEscape(clientID), nil, nil, nil)
	if err != nil && httpclient.StatusOf(err) == http.StatusNotFound {
		return apperror.Wrap(err, apperror.NotFound, "app not found")
	}

	return err
}
