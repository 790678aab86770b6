// Package hydra is a typed client of the admin API of an ORY Hydra authorization
// server: login, consent and logout requests, token introspection, consent
// sessions and OAuth2 clients.
package hydra

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/datacentricdesign/profile-api/internal/httpclient"
)

const serviceName = "hydra"

// Config of the admin client.
type Config struct {
	AdminURL string
	// TokenURL, ClientID and ClientSecret enable the client credentials grant.
	// Without a ClientID admin calls are sent unauthenticated.
	TokenURL     string
	ClientID     string
	ClientSecret string //nolint:gosec
	Scopes       []string
	Timeout      time.Duration
	Secured      bool
}

// Admin talks to the admin API.
type Admin struct {
	http *httpclient.Client
}

// New creates the admin client. The service token is fetched on first use and
// refreshed when it expires; the token source is shared by every request.
func New(ctx context.Context, cfg Config) (*Admin, error) {
	if cfg.AdminURL == "" {
		return nil, ErrEmptyAdminURL
	}

	base := &http.Client{Timeout: cfg.Timeout}
	if cfg.Secured {
		base.Transport = httpclient.ForwardedProto(nil)
	}

	hc := base

	if cfg.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
			AuthStyle:    oauth2.AuthStyleInParams,
		}

		// the token endpoint is reached through base, so it gets the same headers
		hc = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &oauth2.Transport{
				Source: cc.TokenSource(context.WithValue(ctx, oauth2.HTTPClient, base)),
				Base:   base.Transport,
			},
		}
	}

	return &Admin{
		http: httpclient.New(serviceName, cfg.AdminURL, hc, httpclient.Options{
			Timeout: cfg.Timeout,
			Secured: cfg.Secured,
		}),
	}, nil
}

func challengeQuery(flow, challenge string) url.Values {
	return url.Values{flow + "_challenge": {challenge}}
}

// getRequest reads the pending request of flow.
func (a *Admin) getRequest(ctx context.Context, flow, challenge string, out any) error {
	if strings.TrimSpace(challenge) == "" {
		return ErrEmptyChallenge
	}

	_, err := a.http.Do(ctx, http.MethodGet, "/oauth2/auth/requests/"+flow, challengeQuery(flow, challenge), nil, out)

	return err
}

// complete accepts or rejects the pending request of flow.
func (a *Admin) complete(ctx context.Context, flow, action, challenge string, body any) (*Completed, error) {
	if strings.TrimSpace(challenge) == "" {
		return nil, ErrEmptyChallenge
	}

	var c Completed

	_, err := a.http.Do(ctx, http.MethodPut, "/oauth2/auth/requests/"+flow+"/"+action,
		challengeQuery(flow, challenge), body, &c)
	if err != nil {
		return nil, err
	}

	if c.RedirectTo == "" {
		return nil, ErrNoRedirect
	}

	return &c, nil
}
