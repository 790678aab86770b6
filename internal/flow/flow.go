// Package flow drives the login, consent and logout challenges of the OAuth2
// authorization server.
//
// Every challenge is handled in two steps. The first step fetches the pending
// request and either accepts it right away (skip) or returns the data of the
// form to show. The second step receives the decision of the user and answers
// the authorization server, which in turn returns the redirect to follow.
package flow

import (
	"context"
	"strconv"
	"strings"

	"github.com/datacentricdesign/profile-api/internal/config"
	"github.com/datacentricdesign/profile-api/internal/db/models"
	"github.com/datacentricdesign/profile-api/internal/hydra"
	"github.com/datacentricdesign/profile-api/internal/person"
)

// RememberFor is the lifetime in seconds of remembered logins and consents.
const RememberFor = 3600

// Authorizer is the part of the hydra admin API driving the challenges.
type Authorizer interface {
	GetLoginRequest(ctx context.Context, challenge string) (*hydra.LoginRequest, error)
	AcceptLoginRequest(ctx context.Context, challenge string, body hydra.AcceptLogin) (*hydra.Completed, error)
	GetConsentRequest(ctx context.Context, challenge string) (*hydra.ConsentRequest, error)
	AcceptConsentRequest(ctx context.Context, challenge string, body hydra.AcceptConsent) (*hydra.Completed, error)
	RejectConsentRequest(ctx context.Context, challenge string, body hydra.Reject) (*hydra.Completed, error)
	GetLogoutRequest(ctx context.Context, challenge string) (*hydra.LogoutRequest, error)
	AcceptLogoutRequest(ctx context.Context, challenge string) (*hydra.Completed, error)
	RejectLogoutRequest(ctx context.Context, challenge string) error
}

// People resolves and registers the persons signing in.
type People interface {
	CheckCredentials(ctx context.Context, emailOrID, plain string) (string, error)
	Get(ctx context.Context, id string) (*models.Person, error)
	Register(ctx context.Context, r person.Registration) (*models.Person, error)
}

// Step is the outcome of a flow step: either a redirect or the data of a form.
type Step struct {
	RedirectTo string
	UI         any
}

// Redirect is the body answered when the browser must follow the authorization server.
type Redirect struct {
	RedirectTo string `json:"redirect_to"`
}

// Body returns what is sent to the browser.
func (s *Step) Body() any {
	if s.RedirectTo != "" {
		return Redirect{RedirectTo: s.RedirectTo}
	}

	return s.UI
}

func redirect(c *hydra.Completed) *Step {
	return &Step{RedirectTo: c.RedirectTo}
}

// Controller handles the challenges.
type Controller struct {
	hydra          Authorizer
	people         People
	baseURL        string
	firstPartyApps []string
	logoutFallback string
	scopes         map[string]config.Scope
}

// New creates a Controller.
func New(h Authorizer, people People, cfg *config.Config) *Controller {
	scopes := make(map[string]config.Scope, len(cfg.Scopes))
	for _, s := range cfg.Scopes {
		scopes[s.ID] = s
	}

	return &Controller{
		hydra:          h,
		people:         people,
		baseURL:        cfg.Webserver.URL,
		firstPartyApps: cfg.OAuth2.FirstPartyApps,
		logoutFallback: cfg.OAuth2.LogoutFallbackURL,
		scopes:         scopes,
	}
}

// Truthy interprets a submitted checkbox or flag.
func Truthy(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}

	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}

	return !strings.EqualFold(v, "off") && !strings.EqualFold(v, "no")
}
