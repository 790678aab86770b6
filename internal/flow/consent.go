package flow

import (
	"context"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/datacentricdesign/profile-api/internal/config"
	"github.com/datacentricdesign/profile-api/internal/db/models"
	"github.com/datacentricdesign/profile-api/internal/hydra"
)

// SubmitDeny is the submit value of the consent form refusing access.
const SubmitDeny = "Deny access"

// ConsentUI is the data of the consent form.
type ConsentUI struct {
	BaseURL        string         `json:"baseUrl"`
	CSRFToken      string         `json:"csrfToken,omitempty"`
	Challenge      string         `json:"challenge"`
	RequestedScope []config.Scope `json:"requested_scope"`
	Scopes         string         `json:"scopes"`
	User           *models.Person `json:"user"`
	Client         hydra.Client   `json:"client"`
}

// ConsentForm is the submitted consent form. Scopes is the comma separated
// list of granted scopes.
type ConsentForm struct {
	Challenge string `json:"challenge" form:"challenge"`
	Submit    string `json:"submit" form:"submit"`
	Scopes    string `json:"scopes" form:"scopes"`
	Remember  string `json:"remember" form:"remember"`
}

// ConsentChallenge fetches the consent request. Skipped requests and requests
// of first party clients are accepted with every requested scope.
func (c *Controller) ConsentChallenge(ctx context.Context, challenge, csrfToken string) (*Step, error) {
	req, err := c.hydra.GetConsentRequest(ctx, challenge)
	if err != nil {
		return nil, err
	}

	p, err := c.people.Get(ctx, req.Subject)
	if err != nil {
		return nil, err
	}

	if req.Skip || slices.Contains(c.firstPartyApps, req.Client.ClientID) {
		done, err := c.hydra.AcceptConsentRequest(ctx, challenge, hydra.AcceptConsent{
			GrantScope:               req.RequestedScope,
			GrantAccessTokenAudience: req.RequestedAccessTokenAudience,
			Session:                  hydra.ConsentSession{IDToken: BuildIDTokenClaims(req.RequestedScope, p)},
		})
		if err != nil {
			return nil, err
		}

		log.Debug().Str("subject", req.Subject).Str("client", req.Client.ClientID).Msg("consent skipped")

		return redirect(done), nil
	}

	return &Step{UI: ConsentUI{
		BaseURL:        c.baseURL,
		CSRFToken:      csrfToken,
		Challenge:      challenge,
		RequestedScope: c.DetailedScopes(req.RequestedScope),
		Scopes:         strings.Join(req.RequestedScope, ","),
		User:           p,
		Client:         req.Client,
	}}, nil
}

// Consent answers the consent request with the decision of the user.
func (c *Controller) Consent(ctx context.Context, f ConsentForm) (*Step, error) {
	if f.Submit == SubmitDeny {
		done, err := c.hydra.RejectConsentRequest(ctx, f.Challenge, hydra.Reject{
			Error:            "access_denied",
			ErrorDescription: "The resource owner denied the request",
		})
		if err != nil {
			return nil, err
		}

		return redirect(done), nil
	}

	req, err := c.hydra.GetConsentRequest(ctx, f.Challenge)
	if err != nil {
		return nil, err
	}

	p, err := c.people.Get(ctx, req.Subject)
	if err != nil {
		return nil, err
	}

	granted := splitScopes(f.Scopes)

	done, err := c.hydra.AcceptConsentRequest(ctx, f.Challenge, hydra.AcceptConsent{
		GrantScope:               granted,
		GrantAccessTokenAudience: req.RequestedAccessTokenAudience,
		Remember:                 Truthy(f.Remember),
		RememberFor:              RememberFor,
		Session:                  hydra.ConsentSession{IDToken: BuildIDTokenClaims(granted, p)},
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("subject", req.Subject).Str("client", req.Client.ClientID).
		Strs("scopes", granted).Msg("consent granted")

	return redirect(done), nil
}

// DetailedScopes describes the scopes for the consent form. Unknown scopes
// are described by their id.
func (c *Controller) DetailedScopes(ids []string) []config.Scope {
	out := make([]config.Scope, 0, len(ids))

	for _, id := range ids {
		if s, ok := c.scopes[id]; ok {
			out = append(out, s)
			continue
		}

		out = append(out, config.Scope{ID: id, Name: id})
	}

	return out
}

func splitScopes(v string) []string {
	out := []string{}

	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}

	return out
}
