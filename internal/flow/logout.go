package flow

import (
	"context"

	"github.com/rs/zerolog/log"
)

// SubmitNo is the submit value of the logout form keeping the session.
const SubmitNo = "No"

// LogoutUI is the data of the logout confirmation form.
type LogoutUI struct {
	CSRFToken string `json:"csrfToken,omitempty"`
	Challenge string `json:"challenge"`
}

// LogoutForm is the submitted logout form.
type LogoutForm struct {
	Challenge string `json:"challenge" form:"challenge"`
	Submit    string `json:"submit" form:"submit"`
}

// LogoutChallenge checks the logout request exists and returns the
// confirmation form. Logouts are never skipped.
func (c *Controller) LogoutChallenge(ctx context.Context, challenge, csrfToken string) (*Step, error) {
	if _, err := c.hydra.GetLogoutRequest(ctx, challenge); err != nil {
		return nil, err
	}

	return &Step{UI: LogoutUI{CSRFToken: csrfToken, Challenge: challenge}}, nil
}

// Logout accepts the logout, or rejects it and sends the browser to the
// fallback url when the user chose to stay signed in.
func (c *Controller) Logout(ctx context.Context, f LogoutForm) (*Step, error) {
	if f.Submit == SubmitNo {
		if err := c.hydra.RejectLogoutRequest(ctx, f.Challenge); err != nil {
			return nil, err
		}

		return &Step{RedirectTo: c.logoutFallback}, nil
	}

	done, err := c.hydra.AcceptLogoutRequest(ctx, f.Challenge)
	if err != nil {
		return nil, err
	}

	log.Debug().Msg("logout accepted")

	return redirect(done), nil
}
