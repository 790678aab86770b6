package flow

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/datacentricdesign/profile-api/internal/apperror"
	"github.com/datacentricdesign/profile-api/internal/hydra"
	"github.com/datacentricdesign/profile-api/internal/person"
)

// MsgBadCredentials is shown whatever part of the credentials was wrong.
const MsgBadCredentials = "The email / password combination is not correct"

// FormError is the error shown on a form. The zero value means no error.
type FormError struct {
	Message string `json:"message,omitempty"`
	Name    string `json:"name,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// LoginUI is the data of the sign in and sign up forms.
type LoginUI struct {
	BaseURL   string        `json:"baseUrl"`
	CSRFToken string        `json:"csrfToken,omitempty"`
	Challenge string        `json:"challenge"`
	Error     FormError     `json:"error"`
	Client    *hydra.Client `json:"client,omitempty"`
}

// SignInForm is the submitted sign in form.
type SignInForm struct {
	Challenge string `json:"challenge" form:"challenge"`
	Email     string `json:"email" form:"email"`
	Password  string `json:"password" form:"password"` //nolint:gosec
	Remember  string `json:"remember" form:"remember"`
}

// SignUpForm is the submitted sign up form.
type SignUpForm struct {
	Challenge string `json:"challenge" form:"challenge"`
	ID        string `json:"id" form:"id"`
	Name      string `json:"name" form:"name"`
	Email     string `json:"email" form:"email"`
	Password  string `json:"password" form:"password"` //nolint:gosec
	Remember  string `json:"remember" form:"remember"`
}

// LoginChallenge fetches the login request. A login the authorization server
// can skip is accepted with the known subject, otherwise the form data is returned.
func (c *Controller) LoginChallenge(ctx context.Context, challenge, csrfToken string) (*Step, error) {
	req, err := c.hydra.GetLoginRequest(ctx, challenge)
	if err != nil {
		return nil, err
	}

	if req.Skip {
		done, err := c.hydra.AcceptLoginRequest(ctx, challenge, hydra.AcceptLogin{Subject: req.Subject})
		if err != nil {
			return nil, err
		}

		log.Debug().Str("subject", req.Subject).Msg("login skipped")

		return redirect(done), nil
	}

	client := req.Client

	return &Step{UI: LoginUI{
		BaseURL:   c.baseURL,
		CSRFToken: csrfToken,
		Challenge: challenge,
		Client:    &client,
	}}, nil
}

// SignIn checks the credentials and accepts the login on success. Wrong
// credentials give the form back with a generic message.
func (c *Controller) SignIn(ctx context.Context, f SignInForm) (*Step, error) {
	subject, err := c.people.CheckCredentials(ctx, f.Email, f.Password)
	if err != nil {
		return nil, err
	}

	if subject == "" {
		log.Debug().Msg("sign in with wrong credentials")

		return &Step{UI: LoginUI{
			BaseURL:   c.baseURL,
			Challenge: f.Challenge,
			Error:     FormError{Message: MsgBadCredentials},
		}}, nil
	}

	return c.acceptLogin(ctx, f.Challenge, subject, Truthy(f.Remember))
}

// SignUp registers the person and accepts the login with it as subject.
// Invalid or duplicate input gives the form back with the error.
func (c *Controller) SignUp(ctx context.Context, f SignUpForm) (*Step, error) {
	p, err := c.people.Register(ctx, person.Registration{
		ID:       f.ID,
		Name:     f.Name,
		Email:    f.Email,
		Password: f.Password,
	})
	if err != nil {
		kind := apperror.KindOf(err)
		if kind != apperror.ValidationError && kind != apperror.DuplicateIdentity {
			return nil, err
		}

		return &Step{UI: LoginUI{
			BaseURL:   c.baseURL,
			Challenge: f.Challenge,
			Error:     formError(err),
		}}, nil
	}

	return c.acceptLogin(ctx, f.Challenge, p.ID, Truthy(f.Remember))
}

func (c *Controller) acceptLogin(ctx context.Context, challenge, subject string, remember bool) (*Step, error) {
	done, err := c.hydra.AcceptLoginRequest(ctx, challenge, hydra.AcceptLogin{
		Subject:     subject,
		Remember:    remember,
		RememberFor: RememberFor,
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("subject", subject).Msg("login accepted")

	return redirect(done), nil
}

func formError(err error) FormError {
	kind := apperror.KindOf(err)
	msg := err.Error()

	var e *apperror.Error
	if errors.As(err, &e) && e.Message != "" {
		msg = e.Message
	}

	return FormError{Message: msg, Name: kind.String(), Code: kind.Code()}
}
