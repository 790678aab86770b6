// Package challenge serves the sign in, sign up, consent and sign out pages
// of the OAuth2 authorization flow.
package challenge

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/datacentricdesign/profile-api/internal/config"
	"github.com/datacentricdesign/profile-api/internal/flow"
	"github.com/datacentricdesign/profile-api/internal/web/handler"
)

const (
	// Path is the prefix of the flow routes.
	Path = "/auth"

	// LocalsCSRF is the fiber.Locals key holding the csrf token.
	LocalsCSRF = "csrf"

	routeSignIn  = "/signin"
	routeSignUp  = "/signup"
	routeSignOut = "/signout"
	routeConsent = "/consent"

	queryLogin   = "login_challenge"
	queryConsent = "consent_challenge"
	queryLogout  = "logout_challenge"
)

// Middlewares guarding the flow routes. A nil entry is skipped.
type Middlewares struct {
	CSRF     fiber.Handler
	Throttle fiber.Handler
}

// Service serves the flow routes.
type Service struct {
	handler.Service
	ctrl *flow.Controller
	mw   Middlewares
}

// New creates the flow handler.
func New(ctrl *flow.Controller, mw Middlewares) *Service {
	return &Service{ctrl: ctrl, mw: mw}
}

// Init registers the routes.
func (s *Service) Init(router fiber.Router, cfg *config.Config) error {
	if router == nil || cfg == nil || s.ctrl == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	csrf := chain(s.mw.CSRF)
	throttle := chain(s.mw.Throttle)

	router.Route(Path, func(r fiber.Router) {
		r.Get(handler.HealthPath, handler.Health)

		r.Get(routeSignIn, append(csrf, s.GetSignIn)...)
		r.Post(routeSignIn, append(throttle, s.PostSignIn)...)
		r.Get(routeSignUp, append(csrf, s.GetSignIn)...)
		r.Post(routeSignUp, append(throttle, s.PostSignUp)...)
		r.Get(routeSignOut, append(csrf, s.GetSignOut)...)
		r.Post(routeSignOut, append(csrf, s.PostSignOut)...)
		r.Get(routeConsent, append(csrf, s.GetConsent)...)
		r.Post(routeConsent, s.PostConsent)
	})

	return nil
}

func chain(h fiber.Handler) []fiber.Handler {
	if h == nil {
		return nil
	}

	return []fiber.Handler{h}
}

func csrfToken(c *fiber.Ctx) string {
	token, _ := c.Locals(LocalsCSRF).(string)
	return token
}

func send(c *fiber.Ctx, step *flow.Step, err error) error {
	if err != nil {
		return err
	}

	return c.JSON(step.Body())
}

// GetSignIn answers the sign in and sign up forms, or the redirect of a skipped login.
func (s *Service) GetSignIn(c *fiber.Ctx) error {
	step, err := s.ctrl.LoginChallenge(c.UserContext(), c.Query(queryLogin), csrfToken(c))
	return send(c, step, err)
}

// PostSignIn checks the submitted credentials.
func (s *Service) PostSignIn(c *fiber.Ctx) error {
	var f flow.SignInForm
	if err := c.BodyParser(&f); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	step, err := s.ctrl.SignIn(c.UserContext(), f)

	return send(c, step, err)
}

// PostSignUp registers a person and signs it in.
func (s *Service) PostSignUp(c *fiber.Ctx) error {
	var f flow.SignUpForm
	if err := c.BodyParser(&f); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	step, err := s.ctrl.SignUp(c.UserContext(), f)

	return send(c, step, err)
}

// GetSignOut answers the sign out confirmation form.
func (s *Service) GetSignOut(c *fiber.Ctx) error {
	step, err := s.ctrl.LogoutChallenge(c.UserContext(), c.Query(queryLogout), csrfToken(c))
	return send(c, step, err)
}

// PostSignOut accepts or rejects the sign out.
func (s *Service) PostSignOut(c *fiber.Ctx) error {
	var f flow.LogoutForm
	if err := c.BodyParser(&f); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	step, err := s.ctrl.Logout(c.UserContext(), f)

	return send(c, step, err)
}

// GetConsent answers the consent form, or the redirect of a skipped consent.
func (s *Service) GetConsent(c *fiber.Ctx) error {
	step, err := s.ctrl.ConsentChallenge(c.UserContext(), c.Query(queryConsent), csrfToken(c))
	return send(c, step, err)
}

// PostConsent answers the consent.
func (s *Service) PostConsent(c *fiber.Ctx) error {
	var f flow.ConsentForm
	if err := c.BodyParser(&f); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	step, err := s.ctrl.Consent(c.UserContext(), f)

	return send(c, step, err)
}
