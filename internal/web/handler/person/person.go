// Package person serves the person accounts.
package person

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/datacentricdesign/profile-api/internal/auth"
	"github.com/datacentricdesign/profile-api/internal/config"
	"github.com/datacentricdesign/profile-api/internal/db/models"
	"github.com/datacentricdesign/profile-api/internal/hydra"
	"github.com/datacentricdesign/profile-api/internal/person"
	"github.com/datacentricdesign/profile-api/internal/policy"
	"github.com/datacentricdesign/profile-api/internal/web/handler"
)

const (
	// Path is the prefix of the person routes.
	Path = "/persons"

	routePerson = "/:personId"
	routeCheck  = routePerson + "/check"
	routeApps   = routePerson + "/apps"
	routeApp    = routeApps + "/:appId"
)

// Accounts is the person service.
type Accounts interface {
	Register(ctx context.Context, r person.Registration) (*models.Person, error)
	Get(ctx context.Context, id string) (*models.Person, error)
	Exists(ctx context.Context, id string) (bool, error)
	Edit(ctx context.Context, id string, u person.Update) (*models.Person, error)
	Delete(ctx context.Context, id string) error
	Apps(ctx context.Context, id string) ([]hydra.PreviousConsent, error)
	RevokeApp(ctx context.Context, id, clientID string) error
}

// Exists is the body of the check routes.
type Exists struct {
	Exists bool `json:"exists"`
}

// Service serves the person routes.
type Service struct {
	handler.Service
	accounts     Accounts
	introspector *auth.Introspector
	checker      auth.Checker
}

// New creates the person handler.
func New(accounts Accounts, introspector *auth.Introspector, checker auth.Checker) *Service {
	return &Service{accounts: accounts, introspector: introspector, checker: checker}
}

// Init registers the routes.
func (s *Service) Init(router fiber.Router, cfg *config.Config) error {
	if router == nil || cfg == nil || s.accounts == nil || s.introspector == nil || s.checker == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	persons := auth.Authenticate(s.introspector, auth.ScopePersons)
	personsApps := auth.Authenticate(s.introspector, auth.ScopePersons, auth.ScopeApps)

	router.Route(Path, func(r fiber.Router) {
		r.Get(handler.HealthPath, handler.Health)
		r.Post(handler.RootPath, s.Create)
		r.Get(routeCheck, s.Check)
		r.Get(routePerson, persons, auth.CheckPolicy(s.checker, auth.KindPersons, policy.ActionRead), s.Get)
		r.Patch(routePerson, persons, auth.CheckPolicy(s.checker, auth.KindPersons, policy.ActionUpdate), s.Edit)
		r.Delete(routePerson, persons, auth.CheckPolicy(s.checker, auth.KindPersons, policy.ActionDelete), s.Delete)
		r.Get(routeApps, personsApps, auth.CheckPolicy(s.checker, auth.KindPersons, policy.ActionRead), s.ListApps)
		r.Delete(routeApp, personsApps, auth.CheckPolicy(s.checker, auth.KindPersons, policy.ActionDelete), s.RevokeApp)
	})

	return nil
}

// Create registers a person.
func (s *Service) Create(c *fiber.Ctx) error {
	var r person.Registration
	if err := c.BodyParser(&r); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	p, err := s.accounts.Register(c.UserContext(), r)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(p)
}

// Get answers the person.
func (s *Service) Get(c *fiber.Ctx) error {
	p, err := s.accounts.Get(c.UserContext(), c.Params("personId"))
	if err != nil {
		return err
	}

	return c.JSON(p)
}

// Check tells whether a person id is taken.
func (s *Service) Check(c *fiber.Ctx) error {
	exists, err := s.accounts.Exists(c.UserContext(), c.Params("personId"))
	if err != nil {
		return err
	}

	return c.JSON(Exists{Exists: exists})
}

// Edit updates name and email of the person.
func (s *Service) Edit(c *fiber.Ctx) error {
	var u person.Update
	if err := c.BodyParser(&u); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if _, err := s.accounts.Edit(c.UserContext(), c.Params("personId"), u); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Delete removes the person.
func (s *Service) Delete(c *fiber.Ctx) error {
	if err := s.accounts.Delete(c.UserContext(), c.Params("personId")); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ListApps answers the consents the person granted.
func (s *Service) ListApps(c *fiber.Ctx) error {
	sessions, err := s.accounts.Apps(c.UserContext(), c.Params("personId"))
	if err != nil {
		return err
	}

	return c.JSON(sessions)
}

// RevokeApp revokes the consents granted to an app.
func (s *Service) RevokeApp(c *fiber.Ctx) error {
	if err := s.accounts.RevokeApp(c.UserContext(), c.Params("personId"), c.Params("appId")); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
