// Package app serves the OAuth2 clients registered at the authorization server.
package app

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/datacentricdesign/profile-api/internal/auth"
	"github.com/datacentricdesign/profile-api/internal/config"
	"github.com/datacentricdesign/profile-api/internal/hydra"
	"github.com/datacentricdesign/profile-api/internal/policy"
	"github.com/datacentricdesign/profile-api/internal/web/handler"
)

// Path is the prefix of the app routes.
const Path = "/apps"

// Clients manages the OAuth2 clients.
type Clients interface {
	ListClients(ctx context.Context) ([]hydra.Client, error)
	CreateClient(ctx context.Context, c hydra.Client) (*hydra.Client, error)
	DeleteClient(ctx context.Context, clientID string) error
}

// Service serves the app routes.
type Service struct {
	handler.Service
	clients      Clients
	introspector *auth.Introspector
	checker      auth.Checker
}

// New creates the app handler.
func New(clients Clients, introspector *auth.Introspector, checker auth.Checker) *Service {
	return &Service{clients: clients, introspector: introspector, checker: checker}
}

// Init registers the routes.
func (s *Service) Init(router fiber.Router, cfg *config.Config) error {
	if router == nil || cfg == nil || s.clients == nil || s.introspector == nil || s.checker == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	apps := auth.Authenticate(s.introspector, auth.ScopeApps)

	router.Route(Path, func(r fiber.Router) {
		r.Get(handler.RootPath, apps, s.List)
		r.Post(handler.RootPath, apps, s.Create)
		r.Delete("/:appId", apps, auth.CheckPolicy(s.checker, auth.KindApps, policy.ActionDelete), s.Delete)
	})

	return nil
}

// List answers the registered clients.
func (s *Service) List(c *fiber.Ctx) error {
	clients, err := s.clients.ListClients(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(clients)
}

// Create registers a client owned by the caller.
func (s *Service) Create(c *fiber.Ctx) error {
	var in hydra.Client
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if in.Owner == "" {
		in.Owner = auth.Subject(c)
	}

	out, err := s.clients.CreateClient(c.UserContext(), in)
	if err != nil {
		return err
	}

	log.Info().Str("client", out.ClientID).Str("owner", in.Owner).Msg("app created")

	return c.JSON(out)
}

// Delete removes a client.
func (s *Service) Delete(c *fiber.Ctx) error {
	if err := s.clients.DeleteClient(c.UserContext(), c.Params("appId")); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
