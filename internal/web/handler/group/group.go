// Package group serves the groups, their members and their admins.
package group

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/datacentricdesign/profile-api/internal/apperror"
	"github.com/datacentricdesign/profile-api/internal/auth"
	"github.com/datacentricdesign/profile-api/internal/config"
	"github.com/datacentricdesign/profile-api/internal/keto"
	"github.com/datacentricdesign/profile-api/internal/policy"
	"github.com/datacentricdesign/profile-api/internal/web/handler"
)

const (
	// Path is the prefix of the group routes.
	Path = "/groups"

	paramGroupID  = "groupId"
	paramMemberID = "memberId"

	routeGroup   = "/:" + paramGroupID
	routeCheck   = routeGroup + "/check"
	routeMembers = routeGroup + "/members"
	routeMember  = routeMembers + "/:" + paramMemberID
)

// Groups is the part of the policy service managing groups.
type Groups interface {
	auth.Checker
	CreateRole(ctx context.Context, creator, roleID string, members []string) error
	DeleteRole(ctx context.Context, roleID string) error
	ReadRole(ctx context.Context, roleID string) (*keto.Role, error)
	AddMembers(ctx context.Context, roleID string, members ...string) error
	RemoveMember(ctx context.Context, roleID, member string) error
	ListRolesOfMember(ctx context.Context, member string) ([]policy.Group, error)
	CheckMembership(ctx context.Context, member, groupID string) error
}

type createInput struct {
	ID      string   `json:"id" validate:"required"`
	Members []string `json:"members"`
}

type membersInput struct {
	Members []string `json:"members" validate:"required,min=1,dive,required"`
}

// Exists is the body of the check route.
type Exists struct {
	Exists bool `json:"exists"`
}

// Service serves the group routes.
type Service struct {
	handler.Service
	groups       Groups
	introspector *auth.Introspector
	validator    *validator.Validate
}

// New creates the group handler.
func New(groups Groups, introspector *auth.Introspector) *Service {
	return &Service{groups: groups, introspector: introspector}
}

// Init registers the routes.
func (s *Service) Init(router fiber.Router, cfg *config.Config) error {
	if router == nil || cfg == nil || s.groups == nil || s.introspector == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.validator = validator.New()

	persons := auth.Authenticate(s.introspector, auth.ScopePersons)
	groups := auth.Authenticate(s.introspector, auth.ScopeGroups)

	router.Route(Path, func(r fiber.Router) {
		r.Get(handler.RootPath, persons, s.List)
		r.Post(handler.RootPath, groups, s.Create)
		r.Delete(routeGroup, groups, auth.CheckPolicy(s.groups, auth.KindGroups, policy.ActionDelete), s.Delete)
		r.Get(routeCheck, groups, s.Check)
		r.Get(routeMembers, groups, s.readable, s.ListMembers)
		r.Post(routeMembers, groups, auth.CheckPolicy(s.groups, auth.KindGroups, policy.ActionUpdate), s.AddMembers)
		r.Delete(routeMember, groups, auth.CheckPolicy(s.groups, auth.KindGroups, policy.ActionUpdate), s.RemoveMember)
	})

	return nil
}

// readable lets members of the group through, and subjects allowed to read it.
func (s *Service) readable(c *fiber.Ctx) error {
	err := s.groups.CheckMembership(c.UserContext(), auth.Subject(c), c.Params(paramGroupID))
	if err == nil {
		return c.Next()
	}

	if !apperror.Is(err, apperror.Forbidden) {
		return err
	}

	return auth.CheckPolicy(s.groups, auth.KindGroups, policy.ActionRead)(c)
}

// List answers the groups of the caller.
func (s *Service) List(c *fiber.Ctx) error {
	groups, err := s.groups.ListRolesOfMember(c.UserContext(), auth.Subject(c))
	if err != nil {
		return err
	}

	return c.JSON(groups)
}

// Create creates a group administrated by the caller.
func (s *Service) Create(c *fiber.Ctx) error {
	var in createInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := s.validator.Struct(in); err != nil {
		return apperror.New(apperror.ValidationError, "Add field id.").
			WithHint("A group id should be provided with the prefix " + policy.GroupIDPrefix)
	}

	_, err := s.groups.ReadRole(c.UserContext(), in.ID)

	switch {
	case err == nil:
		return apperror.Newf(apperror.GroupExists, "The group %s already exists.", in.ID)
	case !apperror.Is(err, apperror.NotFound):
		return err
	}

	if in.Members == nil {
		in.Members = []string{}
	}

	if err = s.groups.CreateRole(c.UserContext(), auth.Subject(c), in.ID, in.Members); err != nil {
		return err
	}

	log.Info().Str("group", in.ID).Str("creator", auth.Subject(c)).Msg("group created")

	return c.SendStatus(fiber.StatusCreated)
}

// Delete removes the group.
func (s *Service) Delete(c *fiber.Ctx) error {
	if err := s.groups.DeleteRole(c.UserContext(), c.Params(paramGroupID)); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Check tells whether the group exists. An unknown group answers 404.
func (s *Service) Check(c *fiber.Ctx) error {
	_, err := s.groups.ReadRole(c.UserContext(), c.Params(paramGroupID))

	switch {
	case err == nil:
		return c.JSON(Exists{Exists: true})
	case apperror.Is(err, apperror.NotFound):
		return c.Status(fiber.StatusNotFound).JSON(Exists{Exists: false})
	default:
		return err
	}
}

// ListMembers answers the group and its members.
func (s *Service) ListMembers(c *fiber.Ctx) error {
	role, err := s.groups.ReadRole(c.UserContext(), c.Params(paramGroupID))
	if err != nil {
		return err
	}

	return c.JSON(role)
}

// AddMembers adds the submitted members to the group.
func (s *Service) AddMembers(c *fiber.Ctx) error {
	var in membersInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := s.validator.Struct(in); err != nil {
		return apperror.New(apperror.ValidationError, "Add field members.").
			WithRequirements("a non empty list of member ids")
	}

	if err := s.groups.AddMembers(c.UserContext(), c.Params(paramGroupID), in.Members...); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RemoveMember removes a member from the group.
func (s *Service) RemoveMember(c *fiber.Ctx) error {
	if err := s.groups.RemoveMember(c.UserContext(), c.Params(paramGroupID), c.Params(paramMemberID)); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
