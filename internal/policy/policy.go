// Package policy enforces access control on top of the keto policy engine and
// keeps the role ledger in step with the policies written there.
//
// Every policy written by Grant and Revoke is recorded in the ledger first, so a
// later DeletePolicy always finds the remote policy id. The two writes are not
// atomic: a failed remote write leaves a ledger row that the next Grant or
// Revoke of the same triple reuses.
package policy

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/datacentricdesign/profile-api/internal/apperror"
	"github.com/datacentricdesign/profile-api/internal/db/controller/ledger"
	"github.com/datacentricdesign/profile-api/internal/db/models"
	"github.com/datacentricdesign/profile-api/internal/keto"
)

// GroupIDPrefix namespaces every group id.
const GroupIDPrefix = "dcd:groups:"

// Engine is the part of the keto client the service needs.
type Engine interface {
	PutRole(ctx context.Context, r keto.Role) error
	GetRole(ctx context.Context, id string) (*keto.Role, error)
	DeleteRole(ctx context.Context, id string) error
	AddMembers(ctx context.Context, id string, members []string) error
	RemoveMember(ctx context.Context, id, member string) error
	ListRolesByMember(ctx context.Context, member string) ([]keto.Role, error)
	PutPolicy(ctx context.Context, p keto.Policy) error
	DeletePolicy(ctx context.Context, id string) error
	Allowed(ctx context.Context, flavor string, req keto.AccessRequest) (bool, error)
}

// Group is a role as seen by one of its members.
type Group struct {
	ID      string   `json:"id"`
	Members []string `json:"members,omitempty"`
	IsAdmin bool     `json:"isAdmin"`
}

// Service grants, revokes and checks access.
type Service struct {
	engine Engine
	db     *gorm.DB
	flavor string
}

// New creates a Service. flavor selects how checks match policies, regex when empty.
func New(engine Engine, db *gorm.DB, flavor string) *Service {
	if flavor == "" {
		flavor = keto.FlavorRegex
	}

	return &Service{engine: engine, db: db, flavor: flavor}
}

// Grant allows subject the actions of role on resource.
func (s *Service) Grant(ctx context.Context, subject, resource, role string) error {
	return s.writePolicy(ctx, subject, resource, role, models.EffectAllow)
}

// Revoke denies subject the actions of role on resource. The policy of an
// earlier Grant is flipped in place.
func (s *Service) Revoke(ctx context.Context, subject, resource, role string) error {
	return s.writePolicy(ctx, subject, resource, role, models.EffectDeny)
}

func (s *Service) writePolicy(ctx context.Context, subject, resource, role string, effect models.Effect) error {
	db := s.db.WithContext(ctx)

	id, err := ledger.FindID(db, subject, resource, role)
	if err != nil {
		if !apperror.Is(err, apperror.NotFound) {
			return pkgerrors.Wrap(err, "find policy id")
		}

		id = uuid.NewString()
	}

	row, err := ledger.Save(db, &models.Role{
		ID:              id,
		ActorEntityID:   subject,
		SubjectEntityID: resource,
		Role:            role,
		Effect:          effect,
	})
	if err != nil {
		return pkgerrors.Wrap(err, "save role")
	}

	return s.engine.PutPolicy(ctx, keto.Policy{
		ID:        row.ID,
		Effect:    string(effect),
		Actions:   ActionsFor(role),
		Subjects:  []string{subject},
		Resources: []string{resource},
	})
}

// DeletePolicy removes the policy of the triple from the engine, then its ledger
// row. A policy already gone from the engine is not an error.
func (s *Service) DeletePolicy(ctx context.Context, subject, resource, role string) error {
	db := s.db.WithContext(ctx)

	id, err := ledger.FindID(db, subject, resource, role)
	if err != nil {
		return err
	}

	if err = s.engine.DeletePolicy(ctx, id); err != nil && !apperror.Is(err, apperror.NotFound) {
		return err
	}

	return ledger.Delete(db, id)
}

// Check returns ErrNotAllowed unless the engine allows req.
func (s *Service) Check(ctx context.Context, req keto.AccessRequest) error {
	ok, err := s.engine.Allowed(ctx, s.flavor, req)
	if err != nil {
		return err
	}

	if !ok {
		log.Debug().Str("subject", req.Subject).Str("resource", req.Resource).Str("action", req.Action).
			Msg("request not allowed")

		return ErrNotAllowed
	}

	return nil
}

// CreateRole creates the group roleID with members and makes creator its admin.
func (s *Service) CreateRole(ctx context.Context, creator, roleID string, members []string) error {
	if !strings.HasPrefix(roleID, GroupIDPrefix) {
		return ErrGroupPrefix
	}

	if err := s.engine.PutRole(ctx, keto.Role{ID: roleID, Members: members}); err != nil {
		return err
	}

	return s.Grant(ctx, creator, roleID, RoleGroupAdmin)
}

// DeleteRole deletes the group and the admin policies granted on it.
func (s *Service) DeleteRole(ctx context.Context, roleID string) error {
	if err := s.engine.DeleteRole(ctx, roleID); err != nil {
		return err
	}

	rows, err := ledger.ListBySubject(s.db.WithContext(ctx), roleID, RoleGroupAdmin)
	if err != nil {
		return err
	}

	for _, r := range rows {
		if err = s.DeletePolicy(ctx, r.ActorEntityID, r.SubjectEntityID, r.Role); err != nil {
			return err
		}
	}

	return nil
}

// ReadRole returns the group. An unknown group is NotFound.
func (s *Service) ReadRole(ctx context.Context, roleID string) (*keto.Role, error) {
	return s.engine.GetRole(ctx, roleID)
}

// AddMembers adds members to the group.
func (s *Service) AddMembers(ctx context.Context, roleID string, members ...string) error {
	return s.engine.AddMembers(ctx, roleID, members)
}

// RemoveMember removes member from the group.
func (s *Service) RemoveMember(ctx context.Context, roleID, member string) error {
	return s.engine.RemoveMember(ctx, roleID, member)
}

// ListRolesOfMember lists the groups of member. Members of a group are only
// listed when member may update it.
func (s *Service) ListRolesOfMember(ctx context.Context, member string) ([]Group, error) {
	roles, err := s.engine.ListRolesByMember(ctx, member)
	if err != nil {
		return nil, err
	}

	groups := make([]Group, 0, len(roles))

	for _, r := range roles {
		g := Group{ID: r.ID}

		err = s.Check(ctx, keto.AccessRequest{Subject: member, Resource: r.ID, Action: Action(ActionUpdate)})

		switch {
		case err == nil:
			g.IsAdmin = true
			g.Members = r.Members
		case !apperror.Is(err, apperror.Forbidden):
			return nil, err
		}

		groups = append(groups, g)
	}

	return groups, nil
}

// CheckMembership returns a Forbidden error unless member belongs to the group.
func (s *Service) CheckMembership(ctx context.Context, member, groupID string) error {
	roles, err := s.engine.ListRolesByMember(ctx, member)
	if err != nil {
		return err
	}

	if slices.ContainsFunc(roles, func(r keto.Role) bool { return r.ID == groupID }) {
		return nil
	}

	return apperror.Newf(apperror.Forbidden, "%s is not member of the group %s.", member, groupID)
}
