package daemon

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/datacentricdesign/profile-api/internal/apperror"
	"github.com/datacentricdesign/profile-api/internal/config"
	"github.com/datacentricdesign/profile-api/internal/db/models"
	"github.com/datacentricdesign/profile-api/internal/keto"
	"github.com/datacentricdesign/profile-api/internal/person"
	"github.com/datacentricdesign/profile-api/internal/policy"
)

// Groups created at first start.
const (
	GroupPublic = policy.GroupIDPrefix + "public"
	GroupUser   = policy.GroupIDPrefix + "user"
	GroupAdmin  = policy.GroupIDPrefix + "admin"
)

type seedPeople interface {
	Exists(ctx context.Context, id string) (bool, error)
	Register(ctx context.Context, r person.Registration) (*models.Person, error)
}

type seedGroups interface {
	ReadRole(ctx context.Context, roleID string) (*keto.Role, error)
	CreateRole(ctx context.Context, creator, roleID string, members []string) error
}

// seed creates the bootstrap groups and the admin account unless the admin
// already exists. Failures are logged, the service starts anyway.
func seed(ctx context.Context, admin config.Admin, people seedPeople, groups seedGroups) {
	if admin.ID == "" {
		log.Warn().Msg("no admin account configured, skipping seed")
		return
	}

	exists, err := people.Exists(ctx, admin.ID)
	if err != nil {
		log.Error().Err(err).Msg("seed: failed to look up the admin")
		return
	}

	if exists {
		return
	}

	for _, g := range []struct {
		id      string
		members []string
	}{
		{GroupPublic, []string{}},
		{GroupUser, []string{}},
		{GroupAdmin, []string{admin.ID}},
	} {
		_, err = groups.ReadRole(ctx, g.id)

		switch {
		case err == nil:
			continue
		case !apperror.Is(err, apperror.NotFound):
			log.Error().Err(err).Str("group", g.id).Msg("seed: failed to read group")
			continue
		}

		if err = groups.CreateRole(ctx, admin.ID, g.id, g.members); err != nil {
			log.Error().Err(err).Str("group", g.id).Msg("seed: failed to create group")
			continue
		}

		log.Info().Str("group", g.id).Msg("seed: group created")
	}

	if _, err = people.Register(ctx, person.Registration{
		ID:       admin.ID,
		Name:     admin.Name,
		Email:    admin.Email,
		Password: admin.Password,
	}); err != nil {
		log.Error().Err(err).Str("person", admin.ID).Msg("seed: failed to create the admin")
		return
	}

	log.Info().Str("person", admin.ID).Msg("seed: admin created")
}
