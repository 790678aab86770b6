// Package person registers, edits and deletes person accounts and keeps their
// policies and group memberships in step.
package person

import (
	"context"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/datacentricdesign/profile-api/internal/apperror"
	personstore "github.com/datacentricdesign/profile-api/internal/db/controller/person"
	"github.com/datacentricdesign/profile-api/internal/db/models"
	"github.com/datacentricdesign/profile-api/internal/hydra"
	"github.com/datacentricdesign/profile-api/internal/password"
	"github.com/datacentricdesign/profile-api/internal/policy"
)

// Policies is the part of the policy service used for accounts.
type Policies interface {
	Grant(ctx context.Context, subject, resource, role string) error
	DeletePolicy(ctx context.Context, subject, resource, role string) error
	AddMembers(ctx context.Context, roleID string, members ...string) error
}

// Apps lists and revokes the consents a person granted to OAuth2 clients.
type Apps interface {
	ListConsentSessions(ctx context.Context, subject string) ([]hydra.PreviousConsent, error)
	RevokeConsentSessions(ctx context.Context, subject, client string) error
}

// Registration is a sign up request.
type Registration struct {
	ID       string `json:"id" form:"id" validate:"required"`
	Name     string `json:"name" form:"name" validate:"required"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"` //nolint:gosec
}

// Update is a profile edit. The password is not editable here.
type Update struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// Service manages person accounts.
type Service struct {
	store         *personstore.Store
	policies      Policies
	apps          Apps
	defaultGroups []string
	validate      *validator.Validate
}

// New creates a Service. Registered persons join defaultGroups.
func New(store *personstore.Store, policies Policies, apps Apps, defaultGroups []string) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})

	return &Service{
		store:         store,
		policies:      policies,
		apps:          apps,
		defaultGroups: defaultGroups,
		validate:      v,
	}
}

// Register creates the person, makes it the owner of its own account and adds
// it to the default groups. Nothing is stored when the input is invalid.
func (s *Service) Register(ctx context.Context, r Registration) (*models.Person, error) {
	r.ID = strings.TrimSpace(r.ID)
	r.Email = strings.TrimSpace(r.Email)

	if err := s.validate.Struct(r); err != nil {
		return nil, validationError(err)
	}

	if !strings.HasPrefix(r.ID, models.PersonIDPrefix) || r.ID == models.PersonIDPrefix {
		return nil, ErrIDPrefix
	}

	if len(r.Password) < password.MinLength {
		return nil, ErrPasswordTooShort
	}

	if exists, err := s.store.ExistsByID(ctx, r.ID); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrIDInUse
	}

	if exists, err := s.store.ExistsByEmail(ctx, r.Email); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrEmailInUse
	}

	p, err := s.store.Create(ctx, r.ID, r.Email, r.Name, r.Password)
	if err != nil {
		return nil, err
	}

	if err = s.policies.Grant(ctx, p.ID, p.ID, policy.RolePerson); err != nil {
		// an account its owner can not access is useless, drop it
		if errDel := s.store.Delete(ctx, p.ID); errDel != nil {
			log.Error().Err(errDel).Str("person", p.ID).Msg("failed to remove person after grant failure")
		}

		return nil, pkgerrors.Wrap(err, "grant person role")
	}

	for _, g := range s.defaultGroups {
		if err = s.policies.AddMembers(ctx, g, p.ID); err != nil {
			return nil, pkgerrors.Wrapf(err, "join %s", g)
		}
	}

	log.Info().Str("person", p.ID).Msg("person registered")

	return s.store.GetByID(ctx, p.ID)
}

// Get returns the person.
func (s *Service) Get(ctx context.Context, id string) (*models.Person, error) {
	return s.store.GetByID(ctx, id)
}

// Exists reports whether the id is taken.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	return s.store.ExistsByID(ctx, id)
}

// CheckCredentials returns the id of the person matching emailOrID and plain,
// an empty string otherwise.
func (s *Service) CheckCredentials(ctx context.Context, emailOrID, plain string) (string, error) {
	return s.store.CheckCredentials(ctx, emailOrID, plain)
}

// Edit updates name and email.
func (s *Service) Edit(ctx context.Context, id string, u Update) (*models.Person, error) {
	u.Email = strings.TrimSpace(u.Email)

	if err := s.validate.Struct(u); err != nil {
		return nil, validationError(err)
	}

	return s.store.Edit(ctx, id, u.Name, u.Email)
}

// Delete removes the ownership policy of the person, then the person.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.policies.DeletePolicy(ctx, id, id, policy.RolePerson); err != nil &&
		!apperror.Is(err, apperror.NotFound) {
		return err
	}

	return s.store.Delete(ctx, id)
}

// Apps lists the consents granted by the person.
func (s *Service) Apps(ctx context.Context, id string) ([]hydra.PreviousConsent, error) {
	return s.apps.ListConsentSessions(ctx, id)
}

// RevokeApp revokes the consents granted by the person to clientID.
func (s *Service) RevokeApp(ctx context.Context, id, clientID string) error {
	return s.apps.RevokeConsentSessions(ctx, id, clientID)
}
