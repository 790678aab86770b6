// Package person is the relational store of person accounts.
package person

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/datacentricdesign/profile-api/internal/apperror"
	"github.com/datacentricdesign/profile-api/internal/db/dberr"
	"github.com/datacentricdesign/profile-api/internal/db/models"
	"github.com/datacentricdesign/profile-api/internal/password"
)

const (
	idQueryPattern    = "id = ?"
	emailQueryPattern = "email = ?"

	// digest compared when no person matches, so both paths cost the same.
	dummyPassword = "dummy-password-for-constant-shape"
)

var (
	// ErrPersonNotFound is returned when no person matches.
	ErrPersonNotFound = apperror.New(apperror.NotFound, "Person not found")
	// ErrDuplicateIdentity is returned when the id or the email is already used.
	ErrDuplicateIdentity = apperror.New(apperror.DuplicateIdentity, "This id or email address is already in use.")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Store reads and writes persons.
type Store struct {
	db     *gorm.DB
	hasher password.Hasher
	dummy  string
}

// New creates a Store. The hasher digests passwords on Create and CheckCredentials.
func New(db *gorm.DB, hasher password.Hasher) (*Store, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return &Store{db: db, hasher: hasher, dummy: dummy}, nil
}

// Create stores a new person with the digest of plainPassword.
func (s *Store) Create(ctx context.Context, id, email, name, plainPassword string) (*models.Person, error) {
	digest, err := s.hasher.Hash(plainPassword)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	p := &models.Person{
		ID:       id,
		Email:    email,
		Name:     name,
		Password: digest,
	}

	if err = s.db.WithContext(ctx).Create(p).Error; err != nil {
		if dberr.IsDuplicate(err) {
			return nil, ErrDuplicateIdentity
		}

		return nil, err
	}

	p.Password = ""

	return p, nil
}

// GetByID returns the person without its password digest.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Person, error) {
	var p models.Person

	result := s.db.WithContext(ctx).Omit("password").Where(idQueryPattern, id).First(&p)
	if result.Error != nil {
		if dberr.IsNotFound(result.Error) {
			return nil, ErrPersonNotFound
		}

		return nil, result.Error
	}

	return &p, nil
}

// CheckCredentials returns the id of the person identified by emailOrID if
// password matches, an empty string otherwise. A value containing "@" is
// looked up as an email, anything else as an id.
func (s *Store) CheckCredentials(ctx context.Context, emailOrID, plainPassword string) (string, error) {
	query := idQueryPattern
	if strings.Contains(emailOrID, "@") {
		query = emailQueryPattern
	}

	var p models.Person

	result := s.db.WithContext(ctx).Select("id", "password").Where(query, emailOrID).First(&p)
	if result.Error != nil {
		if dberr.IsNotFound(result.Error) {
			s.hasher.Verify(plainPassword, s.dummy)

			return "", nil
		}

		return "", result.Error
	}

	if !s.hasher.Verify(plainPassword, p.Password) {
		return "", nil
	}

	return p.ID, nil
}

// ExistsByID reports whether the id is used.
func (s *Store) ExistsByID(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, idQueryPattern, id)
}

// ExistsByEmail reports whether the email is used.
func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, emailQueryPattern, email)
}

func (s *Store) exists(ctx context.Context, query, value string) (bool, error) {
	var count int64

	if err := s.db.WithContext(ctx).Model(&models.Person{}).Where(query, value).Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

// Edit updates name and email of the person.
func (s *Store) Edit(ctx context.Context, id, name, email string) (*models.Person, error) {
	result := s.db.WithContext(ctx).Model(&models.Person{}).Where(idQueryPattern, id).
		Updates(map[string]any{"name": name, "email": email})
	if result.Error != nil {
		if dberr.IsDuplicate(result.Error) {
			return nil, ErrDuplicateIdentity
		}

		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		return nil, ErrPersonNotFound
	}

	return s.GetByID(ctx, id)
}

// Delete removes the person.
func (s *Store) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.Person{}, idQueryPattern, id)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrPersonNotFound
	}

	return nil
}
