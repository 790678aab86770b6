// Package ledger stores the local mirror of the policies pushed to the policy engine.
// A row maps (actor, subject, role) to the remote policy id and is the only place
// that id is looked up from.
package ledger

import (
	"errors"

	"gorm.io/gorm"

	"github.com/datacentricdesign/profile-api/internal/apperror"
	"github.com/datacentricdesign/profile-api/internal/db/dberr"
	"github.com/datacentricdesign/profile-api/internal/db/models"
)

const (
	tripleQueryPattern = "actor_entity_id = ? AND subject_entity_id = ? AND role = ?"
)

var (
	// ErrRoleNotFound is returned when no ledger row matches.
	ErrRoleNotFound = apperror.New(apperror.NotFound, "role not found")
	// ErrRoleIncomplete is returned when a row misses its id or part of its triple.
	ErrRoleIncomplete = errors.New("role id, actor, subject and role name are required")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Find returns the row of the triple.
func Find(db *gorm.DB, actor, subject, role string) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var r models.Role

	result := db.Where(tripleQueryPattern, actor, subject, role).First(&r)
	if result.Error != nil {
		if dberr.IsNotFound(result.Error) {
			return nil, ErrRoleNotFound
		}

		return nil, result.Error
	}

	return &r, nil
}

// FindID returns the policy id of the triple.
func FindID(db *gorm.DB, actor, subject, role string) (string, error) {
	r, err := Find(db, actor, subject, role)
	if err != nil {
		return "", err
	}

	return r.ID, nil
}

// Save writes the row of the triple. When the triple is already known its id is
// kept and only the effect changes, so the returned row always carries the id the
// remote policy must be written under.
func Save(db *gorm.DB, r *models.Role) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if r == nil || r.ID == "" || r.ActorEntityID == "" || r.SubjectEntityID == "" || r.Role == "" {
		return nil, ErrRoleIncomplete
	}

	if r.Effect == "" {
		r.Effect = models.EffectAllow
	}

	existing, err := Find(db, r.ActorEntityID, r.SubjectEntityID, r.Role)

	switch {
	case err == nil:
		if err = SetEffect(db, existing.ID, r.Effect); err != nil {
			return nil, err
		}

		existing.Effect = r.Effect

		return existing, nil
	case !errors.Is(err, ErrRoleNotFound):
		return nil, err
	}

	if err = db.Create(r).Error; err != nil {
		if !dberr.IsDuplicate(err) {
			return nil, err
		}

		// a concurrent grant created the triple first, take over its row
		existing, err = Find(db, r.ActorEntityID, r.SubjectEntityID, r.Role)
		if err != nil {
			return nil, err
		}

		if err = SetEffect(db, existing.ID, r.Effect); err != nil {
			return nil, err
		}

		existing.Effect = r.Effect

		return existing, nil
	}

	return r, nil
}

// SetEffect updates the effect of the row id. Writing the effect the row already
// has succeeds.
func SetEffect(db *gorm.DB, id string, effect models.Effect) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Model(&models.Role{}).Where("id = ?", id).Update("effect", effect)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		return nil
	}

	// mysql counts changed rows, not matched ones: an unchanged row affects nothing
	var count int64
	if err := db.Model(&models.Role{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}

	if count == 0 {
		return ErrRoleNotFound
	}

	return nil
}

// Delete removes the row id.
func Delete(db *gorm.DB, id string) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Delete(&models.Role{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrRoleNotFound
	}

	return nil
}

// ListBySubject returns the rows applying to a resource, optionally limited to one role name.
func ListBySubject(db *gorm.DB, subject string, role ...string) ([]models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	q := db.Where("subject_entity_id = ?", subject)
	if len(role) > 0 {
		q = q.Where("role IN ?", role)
	}

	var roles []models.Role
	if err := q.Order("created_at").Find(&roles).Error; err != nil {
		return nil, err
	}

	return roles, nil
}

// ListByActor returns the rows granted to an entity.
func ListByActor(db *gorm.DB, actor string) ([]models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var roles []models.Role
	if err := db.Where("actor_entity_id = ?", actor).Order("created_at").Find(&roles).Error; err != nil {
		return nil, err
	}

	return roles, nil
}
