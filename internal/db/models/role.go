package models

import "time"

// Effect of a policy mirrored in the role ledger.
type Effect string

const (
	// EffectAllow grants the actions of the role.
	EffectAllow Effect = "allow"
	// EffectDeny explicitly refuses the actions of the role.
	EffectDeny Effect = "deny"
)

// Role is a ledger entry: the local record of a policy pushed to the policy engine.
// There is at most one row per (ActorEntityID, SubjectEntityID, Role) and its ID is
// the id of the remote policy.
type Role struct {
	// ID is the remote policy id.
	ID string `gorm:"primaryKey;size:64" json:"id"`
	// ActorEntityID is the entity the role is granted to.
	ActorEntityID string `gorm:"size:255;not null;uniqueIndex:idx_role_triple" json:"actorEntityId"`
	// SubjectEntityID is the resource the role applies to.
	SubjectEntityID string `gorm:"size:255;not null;uniqueIndex:idx_role_triple" json:"subjectEntityId"`
	// Role is the role name, e.g. person, owner or groupAdmin.
	Role string `gorm:"size:64;not null;uniqueIndex:idx_role_triple" json:"role"`
	// Effect is the effect last written to the remote policy.
	Effect Effect `gorm:"type:varchar(8);not null;default:'allow'" json:"effect"`
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "roles"
}
