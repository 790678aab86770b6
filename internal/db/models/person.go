package models

import "time"

// PersonIDPrefix namespaces every person id.
const PersonIDPrefix = "dcd:persons:"

// Person represents a user account of the profile service.
type Person struct {
	// ID is the namespaced identifier, e.g. dcd:persons:alice.
	ID string `gorm:"primaryKey;size:255" json:"id"`
	// Email is unique across all persons.
	Email string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	// Name is the display name.
	Name string `gorm:"size:255" json:"name"`
	// Password is the keyed digest of the password. It is never serialised.
	Password string `gorm:"size:255;not null" json:"-"`
	// CreatedAt is the timestamp when the person was created (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp when the person was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the database table name for the Person model.
func (Person) TableName() string {
	return "persons"
}
