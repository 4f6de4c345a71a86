package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Model is embedded by every persisted entity. IDs are UUID strings assigned
// before insert so handlers can reference them before the row round-trips.
type Model struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate generates a new UUID if the ID is not already set.
func (m *Model) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// FileRef points at an object in the object store.
type FileRef struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

// IsZero reports whether the reference points at nothing
func (f FileRef) IsZero() bool {
	return f.PublicID == "" && f.URL == ""
}

// Profile is the public projection of a user embedded in presence entries,
// todo and message payloads.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}
