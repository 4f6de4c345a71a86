package domain

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type Project struct {
	Model
	Title         string                      `gorm:"not null" json:"title"`
	Description   string                      `json:"description"`
	CreatedBy     string                      `gorm:"type:uuid;not null;index;<-:create" json:"createdBy"`
	Creator       *User                       `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Collaborators []User                      `gorm:"many2many:project_collaborators" json:"collaborators"`
	Deadline      *time.Time                  `json:"deadline"`
	ActiveStatus  bool                        `gorm:"default:true" json:"activeStatus"`
	Image         datatypes.JSONType[FileRef] `gorm:"type:jsonb" json:"image"`
	SrsDocFile    datatypes.JSONType[FileRef] `gorm:"type:jsonb" json:"srsDocFile"`
	Links         pq.StringArray              `gorm:"type:text[]" json:"links"`
}

// ProjectCollaborator is the join row behind Project.Collaborators. The
// composite key keeps the collaborator list a set.
type ProjectCollaborator struct {
	ProjectID string `gorm:"type:uuid;primaryKey"`
	UserID    string `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}

// HasMember reports whether userID created the project or collaborates on it.
// Collaborators must be loaded.
func (p *Project) HasMember(userID string) bool {
	if p.CreatedBy == userID {
		return true
	}
	return p.IsCollaborator(userID)
}

// IsCollaborator reports whether userID is in the collaborator set.
func (p *Project) IsCollaborator(userID string) bool {
	for _, c := range p.Collaborators {
		if c.ID == userID {
			return true
		}
	}
	return false
}
