package domain

// Log is an append-only activity entry on a project
type Log struct {
	Model
	Description string `gorm:"not null" json:"description"`
	ProjectID   string `gorm:"type:uuid;not null;index" json:"projectId"`
}
