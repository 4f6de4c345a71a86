package db

import (
	"todoshi/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	// join table needs its own model so the composite key is created
	if err := db.SetupJoinTable(&domain.Project{}, "Collaborators", &domain.ProjectCollaborator{}); err != nil {
		return err
	}

	err := db.AutoMigrate(
		&domain.User{},
		&domain.Project{},
		&domain.ProjectCollaborator{},
		&domain.Todo{},
		&domain.Log{},
		&domain.Message{},
		&domain.Request{},
	)
	if err != nil {
		return err
	}

	logrus.WithField("component", "db").Info("Database schema migrated successfully")
	return nil
}
