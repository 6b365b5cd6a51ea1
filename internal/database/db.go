package database

import (
	"fmt"

	"amarms/internal/logging"
	"amarms/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Models lists every table owned by the service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.RefreshToken{},
		&model.AccountToken{},
		&model.Project{},
		&model.ProjectMember{},
		&model.Milestone{},
		&model.Resource{},
		&model.ProjectResource{},
		&model.Venue{},
		&model.Task{},
		&model.Campaign{},
		&model.Comment{},
		&model.AuditLog{},
	}
}

// Migrate auto-migrates the core models
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}
	logging.Logger.WithField("tables", len(Models())).Info("database schema is up to date")
	return nil
}
