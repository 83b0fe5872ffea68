package database

import (
	"fmt"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rfqportal/internal/model"
)

// NewConnection opens the Postgres pool and migrates the schema.
func NewConnection(dsn string, log *slog.Logger, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("database schema migrated")
	return db, nil
}

// Migrate registers the custom join tables and auto-migrates every model.
func Migrate(db *gorm.DB) error {
	joins := []struct {
		model any
		field string
		join  any
	}{
		{&model.Role{}, "Permissions", &model.RolePermission{}},
		{&model.User{}, "Roles", &model.UserRole{}},
		{&model.RFQ{}, "PreparedBy", &model.RFQPreparedPerson{}},
	}
	for _, j := range joins {
		if err := db.SetupJoinTable(j.model, j.field, j.join); err != nil {
			return fmt.Errorf("setup join table %s: %w", j.field, err)
		}
	}

	err := db.AutoMigrate(
		&model.Role{},
		&model.Permission{},
		&model.User{},
		&model.Customer{},
		&model.RFQ{},
		&model.SalesFunnel{},
		&model.Invoice{},
		&model.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
