package persistence

import (
	"errors"
	"fmt"
	"time"

	"course-service/domain/model"
	"course-service/infrastructure/configuration"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrAuditDisabled is returned when no MySQL host is configured for the audit trail.
var ErrAuditDisabled = errors.New("mutation audit database not configured")

// NewRepositories opens the MySQL database holding the mutation audit trail
// and migrates its table.
func NewRepositories() (*gorm.DB, error) {
	cfg := configuration.C.Database.MySql
	if cfg.Host == "" {
		return nil, ErrAuditDisabled
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := db.AutoMigrate(&model.MutationAudit{}); err != nil {
		return db, fmt.Errorf("migrate course_mutation_audit: %w", err)
	}
	return db, nil
}
