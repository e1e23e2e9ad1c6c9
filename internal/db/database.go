package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resale-api/internal/db/migrations"
	"resale-api/internal/models"
)

func InitDB() (*gorm.DB, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	// Configure GORM logger
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	// Open connection
	database, err := gorm.Open(postgres.Open(dbURL), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	if err := AutoMigrate(database); err != nil {
		return nil, fmt.Errorf("error migrating database: %v", err)
	}

	return database, nil
}

// AutoMigrate creates the tables and then applies the raw SQL migrations
// carrying the declarative layer (checks, trigger, reset function, policies).
func AutoMigrate(database *gorm.DB) error {
	err := database.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Evaluation{},
		&models.RequestLog{},
		&models.AdminToken{},
	)
	if err != nil {
		return err
	}

	for _, migration := range migrations.GetMigrations() {
		if err := migration.Run(database); err != nil {
			return fmt.Errorf("migration %q failed: %w", migration.Name, err)
		}
	}

	return nil
}
