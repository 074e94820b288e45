package database

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/taskvault/taskvault-backend/internal/models"
)

// DB is the global database instance
var DB *gorm.DB

// InitDB initializes the database connection and performs migrations
func InitDB() (*gorm.DB, error) {
	// Get database connection parameters from environment variables
	host := getEnv("DB_HOST", "")
	port := getEnv("DB_PORT", "")
	user := getEnv("DB_USER", "")
	password := getEnv("DB_PASSWORD", "")
	dbname := getEnv("DB_NAME", "")
	sslmode := getEnv("DB_SSLMODE", "disable")

	// Validate required environment variables
	if host == "" || port == "" || user == "" || password == "" || dbname == "" {
		return nil, fmt.Errorf("missing required database environment variables. Please check your .env file")
	}

	// Create DSN string
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	// Configure GORM logger
	gormLogger := logger.New(
		logrus.New(),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Error,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	// Open database connection
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Set connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Enable UUID generation
	err = db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
	if err != nil {
		return nil, fmt.Errorf("failed to enable UUID extension: %w", err)
	}

	// Auto migrate the schema
	err = db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.APIKey{},
		&models.Task{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// Migration: composite index for the hot auth lookup (key_id, is_active)
	var authIndexExists bool
	err = db.Raw(`
		SELECT EXISTS (
			SELECT 1
			FROM pg_indexes
			WHERE schemaname = 'public'
			AND tablename = 'api_keys'
			AND indexname = 'idx_api_keys_key_id_active'
		)
	`).Scan(&authIndexExists).Error
	if err != nil {
		logrus.Warnf("Failed to check if api_keys auth index exists: %v", err)
	} else if !authIndexExists {
		logrus.Info("Creating index on api_keys (key_id, is_active)...")
		err = db.Exec(`
			CREATE INDEX IF NOT EXISTS idx_api_keys_key_id_active
			ON api_keys(key_id, is_active)
		`).Error
		if err != nil {
			logrus.Warnf("Failed to create index on api_keys (key_id, is_active): %v", err)
		} else {
			logrus.Info("Successfully created index on api_keys (key_id, is_active)")
		}
	}

	// Migration: index tasks on (user_id, created_at) for the list endpoint sort
	var taskIndexExists bool
	err = db.Raw(`
		SELECT EXISTS (
			SELECT 1
			FROM pg_indexes
			WHERE schemaname = 'public'
			AND tablename = 'tasks'
			AND indexname = 'idx_tasks_user_created'
		)
	`).Scan(&taskIndexExists).Error
	if err != nil {
		logrus.Warnf("Failed to check if tasks list index exists: %v", err)
	} else if !taskIndexExists {
		logrus.Info("Creating index on tasks (user_id, created_at)...")
		err = db.Exec(`
			CREATE INDEX IF NOT EXISTS idx_tasks_user_created
			ON tasks(user_id, created_at DESC)
		`).Error
		if err != nil {
			logrus.Warnf("Failed to create index on tasks (user_id, created_at): %v", err)
		} else {
			logrus.Info("Successfully created index on tasks (user_id, created_at)")
		}
	}

	// Set global DB instance
	DB = db

	logrus.Info("Database connection established and migrations completed")
	return db, nil
}

// GetDB returns the global database instance
func GetDB() *gorm.DB {
	return DB
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
