package db

import (
	"fmt"
	"log"

	"expedientes_app_go/config"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Initialize opens the database connection. When a Turso URL is
// configured the remote libsql driver is used; otherwise a local
// SQLite file with WAL mode for concurrency.
func Initialize(cfg *config.Config) (*gorm.DB, error) {
	// Quieter logging in production
	logLevel := logger.Info
	if cfg.Environment == "production" {
		logLevel = logger.Warn
	}
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	var dialector gorm.Dialector
	if cfg.TursoDatabaseURL != "" {
		dsn := cfg.TursoDatabaseURL
		if cfg.TursoAuthToken != "" {
			dsn += "?authToken=" + cfg.TursoAuthToken
		}
		dialector = sqlite.Dialector{DriverName: "libsql", DSN: dsn}
	} else {
		dialector = sqlite.Open(cfg.DBPath + "?_journal_mode=WAL&_foreign_keys=on")
	}

	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.TursoDatabaseURL != "" {
		log.Println("Database connection established (Turso)")
	} else {
		log.Println("Database connection established (SQLite, WAL mode enabled)")
	}
	return conn, nil
}

// AutoMigrate runs database migrations for the provided models
func AutoMigrate(conn *gorm.DB, models ...interface{}) error {
	if conn == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := conn.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed")
	return nil
}

// Close closes the database connection
func Close(conn *gorm.DB) error {
	if conn == nil {
		return nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}
