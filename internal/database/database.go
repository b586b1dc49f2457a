package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yukikurage/task-approval-api/internal/config"
	"github.com/yukikurage/task-approval-api/internal/models"
)

const memoryDSN = ":memory:"

// Open connects to the database selected by DB_DRIVER.
func Open(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	level := logger.Info
	if cfg.IsProduction() {
		level = logger.Warn
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(level),
	}

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverMySQL:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBName,
		)
		dialector = mysql.Open(dsn)
	case config.DriverPostgres:
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBName,
			cfg.DBSSLMode,
		)
		dialector = postgres.Open(dsn)
	case config.DriverSQLite:
		return OpenSQLite(cfg.DBName, gormConfig)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Info("database connection established",
		zap.String("driver", cfg.DBDriver),
		zap.String("host", cfg.DBHost),
		zap.String("name", cfg.DBName),
	)
	return db, nil
}

// OpenSQLite opens a SQLite database file. ":memory:" databases live on a
// single connection, since every connection would otherwise see its own
// empty database.
func OpenSQLite(path string, gormConfig *gorm.Config) (*gorm.DB, error) {
	if gormConfig == nil {
		gormConfig = &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	}

	db, err := gorm.Open(sqlite.Open(path), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if path == memoryDSN {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// OpenMemory opens a migrated in-memory SQLite database.
func OpenMemory() (*gorm.DB, error) {
	db, err := OpenSQLite(memoryDSN, nil)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db, zap.NewNop()); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table, then adds composite indexes.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	err := db.AutoMigrate(
		&models.Profile{},
		&models.AllowedEmail{},
		&models.Task{},
		&models.TaskCounter{},
		&models.TaskComment{},
		&models.TaskEvent{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := AddIndexes(db, log); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	log.Info("database migrations completed")
	return nil
}
