package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Slimpush/api-yamdb-final-master/pkg/config"
	"github.com/Slimpush/api-yamdb-final-master/pkg/models"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	connectAttempts = 10
	connectBackoff  = 5 * time.Second

	slowQueryThreshold = 200 * time.Millisecond
)

// newGormLogger sends gorm's query and slow-query records through logger.
func newGormLogger(logger *slog.Logger, level gormlogger.LogLevel) gormlogger.Interface {
	return gormlogger.NewSlogLogger(logger, gormlogger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// Open connects to the configured database, tunes the pool and migrates the
// schema. For postgres it retries while the server comes up.
func Open(cfg config.DatabaseConfig, logger *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, cfg.SSLMode)
		logger.Info("connecting to database", "driver", cfg.Driver, "host", cfg.Host, "port", cfg.Port, "name", cfg.Name)
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		logger.Info("connecting to database", "driver", cfg.Driver, "path", cfg.SQLitePath)
		dialector = sqlite.Open(sqliteDSN(cfg.SQLitePath))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(logger, gormlogger.Warn),
	}

	var db *gorm.DB
	var err error
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(dialector, gormConfig)
		if err == nil {
			break
		}
		logger.Warn("database connection attempt failed", "attempt", i+1, "of", connectAttempts, "error", err)
		if cfg.Driver != DriverPostgres {
			break
		}
		if i < connectAttempts-1 {
			time.Sleep(connectBackoff)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if cfg.Driver == DriverSQLite {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logger.Info("database connection established")
	return db, nil
}

// OpenSQLiteMemory opens a private in-memory database with the schema applied.
// Each call gets its own database. Query logging is off.
func OpenSQLiteMemory(name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(slog.New(slog.DiscardHandler), gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	return nil
}

// TxOptions returns the isolation level used for read-then-write units.
// SQLite transactions are already serialized, so it gets the driver default.
func TxOptions(db *gorm.DB) *sql.TxOptions {
	if db.Dialector.Name() == DriverPostgres {
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return nil
}

// Ping reports whether the database answers.
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func sqliteDSN(path string) string {
	if path == "" {
		path = "yamdb.sqlite3"
	}
	return fmt.Sprintf("file:%s?_foreign_keys=on", path)
}
