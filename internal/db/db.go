package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/scrollkit/cardfeed/internal/models"
	"github.com/scrollkit/cardfeed/pkg/config"
	"github.com/scrollkit/cardfeed/pkg/logging"
)

const sqliteScheme = "sqlite://"

// zapWriter adapts zap.Logger to logger.Writer interface
type zapWriter struct {
	logger *zap.Logger
}

func (w *zapWriter) Printf(format string, args ...interface{}) {
	w.logger.Sugar().Infof(format, args...)
}

// DB wraps GORM database connection
type DB struct {
	*gorm.DB
}

// New opens the database named by cfg.URL. "sqlite://<path>" selects the
// sqlite driver (":memory:" works); anything else is handed to postgres.
func New(cfg *config.DatabaseConfig, logLevel string) (*DB, error) {
	gormLogger := logger.New(
		&zapWriter{logger: logging.WithComponent("gorm")},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogLevel(logLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	dialector, isSQLite := dialectorFor(cfg.URL)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if isSQLite {
		// sqlite allows one writer; a single connection also keeps
		// ":memory:" databases alive for the life of the pool.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logging.GetLogger().Info("Database connection established", zap.Bool("sqlite", isSQLite))

	return &DB{DB: db}, nil
}

func dialectorFor(url string) (gorm.Dialector, bool) {
	if strings.HasPrefix(url, sqliteScheme) {
		return sqlite.Open(strings.TrimPrefix(url, sqliteScheme)), true
	}
	return postgres.Open(url), false
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return logger.Info
	case "INFO":
		return logger.Warn
	case "WARN", "WARNING":
		return logger.Error
	case "ERROR":
		return logger.Silent
	default:
		return logger.Warn
	}
}

// Migrate creates or upgrades every table the service owns
func (d *DB) Migrate() error {
	err := d.DB.AutoMigrate(
		&models.Profile{},
		&models.Session{},
		&models.UserInteraction{},
		&models.TopicPreference{},
		&models.SharedContent{},
		&models.APICacheEntry{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *DB) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks database health
func (d *DB) Health(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
