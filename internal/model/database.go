package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"refacto/internal/logging"

	"github.com/spf13/viper"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

var ErrNoDatabase = errors.New("neither DATABASE_PATH nor DATABASE_URL is set")

// Run opens the database named by database.path or database.url.
func Run() error {
	db, err := Open(viper.GetString("database.path"), viper.GetString("database.url"))
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects to SQLite when path is set, otherwise to the backend
// selected by the scheme of url.
func Open(path, url string) (*gorm.DB, error) {
	dialector, target, err := dialectorFor(path, url)
	if err != nil {
		return nil, err
	}

	log := logging.Component("database")

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(log, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("fail to connect to database: %w", err)
	}

	log.WithField("target", target).Info("database connected")
	return db, nil
}

func dialectorFor(path, url string) (gorm.Dialector, string, error) {
	if path != "" {
		return sqliteDialector(path)
	}

	switch {
	case url == "":
		return nil, "", ErrNoDatabase
	case strings.HasPrefix(url, "sqlite:///"):
		return sqliteDialector(strings.TrimPrefix(url, "sqlite:///"))
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgres.Open(url), "postgres", nil
	case strings.HasPrefix(url, "mysql://"):
		return mysql.Open(strings.TrimPrefix(url, "mysql://")), "mysql", nil
	case strings.Contains(url, "@tcp("):
		return mysql.Open(url), "mysql", nil
	default:
		return nil, "", fmt.Errorf("unsupported database url %q", url)
	}
}

func sqliteDialector(path string) (gorm.Dialector, string, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, "", fmt.Errorf("fail to create database directory: %w", err)
		}
	}
	return sqlite.Open(path + "?_foreign_keys=on"), "sqlite:" + path, nil
}

// AutoMigrate creates the task tables and their foreign keys.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Task{}, &InputOutput{}, &Input{}, &Output{})
}
