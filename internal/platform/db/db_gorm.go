// Package db はGORMによるデータベース接続とマイグレーションを提供します。
package db

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	authentity "finance_backend/internal/feature/auth/domain/entity"
	notificationadapters "finance_backend/internal/feature/notifications/adapters"
	portfolioadapters "finance_backend/internal/feature/portfolio/adapters"
	"finance_backend/internal/platform/config"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	// retryInterval は接続リトライの間隔です。
	retryInterval = 3 * time.Second
)

// Config はデータベース接続の設定です。
type Config struct {
	Driver        string // "postgres" または "sqlite"
	User          string
	Password      string
	Name          string
	Host          string
	Port          string
	SSLMode       string
	SQLitePath    string // DB_DRIVER=sqlite のときのファイルパス
	ConnTimeout   time.Duration
	RunMigrations bool
}

// LoadConfigFromEnv は環境変数からデータベース設定を読み込みます。
func LoadConfigFromEnv() Config {
	return Config{
		Driver:        strings.ToLower(config.String("DB_DRIVER", DriverPostgres)),
		User:          config.String("DB_USER", ""),
		Password:      config.String("DB_PASSWORD", ""),
		Name:          config.String("DB_NAME", ""),
		Host:          config.String("DB_HOST", "localhost"),
		Port:          config.String("DB_PORT", "5432"),
		SSLMode:       config.String("DB_SSLMODE", "disable"),
		SQLitePath:    config.String("SQLITE_PATH", "finance.db"),
		ConnTimeout:   config.Duration("DB_CONNECT_TIMEOUT", 60*time.Second),
		RunMigrations: config.Bool("RUN_MIGRATIONS", false),
	}
}

// BuildDSN はPostgreSQL用のキーワード形式DSNを生成します。
func BuildDSN(cfg Config) string {
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, sslmode)
}

// Opener は DSN から *gorm.DB を開く関数です。
type Opener func(dsn string) (*gorm.DB, error)

func gormConfig() *gorm.Config {
	// 一意制約違反を gorm.ErrDuplicatedKey に変換する
	return &gorm.Config{TranslateError: true}
}

// OpenerFor は cfg.Driver に対応する Opener と DSN を返します。
func OpenerFor(cfg Config) (Opener, string, error) {
	switch cfg.Driver {
	case DriverPostgres, "":
		return func(dsn string) (*gorm.DB, error) {
			return gorm.Open(postgres.Open(dsn), gormConfig())
		}, BuildDSN(cfg), nil
	case DriverSQLite:
		return func(dsn string) (*gorm.DB, error) {
			return gorm.Open(sqlite.Open(dsn), gormConfig())
		}, cfg.SQLitePath, nil
	default:
		return nil, "", fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

// ConnectWithRetry は timeout に達するまで一定間隔で接続を試みます。
func ConnectWithRetry(dsn string, timeout time.Duration, open Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := open(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("db connect failed after %s: %w", timeout, err)
		}
		slog.Warn("DB connect failed, retrying...", "error", err)
		time.Sleep(retryInterval)
	}
}

// Migrate はアプリケーションの全テーブルを作成または更新します。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&authentity.User{},
		&portfolioadapters.HoldingModel{},
		&notificationadapters.NotificationModel{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// OpenDB は設定に従ってデータベースに接続し、必要ならマイグレーションを実行します。
func OpenDB(cfg Config) (*gorm.DB, error) {
	open, dsn, err := OpenerFor(cfg)
	if err != nil {
		return nil, err
	}
	db, err := ConnectWithRetry(dsn, cfg.ConnTimeout, open)
	if err != nil {
		return nil, err
	}
	slog.Info("database connected", "driver", cfg.Driver)

	if cfg.RunMigrations {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		slog.Info("database migrated")
	}
	return db, nil
}
