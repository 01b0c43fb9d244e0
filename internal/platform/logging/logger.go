// Package logging は slog のロガーを設定から生成します。
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"finance_backend/internal/platform/config"
)

// Config はログ出力の設定です。
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text または json
}

// LoadConfig は LOG_LEVEL と LOG_FORMAT を読み込みます。
func LoadConfig() Config {
	return Config{
		Level:  config.String("LOG_LEVEL", "info"),
		Format: config.String("LOG_FORMAT", "text"),
	}
}

// ParseLevel はログレベル名を slog.Level に変換します。不明な値は Info になります。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger は w に出力するロガーを生成します。
func NewLogger(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Setup は標準エラー出力へのロガーを生成し、slog のデフォルトに設定します。
func Setup(cfg Config) *slog.Logger {
	logger := NewLogger(os.Stderr, cfg)
	slog.SetDefault(logger)
	return logger
}
