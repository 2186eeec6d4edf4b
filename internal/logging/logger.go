// Package logging builds the structured loggers used across regs.
// Output goes to stderr by default, or to a size-rotated file when a path is set.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log level string values.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Log format string values.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Attribute keys.
const (
	AttrKeyService = "service"
	AttrKeyVersion = "version"
	AttrKeySyncID  = "sync_id"
)

// Config represents logger configuration.
type Config struct {
	Level       string // "debug", "info", "warn", "error"
	Format      string // "json", "text"
	Path        string // rotated log file; empty logs to Output
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
	ServiceName string
	Version     string
	AddSource   bool
	Output      io.Writer
}

// DefaultConfig returns defaults for an interactive process.
func DefaultConfig() Config {
	return Config{
		Level:       LevelInfo,
		Format:      FormatText,
		MaxSizeMB:   10,
		MaxBackups:  3,
		MaxAgeDays:  28,
		ServiceName: "regs",
		Version:     "dev",
	}
}

// LogLevel converts the string level to slog.Level.
func (c Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn, "warning":
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsJSON returns true if format is JSON.
func (c Config) IsJSON() bool {
	return strings.ToLower(c.Format) == FormatJSON
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New creates a logger from cfg. The returned closer releases the log file
// when one is in use.
func New(cfg Config) (*slog.Logger, io.Closer) {
	var (
		out    io.Writer = cfg.Output
		closer io.Closer = nopCloser{}
	)
	if cfg.Path != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		out, closer = rotator, rotator
	}
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.LogLevel(),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.IsJSON() {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	if cfg.ServiceName != "" {
		logger = logger.With(AttrKeyService, cfg.ServiceName)
	}
	if cfg.Version != "" {
		logger = logger.With(AttrKeyVersion, cfg.Version)
	}
	return logger, closer
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type ctxKey string

const syncIDKey ctxKey = "syncID"

// NewSyncID creates a new id for tracing one sync pass.
func NewSyncID() string {
	return uuid.NewString()
}

// WithSyncID returns a new context carrying the sync id.
func WithSyncID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, syncIDKey, id)
}

// SyncIDFromContext extracts the sync id from the context, if present.
func SyncIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(syncIDKey).(string)
	return id, ok && id != ""
}

// FromContext returns base annotated with the sync id when ctx carries one.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	if id, ok := SyncIDFromContext(ctx); ok {
		return base.With(AttrKeySyncID, id)
	}
	return base
}
