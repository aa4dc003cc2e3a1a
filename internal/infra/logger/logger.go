// Package logger owns the process-wide zap logger.
package logger

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sifan077/LinkGate/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Config drives how the zap logger is built.
type Config struct {
	Development bool
	Level       string
	// Encoding is "console" or "json"; empty picks console in development and json otherwise.
	Encoding string
	// Service is attached to every entry so shipped logs can be told apart.
	Service string
}

// FromApp derives the logger config from the application section.
func FromApp(app config.AppConfig, service string) Config {
	return Config{
		Development: app.IsDevelopment(),
		Level:       app.LogLevel,
		Encoding:    app.LogEncoding,
		Service:     service,
	}
}

var (
	mu     sync.RWMutex
	global *zap.Logger
)

// Init builds a logger from cfg and installs it as the global logger.
func Init(cfg Config) (*zap.Logger, error) {
	l, err := New(cfg)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	prev := global
	global = l
	mu.Unlock()

	if prev != nil {
		_ = prev.Sync()
	}
	zap.ReplaceGlobals(l)
	return l, nil
}

// MustInit panics if the logger cannot be built.
func MustInit(cfg Config) *zap.Logger {
	l, err := Init(cfg)
	if err != nil {
		panic(err)
	}
	return l
}

// L returns the global logger, falling back to a development logger before Init.
func L() *zap.Logger {
	mu.RLock()
	l := global
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		global = zap.Must(New(Config{Development: true}))
	}
	return global
}

// Sync flushes the global logger. Errors from syncing a terminal are ignored.
func Sync() error {
	mu.RLock()
	l := global
	mu.RUnlock()
	if l == nil {
		return nil
	}

	err := l.Sync()
	if errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EINVAL) || errors.Is(err, os.ErrInvalid) {
		return nil
	}
	return err
}

// New returns a logger configured according to cfg.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Development {
		level = zapcore.DebugLevel
	}
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return nil, fmt.Errorf("logger: invalid level %q: %w", cfg.Level, err)
		}
	}

	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "json"
		if cfg.Development {
			encoding = "console"
		}
	}

	var encoder zapcore.Encoder
	switch encoding {
	case "console":
		encoder = zapcore.NewConsoleEncoder(consoleEncoderConfig(colorize()))
	case "json":
		encoder = zapcore.NewJSONEncoder(jsonEncoderConfig())
	default:
		return nil, fmt.Errorf("logger: unsupported encoding %q", encoding)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(level))
	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}
	if cfg.Service != "" {
		opts = append(opts, zap.Fields(zap.String("service", cfg.Service)))
	}
	return zap.New(core, opts...), nil
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.StacktraceKey = "stack"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}

func consoleEncoderConfig(colors bool) zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.ConsoleSeparator = " | "
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
	}
	cfg.EncodeLevel = func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		label := fmt.Sprintf("%-5s", level.CapitalString())
		if colors {
			label = levelColors[level] + label + colorReset
		}
		enc.AppendString(label)
	}
	return cfg
}

func colorize() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

const colorReset = "\x1b[0m"

var levelColors = map[zapcore.Level]string{
	zapcore.DebugLevel:  "\x1b[36m",
	zapcore.InfoLevel:   "\x1b[32m",
	zapcore.WarnLevel:   "\x1b[33m",
	zapcore.ErrorLevel:  "\x1b[31m",
	zapcore.DPanicLevel: "\x1b[35m",
	zapcore.PanicLevel:  "\x1b[35m",
	zapcore.FatalLevel:  "\x1b[31m",
}
