// Package logging configures the process-wide zerolog logger. Logs go to
// stderr; stdout carries the report.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel   = "FLEETCTL_LOG_LEVEL"
	EnvLogNoColor = "FLEETCTL_LOG_NOCOLOR"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

type Config struct {
	Level   zerolog.Level
	NoColor bool
	Out     io.Writer
}

func DefaultConfig(profile Profile) Config {
	cfg := Config{Out: os.Stderr}
	switch profile {
	case ProfileTest:
		cfg.Level = zerolog.DebugLevel
		cfg.NoColor = true
	default:
		cfg.Level = zerolog.WarnLevel
	}
	return cfg
}

// Configure installs a console logger built from the profile defaults, the
// environment, and finally level when it is non-empty. A nil out keeps
// stderr. Every record carries a fresh run_id.
func Configure(profile Profile, level string, out io.Writer) (zerolog.Logger, error) {
	cfg := DefaultConfig(profile)
	if out != nil {
		cfg.Out = out
	}
	applyEnvOverrides(&cfg)
	if level != "" {
		lvl, ok := ParseLevel(level)
		if !ok {
			return log.Logger, &InvalidLevelError{Value: level}
		}
		cfg.Level = lvl
	}
	return Install(cfg), nil
}

// Install replaces the global logger.
func Install(cfg Config) zerolog.Logger {
	out := zerolog.ConsoleWriter{
		Out:        cfg.Out,
		NoColor:    cfg.NoColor,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(out).
		Level(cfg.Level).
		With().
		Timestamp().
		Str("run_id", uuid.NewString()).
		Logger()
	log.Logger = logger
	return logger
}

type InvalidLevelError struct {
	Value string
}

func (e *InvalidLevelError) Error() string {
	return "invalid log level " + strconv.Quote(e.Value)
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
}

// ParseLevel accepts the zerolog level names plus a few aliases.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
