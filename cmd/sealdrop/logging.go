package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const logLevelEnvKey = "SEALDROP_LOG_LEVEL"

// configureLogger installs the default slog logger. Flag wins over
// env wins over config; an unparsable level falls back to info with a
// returned warning.
func configureLogger(flagLevel, configLevel string) string {
	raw := flagLevel
	if strings.TrimSpace(raw) == "" {
		raw = os.Getenv(logLevelEnvKey)
	}
	if strings.TrimSpace(raw) == "" {
		raw = configLevel
	}

	level, err := parseLogLevel(raw)
	if err != nil {
		level = slog.LevelInfo
		slog.SetDefault(newLogger(level))
		return fmt.Sprintf("warning: %v; defaulting to info", err)
	}
	slog.SetDefault(newLogger(level))
	return ""
}

func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return slog.LevelInfo, nil
	}
	if strings.EqualFold(value, "warning") {
		value = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
