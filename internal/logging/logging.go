package logging

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	defaultLogger     zerolog.Logger
	defaultLoggerOnce sync.Once

	subsystemLoggers = make(map[string]*zerolog.Logger)
	subsystemMutex   sync.Mutex
)

// initDefaultLogger builds the process-wide root logger. Console output is
// used when stderr is a terminal-ish environment (OXBOARD_PRETTY_LOGS),
// structured JSON otherwise.
func initDefaultLogger() {
	level := parseLevel(os.Getenv("OXBOARD_LOG_LEVEL"))

	var out zerolog.Logger
	if os.Getenv("OXBOARD_PRETTY_LOGS") != "" {
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		out = zerolog.New(writer)
	} else {
		out = zerolog.New(os.Stderr)
	}

	defaultLogger = out.Level(level).With().Timestamp().Logger()
}

// parseLevel maps a level name to a zerolog level, defaulting to info
func parseLevel(name string) zerolog.Level {
	switch strings.ToLower(name) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// GetDefaultLogger returns the process-wide root logger
func GetDefaultLogger() *zerolog.Logger {
	defaultLoggerOnce.Do(initDefaultLogger)
	return &defaultLogger
}

// GetSubsystemLogger returns a logger scoped to the given subsystem.
// Loggers are cached so repeated lookups return the same instance.
func GetSubsystemLogger(subsystem string) *zerolog.Logger {
	subsystemMutex.Lock()
	defer subsystemMutex.Unlock()

	if l, ok := subsystemLoggers[subsystem]; ok {
		return l
	}
	l := GetDefaultLogger().With().Str("subsystem", subsystem).Logger()
	subsystemLoggers[subsystem] = &l
	return &l
}

// SetGlobalLevel overrides the level of the default logger at runtime
func SetGlobalLevel(name string) {
	defaultLoggerOnce.Do(initDefaultLogger)
	defaultLogger = defaultLogger.Level(parseLevel(name))
}
