package logger

import (
	"sync"
)

// Log levels used across the application.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	// globalLogger holds the singleton logger instance.
	globalLogger *Logger
	once         sync.Once
)

// Get returns a singleton logger configured with the provided level.
// The first call initializes the logger; subsequent calls ignore the level
// and return the already initialized instance.
func Get(level string) *Logger {
	once.Do(func() {
		globalLogger = newZapLogger(level)
	})
	return globalLogger
}

// With returns a child logger carrying the given structured fields.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(args...)}
}

// Nop returns a logger that discards everything. Intended for tests.
func Nop() *Logger {
	return newNopLogger()
}
