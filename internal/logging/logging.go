// Package logging is a thin level-prefixed shim over the standard library
// log package, writing level-tagged lines straight to stderr.
package logging

import (
	"log"
	"os"
)

// Logger tags every line with a level prefix.
type Logger struct {
	std *log.Logger
}

// New creates a Logger writing to stderr with the standard date/time flags.
func New(component string) *Logger {
	return &Logger{std: log.New(os.Stderr, "["+component+"] ", log.LstdFlags|log.Lmicroseconds)}
}

func (l *Logger) Debugf(format string, args ...any) { l.std.Printf("[DEBUG] "+format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.std.Printf("[INFO] "+format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.std.Printf("[WARN] "+format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.std.Printf("[ERROR] "+format, args...) }

// Fatalf logs with a [FATAL] tag then exits the process. Used for
// configuration and startup errors the monitor cannot run without.
func (l *Logger) Fatalf(format string, args ...any) { l.std.Fatalf("[FATAL] "+format, args...) }
