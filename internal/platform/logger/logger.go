// Package logger provides structured logging for the colony server.
// Every state change the simulation makes should be traceable through this.
package logger

import (
	"log"
	"os"
)

// Logger provides leveled logging with context.
type Logger struct {
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
}

// New creates a new logger instance.
func New() *Logger {
	return &Logger{
		infoLogger:  log.New(os.Stdout, "[COLONY-INFO] ", log.Ldate|log.Ltime|log.Lshortfile),
		warnLogger:  log.New(os.Stdout, "[COLONY-WARN] ", log.Ldate|log.Ltime|log.Lshortfile),
		errorLogger: log.New(os.Stderr, "[COLONY-ERROR] ", log.Ldate|log.Ltime|log.Lshortfile),
	}
}

// Info logs informational messages. Args, when given, are formatted
// Printf-style against msg.
func (l *Logger) Info(msg string, args ...interface{}) {
	logf(l.infoLogger, msg, args...)
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string, args ...interface{}) {
	logf(l.warnLogger, msg, args...)
}

// Error logs error messages.
func (l *Logger) Error(msg string, args ...interface{}) {
	logf(l.errorLogger, msg, args...)
}

// Event logs a specific simulation event for operator oversight.
func (l *Logger) Event(eventType string, actorID string, details string) {
	l.infoLogger.Printf("[EVENT:%s] Actor:%s | %s", eventType, actorID, details)
}

func logf(l *log.Logger, msg string, args ...interface{}) {
	if len(args) == 0 {
		l.Println(msg)
		return
	}
	l.Printf(msg, args...)
}
