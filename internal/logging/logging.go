// Package logging maps the server's verbosity levels onto a zap logger,
// built from zap.NewProductionConfig with an AtomicLevel swapped in so the
// level can be retuned after construction.
package logging

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the control-shell verbosity scale, ordered least to most chatty.
type Level int

const (
	None Level = iota
	Exception
	Error
	Warning
	Log
	Info
	Debug
)

var levelNames = [...]string{
	None:      "None",
	Exception: "Exception",
	Error:     "Error",
	Warning:   "Warning",
	Log:       "Log",
	Info:      "Info",
	Debug:     "Debug",
}

func (l Level) String() string {
	if l < None || l > Debug {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel resolves a verbosity level either by name, case-insensitively,
// or by its integer value 0 (None) through 6 (Debug).
func ParseLevel(s string) (Level, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		if n < int(None) || n > int(Debug) {
			return None, fmt.Errorf("logging: verbosity %d out of range 0-%d", n, int(Debug))
		}
		return Level(n), nil
	}
	for l, name := range levelNames {
		if strings.EqualFold(name, s) {
			return Level(l), nil
		}
	}
	return None, fmt.Errorf("logging: unknown verbosity %q", s)
}

// zapLevel maps a control-shell Level to the zapcore.Level that enables the
// same or noisier output. None disables logging entirely.
func (l Level) zapLevel() zapcore.Level {
	switch l {
	case Exception, Error:
		return zapcore.ErrorLevel
	case Warning:
		return zapcore.WarnLevel
	case Log, Info:
		return zapcore.InfoLevel
	case Debug:
		return zapcore.DebugLevel
	default:
		return zapcore.FatalLevel + 1 // above Fatal: nothing is enabled
	}
}

// New builds a zap.Logger whose minimum enabled level corresponds to level.
// The AtomicLevel is returned too so a running server can retune verbosity
// at runtime via the "verbosity" shell command without rebuilding the
// logger.
func New(level Level) (*zap.Logger, zap.AtomicLevel, error) {
	cfg := zap.NewProductionConfig()
	atom := zap.NewAtomicLevelAt(level.zapLevel())
	cfg.Level = atom

	logger, err := cfg.Build()
	if err != nil {
		return nil, atom, fmt.Errorf("logging: building logger: %w", err)
	}
	return logger, atom, nil
}

// SetLevel retunes an existing logger's AtomicLevel in place.
func SetLevel(atom zap.AtomicLevel, level Level) {
	atom.SetLevel(level.zapLevel())
}
