// Package log holds the process-wide zap logger used by molprint.
//
// The global logger starts at warn level and writes console-encoded lines to
// stderr. Featurizers derive per-call child loggers from it through ForVerbosity,
// so a transformer's Verbose setting never changes the global level.
package log

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	_globalL     atomic.Value
	_globalLevel = zap.NewAtomicLevelAt(zapcore.WarnLevel)
)

func init() {
	_globalL.Store(newStdLogger(os.Stderr))
}

func newStdLogger(out zapcore.WriteSyncer) *zap.Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(out), zap.LevelEnablerFunc(func(zapcore.Level) bool {
		return true
	}))
	return zap.New(core)
}

// L returns the global Logger, which can be reconfigured with ReplaceGlobals.
// It's safe for concurrent use.
func L() *zap.Logger {
	return _globalL.Load().(*zap.Logger).WithOptions(zap.IncreaseLevel(_globalLevel))
}

// ReplaceGlobals replaces the global Logger. It's safe for concurrent use.
func ReplaceGlobals(logger *zap.Logger) {
	_globalL.Store(logger)
}

// SetLevel changes the minimum level of the global logger.
func SetLevel(l zapcore.Level) {
	_globalLevel.SetLevel(l)
}

// With creates a child logger of the global logger with extra fields.
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}

// VerbosityLevel maps a transformer verbosity onto a zap level:
// 0 is warn, 1 is info, 2 and above is debug.
func VerbosityLevel(verbose int) zapcore.Level {
	switch {
	case verbose <= 0:
		return zapcore.WarnLevel
	case verbose == 1:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// ForVerbosity returns a child logger that emits entries at or above the level
// implied by verbose, independent of the global level.
func ForVerbosity(verbose int, fields ...zap.Field) *zap.Logger {
	lvl := VerbosityLevel(verbose)
	base := _globalL.Load().(*zap.Logger)
	return base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return levelCore{Core: c, min: lvl}
	})).With(fields...)
}

// levelCore filters entries below min without touching the wrapped core.
type levelCore struct {
	zapcore.Core
	min zapcore.Level
}

func (c levelCore) Enabled(l zapcore.Level) bool {
	return l >= c.min && c.Core.Enabled(l)
}

func (c levelCore) With(fields []zapcore.Field) zapcore.Core {
	return levelCore{Core: c.Core.With(fields), min: c.min}
}

func (c levelCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

// Module names used with FieldModule.
const (
	FieldNameModule    = "module"
	FieldNameComponent = "component"
)

// FieldModule returns a zap field with the module name.
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

// FieldComponent returns a zap field with the component name.
func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}
