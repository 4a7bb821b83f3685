package logger

import (
	"go.uber.org/zap"
)

// Log is the process-wide logger. It is a no-op until Init is called so that
// packages can log from tests without setup.
var Log = zap.NewNop().Sugar()

// Init builds the global logger. level is a zap level name ("debug", "info", ...).
func Init(level string, development bool) error {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}

	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return err
		}
		cfg.Level = lvl
	}

	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = logger.Sugar()
	return nil
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Log.Sync()
}
