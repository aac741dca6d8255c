package logging

import (
	"os"
	"sync/atomic"
)

// global is read by every package-level helper. Configure swaps it once at
// startup, but background jobs may already be logging by then.
var global atomic.Pointer[Logger]

// init builds a logger from LOG_* variables so packages can log before config loads
func init() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	global.Store(New(Config{
		Level:       level,
		Output:      os.Stdout,
		EnableColor: os.Getenv("LOG_COLOR") != "false",
		JSON:        os.Getenv("LOG_FORMAT") == "json",
	}))
}

// Default returns the process-wide logger
func Default() *Logger {
	return global.Load()
}

// Configure replaces the process-wide logger. Loggers already derived with
// WithPrefix keep writing through the previous one.
func Configure(config Config) {
	previous := global.Swap(New(config))
	if previous != nil {
		previous.Sync()
	}
}

// Sync flushes buffered entries; call it before exit
func Sync() error {
	return Default().Sync()
}

func Debugf(format string, args ...interface{}) { Default().Debugf(format, args...) }

func Info(args ...interface{}) { Default().Info(args...) }

func Infof(format string, args ...interface{}) { Default().Infof(format, args...) }

func Warnf(format string, args ...interface{}) { Default().Warnf(format, args...) }

func Errorf(format string, args ...interface{}) { Default().Errorf(format, args...) }

// Fatalf logs at FATAL and exits
func Fatalf(format string, args ...interface{}) { Default().Fatalf(format, args...) }

// WithPrefix returns a component logger, e.g. logging.WithPrefix("Odds")
func WithPrefix(prefix string) *Logger {
	return Default().WithPrefix(prefix)
}
