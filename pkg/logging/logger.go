package logging

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	logger *log.Logger
	once   sync.Once
)

// New builds a logger writing to w at level ("debug", "info", "warn",
// "error"). Unknown levels fall back to info. Debug adds timestamps and
// caller information.
func New(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}

	opts := log.Options{
		Prefix: "stasher",
		Level:  lvl,
	}
	if lvl == log.DebugLevel {
		opts.ReportTimestamp = true
		opts.ReportCaller = true
	}
	return log.NewWithOptions(w, opts)
}

// Init sets the process-wide logger once; later calls are ignored.
func Init(level string) *log.Logger {
	once.Do(func() {
		logger = New(os.Stderr, level)
		log.SetDefault(logger)
	})
	return logger
}

// Get returns the process-wide logger, initializing it at info level if
// Init was never called.
func Get() *log.Logger {
	return Init("info")
}
