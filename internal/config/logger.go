package config

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// NewLogger creates the process logger with timestamps and the configured
// level. The writer defaults to os.Stderr; an unknown level falls back to
// info.
func NewLogger(cfg LogConfig, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	logger := log.NewWithOptions(w, log.Options{ReportTimestamp: true, Prefix: "pms"})
	if lvl, err := log.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}
