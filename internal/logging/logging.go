// Package logging wires the standard library's log package to a rotating
// file on disk.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ienorand/cosmos-ccsds-transfer-frames/internal/config"
)

// Setup points the standard logger at both stdout and a lumberjack-managed
// rotating file under cfg.Directory, returning the rotator so callers can
// Close it on shutdown.
func Setup(cfg config.LogConfig) (io.Closer, error) {
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("logging: create log dir: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Directory, "ccsdsdemux.log"),
		MaxSize:    cfg.MaxSizeMB,
		MaxAge:     cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}

	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	return rotator, nil
}
