package config

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogging points the standard logger at stderr and, when Logging.File
// is set, at a size-rotated log file as well. The returned closer releases
// the file.
func (c *Config) SetupLogging() io.Closer {
	log.SetFlags(log.LstdFlags)
	if c.Logging.File == "" {
		log.SetOutput(os.Stderr)
		return nopCloser{}
	}
	logger := &lumberjack.Logger{
		Filename:   c.Logging.File,
		MaxSize:    c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, logger))
	return logger
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
