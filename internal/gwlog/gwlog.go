// Package gwlog configures the process-wide structured logger and the
// request-id propagating Gin middleware built on top of it.
package gwlog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction at process startup.
type Config struct {
	// Debug selects the logrus TextFormatter for local development;
	// the default is newline-delimited JSON, suited to log aggregation.
	Debug bool

	// FilePath, if set, routes log output through a rotating file
	// writer instead of stderr.
	FilePath   string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
}

// New builds the process-wide logger per Config and returns it. Callers
// typically assign the result to logrus's standard logger with
// logrus.SetOutput/SetFormatter, or hold it and pass it through
// explicitly; this gateway does the former so every package's
// log.WithFields call shares one sink.
func New(cfg Config) *logrus.Logger {
	logger := logrus.New()

	if cfg.Debug {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetLevel(logrus.InfoLevel)
	}

	logger.SetOutput(output(cfg))
	return logger
}

func output(cfg Config) io.Writer {
	if cfg.FilePath == "" {
		return os.Stderr
	}
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	maxAge := cfg.MaxAgeDays
	if maxAge <= 0 {
		maxAge = 28
	}
	maxBackups := cfg.MaxBackups
	if maxBackups <= 0 {
		maxBackups = 7
	}
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    maxSize,
		MaxAge:     maxAge,
		MaxBackups: maxBackups,
		Compress:   true,
	}
}
