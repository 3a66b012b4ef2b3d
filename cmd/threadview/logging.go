package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// logLevel resolves --log-level, which --verbose raises to debug.
func logLevel(level string, verbose bool) (zerolog.Level, error) {
	if level == "" {
		level = "info"
	}
	ret, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "unknown log level %q", level)
	}
	if verbose && ret > zerolog.DebugLevel {
		ret = zerolog.DebugLevel
	}
	return ret, nil
}

// logWriter writes to stderr, as console text or JSON, and additionally into a rotated logFile.
func logWriter(format string, logFile string) io.Writer {
	var ret io.Writer = os.Stderr
	if format == "text" {
		ret = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	if logFile == "" {
		return ret
	}
	return io.MultiWriter(ret, zerolog.ConsoleWriter{
		NoColor: true,
		Out: &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
		},
	})
}

func initLogger(level string, verbose bool, format string, logFile string, withCaller bool) error {
	l, err := logLevel(level, verbose)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(l)

	logger := zerolog.New(logWriter(format, logFile)).With().Timestamp()
	if withCaller {
		logger = logger.Caller()
	}
	log.Logger = logger.Logger()
	return nil
}
