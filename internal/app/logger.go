package app

import (
	"io"
	"os"
	"time"

	"github.com/denizgursoy/cukexml/pkg/config"
	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logMaxSizeMB  = 10
	logMaxBackups = 3
	logMaxAgeDays = 28
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// selectLevel maps the verbosity flags to a zerolog level.
func selectLevel(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// selectOutput uses a console writer on a colour terminal and JSON lines
// everywhere else.
func selectOutput(stderr io.Writer, noColor bool) io.Writer {
	if isTerminal(stderr) && !noColor && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{
			Out:        stderr,
			TimeFormat: time.Kitchen,
		}
	}
	return stderr
}

// newLogger builds the logger of one command. The returned closer releases
// the log file, if any.
func newLogger(cfg config.Config, stderr io.Writer) (zerolog.Logger, io.Closer) {
	writer := selectOutput(stderr, cfg.NoColor)
	var closer io.Closer = nopCloser{}

	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			MaxAge:     logMaxAgeDays,
		}
		writer = zerolog.MultiLevelWriter(writer, file)
		closer = file
	}

	logger := zerolog.New(writer).Level(selectLevel(cfg.Verbose, cfg.Quiet)).With().Timestamp().Logger()
	return logger, closer
}
