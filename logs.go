// Logging setup. Verbosity is a repeatable -v flag that raises the
// level from the default error-only output up to trace; --log-to-file
// redirects everything to a timestamped file under ~/.paperoni/logs.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// verbosityLevel maps the -v count to a zerolog level.
func verbosityLevel(verbose int) zerolog.Level {
	switch verbose {
	case 0:
		return zerolog.ErrorLevel
	case 1:
		return zerolog.WarnLevel
	case 2:
		return zerolog.InfoLevel
	case 3:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// initLogging configures the global logger. The returned closer is nil
// unless a log file was opened.
func initLogging(verbose int, logToFile bool) (io.Closer, error) {
	zerolog.SetGlobalLevel(verbosityLevel(verbose))
	zerolog.TimeFieldFormat = time.RFC3339

	if logToFile {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, wrapError(KindIO, err)
		}
		dir := filepath.Join(home, ".paperoni", "logs")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, wrapError(KindIO, err)
		}
		name := fmt.Sprintf("paperoni_%s.log", time.Now().Format("2006-01-02_15-04-05"))
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return nil, wrapError(KindIO, err)
		}
		log.Logger = zerolog.New(f).With().Timestamp().Logger()
		return f, nil
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	log.Logger = zerolog.New(console).With().Timestamp().Logger()
	return nil, nil
}
