// Package log provides the leveled logger used throughout the server. It
// wraps zerolog so that every component can log through a small,
// dependency-light interface rather than importing zerolog directly.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger().Level(zerolog.InfoLevel)
}

// Configure sets the minimum level that will be emitted and, when verbose is
// true, drops the level down to debug. Use SetOutput to redirect output.
func Configure(verbose bool) {
	lvl := zerolog.InfoLevel
	if verbose {
		lvl = zerolog.DebugLevel
	}
	logger = logger.Level(lvl)
}

// SetOutput redirects the logger's sink; used by tests to capture output.
func SetOutput(w io.Writer) {
	logger = logger.Output(w)
}

func Debugf(format string, v ...interface{}) { logger.Debug().Msgf(format, v...) }
func Debug(msg string)                       { logger.Debug().Msg(msg) }
func Infof(format string, v ...interface{})  { logger.Info().Msgf(format, v...) }
func Info(msg string)                        { logger.Info().Msg(msg) }
func Warningf(format string, v ...interface{}) { logger.Warn().Msgf(format, v...) }
func Warning(msg string)                     { logger.Warn().Msg(msg) }
func Errorf(format string, v ...interface{}) { logger.Error().Msgf(format, v...) }
func Error(msg string)                       { logger.Error().Msg(msg) }
func Fatalf(format string, v ...interface{}) { logger.Fatal().Msgf(format, v...) }
func Fatal(msg string)                       { logger.Fatal().Msg(msg) }

// Sink is the upstream-facing logger contract: a leveled sink that
// accepts string bodies. Components depend on this interface, not on the
// package-level functions, so tests can inject a recording sink.
type Sink interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warningf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// packageSink adapts the package-level functions to Sink so production code
// can pass log.Default() wherever a Sink is expected.
type packageSink struct{}

func (packageSink) Debugf(format string, v ...interface{})   { Debugf(format, v...) }
func (packageSink) Infof(format string, v ...interface{})    { Infof(format, v...) }
func (packageSink) Warningf(format string, v ...interface{}) { Warningf(format, v...) }
func (packageSink) Errorf(format string, v ...interface{})   { Errorf(format, v...) }

// Default returns a Sink backed by the package-level logger.
func Default() Sink { return packageSink{} }
