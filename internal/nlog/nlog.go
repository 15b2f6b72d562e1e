// Package nlog is a thin wrapper around zerolog, mirroring the way
// aistore's own cmn/nlog wraps its logging backend so call sites never
// import zerolog directly. Configure once from the CLI root command via
// SetDebug; everything logged before that uses the default (info-level,
// human-readable) sink.
package nlog

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
	With().Timestamp().Logger().Level(zerolog.InfoLevel)

// SetDebug mirrors trace_to_goal/__main__.py's cli(debug) group callback,
// which swaps loguru's sink/format when --debug is absent. Here it just
// widens or narrows the zerolog level.
func SetDebug(debug bool) {
	if debug {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}
}

// SetOutput redirects the logger's sink, used by tests that want to
// silence or capture log output.
func SetOutput(w io.Writer) {
	logger = logger.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen})
}

func Debugf(format string, args ...any) { logger.Debug().Msgf(format, args...) }
func Infof(format string, args ...any)  { logger.Info().Msgf(format, args...) }
func Warnf(format string, args ...any)  { logger.Warn().Msgf(format, args...) }
func Errorf(format string, args ...any) { logger.Error().Msgf(format, args...) }

func Debugln(args ...any) { logger.Debug().Msg(fmt.Sprint(args...)) }
func Infoln(args ...any)  { logger.Info().Msg(fmt.Sprint(args...)) }
func Errorln(args ...any) { logger.Error().Msg(fmt.Sprint(args...)) }
