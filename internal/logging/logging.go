// Package logging configures the process-wide zerolog logger: a
// colorized console writer for interactive use, a bare JSON writer for
// supervised/production use, and a level filter read from the
// environment, replacing the teacher's bare fmt.Printf box-drawing
// reports (cmd/scan/main.go, internal/backtest/types.go's Print()) with
// a real leveled logger per spec §7's "log verbosity via standard level
// filter."
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Mode selects the output writer.
type Mode int

const (
	// Console is a human-readable, colorized writer for a terminal.
	Console Mode = iota
	// JSON is one structured line per event, for log aggregation.
	JSON
)

// Init configures the global zerolog logger. level is parsed with
// zerolog.ParseLevel; an unrecognised or empty value falls back to
// info. Call once at process startup before any other package logs.
func Init(mode Mode, level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var logger zerolog.Logger
	switch mode {
	case Console:
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	default:
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	log.Logger = logger
}

// ModeFromEnv reads ARBRITO_LOG_FORMAT ("json" or "console", default
// "console").
func ModeFromEnv() Mode {
	if strings.EqualFold(os.Getenv("ARBRITO_LOG_FORMAT"), "json") {
		return JSON
	}
	return Console
}

// NetProfitEvent starts every "engine: NET PROFIT candidate found" log
// line with a highlight=true field so a console reader can grep or colour-filter on a
// single stable field regardless of mode, per spec §7's "bold/coloured
// highlights on NetProfit and on execution success/failure."
func NetProfitEvent() *zerolog.Event {
	return log.Info().Bool("highlight", true)
}

// ExecutionEvent tags a gate execution outcome (confirmed or reverted)
// the same way, for the same highlighting requirement.
func ExecutionEvent(ok bool) *zerolog.Event {
	if ok {
		return log.Info().Bool("highlight", true)
	}
	return log.Error().Bool("highlight", true)
}
