// Package logger provides the tag-based console logging surface used
// throughout the pipeline (Info/Success/Warn/Error/Banner/Section/Stats).
// It is a thin, colorized wrapper around zerolog's console writer.
package logger

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// colorEnabled reports whether the current stdout looks like an
// interactive terminal, re-checked on every call so that redirecting
// os.Stdout (e.g. to an os.Pipe in tests) takes effect and turns color off.
func colorEnabled() bool {
	f, ok := any(os.Stdout).(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func writer() zerolog.ConsoleWriter {
	w := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	if !colorEnabled() {
		w.NoColor = true
	}
	return w
}

func logger() zerolog.Logger {
	return zerolog.New(writer()).With().Timestamp().Logger()
}

func colorize(code, s string) string {
	if !colorEnabled() {
		return s
	}
	return code + s + colorReset
}

// Info logs an informational message tagged with component.
func Info(tag, msg string) {
	logger().Info().Msg(fmt.Sprintf("[%s] %s", tag, msg))
}

// Success logs a successful-operation message.
func Success(tag, msg string) {
	logger().Info().Msg(colorize(colorGreen, fmt.Sprintf("[%s] %s", tag, msg)))
}

// Warn logs a warning.
func Warn(tag, msg string) {
	logger().Warn().Msg(colorize(colorYellow, fmt.Sprintf("[%s] %s", tag, msg)))
}

// Error logs an error.
func Error(tag, msg string) {
	logger().Error().Msg(colorize(colorRed, fmt.Sprintf("[%s] %s", tag, msg)))
}

// Banner prints a one-line startup banner carrying the build version.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	fmt.Fprintln(os.Stdout, colorize(colorBold+colorCyan, fmt.Sprintf("auctiondb-engine %s", version)))
}

// Section prints a section divider, used to separate pipeline phases in
// the console output (ingest / export).
func Section(title string) {
	fmt.Fprintln(os.Stdout, colorize(colorBold, fmt.Sprintf("== %s ==", title)))
}

// Stats prints a single key/value stat line, used for end-of-run summaries
// (records added, items skipped, bytes written).
func Stats(key string, value any) {
	fmt.Fprintf(os.Stdout, "  %-28s %v\n", key+":", value)
}
