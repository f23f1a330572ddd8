// Package walletlog wires the zerolog setup shared by every package in
// this module, so a single place controls timestamp format and default
// level instead of each package picking its own.
package walletlog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns a logger writing human-readable output to w (or stderr
// if w is nil), tagged with component so log lines from pkg/negotiate,
// pkg/ledger, etc. are distinguishable in a merged log stream.
func New(component string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

// Nop returns a logger that discards everything, for tests that don't
// care about log output.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
