// Package logging builds the slog loggers used by the CLI and the session
// engine.
//
// It owns the console and JSON handlers and level parsing. Console output is
// colorized only when writing to a terminal. NewNop returns a logger for tests
// and wiring code that cannot fail.
package logging
