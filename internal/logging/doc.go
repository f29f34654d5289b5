// Package logging builds the shared slog logger for garland.
//
// It provides console and JSON handlers, attr helper constructors so call
// sites stay terse, and context-derived fields (batch, stage, row, user)
// that keep import pipeline logs correlated.
package logging
