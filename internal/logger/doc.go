// Package logger wraps zap for the fall-alarm binaries.
//
// It keeps one global sugared logger writing a compact console format to
// stderr (stdout belongs to the display), lets services carry a named or
// field-enriched logger inside a context, and exposes leveled helpers that
// pull the logger back out of that context.
package logger
